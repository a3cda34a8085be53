package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tracker-sync/internal/http/middleware"
	"tracker-sync/internal/model"
	"tracker-sync/internal/service"
)

type SyncRunner interface {
	Run(ctx context.Context, req service.SyncRequest) (*model.RunSummary, error)
}

type Handler struct {
	syncService SyncRunner
	log         zerolog.Logger
}

func NewHandler(syncService SyncRunner, log zerolog.Logger) *Handler {
	return &Handler{
		syncService: syncService,
		log:         log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api/tracker-sync")
	{
		api.GET("/health", h.health)
		api.POST("", authMiddleware, h.runSync)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type syncRequest struct {
	Mode    string              `json:"mode" binding:"omitempty,oneof=auto manual"`
	Devices []model.DeviceInput `json:"devices"`
	DryRun  bool                `json:"dryRun"`
}

func (h *Handler) runSync(c *gin.Context) {
	var req syncRequest
	// An empty body means "auto mode with defaults".
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusOK, errorResponse(err.Error()))
		return
	}

	caller := "anonymous"
	if claims, ok := middleware.Claims(c); ok && claims.Service != "" {
		caller = claims.Service
	}
	h.log.Info().
		Str("caller", caller).
		Str("mode", req.Mode).
		Bool("dry_run", req.DryRun).
		Int("devices", len(req.Devices)).
		Msg("sync requested")

	summary, err := h.syncService.Run(c.Request.Context(), service.SyncRequest{
		Mode:    model.SyncMode(req.Mode),
		Devices: req.Devices,
		DryRun:  req.DryRun,
	})
	if err != nil {
		h.handleError(c, summary, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(summary))
}

// handleError keeps handled failures on 200 with success=false so callers
// always get a body they can render; only unknown errors become 500.
func (h *Handler) handleError(c *gin.Context, summary *model.RunSummary, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusOK, errorResponse(err.Error()))
	case errors.Is(err, service.ErrVehiclesUnavailable):
		h.log.Error().Err(err).Msg("vehicle list unavailable")
		c.JSON(http.StatusOK, errorResponse(err.Error()))
	case errors.Is(err, service.ErrPortal):
		resp := errorResponse(err.Error())
		resp["summary"] = summary
		c.JSON(http.StatusOK, resp)
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(summary *model.RunSummary) gin.H {
	return gin.H{
		"success": true,
		"summary": summary,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"success": false,
		"error":   message,
	}
}
