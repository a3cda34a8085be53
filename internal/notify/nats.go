package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"tracker-sync/internal/model"
)

// RunEvent is the message published after every sync run that was allowed to
// write. Consumers refresh their tracker views from it.
type RunEvent struct {
	Mode                 model.SyncMode `json:"mode"`
	ListingPath          string         `json:"listingPath,omitempty"`
	Matched              int            `json:"matched"`
	UpdatedVehicles      int            `json:"updatedVehicles"`
	UpsertedMappings     int            `json:"upsertedMappings"`
	UpdatedLocations     int            `json:"updatedLocations"`
	Skipped              int            `json:"skipped"`
	Errors               int            `json:"errors"`
	UnmatchedSuggestions int            `json:"unmatchedSuggestions"`
	StartedAt            time.Time      `json:"startedAt"`
	FinishedAt           time.Time      `json:"finishedAt"`
}

func NewRunEvent(s *model.RunSummary) RunEvent {
	return RunEvent{
		Mode:                 s.Mode,
		ListingPath:          s.ListingPath,
		Matched:              s.Matched,
		UpdatedVehicles:      s.UpdatedVehicles,
		UpsertedMappings:     s.UpsertedMappings,
		UpdatedLocations:     s.UpdatedLocations,
		Skipped:              s.Skipped,
		Errors:               len(s.Errors),
		UnmatchedSuggestions: len(s.UnmatchedSuggestions),
		StartedAt:            s.StartedAt,
		FinishedAt:           s.FinishedAt,
	}
}

const drainTimeout = 5 * time.Second

type NatsNotifier struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
	closed  chan struct{}
}

func Connect(url, subject string, log zerolog.Logger) (*NatsNotifier, error) {
	log = log.With().Str("component", "nats_notifier").Logger()
	conn, err := nats.Connect(url,
		nats.Name("tracker-sync"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewNatsNotifier(conn, subject, log), nil
}

func NewNatsNotifier(conn *nats.Conn, subject string, log zerolog.Logger) *NatsNotifier {
	n := &NatsNotifier{conn: conn, subject: subject, log: log, closed: make(chan struct{})}
	var once sync.Once
	conn.SetClosedHandler(func(*nats.Conn) {
		once.Do(func() { close(n.closed) })
	})
	return n
}

func (n *NatsNotifier) NotifyRun(ctx context.Context, summary *model.RunSummary) error {
	data, err := json.Marshal(NewRunEvent(summary))
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: n.subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	n.log.Debug().Str("subject", n.subject).Msg("run event published")
	return nil
}

// Close flushes published events to the server and blocks until the drained
// connection is closed, or until drainTimeout passes.
func (n *NatsNotifier) Close() {
	if err := n.conn.FlushTimeout(drainTimeout); err != nil {
		n.log.Warn().Err(err).Msg("nats flush before close failed")
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return
	}
	select {
	case <-n.closed:
	case <-time.After(drainTimeout):
		n.log.Warn().Dur("timeout", drainTimeout).Msg("nats drain timed out")
		n.conn.Close()
	}
}

// headerCarrier lets the otel propagator write trace context into NATS headers.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}
