package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tracker-sync/internal/client"
	"tracker-sync/internal/matcher"
	"tracker-sync/internal/model"
	"tracker-sync/internal/utils"
)

// FleetStore is the part of the fleet database the sync engine touches.
// Every call is independently atomic; the engine never opens a transaction.
type FleetStore interface {
	ListVehicles(ctx context.Context) ([]model.VehicleRecord, error)
	UpdateVehicleTrackerID(ctx context.Context, vehicleID, trackerID string) error
	UpsertTrackerMapping(ctx context.Context, vehicleID, trackerID, plate string, syncedAt time.Time) error
	GetLocationRow(ctx context.Context, vehicleID string) (*model.VehicleLocation, error)
	UpdateLocationRow(ctx context.Context, rowID string, lat, lon float64, address *string, isTracked bool, at time.Time) error
	InsertLocationRow(ctx context.Context, vehicleID string, lat, lon float64, address *string, isTracked bool, at time.Time) error
}

type DevicePortal interface {
	FetchDevicePage(ctx context.Context) (*client.DevicePage, error)
}

type DeviceParser interface {
	ParseDevices(html string) []model.DeviceInput
}

// RunNotifier receives the summary of every run that was allowed to write.
type RunNotifier interface {
	NotifyRun(ctx context.Context, summary *model.RunSummary) error
}

type SyncService struct {
	store    FleetStore
	portal   DevicePortal
	parser   DeviceParser
	notifier RunNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewSyncService wires the orchestrator. notifier may be nil.
func NewSyncService(
	store FleetStore,
	portal DevicePortal,
	parser DeviceParser,
	notifier RunNotifier,
	log zerolog.Logger,
) *SyncService {
	return &SyncService{
		store:    store,
		portal:   portal,
		parser:   parser,
		notifier: notifier,
		log:      log.With().Str("component", "sync_service").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type SyncRequest struct {
	Mode    model.SyncMode
	Devices []model.DeviceInput
	DryRun  bool
}

// Run executes one sync. Per-device failures are collected in the summary;
// an error is returned only for a bad request, an unreadable vehicle set, or
// (auto mode) a portal failure, in which case the summary carries the
// diagnostic.
func (s *SyncService) Run(ctx context.Context, req SyncRequest) (*model.RunSummary, error) {
	mode := req.Mode
	if mode == "" {
		mode = model.SyncModeAuto
	}
	switch mode {
	case model.SyncModeAuto, model.SyncModeManual:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}
	if mode == model.SyncModeManual && req.Devices == nil {
		return nil, fmt.Errorf("%w: devices are required in manual mode", ErrInvalidInput)
	}

	records, err := s.store.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVehiclesUnavailable, err)
	}
	idx := matcher.NewIndex(records)
	for _, dup := range idx.Duplicates() {
		s.log.Warn().
			Str("vehicle_id", dup.ID).
			Str("plate", dup.Plate).
			Msg("plate normalizes to a key already owned by another vehicle")
	}

	summary := model.NewRunSummary(mode, req.DryRun, s.now())
	log := s.log.With().Str("mode", string(mode)).Bool("dry_run", req.DryRun).Logger()

	devices := req.Devices
	if mode == model.SyncModeAuto {
		page, err := s.portal.FetchDevicePage(ctx)
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			summary.FinishedAt = s.now()
			log.Error().Err(err).Msg("portal fetch failed")
			return summary, fmt.Errorf("%w: %w", ErrPortal, err)
		}

		devices = s.parser.ParseDevices(page.HTML)
		summary.ListingPath = page.Path
		summary.DiscoveredDevices = devices
		if len(devices) == 0 {
			summary.Errors = append(summary.Errors, fmt.Sprintf("no devices recognized on %s", page.Path))
		}
		log.Info().Str("path", page.Path).Int("devices", len(devices)).Msg("devices discovered")

		if req.DryRun {
			summary.FinishedAt = s.now()
			return summary, nil
		}
	}

	run := &syncRun{
		SyncService: s,
		idx:         idx,
		summary:     summary,
		dryRun:      req.DryRun,
		claimed:     map[string]string{},
		log:         log,
	}
	for i, device := range devices {
		if err := ctx.Err(); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("run interrupted before device %d: %v", i+1, err))
			break
		}
		run.process(ctx, i, device)
	}
	summary.FinishedAt = s.now()

	log.Info().
		Int("vehicles", idx.Len()).
		Int("devices", len(devices)).
		Int("matched", summary.Matched).
		Int("upserted_mappings", summary.UpsertedMappings).
		Int("updated_locations", summary.UpdatedLocations).
		Int("skipped", summary.Skipped).
		Int("errors", len(summary.Errors)).
		Msg("sync run finished")

	if !req.DryRun && s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, summary); err != nil {
			log.Warn().Err(err).Msg("run notification failed")
		}
	}
	return summary, nil
}

// syncRun is the per-request state of one Run.
type syncRun struct {
	*SyncService
	idx     *matcher.Index
	summary *model.RunSummary
	dryRun  bool
	// vehicle id -> tracker id of the device that last wrote it in this run
	claimed map[string]string
	log     zerolog.Logger
}

func (r *syncRun) process(ctx context.Context, i int, device model.DeviceInput) {
	if device.Plate == "" || device.TrackerID == "" {
		r.summary.Skipped++
		r.summary.Errors = append(r.summary.Errors,
			fmt.Sprintf("device %d: plate and trackerId are required (plate=%q, trackerId=%q)", i+1, device.Plate, device.TrackerID))
		return
	}

	normalized := utils.NormalizePlate(device.Plate)
	vehicle, ok := r.idx.Exact(normalized)
	if !ok {
		r.suggest(device, normalized)
		return
	}

	r.summary.Matched++
	if previous, seen := r.claimed[vehicle.ID]; seen {
		r.log.Warn().
			Str("vehicle_id", vehicle.ID).
			Str("previous_tracker", previous).
			Str("tracker", device.TrackerID).
			Msg("vehicle matched by more than one device, last one wins")
	}
	r.claimed[vehicle.ID] = device.TrackerID

	if r.dryRun {
		return
	}
	r.apply(ctx, vehicle, device)
}

func (r *syncRun) suggest(device model.DeviceInput, normalized string) {
	r.summary.Skipped++
	candidates := r.idx.Candidates(device.Plate, normalized)
	if len(candidates) == 0 {
		r.summary.Errors = append(r.summary.Errors,
			fmt.Sprintf("no match found for plate %q (tracker %s)", device.Plate, device.TrackerID))
		return
	}
	r.summary.UnmatchedSuggestions = append(r.summary.UnmatchedSuggestions, model.UnmatchedSuggestion{
		DevicePlate:     device.Plate,
		NormalizedPlate: normalized,
		TrackerID:       device.TrackerID,
		TopCandidates:   candidates,
	})
}

// apply performs the three writes for an exact match. They are independent:
// a failed step is recorded and the others still run.
func (r *syncRun) apply(ctx context.Context, vehicle matcher.Vehicle, device model.DeviceInput) {
	at := r.now()

	if err := r.store.UpdateVehicleTrackerID(ctx, vehicle.ID, device.TrackerID); err != nil {
		r.fail("update tracker id", vehicle, err)
	} else {
		r.summary.UpdatedVehicles++
	}

	if err := r.store.UpsertTrackerMapping(ctx, vehicle.ID, device.TrackerID, vehicle.Plate, at); err != nil {
		r.fail("upsert tracker mapping", vehicle, err)
	} else {
		r.summary.UpsertedMappings++
	}

	if !device.HasCoordinates() {
		return
	}
	if err := r.writeLocation(ctx, vehicle.ID, device, at); err != nil {
		r.fail("write location", vehicle, err)
		return
	}
	r.summary.UpdatedLocations++
}

func (r *syncRun) writeLocation(ctx context.Context, vehicleID string, device model.DeviceInput, at time.Time) error {
	row, err := r.store.GetLocationRow(ctx, vehicleID)
	if err != nil {
		return fmt.Errorf("read location: %w", err)
	}
	lat, lon := *device.Latitude, *device.Longitude
	if row != nil {
		return r.store.UpdateLocationRow(ctx, row.ID.String(), lat, lon, device.Address, true, at)
	}
	return r.store.InsertLocationRow(ctx, vehicleID, lat, lon, device.Address, true, at)
}

func (r *syncRun) fail(step string, vehicle matcher.Vehicle, err error) {
	r.summary.Errors = append(r.summary.Errors, fmt.Sprintf("%s for vehicle %s (%s): %v", step, vehicle.ID, vehicle.Plate, err))
	r.log.Error().Err(err).Str("vehicle_id", vehicle.ID).Str("step", step).Msg("sync write failed")
}
