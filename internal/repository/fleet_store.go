package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tracker-sync/internal/model"
)

// FleetStore adapts the gorm repositories to the string-keyed operations used
// by the sync engine.
type FleetStore struct {
	vehicles  *VehicleRepository
	mappings  *TrackerMappingRepository
	locations *VehicleLocationRepository
}

func NewFleetStore(db *gorm.DB) *FleetStore {
	return &FleetStore{
		vehicles:  NewVehicleRepository(db),
		mappings:  NewTrackerMappingRepository(db),
		locations: NewVehicleLocationRepository(db),
	}
}

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, raw, err)
	}
	return id, nil
}

func (s *FleetStore) ListVehicles(ctx context.Context) ([]model.VehicleRecord, error) {
	return s.vehicles.ListRecords(ctx)
}

func (s *FleetStore) UpdateVehicleTrackerID(ctx context.Context, vehicleID, trackerID string) error {
	id, err := parseID("vehicle", vehicleID)
	if err != nil {
		return err
	}
	return s.vehicles.UpdateTrackerID(ctx, id, trackerID)
}

func (s *FleetStore) UpsertTrackerMapping(ctx context.Context, vehicleID, trackerID, plate string, syncedAt time.Time) error {
	id, err := parseID("vehicle", vehicleID)
	if err != nil {
		return err
	}
	return s.mappings.Upsert(ctx, &model.TrackerMapping{
		VehicleID:   id,
		TrackerID:   trackerID,
		PlateNumber: plate,
		LastSync:    syncedAt,
		SyncStatus:  model.SyncStatusSynced,
		UpdatedAt:   syncedAt,
	})
}

func (s *FleetStore) GetLocationRow(ctx context.Context, vehicleID string) (*model.VehicleLocation, error) {
	id, err := parseID("vehicle", vehicleID)
	if err != nil {
		return nil, err
	}
	return s.locations.GetByVehicleID(ctx, id)
}

func (s *FleetStore) UpdateLocationRow(ctx context.Context, rowID string, lat, lon float64, address *string, isTracked bool, at time.Time) error {
	id, err := parseID("location", rowID)
	if err != nil {
		return err
	}
	return s.locations.Update(ctx, id, LocationUpdate{
		Latitude:  lat,
		Longitude: lon,
		Address:   address,
		IsTracked: isTracked,
		At:        at,
	})
}

func (s *FleetStore) InsertLocationRow(ctx context.Context, vehicleID string, lat, lon float64, address *string, isTracked bool, at time.Time) error {
	id, err := parseID("vehicle", vehicleID)
	if err != nil {
		return err
	}
	return s.locations.Create(ctx, &model.VehicleLocation{
		VehicleID:   id,
		Latitude:    lat,
		Longitude:   lon,
		Address:     address,
		IsTracked:   isTracked,
		LastUpdated: at,
	})
}
