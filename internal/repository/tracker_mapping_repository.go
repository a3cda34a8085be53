package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tracker-sync/internal/model"
)

type TrackerMappingRepository struct {
	db *gorm.DB
}

func NewTrackerMappingRepository(db *gorm.DB) *TrackerMappingRepository {
	return &TrackerMappingRepository{db: db}
}

// Upsert inserts the mapping or overwrites the one already held by the vehicle.
func (r *TrackerMappingRepository) Upsert(ctx context.Context, mapping *model.TrackerMapping) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "vehicle_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tracker_id", "plate_number", "last_sync", "sync_status", "updated_at"}),
		}).
		Create(mapping).Error
}
