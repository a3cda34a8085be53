package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tracker-sync/internal/model"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// ListRecords returns id and plate of every vehicle in a stable order, so the
// first-wins rule for duplicate plates is deterministic between runs.
func (r *VehicleRepository) ListRecords(ctx context.Context) ([]model.VehicleRecord, error) {
	var vehicles []model.Vehicle
	err := r.db.WithContext(ctx).
		Select("id", "plate_number").
		Order("created_at ASC, id ASC").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}

	records := make([]model.VehicleRecord, 0, len(vehicles))
	for _, v := range vehicles {
		records = append(records, model.VehicleRecord{ID: v.ID.String(), PlateNumber: v.PlateNumber})
	}
	return records, nil
}

func (r *VehicleRepository) UpdateTrackerID(ctx context.Context, id uuid.UUID, trackerID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Vehicle{}).
		Where("id = ?", id).
		Update("tracker_id", trackerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
