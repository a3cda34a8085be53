package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tracker-sync/internal/model"
)

type VehicleLocationRepository struct {
	db *gorm.DB
}

func NewVehicleLocationRepository(db *gorm.DB) *VehicleLocationRepository {
	return &VehicleLocationRepository{db: db}
}

func (r *VehicleLocationRepository) GetByVehicleID(ctx context.Context, vehicleID uuid.UUID) (*model.VehicleLocation, error) {
	var loc model.VehicleLocation
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		First(&loc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

func (r *VehicleLocationRepository) Create(ctx context.Context, loc *model.VehicleLocation) error {
	return r.db.WithContext(ctx).Create(loc).Error
}

type LocationUpdate struct {
	Latitude  float64
	Longitude float64
	Address   *string
	IsTracked bool
	At        time.Time
}

func (r *VehicleLocationRepository) Update(ctx context.Context, id uuid.UUID, upd LocationUpdate) error {
	res := r.db.WithContext(ctx).
		Model(&model.VehicleLocation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"latitude":     upd.Latitude,
			"longitude":    upd.Longitude,
			"address":      upd.Address,
			"is_tracked":   upd.IsTracked,
			"last_updated": upd.At,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
