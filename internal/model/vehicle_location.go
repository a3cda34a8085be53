package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VehicleLocation holds the last known position of a vehicle, one row per vehicle.
type VehicleLocation struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	VehicleID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"vehicle_id"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Address     *string   `gorm:"type:text" json:"address"`
	IsTracked   bool      `gorm:"not null;default:false" json:"is_tracked"`
	LastUpdated time.Time `gorm:"not null" json:"last_updated"`
}

func (VehicleLocation) TableName() string {
	return "vehicle_locations"
}

func (l *VehicleLocation) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
