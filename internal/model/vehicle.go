package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is the fleet-owned vehicle row. The sync engine only reads the plate
// and writes TrackerID.
type Vehicle struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	PlateNumber string    `gorm:"type:varchar(32);not null" json:"plate_number"`
	TrackerID   *string   `gorm:"type:varchar(64)" json:"tracker_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Vehicle) TableName() string {
	return "vehicles"
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// VehicleRecord is the read-only projection loaded once per sync run.
type VehicleRecord struct {
	ID          string `json:"id"`
	PlateNumber string `json:"plateNumber"`
}
