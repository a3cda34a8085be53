package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncStatus string

const (
	SyncStatusSynced SyncStatus = "synced"
)

// TrackerMapping links a vehicle to the GPS tracker reported by the portal.
// vehicle_id is unique: every exact match overwrites the previous mapping.
type TrackerMapping struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	VehicleID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"vehicle_id"`
	TrackerID   string     `gorm:"type:varchar(64);not null" json:"tracker_id"`
	PlateNumber string     `gorm:"type:varchar(32);not null" json:"plate_number"`
	LastSync    time.Time  `gorm:"not null" json:"last_sync"`
	SyncStatus  SyncStatus `gorm:"type:varchar(20);not null;default:synced" json:"sync_status"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TrackerMapping) TableName() string {
	return "tracker_mappings"
}

func (m *TrackerMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
