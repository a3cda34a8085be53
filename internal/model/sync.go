package model

import "time"

type SyncMode string

const (
	SyncModeAuto   SyncMode = "auto"
	SyncModeManual SyncMode = "manual"
)

// DeviceInput is a tracker row, either posted by the caller or scraped from the portal.
type DeviceInput struct {
	Plate     string   `json:"plate"`
	TrackerID string   `json:"trackerId"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   *string  `json:"address,omitempty"`
}

func (d DeviceInput) HasCoordinates() bool {
	return d.Latitude != nil && d.Longitude != nil
}

type MatchCandidate struct {
	VehicleID string  `json:"vehicleId"`
	Plate     string  `json:"plate"`
	Score     float64 `json:"score"`
	Distance  int     `json:"distance"`
	Reason    string  `json:"reason"`
}

// UnmatchedSuggestion is surfaced for human review and never applied automatically.
type UnmatchedSuggestion struct {
	DevicePlate     string           `json:"devicePlate"`
	NormalizedPlate string           `json:"normalizedPlate"`
	TrackerID       string           `json:"trackerId"`
	TopCandidates   []MatchCandidate `json:"topCandidates"`
}

type RunSummary struct {
	Mode                 SyncMode              `json:"mode"`
	DryRun               bool                  `json:"dryRun"`
	Matched              int                   `json:"matched"`
	UpdatedVehicles      int                   `json:"updatedVehicles"`
	UpsertedMappings     int                   `json:"upsertedMappings"`
	UpdatedLocations     int                   `json:"updatedLocations"`
	Skipped              int                   `json:"skipped"`
	Errors               []string              `json:"errors"`
	UnmatchedSuggestions []UnmatchedSuggestion `json:"unmatchedSuggestions"`
	DiscoveredDevices    []DeviceInput         `json:"discoveredDevices,omitempty"`
	ListingPath          string                `json:"listingPath,omitempty"`
	StartedAt            time.Time             `json:"startedAt"`
	FinishedAt           time.Time             `json:"finishedAt"`
}

func NewRunSummary(mode SyncMode, dryRun bool, startedAt time.Time) *RunSummary {
	return &RunSummary{
		Mode:                 mode,
		DryRun:               dryRun,
		Errors:               []string{},
		UnmatchedSuggestions: []UnmatchedSuggestion{},
		StartedAt:            startedAt,
	}
}
