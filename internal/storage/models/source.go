package models

import "time"

// SourceTypeICal is the only source type currently implemented.
const SourceTypeICal = "ical"

// Sync status constants
const (
	SyncStatusPending = "pending"
	SyncStatusSyncing = "syncing"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// CalendarSource is one OTA's iCal feed registered against a listing.
// The same feed URL may be registered under different listings but not
// twice under the same one.
type CalendarSource struct {
	ID              string     `json:"id"`
	ListingID       string     `json:"listing_id"`
	Name            string     `json:"name"`
	URL             string     `json:"url"`
	SourceType      string     `json:"source_type"`
	Color           *string    `json:"color,omitempty"`
	SyncIntervalMin int        `json:"sync_interval_min"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	SyncStatus      string     `json:"sync_status"`
	SyncError       *string    `json:"sync_error,omitempty"`
	Enabled         bool       `json:"enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
