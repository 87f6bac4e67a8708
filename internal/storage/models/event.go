package models

import "time"

// Event is a stored booking event owned by exactly one listing and one
// calendar source. Ownership is by identifier only; deleting the owner
// does not touch events unless the repository cascade does it explicitly.
//
// For a given source the stored set of events is always exactly the result
// of the most recent successful sync of that source's feed: sync purges
// the set and re-creates it, so internal IDs are not stable across syncs.
type Event struct {
	ID          string    `json:"id"`
	ListingID   string    `json:"listing_id"`
	SourceID    string    `json:"source_id"`
	UID         *string   `json:"uid,omitempty"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"all_day"`
	Location    *string   `json:"location,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *string   `json:"status,omitempty"`
	RawURL      string    `json:"raw_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SyncSummary is the aggregate result of one sync invocation. Per-source
// counts are not reported.
type SyncSummary struct {
	SourcesSynced int `json:"sources_synced"`
	EventsSaved   int `json:"events_saved"`
}
