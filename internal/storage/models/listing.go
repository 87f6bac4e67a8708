// Package models contains the domain models for the application.
package models

import "time"

// Listing is a rentable property. It is the top-level scoping entity for
// calendar sources and their events.
type Listing struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
