package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// ListingRepository provides data access for listings.
type ListingRepository struct {
	BaseRepository
}

// NewListingRepository creates a new listing repository.
func NewListingRepository(db *DB) *ListingRepository {
	return &ListingRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create inserts a new listing.
func (r *ListingRepository) Create(ctx context.Context, l *models.Listing) error {
	l.ID = GenerateID()
	l.CreatedAt = r.Now()
	l.UpdatedAt = r.Now()

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO listings (id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.ID, l.Name, l.Color, l.CreatedAt, l.UpdatedAt)

	if err != nil {
		return fmt.Errorf("inserting listing: %w", err)
	}

	return nil
}

// GetByID retrieves a listing by its ID. Returns nil when not found.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*models.Listing, error) {
	l := &models.Listing{}

	err := r.DB().QueryRowContext(ctx, `
		SELECT id, name, color, created_at, updated_at
		FROM listings WHERE id = ?
	`, id).Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing: %w", err)
	}

	return l, nil
}

// List retrieves all listings ordered by name.
func (r *ListingRepository) List(ctx context.Context) ([]models.Listing, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, name, color, created_at, updated_at
		FROM listings ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		var l models.Listing
		if err := rows.Scan(&l.ID, &l.Name, &l.Color, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

// Update updates an existing listing.
func (r *ListingRepository) Update(ctx context.Context, l *models.Listing) error {
	l.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE listings SET name = ?, color = ?, updated_at = ? WHERE id = ?
	`, l.Name, l.Color, l.UpdatedAt, l.ID)

	if err != nil {
		return fmt.Errorf("updating listing: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("listing not found: %s", l.ID)
	}

	return nil
}

// Delete removes a listing along with its sources and events.
func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	return r.Transaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM events WHERE listing_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting listing events: %w", err)
		}

		_, err = tx.ExecContext(ctx, "DELETE FROM calendar_sources WHERE listing_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting listing sources: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM listings WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting listing: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return fmt.Errorf("listing not found: %s", id)
		}

		return nil
	})
}
