package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// ErrDuplicateSourceURL is returned when a feed URL is registered twice
// under the same listing.
var ErrDuplicateSourceURL = errors.New("feed URL already registered for this listing")

// SourceRepository provides data access for calendar sources.
type SourceRepository struct {
	BaseRepository
}

// NewSourceRepository creates a new calendar source repository.
func NewSourceRepository(db *DB) *SourceRepository {
	return &SourceRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const sourceColumns = `id, listing_id, name, url, source_type, color, sync_interval_min,
	last_sync_at, sync_status, sync_error, enabled, created_at, updated_at`

// Create inserts a new calendar source. URL uniqueness is enforced within
// a listing; violating it returns ErrDuplicateSourceURL.
func (r *SourceRepository) Create(ctx context.Context, src *models.CalendarSource) error {
	src.ID = GenerateID()
	src.CreatedAt = r.Now()
	src.UpdatedAt = r.Now()
	src.SyncStatus = models.SyncStatusPending
	if src.SourceType == "" {
		src.SourceType = models.SourceTypeICal
	}

	_, err := r.DB().ExecContext(ctx, `
		INSERT INTO calendar_sources (
			id, listing_id, name, url, source_type, color,
			sync_interval_min, sync_status, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		src.ID, src.ListingID, src.Name, src.URL, src.SourceType, src.Color,
		src.SyncIntervalMin, src.SyncStatus, src.Enabled, src.CreatedAt, src.UpdatedAt,
	)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateSourceURL
		}
		return fmt.Errorf("inserting source: %w", err)
	}

	return nil
}

// GetByID retrieves a calendar source by its ID. Returns nil when not found.
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*models.CalendarSource, error) {
	src := &models.CalendarSource{}

	err := r.DB().QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM calendar_sources WHERE id = ?`, id,
	).Scan(
		&src.ID, &src.ListingID, &src.Name, &src.URL, &src.SourceType, &src.Color,
		&src.SyncIntervalMin, &src.LastSyncAt, &src.SyncStatus, &src.SyncError,
		&src.Enabled, &src.CreatedAt, &src.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying source: %w", err)
	}

	return src, nil
}

// List retrieves calendar sources, optionally restricted to one listing.
// An empty listingID returns all sources system-wide.
func (r *SourceRepository) List(ctx context.Context, listingID string) ([]models.CalendarSource, error) {
	query := `SELECT ` + sourceColumns + ` FROM calendar_sources`
	args := []any{}
	if listingID != "" {
		query += ` WHERE listing_id = ?`
		args = append(args, listingID)
	}
	query += ` ORDER BY name`

	return r.querySources(ctx, query, args...)
}

// ListEnabled retrieves all enabled sources, least recently synced first.
func (r *SourceRepository) ListEnabled(ctx context.Context) ([]models.CalendarSource, error) {
	return r.querySources(ctx, `
		SELECT `+sourceColumns+` FROM calendar_sources
		WHERE enabled = 1
		ORDER BY last_sync_at ASC NULLS FIRST
	`)
}

func (r *SourceRepository) querySources(ctx context.Context, query string, args ...any) ([]models.CalendarSource, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var sources []models.CalendarSource
	for rows.Next() {
		var src models.CalendarSource
		if err := rows.Scan(
			&src.ID, &src.ListingID, &src.Name, &src.URL, &src.SourceType, &src.Color,
			&src.SyncIntervalMin, &src.LastSyncAt, &src.SyncStatus, &src.SyncError,
			&src.Enabled, &src.CreatedAt, &src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// Update updates an existing calendar source.
func (r *SourceRepository) Update(ctx context.Context, src *models.CalendarSource) error {
	src.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE calendar_sources SET
			name = ?, url = ?, color = ?, sync_interval_min = ?, enabled = ?, updated_at = ?
		WHERE id = ?
	`, src.Name, src.URL, src.Color, src.SyncIntervalMin, src.Enabled, src.UpdatedAt, src.ID)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateSourceURL
		}
		return fmt.Errorf("updating source: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("source not found: %s", src.ID)
	}

	return nil
}

// UpdateSyncStatus records the outcome of a sync attempt on the source
// row. last_sync_at is only advanced on success.
func (r *SourceRepository) UpdateSyncStatus(ctx context.Context, id string, status string, syncError *string) error {
	now := time.Now().UTC()
	var lastSyncAt *time.Time
	if status == models.SyncStatusSuccess {
		lastSyncAt = &now
	}

	_, err := r.DB().ExecContext(ctx, `
		UPDATE calendar_sources SET
			sync_status = ?, sync_error = ?, last_sync_at = COALESCE(?, last_sync_at), updated_at = ?
		WHERE id = ?
	`, status, syncError, lastSyncAt, now, id)

	if err != nil {
		return fmt.Errorf("updating sync status: %w", err)
	}

	return nil
}

// Delete removes a calendar source along with its stored events.
func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	return r.Transaction(func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM events WHERE source_id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting source events: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM calendar_sources WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting source: %w", err)
		}

		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			return fmt.Errorf("source not found: %s", id)
		}

		return nil
	})
}
