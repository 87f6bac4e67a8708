package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// EventRepository provides data access for stored calendar events.
type EventRepository struct {
	BaseRepository
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

const eventColumns = `id, listing_id, source_id, uid, title, starts_at, ends_at,
	all_day, location, description, status, raw_url, created_at, updated_at`

// ReplaceForSource purges all stored events for the source and inserts the
// given batch in their place. This is the replace-all sync model: the
// stored set is always exactly the latest parse of the feed. Purge and
// insert run in one transaction; an empty batch leaves the source with
// zero events.
func (r *EventRepository) ReplaceForSource(ctx context.Context, sourceID string, events []models.Event) error {
	return r.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE source_id = ?", sourceID); err != nil {
			return fmt.Errorf("purging source events: %w", err)
		}

		if len(events) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO events (
				id, listing_id, source_id, uid, title, starts_at, ends_at,
				all_day, location, description, status, raw_url, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing event insert: %w", err)
		}
		defer stmt.Close()

		for i := range events {
			ev := &events[i]
			if ev.ID == "" {
				ev.ID = GenerateID()
			}
			if _, err := stmt.ExecContext(ctx,
				ev.ID, ev.ListingID, ev.SourceID, ev.UID, ev.Title, ev.Start, ev.End,
				ev.AllDay, ev.Location, ev.Description, ev.Status, ev.RawURL,
				ev.CreatedAt, ev.UpdatedAt,
			); err != nil {
				return fmt.Errorf("inserting event: %w", err)
			}
		}

		return nil
	})
}

// DeleteAllForSource removes every stored event belonging to the source.
func (r *EventRepository) DeleteAllForSource(ctx context.Context, sourceID string) error {
	_, err := r.DB().ExecContext(ctx, "DELETE FROM events WHERE source_id = ?", sourceID)
	if err != nil {
		return fmt.Errorf("deleting source events: %w", err)
	}
	return nil
}

// ListWindow retrieves events whose start is at or after start and whose
// end is at or before end, ordered by start. Nil bounds are open; an empty
// listingID spans all listings.
func (r *EventRepository) ListWindow(ctx context.Context, start, end *time.Time, listingID string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []any{}

	if start != nil {
		query += ` AND starts_at >= ?`
		args = append(args, start.UTC())
	}
	if end != nil {
		query += ` AND ends_at <= ?`
		args = append(args, end.UTC())
	}
	if listingID != "" {
		query += ` AND listing_id = ?`
		args = append(args, listingID)
	}
	query += ` ORDER BY starts_at`

	return r.queryEvents(ctx, query, args...)
}

// ListOverlapping retrieves events overlapping the [from, to) range,
// ordered by start. Used by the export and notification surfaces, which
// care about stays in progress, not just stays starting inside the range.
func (r *EventRepository) ListOverlapping(ctx context.Context, from, to time.Time, listingID string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE starts_at < ? AND ends_at > ?`
	args := []any{to.UTC(), from.UTC()}

	if listingID != "" {
		query += ` AND listing_id = ?`
		args = append(args, listingID)
	}
	query += ` ORDER BY starts_at`

	return r.queryEvents(ctx, query, args...)
}

// CountForSource returns the number of stored events for the source.
func (r *EventRepository) CountForSource(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE source_id = ?", sourceID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting source events: %w", err)
	}
	return count, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]models.Event, error) {
	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(
			&ev.ID, &ev.ListingID, &ev.SourceID, &ev.UID, &ev.Title, &ev.Start, &ev.End,
			&ev.AllDay, &ev.Location, &ev.Description, &ev.Status, &ev.RawURL,
			&ev.CreatedAt, &ev.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}
