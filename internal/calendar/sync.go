package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/ical"
	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// ErrSourceNotFound is returned when a sync names a source id that does
// not resolve.
var ErrSourceNotFound = errors.New("calendar source not found")

// SourceStore is the source lookup surface the sync service needs.
type SourceStore interface {
	GetByID(ctx context.Context, id string) (*models.CalendarSource, error)
	List(ctx context.Context, listingID string) ([]models.CalendarSource, error)
	UpdateSyncStatus(ctx context.Context, id string, status string, syncError *string) error
}

// EventStore is the persistence surface the sync service needs.
type EventStore interface {
	ReplaceForSource(ctx context.Context, sourceID string, events []models.Event) error
}

// Scope selects which sources a sync call covers. A non-empty SourceID
// names a single source; otherwise ListingID restricts to one listing's
// sources, and an empty scope covers every registered source.
type Scope struct {
	SourceID  string
	ListingID string
}

// SyncService reconciles remote feeds into the event store using a
// replace-all model: each source's stored events are purged and fully
// re-derived from the latest feed contents on every sync.
type SyncService struct {
	sources SourceStore
	events  EventStore
	fetcher FeedFetcher
	logger  *zap.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(sources SourceStore, events EventStore, fetcher FeedFetcher, logger *zap.Logger) *SyncService {
	return &SyncService{
		sources: sources,
		events:  events,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Sync processes every source in scope strictly sequentially and returns
// the aggregate summary. A fetch failure on any source aborts the whole
// call; sources after the failing one are not processed. Malformed events
// within a feed are dropped silently by the parser and never surface here.
func (s *SyncService) Sync(ctx context.Context, scope Scope) (*models.SyncSummary, error) {
	sources, err := s.resolveSources(ctx, scope)
	if err != nil {
		return nil, err
	}

	summary := &models.SyncSummary{}
	for i := range sources {
		saved, err := s.syncSource(ctx, &sources[i])
		if err != nil {
			return nil, err
		}
		summary.SourcesSynced++
		summary.EventsSaved += saved
	}

	s.logger.Info("sync completed",
		zap.Int("sources_synced", summary.SourcesSynced),
		zap.Int("events_saved", summary.EventsSaved),
	)

	return summary, nil
}

func (s *SyncService) resolveSources(ctx context.Context, scope Scope) ([]models.CalendarSource, error) {
	if scope.SourceID != "" {
		src, err := s.sources.GetByID(ctx, scope.SourceID)
		if err != nil {
			return nil, fmt.Errorf("resolving source: %w", err)
		}
		if src == nil {
			return nil, ErrSourceNotFound
		}
		return []models.CalendarSource{*src}, nil
	}

	sources, err := s.sources.List(ctx, scope.ListingID)
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	return sources, nil
}

// syncSource fetches, parses and stores one source's feed, returning the
// number of events persisted.
func (s *SyncService) syncSource(ctx context.Context, src *models.CalendarSource) (int, error) {
	if err := s.sources.UpdateSyncStatus(ctx, src.ID, models.SyncStatusSyncing, nil); err != nil {
		s.logger.Warn("failed to update sync status", zap.String("source_id", src.ID), zap.Error(err))
	}

	text, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		errMsg := err.Error()
		s.sources.UpdateSyncStatus(ctx, src.ID, models.SyncStatusError, &errMsg)
		return 0, err
	}

	parsed := ical.Parse(text)
	now := time.Now().UTC()

	batch := make([]models.Event, 0, len(parsed))
	for _, ev := range parsed {
		title := ev.Title
		if title == "" {
			title = src.Name
		}
		batch = append(batch, models.Event{
			ListingID:   src.ListingID,
			SourceID:    src.ID,
			UID:         ev.UID,
			Title:       title,
			Start:       ev.Start,
			End:         ev.End,
			AllDay:      ev.AllDay,
			Location:    ev.Location,
			Description: ev.Description,
			Status:      ev.Status,
			RawURL:      src.URL,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if err := s.events.ReplaceForSource(ctx, src.ID, batch); err != nil {
		errMsg := err.Error()
		s.sources.UpdateSyncStatus(ctx, src.ID, models.SyncStatusError, &errMsg)
		return 0, fmt.Errorf("storing events for source %s: %w", src.ID, err)
	}

	if err := s.sources.UpdateSyncStatus(ctx, src.ID, models.SyncStatusSuccess, nil); err != nil {
		s.logger.Warn("failed to update sync status", zap.String("source_id", src.ID), zap.Error(err))
	}

	s.logger.Debug("source synced",
		zap.String("source_id", src.ID),
		zap.String("source_name", src.Name),
		zap.Int("events", len(batch)),
	)

	return len(batch), nil
}
