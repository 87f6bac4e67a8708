package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/storage/models"
	"github.com/calendar-aggregator/backend/internal/ws"
)

// SchedulerSourceStore is the subset of source access the scheduler needs.
type SchedulerSourceStore interface {
	GetByID(ctx context.Context, id string) (*models.CalendarSource, error)
	ListEnabled(ctx context.Context) ([]models.CalendarSource, error)
}

// Scheduler runs periodic per-source sync jobs.
type Scheduler struct {
	cron        *cron.Cron
	syncService *SyncService
	sources     SchedulerSourceStore
	broadcaster *ws.Broadcaster
	logger      *zap.Logger

	jobs   map[string]cron.EntryID
	jobsMu sync.RWMutex

	// Fallback interval for sources without one of their own.
	defaultInterval time.Duration
}

// NewScheduler creates a new sync scheduler.
func NewScheduler(
	syncService *SyncService,
	sources SchedulerSourceStore,
	broadcaster *ws.Broadcaster,
	defaultIntervalMin int,
	logger *zap.Logger,
) *Scheduler {
	if defaultIntervalMin <= 0 {
		defaultIntervalMin = 15
	}

	return &Scheduler{
		cron:            cron.New(),
		syncService:     syncService,
		sources:         sources,
		broadcaster:     broadcaster,
		logger:          logger,
		jobs:            make(map[string]cron.EntryID),
		defaultInterval: time.Duration(defaultIntervalMin) * time.Minute,
	}
}

// Start schedules all enabled sources and begins the cron loop. A refresh
// job every 5 minutes picks up sources added, changed or removed since.
func (s *Scheduler) Start(ctx context.Context) error {
	sources, err := s.sources.ListEnabled(ctx)
	if err != nil {
		return err
	}

	for _, src := range sources {
		s.ScheduleSource(src)
	}

	s.cron.AddFunc("@every 5m", func() {
		s.refreshSchedules(context.Background())
	})

	s.cron.Start()
	s.logger.Info("sync scheduler started", zap.Int("sources", len(sources)))

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("sync scheduler stopped")
}

// ScheduleSource adds or replaces the periodic sync job for a source.
// Disabled sources are unscheduled.
func (s *Scheduler) ScheduleSource(src models.CalendarSource) {
	if !src.Enabled {
		s.UnscheduleSource(src.ID)
		return
	}

	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if existingID, exists := s.jobs[src.ID]; exists {
		s.cron.Remove(existingID)
		delete(s.jobs, src.ID)
	}

	interval := time.Duration(src.SyncIntervalMin) * time.Minute
	if interval < time.Minute {
		interval = s.defaultInterval
	}

	entryID, err := s.cron.AddFunc("@every "+interval.String(), func() {
		s.syncSource(src.ID)
	})
	if err != nil {
		s.logger.Error("failed to schedule source", zap.String("source_id", src.ID), zap.Error(err))
		return
	}

	s.jobs[src.ID] = entryID
	s.logger.Info("source scheduled",
		zap.String("source_id", src.ID),
		zap.String("source_name", src.Name),
		zap.Duration("interval", interval),
	)
}

// UnscheduleSource removes a source's periodic sync job.
func (s *Scheduler) UnscheduleSource(sourceID string) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	if entryID, exists := s.jobs[sourceID]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, sourceID)
		s.logger.Info("source unscheduled", zap.String("source_id", sourceID))
	}
}

// TriggerSync starts an immediate background sync for a source.
func (s *Scheduler) TriggerSync(sourceID string) {
	go s.syncSource(sourceID)
}

// syncSource runs one source's sync and broadcasts the outcome.
func (s *Scheduler) syncSource(sourceID string) {
	ctx := context.Background()

	src, err := s.sources.GetByID(ctx, sourceID)
	if err != nil || src == nil {
		s.logger.Warn("source not found for scheduled sync", zap.String("source_id", sourceID))
		return
	}

	summary, err := s.syncService.Sync(ctx, Scope{SourceID: sourceID})
	if err != nil {
		s.logger.Error("scheduled sync failed",
			zap.String("source_id", sourceID),
			zap.String("url", src.URL),
			zap.Error(err),
		)
		if s.broadcaster != nil {
			s.broadcaster.SyncFailed(*src, err)
		}
		return
	}

	if s.broadcaster != nil {
		s.broadcaster.SyncCompleted(*src, summary.EventsSaved)
	}
}

// refreshSchedules reconciles cron jobs with the current source set.
func (s *Scheduler) refreshSchedules(ctx context.Context) {
	sources, err := s.sources.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("failed to refresh schedules", zap.Error(err))
		return
	}

	currentIDs := make(map[string]bool)
	for _, src := range sources {
		currentIDs[src.ID] = true
		s.ScheduleSource(src)
	}

	s.jobsMu.Lock()
	for id := range s.jobs {
		if !currentIDs[id] {
			s.cron.Remove(s.jobs[id])
			delete(s.jobs, id)
			s.logger.Info("removed schedule for source", zap.String("source_id", id))
		}
	}
	s.jobsMu.Unlock()
}

// ScheduledSources returns the IDs of currently scheduled sources.
func (s *Scheduler) ScheduledSources() []string {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	return ids
}
