package calendar

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// -------- test fakes --------

type fakeFetcher struct {
	feeds   map[string]string
	failing map[string]error
	fetched []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if err, ok := f.failing[url]; ok {
		return "", err
	}
	text, ok := f.feeds[url]
	if !ok {
		return "", &FetchError{URL: url, Status: 404}
	}
	return text, nil
}

type fakeSourceStore struct {
	sources  []models.CalendarSource
	statuses map[string]string
}

func (f *fakeSourceStore) GetByID(ctx context.Context, id string) (*models.CalendarSource, error) {
	for i := range f.sources {
		if f.sources[i].ID == id {
			return &f.sources[i], nil
		}
	}
	return nil, nil
}

func (f *fakeSourceStore) List(ctx context.Context, listingID string) ([]models.CalendarSource, error) {
	if listingID == "" {
		return f.sources, nil
	}
	var out []models.CalendarSource
	for _, s := range f.sources {
		if s.ListingID == listingID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSourceStore) UpdateSyncStatus(ctx context.Context, id string, status string, syncError *string) error {
	if f.statuses == nil {
		f.statuses = make(map[string]string)
	}
	f.statuses[id] = status
	return nil
}

type fakeEventStore struct {
	bySource map[string][]models.Event
	replaces int
	err      error
}

func (f *fakeEventStore) ReplaceForSource(ctx context.Context, sourceID string, events []models.Event) error {
	if f.err != nil {
		return f.err
	}
	if f.bySource == nil {
		f.bySource = make(map[string][]models.Event)
	}
	f.bySource[sourceID] = events
	f.replaces++
	return nil
}

// -------- helpers --------

const feedTwoEvents = `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:booking-1
SUMMARY:Reserved
DTSTART:20240115
DTEND:20240118
END:VEVENT
BEGIN:VEVENT
UID:booking-2
DTSTART:20240201T140000Z
DTEND:20240205T100000Z
END:VEVENT
END:VCALENDAR`

const feedOneEvent = `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:booking-1
SUMMARY:Reserved
DTSTART:20240115
DTEND:20240118
END:VEVENT
END:VCALENDAR`

func testSource(id, listingID, url string) models.CalendarSource {
	return models.CalendarSource{
		ID:         id,
		ListingID:  listingID,
		Name:       "Airbnb",
		URL:        url,
		SourceType: models.SourceTypeICal,
		Enabled:    true,
	}
}

func newTestService(sources *fakeSourceStore, events *fakeEventStore, fetcher *fakeFetcher) *SyncService {
	return NewSyncService(sources, events, fetcher, zap.NewNop())
}

// -------- tests --------

func TestSyncSingleSource(t *testing.T) {
	src := testSource("src-1", "lst-1", "https://example.com/feed.ics")
	sources := &fakeSourceStore{sources: []models.CalendarSource{src}}
	events := &fakeEventStore{}
	fetcher := &fakeFetcher{feeds: map[string]string{src.URL: feedTwoEvents}}

	svc := newTestService(sources, events, fetcher)
	summary, err := svc.Sync(context.Background(), Scope{SourceID: "src-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.SourcesSynced)
	assert.Equal(t, 2, summary.EventsSaved)
	assert.Equal(t, models.SyncStatusSuccess, sources.statuses["src-1"])

	stored := events.bySource["src-1"]
	require.Len(t, stored, 2)
	for _, ev := range stored {
		assert.Equal(t, "lst-1", ev.ListingID)
		assert.Equal(t, "src-1", ev.SourceID)
		assert.Equal(t, src.URL, ev.RawURL)
		assert.False(t, ev.CreatedAt.IsZero())
		assert.False(t, ev.UpdatedAt.IsZero())
	}
	assert.Equal(t, "Reserved", stored[0].Title)
	assert.True(t, stored[0].AllDay)
	assert.Equal(t, "(No title)", stored[1].Title)
	assert.Equal(t, time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC), stored[1].Start)
}

func TestSyncUnknownSourceID(t *testing.T) {
	svc := newTestService(&fakeSourceStore{}, &fakeEventStore{}, &fakeFetcher{})

	_, err := svc.Sync(context.Background(), Scope{SourceID: "missing"})

	require.ErrorIs(t, err, ErrSourceNotFound)
}

func TestSyncIsIdempotentAgainstUnchangedFeed(t *testing.T) {
	src := testSource("src-1", "lst-1", "https://example.com/feed.ics")
	sources := &fakeSourceStore{sources: []models.CalendarSource{src}}
	events := &fakeEventStore{}
	fetcher := &fakeFetcher{feeds: map[string]string{src.URL: feedTwoEvents}}
	svc := newTestService(sources, events, fetcher)

	first, err := svc.Sync(context.Background(), Scope{SourceID: "src-1"})
	require.NoError(t, err)
	second, err := svc.Sync(context.Background(), Scope{SourceID: "src-1"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, events.replaces)
	stored := events.bySource["src-1"]
	require.Len(t, stored, 2)
	require.NotNil(t, stored[0].UID)
	assert.Equal(t, "booking-1", *stored[0].UID)
}

func TestSyncPurgesEventsRemovedFromFeed(t *testing.T) {
	src := testSource("src-1", "lst-1", "https://example.com/feed.ics")
	sources := &fakeSourceStore{sources: []models.CalendarSource{src}}
	events := &fakeEventStore{}
	fetcher := &fakeFetcher{feeds: map[string]string{src.URL: feedTwoEvents}}
	svc := newTestService(sources, events, fetcher)

	summary, err := svc.Sync(context.Background(), Scope{SourceID: "src-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.EventsSaved)

	// Upstream cancelled one booking: the feed now has a single event.
	fetcher.feeds[src.URL] = feedOneEvent

	summary, err = svc.Sync(context.Background(), Scope{SourceID: "src-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.EventsSaved)

	stored := events.bySource["src-1"]
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].UID)
	assert.Equal(t, "booking-1", *stored[0].UID)
}

func TestSyncEmptyFeedLeavesSourceWithZeroEvents(t *testing.T) {
	src := testSource("src-1", "lst-1", "https://example.com/feed.ics")
	sources := &fakeSourceStore{sources: []models.CalendarSource{src}}
	events := &fakeEventStore{}
	fetcher := &fakeFetcher{feeds: map[string]string{src.URL: "BEGIN:VCALENDAR\nEND:VCALENDAR"}}
	svc := newTestService(sources, events, fetcher)

	summary, err := svc.Sync(context.Background(), Scope{SourceID: "src-1"})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.SourcesSynced)
	assert.Equal(t, 0, summary.EventsSaved)
	assert.Equal(t, 1, events.replaces, "the purge still runs for an empty batch")
	assert.Empty(t, events.bySource["src-1"])
}

func TestSyncAllSourcesForListing(t *testing.T) {
	srcA := testSource("src-a", "lst-1", "https://example.com/a.ics")
	srcB := testSource("src-b", "lst-1", "https://example.com/b.ics")
	srcOther := testSource("src-c", "lst-2", "https://example.com/c.ics")
	sources := &fakeSourceStore{sources: []models.CalendarSource{srcA, srcB, srcOther}}
	events := &fakeEventStore{}
	fetcher := &fakeFetcher{feeds: map[string]string{
		srcA.URL: feedTwoEvents,
		srcB.URL: feedOneEvent,
	}}
	svc := newTestService(sources, events, fetcher)

	summary, err := svc.Sync(context.Background(), Scope{ListingID: "lst-1"})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.SourcesSynced)
	assert.Equal(t, 3, summary.EventsSaved)
	assert.NotContains(t, fetcher.fetched, srcOther.URL)
}

func TestSyncFetchFailureAbortsRemainingSources(t *testing.T) {
	srcA := testSource("src-a", "lst-1", "https://example.com/a.ics")
	srcB := testSource("src-b", "lst-1", "https://example.com/b.ics")
	sources := &fakeSourceStore{sources: []models.CalendarSource{srcA, srcB}}
	events := &fakeEventStore{}
	fetcher := &fakeFetcher{
		feeds:   map[string]string{srcB.URL: feedOneEvent},
		failing: map[string]error{srcA.URL: &FetchError{URL: srcA.URL, Status: 500}},
	}
	svc := newTestService(sources, events, fetcher)

	_, err := svc.Sync(context.Background(), Scope{})

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, srcA.URL, fetchErr.URL)
	assert.Equal(t, []string{srcA.URL}, fetcher.fetched, "sources after the failing one are not fetched")
	assert.Equal(t, 0, events.replaces)
	assert.Equal(t, models.SyncStatusError, sources.statuses["src-a"])
}

func TestSyncStoreFailureSurfaces(t *testing.T) {
	src := testSource("src-1", "lst-1", "https://example.com/feed.ics")
	sources := &fakeSourceStore{sources: []models.CalendarSource{src}}
	events := &fakeEventStore{err: errors.New("disk full")}
	fetcher := &fakeFetcher{feeds: map[string]string{src.URL: feedOneEvent}}
	svc := newTestService(sources, events, fetcher)

	_, err := svc.Sync(context.Background(), Scope{SourceID: "src-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, models.SyncStatusError, sources.statuses["src-1"])
}

func TestFetchErrorMessageNamesURL(t *testing.T) {
	err := &FetchError{URL: "https://example.com/feed.ics", Status: 500}
	assert.Contains(t, err.Error(), "https://example.com/feed.ics")
	assert.Contains(t, err.Error(), "500")

	wrapped := &FetchError{URL: "https://example.com/feed.ics", Err: fmt.Errorf("connection refused")}
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.ErrorContains(t, errors.Unwrap(wrapped), "connection refused")
}
