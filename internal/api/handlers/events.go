package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/calendar-aggregator/backend/internal/api/middleware"
	"github.com/calendar-aggregator/backend/internal/storage"
	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// EventSourceRef is the source attribution embedded in an event response.
type EventSourceRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// EventResponse is one event as returned by the events endpoint.
type EventResponse struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	AllDay      bool           `json:"all_day"`
	Location    *string        `json:"location"`
	Description *string        `json:"description"`
	Status      *string        `json:"status"`
	Source      EventSourceRef `json:"source"`
}

// EventsResponse wraps the event list.
type EventsResponse struct {
	Events []EventResponse `json:"events"`
}

// parseTimeParam parses an RFC 3339 query value. Unparseable values are
// ignored, leaving that bound open.
func parseTimeParam(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}

// sourceRefs builds a source-id lookup for event attribution.
func sourceRefs(ctx context.Context, sources *storage.SourceRepository) (map[string]EventSourceRef, error) {
	all, err := sources.List(ctx, "")
	if err != nil {
		return nil, err
	}

	refs := make(map[string]EventSourceRef, len(all))
	for _, src := range all {
		refs[src.ID] = EventSourceRef{ID: src.ID, Name: src.Name, Color: src.Color}
	}
	return refs, nil
}

// ListEvents returns stored events within an optional time window,
// optionally restricted to one listing, with source attribution.
func ListEvents(events *storage.EventRepository, sources *storage.SourceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start := parseTimeParam(q.Get("start"))
		end := parseTimeParam(q.Get("end"))

		stored, err := events.ListWindow(r.Context(), start, end, q.Get("listing_id"))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query events")
			return
		}

		refs, err := sourceRefs(r.Context(), sources)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query sources")
			return
		}

		out := make([]EventResponse, 0, len(stored))
		for _, ev := range stored {
			out = append(out, toEventResponse(ev, refs))
		}

		writeJSON(w, http.StatusOK, EventsResponse{Events: out})
	}
}

func toEventResponse(ev models.Event, refs map[string]EventSourceRef) EventResponse {
	src, ok := refs[ev.SourceID]
	if !ok {
		// The owning source may have been deleted; keep the id reference.
		src = EventSourceRef{ID: ev.SourceID}
	}

	return EventResponse{
		ID:          ev.ID,
		Title:       ev.Title,
		Start:       ev.Start.UTC().Format(time.RFC3339),
		End:         ev.End.UTC().Format(time.RFC3339),
		AllDay:      ev.AllDay,
		Location:    ev.Location,
		Description: ev.Description,
		Status:      ev.Status,
		Source:      src,
	}
}
