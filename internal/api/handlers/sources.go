package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/calendar-aggregator/backend/internal/api/middleware"
	"github.com/calendar-aggregator/backend/internal/calendar"
	"github.com/calendar-aggregator/backend/internal/storage"
	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// SourceRequest is the create/update body for a calendar source.
type SourceRequest struct {
	ListingID       string  `json:"listing_id"`
	Name            string  `json:"name"`
	URL             string  `json:"url"`
	SourceType      string  `json:"source_type"`
	Color           *string `json:"color"`
	SyncIntervalMin int     `json:"sync_interval_min"`
	Enabled         *bool   `json:"enabled"`
}

func validFeedURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ListSources returns calendar sources, optionally filtered by listing.
func ListSources(repo *storage.SourceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := repo.List(r.Context(), r.URL.Query().Get("listing_id"))
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query sources")
			return
		}

		if sources == nil {
			sources = []models.CalendarSource{}
		}
		writeJSON(w, http.StatusOK, sources)
	}
}

// CreateSource registers a new calendar source under a listing.
func CreateSource(repo *storage.SourceRepository, listings *storage.ListingRepository, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.ListingID == "" || req.Name == "" || req.URL == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "listing_id, name and url are required")
			return
		}
		if !validFeedURL(req.URL) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "url must be a valid http(s) URL")
			return
		}

		listing, err := listings.GetByID(r.Context(), req.ListingID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query listing")
			return
		}
		if listing == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Listing not found")
			return
		}

		if req.SyncIntervalMin < 5 {
			req.SyncIntervalMin = 15
		}
		enabled := true
		if req.Enabled != nil {
			enabled = *req.Enabled
		}

		src := &models.CalendarSource{
			ListingID:       req.ListingID,
			Name:            req.Name,
			URL:             req.URL,
			SourceType:      req.SourceType,
			Color:           req.Color,
			SyncIntervalMin: req.SyncIntervalMin,
			Enabled:         enabled,
		}

		if err := repo.Create(r.Context(), src); err != nil {
			if errors.Is(err, storage.ErrDuplicateSourceURL) {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Feed URL already registered for this listing")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create source")
			return
		}

		if scheduler != nil {
			scheduler.ScheduleSource(*src)
		}

		writeJSON(w, http.StatusCreated, src)
	}
}

// SourceResponse is a calendar source with its stored event count.
type SourceResponse struct {
	models.CalendarSource
	EventsCount int `json:"events_count"`
}

// GetSource returns a single calendar source with its event count.
func GetSource(repo *storage.SourceRepository, events *storage.EventRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		src, err := repo.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query source")
			return
		}
		if src == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source not found")
			return
		}

		count, err := events.CountForSource(r.Context(), src.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to count events")
			return
		}

		writeJSON(w, http.StatusOK, SourceResponse{CalendarSource: *src, EventsCount: count})
	}
}

// UpdateSource updates an existing calendar source.
func UpdateSource(repo *storage.SourceRepository, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		src, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query source")
			return
		}
		if src == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source not found")
			return
		}

		var req SourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Name != "" {
			src.Name = req.Name
		}
		if req.URL != "" {
			if !validFeedURL(req.URL) {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "url must be a valid http(s) URL")
				return
			}
			src.URL = req.URL
		}
		if req.Color != nil {
			src.Color = req.Color
		}
		if req.SyncIntervalMin >= 5 {
			src.SyncIntervalMin = req.SyncIntervalMin
		}
		if req.Enabled != nil {
			src.Enabled = *req.Enabled
		}

		if err := repo.Update(r.Context(), src); err != nil {
			if errors.Is(err, storage.ErrDuplicateSourceURL) {
				middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Feed URL already registered for this listing")
				return
			}
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update source")
			return
		}

		if scheduler != nil {
			scheduler.ScheduleSource(*src)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteSource removes a calendar source and its stored events.
func DeleteSource(repo *storage.SourceRepository, scheduler *calendar.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := repo.Delete(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source not found")
			return
		}

		if scheduler != nil {
			scheduler.UnscheduleSource(id)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
