package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/calendar-aggregator/backend/internal/api/middleware"
	"github.com/calendar-aggregator/backend/internal/export"
	"github.com/calendar-aggregator/backend/internal/storage"
)

// ExportRequest is the body for a spreadsheet export.
type ExportRequest struct {
	WebhookURL string `json:"webhook_url"`
	RangeDays  int    `json:"range_days"`
	ListingID  string `json:"listing_id"`
}

// ExportResponse reports the outcome of an export.
type ExportResponse struct {
	Sent          int `json:"sent"`
	WebhookStatus int `json:"webhook_status"`
}

// ExportToSheet posts upcoming events to an external webhook.
func ExportToSheet(exporter *export.SheetExporter, events *storage.EventRepository, sources *storage.SourceRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if !validFeedURL(req.WebhookURL) {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "webhook_url must be a valid http(s) URL")
			return
		}
		if req.RangeDays < 1 || req.RangeDays > 365 {
			req.RangeDays = 30
		}

		now := time.Now().UTC()
		until := now.AddDate(0, 0, req.RangeDays)

		stored, err := events.ListOverlapping(r.Context(), now, until, req.ListingID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query events")
			return
		}

		names, err := sourceNames(r, sources)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query sources")
			return
		}

		rows := export.BuildRows(stored, names)
		status, err := exporter.Send(r.Context(), req.WebhookURL, rows)
		if err != nil {
			middleware.WriteErrorWithDetails(w, http.StatusBadGateway, middleware.ErrUpstream,
				"Webhook delivery failed", map[string]any{"webhook_status": status})
			return
		}

		writeJSON(w, http.StatusOK, ExportResponse{Sent: len(rows), WebhookStatus: status})
	}
}

func sourceNames(r *http.Request, sources *storage.SourceRepository) (map[string]string, error) {
	all, err := sources.List(r.Context(), "")
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(all))
	for _, src := range all {
		names[src.ID] = src.Name
	}
	return names, nil
}
