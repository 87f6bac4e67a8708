package handlers

import (
	"errors"
	"net/http"

	"github.com/calendar-aggregator/backend/internal/api/middleware"
	"github.com/calendar-aggregator/backend/internal/calendar"
)

// Sync triggers a synchronous sync of the scoped sources and reports the
// aggregate summary. Scope comes from query parameters: source_id names a
// single source, listing_id restricts to one listing's sources, neither
// covers every registered source.
func Sync(service *calendar.SyncService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope := calendar.Scope{
			SourceID:  r.URL.Query().Get("source_id"),
			ListingID: r.URL.Query().Get("listing_id"),
		}

		summary, err := service.Sync(r.Context(), scope)
		if err != nil {
			if errors.Is(err, calendar.ErrSourceNotFound) {
				middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Source not found")
				return
			}

			var fetchErr *calendar.FetchError
			if errors.As(err, &fetchErr) {
				middleware.WriteErrorWithDetails(w, http.StatusBadGateway, middleware.ErrUpstream,
					"Failed to fetch feed", map[string]string{"url": fetchErr.URL})
				return
			}

			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Sync failed")
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}
