package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/calendar-aggregator/backend/internal/api/middleware"
	"github.com/calendar-aggregator/backend/internal/storage"
	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// ListingRequest is the create/update body for a listing.
type ListingRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// ListListings returns all listings.
func ListListings(repo *storage.ListingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := repo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query listings")
			return
		}

		if listings == nil {
			listings = []models.Listing{}
		}
		writeJSON(w, http.StatusOK, listings)
	}
}

// CreateListing registers a new listing.
func CreateListing(repo *storage.ListingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ListingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.Name == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Name is required")
			return
		}

		listing := &models.Listing{Name: req.Name, Color: req.Color}
		if err := repo.Create(r.Context(), listing); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create listing")
			return
		}

		writeJSON(w, http.StatusCreated, listing)
	}
}

// GetListing returns a single listing by ID.
func GetListing(repo *storage.ListingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listing, err := repo.GetByID(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query listing")
			return
		}
		if listing == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Listing not found")
			return
		}

		writeJSON(w, http.StatusOK, listing)
	}
}

// UpdateListing updates an existing listing.
func UpdateListing(repo *storage.ListingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ListingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		listing := &models.Listing{ID: mux.Vars(r)["id"], Name: req.Name, Color: req.Color}
		if err := repo.Update(r.Context(), listing); err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Listing not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteListing removes a listing along with its sources and events.
func DeleteListing(repo *storage.ListingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Listing not found")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
