// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/api/handlers"
	"github.com/calendar-aggregator/backend/internal/api/middleware"
	"github.com/calendar-aggregator/backend/internal/calendar"
	"github.com/calendar-aggregator/backend/internal/export"
	"github.com/calendar-aggregator/backend/internal/notify"
	"github.com/calendar-aggregator/backend/internal/storage"
	"github.com/calendar-aggregator/backend/internal/ws"
)

// Deps bundles everything the router needs. All fields are required.
type Deps struct {
	DB            *storage.DB
	Listings      *storage.ListingRepository
	Sources       *storage.SourceRepository
	Events        *storage.EventRepository
	Sync          *calendar.SyncService
	Scheduler     *calendar.Scheduler
	Hub           *ws.Hub
	WhatsApp      *notify.Client
	WhatsAppCreds notify.Credentials
	Exporter      *export.SheetExporter
	Logger        *zap.Logger
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.CORS)

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Calendar Aggregator API running"})
	}).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")

	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, d.Logger)).Methods("GET")

	api.HandleFunc("/listings", handlers.ListListings(d.Listings)).Methods("GET")
	api.HandleFunc("/listings", handlers.CreateListing(d.Listings)).Methods("POST")
	api.HandleFunc("/listings/{id}", handlers.GetListing(d.Listings)).Methods("GET")
	api.HandleFunc("/listings/{id}", handlers.UpdateListing(d.Listings)).Methods("PUT")
	api.HandleFunc("/listings/{id}", handlers.DeleteListing(d.Listings)).Methods("DELETE")

	api.HandleFunc("/sources", handlers.ListSources(d.Sources)).Methods("GET")
	api.HandleFunc("/sources", handlers.CreateSource(d.Sources, d.Listings, d.Scheduler)).Methods("POST")
	api.HandleFunc("/sources/{id}", handlers.GetSource(d.Sources, d.Events)).Methods("GET")
	api.HandleFunc("/sources/{id}", handlers.UpdateSource(d.Sources, d.Scheduler)).Methods("PUT")
	api.HandleFunc("/sources/{id}", handlers.DeleteSource(d.Sources, d.Scheduler)).Methods("DELETE")

	api.HandleFunc("/sync", handlers.Sync(d.Sync)).Methods("POST")
	api.HandleFunc("/events", handlers.ListEvents(d.Events, d.Sources)).Methods("GET")

	api.HandleFunc("/export-to-sheet", handlers.ExportToSheet(d.Exporter, d.Events, d.Sources)).Methods("POST")
	api.HandleFunc("/whatsapp/send-schedule",
		handlers.SendWhatsAppSchedule(d.WhatsApp, d.WhatsAppCreds, d.Events, d.Sources)).Methods("POST")

	return r
}
