// Package main is the entry point for the Calendar Aggregator server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/api"
	"github.com/calendar-aggregator/backend/internal/calendar"
	"github.com/calendar-aggregator/backend/internal/config"
	"github.com/calendar-aggregator/backend/internal/export"
	"github.com/calendar-aggregator/backend/internal/logger"
	"github.com/calendar-aggregator/backend/internal/notify"
	"github.com/calendar-aggregator/backend/internal/storage"
	"github.com/calendar-aggregator/backend/internal/ws"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	addr := flag.String("addr", "", "HTTP server address (overrides ADDR)")
	dataDir := flag.String("data", "", "Data directory for the SQLite database (overrides DATA_DIR)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	// Health check mode for Docker HEALTHCHECK.
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting calendar aggregator", zap.String("version", version), zap.String("addr", cfg.Addr))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		zlog.Fatal("creating data directory", zap.String("dir", cfg.DataDir), zap.Error(err))
	}
	db, err := storage.NewDB(cfg.DataDir + "/calendar-aggregator.db")
	if err != nil {
		zlog.Fatal("opening database", zap.Error(err))
	}
	defer db.Close()

	if err := storage.RunMigrations(db, zlog); err != nil {
		zlog.Fatal("running migrations", zap.Error(err))
	}

	hub := ws.NewHub(zlog)
	go hub.Run()
	broadcaster := ws.NewBroadcaster(hub, zlog)

	listings := storage.NewListingRepository(db)
	sources := storage.NewSourceRepository(db)
	events := storage.NewEventRepository(db)

	fetcher := calendar.NewHTTPFetcher(cfg.FetchTimeout)
	syncService := calendar.NewSyncService(sources, events, fetcher, zlog)
	scheduler := calendar.NewScheduler(syncService, sources, broadcaster, cfg.SyncIntervalMin, zlog)
	if err := scheduler.Start(context.Background()); err != nil {
		zlog.Warn("starting scheduler", zap.Error(err))
	}

	whatsapp := notify.NewClient(cfg.WebhookTimeout, zlog)
	exporter := export.NewSheetExporter(cfg.WebhookTimeout, zlog)

	router := api.NewRouter(api.Deps{
		DB:        db,
		Listings:  listings,
		Sources:   sources,
		Events:    events,
		Sync:      syncService,
		Scheduler: scheduler,
		Hub:       hub,
		WhatsApp:  whatsapp,
		WhatsAppCreds: notify.Credentials{
			Token:         cfg.WhatsAppToken,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		},
		Exporter: exporter,
		Logger:   zlog,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Fatal("server shutdown", zap.Error(err))
	}

	zlog.Info("server stopped")
}

// runHealthCheck probes the running server, for container HEALTHCHECK use.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
