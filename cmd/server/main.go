// Package main is the entry point for the reservation access server.
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

	"github.com/kempei/reservalock/internal/api"
	"github.com/kempei/reservalock/internal/api/handlers"
	"github.com/kempei/reservalock/internal/cache"
	"github.com/kempei/reservalock/internal/config"
	"github.com/kempei/reservalock/internal/provision"
	"github.com/kempei/reservalock/internal/remotelock"
	"github.com/kempei/reservalock/internal/reserva"
	"github.com/kempei/reservalock/internal/storage"
	"github.com/kempei/reservalock/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the configuration file")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.ListenAddr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	log.Printf("Starting reservation access server (version: %s)...", version)

	// Initialize database
	db, err := storage.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub
	hub := websocket.NewHub()

	// Initialize collaborator clients
	bookingClient := reserva.NewClient(reserva.Config{
		BaseURL:    cfg.Reserva.BaseURL,
		BusinessID: cfg.Reserva.BusinessID,
	})
	lockClient := remotelock.NewClient(remotelock.Config{
		BaseURL: cfg.RemoteLock.BaseURL,
	}, remotelock.StaticTokenSource(cfg.RemoteLock.AccessToken))

	// Initialize the provisioning service
	service := provision.NewService(
		bookingClient,
		lockClient,
		provision.NewFileRoster(cfg.RosterPath),
		storage.NewApprovalRepository(db),
		storage.NewSnapshotRepository(db),
		websocket.NewEventBroadcaster(hub),
		provision.Config{
			BufferMin:            cfg.RemoteLock.BufferMin,
			HorizonDays:          cfg.RemoteLock.DayRange,
			ExceptionDefaultDays: cfg.RemoteLock.ExceptionDays,
			ExpiredDays:          cfg.RemoteLock.ExpiredDays,
			SnapshotMonths:       cfg.SnapshotMonths,
		},
	)

	// Start the batch scheduler
	scheduler := provision.NewScheduler(service, provision.ScheduleConfig{
		RecurringSyncSpec: cfg.Schedule.RecurringSyncSpec,
		CleanupSpec:       cfg.Schedule.CleanupSpec,
		SnapshotSpec:      cfg.Schedule.SnapshotSpec,
	})
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Initialize HTTP router
	reportCache := cache.New(storage.NewCacheRepository(db))
	router := api.NewRouter(db, hub, service, reportCache, api.Config{
		WebhookToken: cfg.WebhookToken,
		ReportTTL: handlers.ReportTTL{
			Local:  cfg.Report.LocalTTL(),
			Remote: cfg.Report.RemoteTTL(),
		},
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
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
