// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"github.com/gorilla/mux"

	"github.com/kempei/reservalock/internal/api/handlers"
	"github.com/kempei/reservalock/internal/api/middleware"
	"github.com/kempei/reservalock/internal/cache"
	"github.com/kempei/reservalock/internal/provision"
	"github.com/kempei/reservalock/internal/storage"
	"github.com/kempei/reservalock/internal/websocket"
)

// Config holds the routing-level settings.
type Config struct {
	// shared token the booking platform's mail hook presents
	WebhookToken string
	ReportTTL    handlers.ReportTTL
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(
	db *storage.DB,
	hub *websocket.Hub,
	service *provision.Service,
	reportCache *cache.Cache,
	config Config,
) *mux.Router {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health endpoint
	api.HandleFunc("/health", handlers.HealthCheck(db, hub)).Methods("GET")

	// WebSocket endpoint
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub)).Methods("GET")

	// Booking platform notification hook
	api.HandleFunc("/webhook", handlers.Webhook(service, config.WebhookToken)).Methods("POST")

	// Report endpoints
	api.HandleFunc("/reports/reservations", handlers.Reservations(service, reportCache, config.ReportTTL)).Methods("GET")
	api.HandleFunc("/reports/calendar", handlers.Calendar(service, reportCache, config.ReportTTL)).Methods("GET")
	api.HandleFunc("/reports/usage", handlers.Usage(service, reportCache, config.ReportTTL)).Methods("GET")

	// Approval history
	api.HandleFunc("/approvals", handlers.ListApprovals(storage.NewApprovalRepository(db))).Methods("GET")

	return r
}
