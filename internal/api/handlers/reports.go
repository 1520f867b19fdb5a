package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kempei/reservalock/internal/api/middleware"
	"github.com/kempei/reservalock/internal/cache"
	"github.com/kempei/reservalock/internal/provision"
	"github.com/kempei/reservalock/internal/report"
)

// ReportTTL holds the cache lifetimes for the report endpoints.
type ReportTTL struct {
	Local  time.Duration
	Remote time.Duration
}

// parseStart reads the start query parameter (YYYY-MM-DD) shared by every
// report endpoint.
func parseStart(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("start")
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing 'start'")
	}
	start, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start date %q", raw)
	}
	if start.Year() < 2022 || start.Year() > 3000 {
		return time.Time{}, fmt.Errorf("invalid target year %d", start.Year())
	}
	return start, nil
}

// cachedReport runs produce through the two-tier cache and writes the
// cached JSON straight to the response.
func cachedReport(w http.ResponseWriter, r *http.Request, c *cache.Cache, ttl ReportTTL, key string, produce func(ctx context.Context) ([]byte, error)) {
	data, err := c.Do(r.Context(), key, ttl.Local, ttl.Remote, produce)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// Reservations returns the flat reservation list for the month containing
// start, newest provisioning state joined against the roster.
func Reservations(service *provision.Service, c *cache.Cache, ttl ReportTTL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := parseStart(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		key := cache.Key("report_reservations", []any{start.Format("2006-01-02")}, nil)
		cachedReport(w, r, c, ttl, key, func(ctx context.Context) ([]byte, error) {
			agg, err := service.Reporter(ctx, start)
			if err != nil {
				return nil, err
			}
			list, err := agg.ReservationList()
			if err != nil {
				return nil, err
			}
			return json.Marshal(list)
		})
	}
}

// Calendar returns the calendar projection for the month containing start.
// scope selects the month view or the single-day view with descriptions.
func Calendar(service *provision.Service, c *cache.Cache, ttl ReportTTL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := parseStart(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}
		scope := report.Scope(r.URL.Query().Get("scope"))
		if scope != report.ScopeMonth && scope != report.ScopeDay {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest,
				fmt.Sprintf("invalid scope %q", scope))
			return
		}

		key := cache.Key("report_calendar", []any{start.Format("2006-01-02")}, map[string]any{"scope": string(scope)})
		cachedReport(w, r, c, ttl, key, func(ctx context.Context) ([]byte, error) {
			agg, err := service.Reporter(ctx, start)
			if err != nil {
				return nil, err
			}
			list, err := agg.CalendarList(scope)
			if err != nil {
				return nil, err
			}
			return json.Marshal(list)
		})
	}
}

// Usage returns per-member usage counts for the month containing start,
// most active members first.
func Usage(service *provision.Service, c *cache.Cache, ttl ReportTTL) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := parseStart(r)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, err.Error())
			return
		}

		key := cache.Key("report_usage", []any{start.Format("2006-01-02")}, nil)
		cachedReport(w, r, c, ttl, key, func(ctx context.Context) ([]byte, error) {
			agg, err := service.Reporter(ctx, start)
			if err != nil {
				return nil, err
			}
			return json.Marshal(agg.UsageCounts())
		})
	}
}
