package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kempei/reservalock/internal/api/middleware"
	"github.com/kempei/reservalock/internal/storage"
)

// defaultApprovalLimit caps the approval history listing.
const defaultApprovalLimit = 100

// ListApprovals returns a handler serving the approval history, newest
// first.
func ListApprovals(repo *storage.ApprovalRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultApprovalLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		entries, err := repo.ListRecent(r.Context(), limit)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query approval log")
			return
		}
		if entries == nil {
			entries = []storage.ApprovalEntry{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}
