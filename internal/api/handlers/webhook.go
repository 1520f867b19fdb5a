// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/kempei/reservalock/internal/api/middleware"
	"github.com/kempei/reservalock/internal/provision"
	"github.com/kempei/reservalock/internal/reserva"
)

// WebhookRequest is the notification relayed from the booking platform's
// mail hook: which command fired and the reservation it concerns.
type WebhookRequest struct {
	Command     string                  `json:"command"`
	Reservation reserva.ReservationInfo `json:"reservation"`
}

// Webhook returns a handler for booking platform notifications. Requests
// carry a shared token in the Authorization header.
func Webhook(service *provision.Service, authToken string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(token), []byte(authToken)) != 1 {
			middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Unauthorized")
			return
		}

		var req WebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "body not found")
			return
		}

		var result *provision.HandleResult
		var err error
		switch req.Command {
		case "request":
			result, err = service.HandleRequest(r.Context(), req.Reservation)
		case "cancel":
			result, err = service.HandleCancel(r.Context(), req.Reservation)
		default:
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest,
				"invalid command: "+req.Command)
			return
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if !result.OK {
			w.WriteHeader(http.StatusBadRequest)
		}
		json.NewEncoder(w).Encode(map[string]any{"log": result.Actions})
	}
}
