package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moneyboard/moneyboard/pkg/backend"
	"github.com/moneyboard/moneyboard/pkg/session"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusFor maps errors shared by all handlers to an HTTP status.
func StatusFor(err error) int {
	var statusErr *backend.StatusError
	switch {
	case errors.Is(err, session.ErrNoSession):
		return http.StatusForbidden
	case errors.Is(err, backend.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func WriteError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	WriteJSON(w, status, resp)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}
