package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/moneyboard/moneyboard/pkg/backend"
	"github.com/moneyboard/moneyboard/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", session.ErrNoSession), http.StatusForbidden},
		{&backend.StatusError{Code: 401}, http.StatusUnauthorized},
		{backend.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("x: %w", &backend.StatusError{Code: 404}), http.StatusNotFound},
		{&backend.StatusError{Code: 500}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, http.StatusBadRequest, "Invalid page", errors.New("must be a number"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, ErrorResponse{Error: "Invalid page", Details: "must be a number"}, resp)
}
