package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"villa-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteServiceError(t *testing.T) {
	customerID := 4
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"validation", apperr.Validation("amount", "must be positive"), http.StatusBadRequest, `{"error":"amount: must be positive","field":"amount"}`},
		{"conflict", &apperr.ConflictError{BookingID: 9, CustomerID: &customerID}, http.StatusConflict, ""},
		{"not found", apperr.NotFound("customer", 3), http.StatusNotFound, `{"error":"customer 3 not found"}`},
		{"permission", &apperr.PermissionError{Permission: "ledger.write"}, http.StatusForbidden, ""},
		{"read only", apperr.ErrReadOnlyEntry, http.StatusForbidden, ""},
		{"wrapped validation", errors.Join(errors.New("ctx"), apperr.Validation("status", "bad")), http.StatusBadRequest, ""},
		{"internal", errors.New("pool exhausted"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest("GET", "/api/x", nil), tt.err)
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestConflictBodyCarriesIDs(t *testing.T) {
	customerID := 4
	rec := httptest.NewRecorder()
	writeServiceError(rec, httptest.NewRequest("POST", "/api/customers", nil), &apperr.ConflictError{
		BookingID:  9,
		CustomerID: &customerID,
		CheckIn:    time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC),
	})

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 9, body["conflicting_booking_id"])
	assert.EqualValues(t, 4, body["conflicting_customer_id"])
}
