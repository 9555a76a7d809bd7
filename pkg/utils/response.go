package utils

import (
	"encoding/json"
	"net/http"
)

func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorBody is the JSON shape of every API error
type ErrorBody struct {
	Error                 string `json:"error"`
	Field                 string `json:"field,omitempty"`
	ConflictingBookingID  *int   `json:"conflicting_booking_id,omitempty"`
	ConflictingCustomerID *int   `json:"conflicting_customer_id,omitempty"`
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}
