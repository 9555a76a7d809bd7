package models

import (
	"time"

	"villa-backend/internal/daterange"
)

// BookingType says whether an occupancy record belongs to a stay or is an administrative block
type BookingType string

const (
	BookingTypeCustomer BookingType = "customer"
	BookingTypeBlocked  BookingType = "blocked"
)

// Booking is one occupancy record: a reserved [CheckIn, CheckOut) range on the villa calendar.
type Booking struct {
	ID              int         `json:"id"`
	CustomerID      *int        `json:"customer_id"` // nil for blocked dates
	CustomerName    string      `json:"customer_name,omitempty"`
	CheckIn         time.Time   `json:"check_in"`
	CheckOut        time.Time   `json:"check_out"`
	Occupants       int         `json:"occupants"`
	Type            BookingType `json:"type"`
	Notes           string      `json:"notes"`
	CreatedByUserID int         `json:"created_by_user_id"`
	CreatedAt       time.Time   `json:"created_at"`
}

func (b *Booking) Range() daterange.Range {
	return daterange.Range{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// BlockDatesRequest blocks or unblocks a date range
type BlockDatesRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Notes    string `json:"notes"`
}

// AvailabilityResult is the answer to an availability query
type AvailabilityResult struct {
	Available             bool        `json:"available"`
	ConflictingBookingID  *int        `json:"conflicting_booking_id,omitempty"`
	ConflictingCustomerID *int        `json:"conflicting_customer_id,omitempty"`
	ConflictType          BookingType `json:"conflict_type,omitempty"`
}
