package services

import (
	"context"
	"time"

	"villa-backend/internal/apperr"
	"villa-backend/internal/daterange"
	"villa-backend/internal/models"
)

// AvailabilityService answers whether a date range is free on the calendar
type AvailabilityService struct {
	Bookings BookingStore
}

func NewAvailabilityService(bookings BookingStore) *AvailabilityService {
	return &AvailabilityService{Bookings: bookings}
}

// CheckAvailability reports the first record overlapping [checkIn, checkOut).
// excludeCustomerID skips that customer's own stay when re-validating its dates.
// Blocked ranges conflict exactly like customer stays; one shared night is enough.
func (s *AvailabilityService) CheckAvailability(ctx context.Context, checkIn, checkOut time.Time, excludeCustomerID *int) (*models.AvailabilityResult, error) {
	rng, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return nil, apperr.Validation("check_out", "%v", err)
	}

	overlapping, err := s.Bookings.FindOverlapping(ctx, rng, excludeCustomerID)
	if err != nil {
		return nil, err
	}

	for _, b := range overlapping {
		// the store's query is a superset filter; confirm with the interval rule
		if !b.Range().Overlaps(rng) {
			continue
		}
		if excludeCustomerID != nil && b.CustomerID != nil && *b.CustomerID == *excludeCustomerID {
			continue
		}
		id := b.ID
		return &models.AvailabilityResult{
			Available:             false,
			ConflictingBookingID:  &id,
			ConflictingCustomerID: b.CustomerID,
			ConflictType:          b.Type,
		}, nil
	}

	return &models.AvailabilityResult{Available: true}, nil
}

func conflictError(b *models.Booking) error {
	return &apperr.ConflictError{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		CheckIn:    b.CheckIn,
		CheckOut:   b.CheckOut,
	}
}
