package services

import (
	"context"
	"log"
	"time"

	"villa-backend/internal/apperr"
	"villa-backend/internal/daterange"
	"villa-backend/internal/metrics"
	"villa-backend/internal/models"
	"villa-backend/internal/timeutil"
)

// BookingService manages administrative blocks and the month calendar view
type BookingService struct {
	Bookings BookingStore
	Calendar CalendarCache
}

func NewBookingService(bookings BookingStore, calendar CalendarCache) *BookingService {
	return &BookingService{Bookings: bookings, Calendar: calendar}
}

func parseRange(checkIn, checkOut string) (daterange.Range, error) {
	in, err := timeutil.ParseDate(checkIn)
	if err != nil {
		return daterange.Range{}, apperr.Validation("check_in", "%v", err)
	}
	out, err := timeutil.ParseDate(checkOut)
	if err != nil {
		return daterange.Range{}, apperr.Validation("check_out", "%v", err)
	}
	rng, err := daterange.New(in, out)
	if err != nil {
		return daterange.Range{}, apperr.Validation("check_out", "%v", err)
	}
	return rng, nil
}

// BlockDates takes a range off the calendar without a customer
func (s *BookingService) BlockDates(ctx context.Context, req *models.BlockDatesRequest, userID int) (*models.Booking, error) {
	rng, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		CheckIn:         rng.CheckIn,
		CheckOut:        rng.CheckOut,
		Type:            models.BookingTypeBlocked,
		Notes:           req.Notes,
		CreatedByUserID: userID,
	}

	conflict, err := s.Bookings.ReserveIfAvailable(ctx, b, nil)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		metrics.BookingConflicts.WithLabelValues("block").Inc()
		return nil, conflictError(conflict)
	}

	invalidateCalendar(ctx, s.Calendar)
	log.Printf("[Booking] Blocked %s to %s (booking %d)",
		rng.CheckIn.Format(timeutil.DateLayout), rng.CheckOut.Format(timeutil.DateLayout), b.ID)
	return b, nil
}

// UnblockDates releases a blocked range. The range must match the stored one exactly;
// an unknown range is not an error.
func (s *BookingService) UnblockDates(ctx context.Context, req *models.BlockDatesRequest) (int64, error) {
	rng, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return 0, err
	}

	released, err := s.Bookings.Release(ctx, rng, nil)
	if err != nil {
		return 0, err
	}
	if released > 0 {
		invalidateCalendar(ctx, s.Calendar)
	}
	return released, nil
}

// MonthCalendar returns every occupancy record touching the given month
func (s *BookingService) MonthCalendar(ctx context.Context, year int, month time.Month) ([]*models.Booking, error) {
	if month < time.January || month > time.December {
		return nil, apperr.Validation("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2200 {
		return nil, apperr.Validation("year", "out of range")
	}

	var generation int64
	if s.Calendar != nil {
		cached, gen, ok := s.Calendar.GetMonth(ctx, year, month)
		if ok {
			return cached, nil
		}
		generation = gen
	}

	bookings, err := s.Bookings.QueryByMonth(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}

	if s.Calendar != nil {
		s.Calendar.SetMonth(ctx, generation, year, month, bookings)
	}
	return bookings, nil
}
