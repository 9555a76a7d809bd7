package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	stay, err := e.customers.CreateBooking(ctx, &models.CreateCustomerRequest{
		Name: "Asha Rao", CheckIn: "2024-05-10", CheckOut: "2024-05-15", StayCharges: dec("10000"),
	}, 1)
	require.NoError(t, err)
	_, err = e.bookings.BlockDates(ctx, &models.BlockDatesRequest{CheckIn: "2024-05-20", CheckOut: "2024-05-22", Notes: "pool repair"}, 1)
	require.NoError(t, err)

	tests := []struct {
		name      string
		in, out   string
		exclude   *int
		available bool
		conflict  models.BookingType
	}{
		{"inside stay", "2024-05-11", "2024-05-12", nil, false, models.BookingTypeCustomer},
		{"covers stay", "2024-05-01", "2024-05-30", nil, false, models.BookingTypeCustomer},
		{"ends on check-in", "2024-05-05", "2024-05-10", nil, true, ""},
		{"starts on check-out", "2024-05-15", "2024-05-20", nil, true, ""},
		{"one shared night", "2024-05-14", "2024-05-16", nil, false, models.BookingTypeCustomer},
		{"blocked range", "2024-05-21", "2024-05-23", nil, false, models.BookingTypeBlocked},
		{"own stay excluded", "2024-05-12", "2024-05-18", &stay.ID, true, ""},
		{"excluded stay still blocked", "2024-05-12", "2024-05-21", &stay.ID, false, models.BookingTypeBlocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.availability.CheckAvailability(ctx, day(tt.in), day(tt.out), tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.available, res.Available)
			assert.Equal(t, tt.conflict, res.ConflictType)
			if !tt.available {
				require.NotNil(t, res.ConflictingBookingID)
			}
		})
	}
}

func TestCheckAvailability_ReportsEarliestConflict(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	late, err := e.bookings.BlockDates(ctx, &models.BlockDatesRequest{CheckIn: "2024-08-20", CheckOut: "2024-08-22"}, 1)
	require.NoError(t, err)
	early, err := e.customers.CreateBooking(ctx, &models.CreateCustomerRequest{Name: "Ravi", CheckIn: "2024-08-10", CheckOut: "2024-08-12"}, 1)
	require.NoError(t, err)

	res, err := e.availability.CheckAvailability(ctx, day("2024-08-01"), day("2024-08-31"), nil)
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.NotNil(t, res.ConflictingCustomerID)
	assert.Equal(t, early.ID, *res.ConflictingCustomerID)
	assert.NotEqual(t, late.ID, *res.ConflictingBookingID)
}

func TestCheckAvailability_RejectsEmptyRange(t *testing.T) {
	e := newEngine()

	_, err := e.availability.CheckAvailability(context.Background(), day("2024-05-10"), day("2024-05-10"), nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = e.availability.CheckAvailability(context.Background(), day("2024-05-10"), day("2024-05-09"), nil)
	assert.True(t, apperr.IsValidation(err))
}

func TestBlockDates_ConflictsWithStay(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	stay, err := e.customers.CreateBooking(ctx, &models.CreateCustomerRequest{Name: "Asha", CheckIn: "2024-05-10", CheckOut: "2024-05-15"}, 1)
	require.NoError(t, err)

	_, err = e.bookings.BlockDates(ctx, &models.BlockDatesRequest{CheckIn: "2024-05-14", CheckOut: "2024-05-16"}, 1)
	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.CustomerID)
	assert.Equal(t, stay.ID, *conflict.CustomerID)

	_, err = e.customers.CreateBooking(ctx, &models.CreateCustomerRequest{Name: "Other", CheckIn: "2024-05-01", CheckOut: "2024-05-11"}, 1)
	assert.True(t, apperr.IsConflict(err))
}

func TestUnblockDates_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEngine()
	req := &models.BlockDatesRequest{CheckIn: "2024-09-01", CheckOut: "2024-09-05"}

	_, err := e.bookings.BlockDates(ctx, req, 1)
	require.NoError(t, err)

	released, err := e.bookings.UnblockDates(ctx, req)
	require.NoError(t, err)
	assert.EqualValues(t, 1, released)

	released, err = e.bookings.UnblockDates(ctx, req)
	require.NoError(t, err)
	assert.EqualValues(t, 0, released)
	assert.Equal(t, 0, e.db.bookingCount())

	res, err := e.availability.CheckAvailability(ctx, day("2024-09-01"), day("2024-09-05"), nil)
	require.NoError(t, err)
	assert.True(t, res.Available)
}

func TestUnblockDates_LeavesCustomerStays(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	_, err := e.customers.CreateBooking(ctx, &models.CreateCustomerRequest{Name: "Asha", CheckIn: "2024-09-01", CheckOut: "2024-09-05"}, 1)
	require.NoError(t, err)

	released, err := e.bookings.UnblockDates(ctx, &models.BlockDatesRequest{CheckIn: "2024-09-01", CheckOut: "2024-09-05"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, released)
	assert.Equal(t, 1, e.db.bookingCount())
}

func TestBlockDates_ConcurrentReservationsOneWins(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		won       int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			// staggered ranges that all share the night of the 12th
			in := day("2024-10-10").AddDate(0, 0, i%3)
			_, err := e.bookings.BlockDates(ctx, &models.BlockDatesRequest{
				CheckIn:  in.Format("2006-01-02"),
				CheckOut: "2024-10-13",
			}, i)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				won++
			} else if apperr.IsConflict(err) {
				conflicts++
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, e.db.bookingCount())
}

func TestMonthCalendar_CachesUntilMutation(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	_, err := e.customers.CreateBooking(ctx, &models.CreateCustomerRequest{Name: "Asha", CheckIn: "2024-04-28", CheckOut: "2024-05-02"}, 1)
	require.NoError(t, err)

	may, err := e.bookings.MonthCalendar(ctx, 2024, time.May)
	require.NoError(t, err)
	require.Len(t, may, 1)

	cached, _, ok := e.calendar.GetMonth(ctx, 2024, time.May)
	require.True(t, ok)
	assert.Len(t, cached, 1)

	_, err = e.bookings.BlockDates(ctx, &models.BlockDatesRequest{CheckIn: "2024-05-20", CheckOut: "2024-05-21"}, 1)
	require.NoError(t, err)
	_, _, ok = e.calendar.GetMonth(ctx, 2024, time.May)
	assert.False(t, ok)

	may, err = e.bookings.MonthCalendar(ctx, 2024, time.May)
	require.NoError(t, err)
	assert.Len(t, may, 2)

	june, err := e.bookings.MonthCalendar(ctx, 2024, time.June)
	require.NoError(t, err)
	assert.Empty(t, june)

	_, err = e.bookings.MonthCalendar(ctx, 2024, time.Month(13))
	assert.True(t, apperr.IsValidation(err))
}

// slowMonths holds QueryByMonth until release is closed, after the snapshot is taken
type slowMonths struct {
	BookingStore
	taken   chan struct{}
	release chan struct{}
}

func (s *slowMonths) QueryByMonth(ctx context.Context, year int, month time.Month) ([]*models.Booking, error) {
	bookings, err := s.BookingStore.QueryByMonth(ctx, year, month)
	close(s.taken)
	<-s.release
	return bookings, err
}

func TestMonthCalendar_StaleFillAfterInvalidateIsNotServed(t *testing.T) {
	ctx := context.Background()
	e := newEngine()

	slow := &slowMonths{BookingStore: e.bookings.Bookings, taken: make(chan struct{}), release: make(chan struct{})}
	reader := NewBookingService(slow, e.calendar)

	done := make(chan []*models.Booking)
	go func() {
		may, err := reader.MonthCalendar(ctx, 2024, time.May)
		assert.NoError(t, err)
		done <- may
	}()

	<-slow.taken
	_, err := e.bookings.BlockDates(ctx, &models.BlockDatesRequest{CheckIn: "2024-05-20", CheckOut: "2024-05-21"}, 1)
	require.NoError(t, err)
	close(slow.release)
	assert.Empty(t, <-done, "the reader saw the month before the block")

	may, err := e.bookings.MonthCalendar(ctx, 2024, time.May)
	require.NoError(t, err)
	assert.Len(t, may, 1)
}
