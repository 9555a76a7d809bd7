package services

import (
	"context"
	"log"
	"strings"

	"villa-backend/internal/apperr"
	"villa-backend/internal/metrics"
	"villa-backend/internal/models"
	"villa-backend/internal/notify"
	"villa-backend/internal/timeutil"

	"github.com/shopspring/decimal"
)

// CustomerService coordinates a stay's lifecycle: reservation, date moves, completion and deletion
type CustomerService struct {
	Customers CustomerStore
	Charges   ChargeStore
	Payments  PaymentStore
	Refunds   RefundStore
	Sync      *LedgerSyncService
	Calendar  CalendarCache
	Notifier  notify.Notifier

	DefaultCheckInTime  string
	DefaultCheckOutTime string
}

func NewCustomerService(
	customers CustomerStore,
	charges ChargeStore,
	payments PaymentStore,
	refunds RefundStore,
	sync *LedgerSyncService,
	calendar CalendarCache,
	notifier notify.Notifier,
) *CustomerService {
	return &CustomerService{
		Customers:           customers,
		Charges:             charges,
		Payments:            payments,
		Refunds:             refunds,
		Sync:                sync,
		Calendar:            calendar,
		Notifier:            notifier,
		DefaultCheckInTime:  "14:00",
		DefaultCheckOutTime: "11:00",
	}
}

// loadCustomer returns the customer or a NotFoundError
func loadCustomer(ctx context.Context, customers CustomerStore, id int) (*models.Customer, error) {
	c, err := customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("customer", id)
	}
	return c, nil
}

// loadMutable is loadCustomer for operations that are closed once a stay is cancelled
func loadMutable(ctx context.Context, customers CustomerStore, id int) (*models.Customer, error) {
	c, err := loadCustomer(ctx, customers, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CustomerStatusCancelled {
		return nil, apperr.Validation("status", "booking %d is cancelled", id)
	}
	return c, nil
}

// noteReopened logs a completed stay that a write left owing money again
func noteReopened(before, after *models.Customer) {
	if before.Status == models.CustomerStatusCompleted && after.Status == models.CustomerStatusActive {
		log.Printf("[Booking] Customer %d reopened, balance %s outstanding", after.ID, after.BalanceAmount.StringFixed(2))
	}
}

func (s *CustomerService) notify(ctx context.Context, kind notify.Kind, c *models.Customer) {
	if s.Notifier == nil || c.Email == "" {
		return
	}
	payload := map[string]interface{}{
		"customer_id":    c.ID,
		"name":           c.Name,
		"check_in":       c.CheckIn.Format(timeutil.DateLayout),
		"check_out":      c.CheckOut.Format(timeutil.DateLayout),
		"check_in_time":  c.CheckInTime,
		"check_out_time": c.CheckOutTime,
		"total_amount":   c.TotalAmount.StringFixed(2),
		"balance_amount": c.BalanceAmount.StringFixed(2),
	}
	if err := s.Notifier.Notify(ctx, kind, c.Email, payload); err != nil {
		log.Printf("[Notify] Warning: %s for customer %d: %v", kind, c.ID, err)
	}
}

func validateCharges(stay, cuisine decimal.Decimal) error {
	if stay.IsNegative() {
		return apperr.Validation("stay_charges", "must not be negative")
	}
	if cuisine.IsNegative() {
		return apperr.Validation("cuisine_charges", "must not be negative")
	}
	return nil
}

func (s *CustomerService) stayTimes(checkIn, checkOut string) (string, string, error) {
	if checkIn == "" {
		checkIn = s.DefaultCheckInTime
	}
	if checkOut == "" {
		checkOut = s.DefaultCheckOutTime
	}
	if err := timeutil.ValidateTimeOfDay(checkIn); err != nil {
		return "", "", apperr.Validation("check_in_time", "%v", err)
	}
	if err := timeutil.ValidateTimeOfDay(checkOut); err != nil {
		return "", "", apperr.Validation("check_out_time", "%v", err)
	}
	return checkIn, checkOut, nil
}

// CreateBooking reserves the dates and records the stay. Nothing is written when the
// dates are taken.
func (s *CustomerService) CreateBooking(ctx context.Context, req *models.CreateCustomerRequest, userID int) (*models.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if req.Occupants < 0 {
		return nil, apperr.Validation("occupants", "must not be negative")
	}
	if err := validateCharges(req.StayCharges, req.CuisineCharges); err != nil {
		return nil, err
	}
	rng, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	inTime, outTime, err := s.stayTimes(req.CheckInTime, req.CheckOutTime)
	if err != nil {
		return nil, err
	}

	occupants := req.Occupants
	if occupants == 0 {
		occupants = 1
	}

	c := &models.Customer{
		Name:            name,
		Phone:           strings.TrimSpace(req.Phone),
		Email:           strings.TrimSpace(req.Email),
		Address:         req.Address,
		VehicleNumber:   req.VehicleNumber,
		IDProofType:     req.IDProofType,
		IDProofNumber:   req.IDProofNumber,
		CheckIn:         rng.CheckIn,
		CheckOut:        rng.CheckOut,
		CheckInTime:     inTime,
		CheckOutTime:    outTime,
		Occupants:       occupants,
		Status:          models.CustomerStatusActive,
		Notes:           req.Notes,
		CreatedByUserID: userID,
		StayCharges:     req.StayCharges,
		CuisineCharges:  req.CuisineCharges,
	}
	ApplyBalance(c)

	conflict, err := s.Customers.CreateWithBooking(ctx, c)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		metrics.BookingConflicts.WithLabelValues("create").Inc()
		return nil, conflictError(conflict)
	}

	invalidateCalendar(ctx, s.Calendar)
	log.Printf("[Booking] Created customer %d (%s) for %s to %s", c.ID, c.Name,
		c.CheckIn.Format(timeutil.DateLayout), c.CheckOut.Format(timeutil.DateLayout))
	s.notify(ctx, notify.KindBookingConfirmed, c)
	return c, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int) (*models.Customer, error) {
	return loadCustomer(ctx, s.Customers, id)
}

func (s *CustomerService) ListCustomers(ctx context.Context, filter *models.CustomerFilter) ([]*models.Customer, error) {
	if filter == nil {
		filter = &models.CustomerFilter{}
	}
	switch filter.Status {
	case "", models.CustomerStatusActive, models.CustomerStatusCompleted, models.CustomerStatusCancelled:
	default:
		return nil, apperr.Validation("status", "unknown status %q", filter.Status)
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.Customers.List(ctx, filter)
}

// UpdateCustomer edits identity fields and base charges, then recomputes the totals
func (s *CustomerService) UpdateCustomer(ctx context.Context, id int, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	c, err := loadMutable(ctx, s.Customers, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if req.Occupants < 0 {
		return nil, apperr.Validation("occupants", "must not be negative")
	}
	if err := validateCharges(req.StayCharges, req.CuisineCharges); err != nil {
		return nil, err
	}
	inTime, outTime, err := s.stayTimes(req.CheckInTime, req.CheckOutTime)
	if err != nil {
		return nil, err
	}

	c.Name = name
	c.Phone = strings.TrimSpace(req.Phone)
	c.Email = strings.TrimSpace(req.Email)
	c.Address = req.Address
	c.VehicleNumber = req.VehicleNumber
	c.IDProofType = req.IDProofType
	c.IDProofNumber = req.IDProofNumber
	c.CheckInTime = inTime
	c.CheckOutTime = outTime
	if req.Occupants > 0 {
		c.Occupants = req.Occupants
	}
	c.Notes = req.Notes
	c.StayCharges = req.StayCharges
	c.CuisineCharges = req.CuisineCharges

	saved, err := s.Customers.Update(ctx, c)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// UpdateBookingDates moves the stay. The old range is released and the new one reserved
// in one step, so a conflict leaves the original dates in place.
func (s *CustomerService) UpdateBookingDates(ctx context.Context, id int, req *models.UpdateDatesRequest) (*models.Customer, error) {
	c, err := loadMutable(ctx, s.Customers, id)
	if err != nil {
		return nil, err
	}
	rng, err := parseRange(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}
	if rng.Equal(c.Range()) {
		return c, nil
	}

	conflict, err := s.Customers.MoveDates(ctx, c, rng)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		metrics.BookingConflicts.WithLabelValues("move").Inc()
		return nil, conflictError(conflict)
	}

	c.CheckIn = rng.CheckIn
	c.CheckOut = rng.CheckOut
	invalidateCalendar(ctx, s.Calendar)
	log.Printf("[Booking] Customer %d moved to %s to %s", c.ID,
		rng.CheckIn.Format(timeutil.DateLayout), rng.CheckOut.Format(timeutil.DateLayout))
	s.notify(ctx, notify.KindDatesChanged, c)
	return c, nil
}

// MarkCompleted closes a fully paid stay
func (s *CustomerService) MarkCompleted(ctx context.Context, id int) (*models.Customer, error) {
	c, err := loadMutable(ctx, s.Customers, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CustomerStatusCompleted {
		return c, nil
	}
	if err := requireSettled(c); err != nil {
		return nil, err
	}

	ok, err := s.Customers.UpdateStatus(ctx, id, models.CustomerStatusActive, models.CustomerStatusCompleted)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent write changed the stay after it was read
		if c, err = loadMutable(ctx, s.Customers, id); err != nil {
			return nil, err
		}
		if c.Status == models.CustomerStatusCompleted {
			return c, nil
		}
		if err := requireSettled(c); err != nil {
			return nil, err
		}
		return nil, apperr.Validation("status", "booking %d changed, try again", id)
	}
	c.Status = models.CustomerStatusCompleted
	return c, nil
}

func requireSettled(c *models.Customer) error {
	if c.BalanceAmount.IsPositive() {
		return apperr.Validation("balance_amount", "outstanding balance %s must be settled first", c.BalanceAmount.StringFixed(2))
	}
	return nil
}

// UndoCompleted reopens a completed stay
func (s *CustomerService) UndoCompleted(ctx context.Context, id int) (*models.Customer, error) {
	c, err := loadCustomer(ctx, s.Customers, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CustomerStatusCompleted {
		return nil, apperr.Validation("status", "only completed bookings can be reopened")
	}

	ok, err := s.Customers.UpdateStatus(ctx, id, models.CustomerStatusCompleted, models.CustomerStatusActive)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("status", "only completed bookings can be reopened")
	}
	c.Status = models.CustomerStatusActive
	return c, nil
}

// DeleteCustomer removes the stay, its sub-ledgers and occupancy, and every mirror it created.
// Manual ledger rows are untouched.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id int) error {
	c, err := loadCustomer(ctx, s.Customers, id)
	if err != nil {
		return err
	}

	charges, err := s.Charges.ListByCustomer(ctx, id)
	if err != nil {
		return err
	}
	payments, err := s.Payments.ListByCustomer(ctx, id)
	if err != nil {
		return err
	}
	refunds, err := s.Refunds.ListByCustomer(ctx, id)
	if err != nil {
		return err
	}

	for _, ch := range charges {
		s.Sync.Remove(ctx, models.LedgerExpenses, models.SourceKindCharge, id, ch.ID)
		s.Sync.Remove(ctx, models.LedgerSales, models.SourceKindCharge, id, ch.ID)
	}
	for _, p := range payments {
		s.Sync.Remove(ctx, models.LedgerSales, models.SourceKindPayment, id, p.ID)
	}
	for _, r := range refunds {
		s.Sync.Remove(ctx, models.LedgerExpenses, models.SourceKindRefund, id, r.ID)
	}

	if err := s.Customers.Delete(ctx, id); err != nil {
		return err
	}
	invalidateCalendar(ctx, s.Calendar)
	log.Printf("[Booking] Deleted customer %d (%s) with %d charges, %d payments, %d refunds",
		id, c.Name, len(charges), len(payments), len(refunds))
	return nil
}
