package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"villa-backend/internal/apperr"
	"villa-backend/internal/daterange"
	"villa-backend/internal/models"
	"villa-backend/internal/notify"

	"github.com/shopspring/decimal"
)

// memDB is an in-memory stand-in for the Postgres repositories. One mutex guards
// everything, which gives the same check-and-reserve guarantee as the advisory lock.
type memDB struct {
	mu       sync.Mutex
	nextID   int
	now      time.Time
	customer map[int]*models.Customer
	bookings []*models.Booking
	charges  map[string]*models.ExtraCharge
	payments map[string]*models.Payment
	refunds  map[string]*models.Refund
	ledger   map[int]*models.LedgerEntry
	outbox   map[int]*models.SyncFailure

	// failTotals makes every customer-scoped write fail as a whole, as a rolled
	// back transaction would
	failTotals error

	hookMu sync.Mutex
	hooks  map[string]func()
}

func newMemDB() *memDB {
	return &memDB{
		now:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		customer: make(map[int]*models.Customer),
		charges:  make(map[string]*models.ExtraCharge),
		payments: make(map[string]*models.Payment),
		refunds:  make(map[string]*models.Refund),
		ledger:   make(map[int]*models.LedgerEntry),
		outbox:   make(map[int]*models.SyncFailure),
		hooks:    make(map[string]func()),
	}
}

func (db *memDB) failWrites(err error) {
	db.mu.Lock()
	db.failTotals = err
	db.mu.Unlock()
}

// onNext runs fn once, just before the next op write takes the lock
func (db *memDB) onNext(op string, fn func()) {
	db.hookMu.Lock()
	defer db.hookMu.Unlock()
	db.hooks[op] = fn
}

func (db *memDB) before(op string) {
	db.hookMu.Lock()
	fn := db.hooks[op]
	delete(db.hooks, op)
	db.hookMu.Unlock()
	if fn != nil {
		fn()
	}
}

// mutable must be called with mu held
func (db *memDB) mutable(id int) (*models.Customer, error) {
	c, ok := db.customer[id]
	if !ok {
		return nil, apperr.NotFound("customer", id)
	}
	if c.Status == models.CustomerStatusCancelled {
		return nil, apperr.Validation("status", "booking %d is cancelled", id)
	}
	if db.failTotals != nil {
		return nil, db.failTotals
	}
	return c, nil
}

// settle rebuilds the stored totals from the sub-ledgers; must be called with mu held
func (db *memDB) settle(c *models.Customer) *models.Customer {
	extras, received := decimal.Zero, decimal.Zero
	for _, ch := range db.charges {
		if ch.CustomerID == c.ID {
			extras = extras.Add(ch.Amount)
		}
	}
	for _, p := range db.payments {
		if p.CustomerID == c.ID {
			received = received.Add(p.Amount)
		}
	}
	c.ExtraChargesTotal = extras
	c.ReceivedAmount = received
	ApplyBalance(c)
	if c.Status == models.CustomerStatusCompleted && c.BalanceAmount.IsPositive() {
		c.Status = models.CustomerStatusActive
	}
	c.UpdatedAt = db.tick()
	cp := *c
	return &cp
}

func (db *memDB) id() int {
	db.nextID++
	return db.nextID
}

func (db *memDB) tick() time.Time {
	db.now = db.now.Add(time.Second)
	return db.now
}

// overlapping must be called with mu held
func (db *memDB) overlapping(rng daterange.Range, excludeCustomerID *int) []*models.Booking {
	var out []*models.Booking
	for _, b := range db.bookings {
		if !b.Range().Overlaps(rng) {
			continue
		}
		if excludeCustomerID != nil && b.CustomerID != nil && *b.CustomerID == *excludeCustomerID {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out
}

// mirrors returns the mirror rows of sourceID in one ledger
func (db *memDB) mirrors(kind models.LedgerKind, sourceID string) []*models.LedgerEntry {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range db.ledger {
		if e.Kind == kind && e.SourceType != models.SourceManual && e.SourceID == sourceID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out
}

func (db *memDB) bookingCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.bookings)
}

// --- bookings ---

type memBookings struct{ db *memDB }

func (s *memBookings) FindOverlapping(ctx context.Context, rng daterange.Range, excludeCustomerID *int) ([]*models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.overlapping(rng, excludeCustomerID), nil
}

func (s *memBookings) ReserveIfAvailable(ctx context.Context, b *models.Booking, excludeCustomerID *int) (*models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if conflicts := s.db.overlapping(b.Range(), excludeCustomerID); len(conflicts) > 0 {
		return conflicts[0], nil
	}
	b.ID = s.db.id()
	b.CreatedAt = s.db.tick()
	cp := *b
	s.db.bookings = append(s.db.bookings, &cp)
	return nil, nil
}

func (s *memBookings) Release(ctx context.Context, rng daterange.Range, customerID *int) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var released int64
	kept := s.db.bookings[:0]
	for _, b := range s.db.bookings {
		match := b.Range().Equal(rng)
		if customerID == nil {
			match = match && b.CustomerID == nil
		} else {
			match = match && b.CustomerID != nil && *b.CustomerID == *customerID
		}
		if match {
			released++
			continue
		}
		kept = append(kept, b)
	}
	s.db.bookings = kept
	return released, nil
}

func (db *memDB) releaseCustomer(customerID int) int64 {
	var released int64
	kept := db.bookings[:0]
	for _, b := range db.bookings {
		if b.CustomerID != nil && *b.CustomerID == customerID {
			released++
			continue
		}
		kept = append(kept, b)
	}
	db.bookings = kept
	return released
}

func (s *memBookings) QueryByMonth(ctx context.Context, year int, month time.Month) ([]*models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.overlapping(daterange.MonthBounds(year, month), nil), nil
}

// --- customers ---

type memCustomers struct{ db *memDB }

func (s *memCustomers) CreateWithBooking(ctx context.Context, c *models.Customer) (*models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if conflicts := s.db.overlapping(c.Range(), nil); len(conflicts) > 0 {
		return conflicts[0], nil
	}
	c.ID = s.db.id()
	c.CreatedAt = s.db.tick()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.db.customer[c.ID] = &cp

	cid := c.ID
	s.db.bookings = append(s.db.bookings, &models.Booking{
		ID:              s.db.id(),
		CustomerID:      &cid,
		CustomerName:    c.Name,
		CheckIn:         c.CheckIn,
		CheckOut:        c.CheckOut,
		Occupants:       c.Occupants,
		Type:            models.BookingTypeCustomer,
		CreatedByUserID: c.CreatedByUserID,
		CreatedAt:       c.CreatedAt,
	})
	return nil, nil
}

func (s *memCustomers) MoveDates(ctx context.Context, c *models.Customer, to daterange.Range) (*models.Booking, error) {
	s.db.before("customer.move")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, err := s.db.mutable(c.ID); err != nil {
		return nil, err
	}
	cid := c.ID
	if conflicts := s.db.overlapping(to, &cid); len(conflicts) > 0 {
		return conflicts[0], nil
	}
	for _, b := range s.db.bookings {
		if b.CustomerID != nil && *b.CustomerID == cid {
			b.CheckIn, b.CheckOut = to.CheckIn, to.CheckOut
		}
	}
	if stored, ok := s.db.customer[cid]; ok {
		stored.CheckIn, stored.CheckOut = to.CheckIn, to.CheckOut
	}
	return nil, nil
}

func (s *memCustomers) Cancel(ctx context.Context, customerID int, refund *models.Refund) error {
	s.db.before("customer.cancel")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, err := s.db.mutable(customerID)
	if err != nil {
		return err
	}
	if stored.Status != models.CustomerStatusActive {
		return apperr.Validation("status", "booking %d must be active to be refunded", customerID)
	}
	if refund.Amount.GreaterThan(stored.ReceivedAmount) {
		return apperr.Validation("amount", "refund %s exceeds received amount %s",
			refund.Amount.StringFixed(2), stored.ReceivedAmount.StringFixed(2))
	}
	cp := *refund
	s.db.refunds[refund.ID] = &cp
	stored.Status = models.CustomerStatusCancelled
	s.db.releaseCustomer(customerID)
	return nil
}

func (s *memCustomers) Get(ctx context.Context, id int) (*models.Customer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.customer[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memCustomers) List(ctx context.Context, filter *models.CustomerFilter) ([]*models.Customer, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Customer
	for _, c := range s.db.customer {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Search)) && !strings.Contains(c.Phone, filter.Search) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (s *memCustomers) Update(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	s.db.before("customer.update")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, err := s.db.mutable(c.ID)
	if err != nil {
		return nil, err
	}
	stored.Name, stored.Phone, stored.Email, stored.Address = c.Name, c.Phone, c.Email, c.Address
	stored.VehicleNumber, stored.IDProofType, stored.IDProofNumber = c.VehicleNumber, c.IDProofType, c.IDProofNumber
	stored.CheckInTime, stored.CheckOutTime, stored.Occupants, stored.Notes = c.CheckInTime, c.CheckOutTime, c.Occupants, c.Notes
	stored.StayCharges, stored.CuisineCharges = c.StayCharges, c.CuisineCharges
	return s.db.settle(stored), nil
}

func (s *memCustomers) UpdateStatus(ctx context.Context, id int, from, to models.CustomerStatus) (bool, error) {
	s.db.before("customer.status")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.customer[id]
	if !ok || stored.Status != from {
		return false, nil
	}
	if to == models.CustomerStatusCompleted && stored.BalanceAmount.IsPositive() {
		return false, nil
	}
	stored.Status = to
	return true, nil
}

func (s *memCustomers) Delete(ctx context.Context, id int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.customer, id)
	for k, ch := range s.db.charges {
		if ch.CustomerID == id {
			delete(s.db.charges, k)
		}
	}
	for k, p := range s.db.payments {
		if p.CustomerID == id {
			delete(s.db.payments, k)
		}
	}
	for k, r := range s.db.refunds {
		if r.CustomerID == id {
			delete(s.db.refunds, k)
		}
	}
	s.db.releaseCustomer(id)
	return nil
}

// --- charges ---

type memCharges struct{ db *memDB }

func (s *memCharges) Create(ctx context.Context, ch *models.ExtraCharge) (*models.Customer, error) {
	s.db.before("charge.create")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, err := s.db.mutable(ch.CustomerID)
	if err != nil {
		return nil, err
	}
	ch.CreatedAt = s.db.tick()
	ch.UpdatedAt = ch.CreatedAt
	cp := *ch
	s.db.charges[ch.ID] = &cp
	return s.db.settle(c), nil
}

func (s *memCharges) Get(ctx context.Context, id string) (*models.ExtraCharge, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ch, ok := s.db.charges[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (s *memCharges) ListByCustomer(ctx context.Context, customerID int) ([]*models.ExtraCharge, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.ExtraCharge
	for _, ch := range s.db.charges {
		if ch.CustomerID == customerID {
			cp := *ch
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memCharges) Update(ctx context.Context, ch *models.ExtraCharge) (*models.Customer, error) {
	s.db.before("charge.update")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, err := s.db.mutable(ch.CustomerID)
	if err != nil {
		return nil, err
	}
	stored, ok := s.db.charges[ch.ID]
	if !ok || stored.CustomerID != ch.CustomerID {
		return nil, apperr.NotFound("extra charge", ch.ID)
	}
	stored.Description, stored.Amount, stored.ChargeDate = ch.Description, ch.Amount, ch.ChargeDate
	stored.RecordInExpenses, stored.RecordInSales = ch.RecordInExpenses, ch.RecordInSales
	stored.UpdatedAt = s.db.tick()
	ch.UpdatedAt = stored.UpdatedAt
	return s.db.settle(c), nil
}

func (s *memCharges) SetMirrors(ctx context.Context, id string, expenseMirrorID, saleMirrorID *int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ch, ok := s.db.charges[id]
	if !ok {
		return errors.New("charge not found")
	}
	ch.ExpenseMirrorID, ch.SaleMirrorID = expenseMirrorID, saleMirrorID
	return nil
}

func (s *memCharges) Delete(ctx context.Context, customerID int, id string) (*models.Customer, error) {
	s.db.before("charge.delete")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, err := s.db.mutable(customerID)
	if err != nil {
		return nil, err
	}
	if ch, ok := s.db.charges[id]; ok && ch.CustomerID == customerID {
		delete(s.db.charges, id)
	}
	return s.db.settle(c), nil
}

// --- payments ---

type memPayments struct{ db *memDB }

func (s *memPayments) Create(ctx context.Context, p *models.Payment) (*models.Customer, error) {
	s.db.before("payment.create")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, err := s.db.mutable(p.CustomerID)
	if err != nil {
		return nil, err
	}
	cp := *p
	s.db.payments[p.ID] = &cp
	return s.db.settle(c), nil
}

func (s *memPayments) Get(ctx context.Context, id string) (*models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memPayments) ListByCustomer(ctx context.Context, customerID int) ([]*models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Payment
	for _, p := range s.db.payments {
		if p.CustomerID == customerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.Before(out[j].PaidAt) })
	return out, nil
}

func (s *memPayments) SetSaleMirror(ctx context.Context, id string, mirrorID *int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.payments[id]
	if !ok {
		return errors.New("payment not found")
	}
	p.SaleMirrorID = mirrorID
	return nil
}

func (s *memPayments) Delete(ctx context.Context, customerID int, id string) (*models.Customer, error) {
	s.db.before("payment.delete")
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, err := s.db.mutable(customerID)
	if err != nil {
		return nil, err
	}
	if p, ok := s.db.payments[id]; ok && p.CustomerID == customerID {
		delete(s.db.payments, id)
	}
	return s.db.settle(c), nil
}

// --- refunds ---

type memRefunds struct{ db *memDB }

func (s *memRefunds) Get(ctx context.Context, id string) (*models.Refund, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.refunds[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memRefunds) ListByCustomer(ctx context.Context, customerID int) ([]*models.Refund, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Refund
	for _, r := range s.db.refunds {
		if r.CustomerID == customerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memRefunds) SetExpenseMirror(ctx context.Context, id string, mirrorID *int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.refunds[id]
	if !ok {
		return errors.New("refund not found")
	}
	r.ExpenseMirrorID = mirrorID
	return nil
}

// --- ledger ---

type memLedger struct{ db *memDB }

func (s *memLedger) findMirror(kind models.LedgerKind, sourceType models.SourceType, sourceID string) *models.LedgerEntry {
	for _, e := range s.db.ledger {
		if e.Kind == kind && e.SourceType == sourceType && e.SourceID == sourceID {
			return e
		}
	}
	return nil
}

func (s *memLedger) UpsertMirror(ctx context.Context, e *models.LedgerEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if existing := s.findMirror(e.Kind, e.SourceType, e.SourceID); existing != nil {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
	} else {
		e.ID = s.db.id()
		e.CreatedAt = s.db.tick()
	}
	e.UpdatedAt = s.db.tick()
	cp := *e
	s.db.ledger[e.ID] = &cp
	return nil
}

func (s *memLedger) UpdateMirror(ctx context.Context, e *models.LedgerEntry) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	existing := s.findMirror(e.Kind, e.SourceType, e.SourceID)
	if existing == nil {
		return false, nil
	}
	e.ID = existing.ID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = s.db.tick()
	cp := *e
	s.db.ledger[e.ID] = &cp
	return true, nil
}

func (s *memLedger) DeleteMirror(ctx context.Context, kind models.LedgerKind, sourceType models.SourceType, sourceID string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var n int64
	for id, e := range s.db.ledger {
		if e.Kind == kind && e.SourceType == sourceType && e.SourceID == sourceID {
			delete(s.db.ledger, id)
			n++
		}
	}
	return n, nil
}

func (s *memLedger) Create(ctx context.Context, e *models.LedgerEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = s.db.id()
	e.CreatedAt = s.db.tick()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	s.db.ledger[e.ID] = &cp
	return nil
}

func (s *memLedger) Get(ctx context.Context, kind models.LedgerKind, id int) (*models.LedgerEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.ledger[id]
	if !ok || e.Kind != kind {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *memLedger) Update(ctx context.Context, e *models.LedgerEntry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.UpdatedAt = s.db.tick()
	cp := *e
	s.db.ledger[e.ID] = &cp
	return nil
}

func (s *memLedger) Delete(ctx context.Context, kind models.LedgerKind, id int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.ledger, id)
	return nil
}

func (s *memLedger) matches(e *models.LedgerEntry, kind models.LedgerKind, f *models.LedgerFilter) bool {
	if e.Kind != kind {
		return false
	}
	if f.SourceType != "" && e.SourceType != f.SourceType {
		return false
	}
	if f.CustomerID != nil && (e.CustomerID == nil || *e.CustomerID != *f.CustomerID) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.StartDate != nil && e.EntryDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.EntryDate.After(*f.EndDate) {
		return false
	}
	return true
}

func (s *memLedger) List(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) ([]*models.LedgerEntry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.LedgerEntry
	for _, e := range s.db.ledger {
		if s.matches(e, kind, filter) {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memLedger) Totals(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) (*models.LedgerTotals, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	totals := &models.LedgerTotals{Kind: kind, Total: decimal.Zero}
	for _, e := range s.db.ledger {
		if s.matches(e, kind, filter) {
			totals.Total = totals.Total.Add(e.Amount)
			totals.EntryCount++
		}
	}
	return totals, nil
}

// flakyLedger fails every mirror write while down is set
type flakyLedger struct {
	*memLedger
	mu   sync.Mutex
	down bool
}

var errLedgerDown = errors.New("ledger unavailable")

func (s *flakyLedger) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *flakyLedger) isDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down
}

func (s *flakyLedger) UpsertMirror(ctx context.Context, e *models.LedgerEntry) error {
	if s.isDown() {
		return errLedgerDown
	}
	return s.memLedger.UpsertMirror(ctx, e)
}

func (s *flakyLedger) UpdateMirror(ctx context.Context, e *models.LedgerEntry) (bool, error) {
	if s.isDown() {
		return false, errLedgerDown
	}
	return s.memLedger.UpdateMirror(ctx, e)
}

func (s *flakyLedger) DeleteMirror(ctx context.Context, kind models.LedgerKind, sourceType models.SourceType, sourceID string) (int64, error) {
	if s.isDown() {
		return 0, errLedgerDown
	}
	return s.memLedger.DeleteMirror(ctx, kind, sourceType, sourceID)
}

// --- outbox ---

type memOutbox struct{ db *memDB }

func (s *memOutbox) Record(ctx context.Context, f *models.SyncFailure) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	f.ID = s.db.id()
	f.CreatedAt = s.db.tick()
	f.Attempts = 1
	cp := *f
	s.db.outbox[f.ID] = &cp
	return nil
}

func (s *memOutbox) ListPending(ctx context.Context, limit int) ([]*models.SyncFailure, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.SyncFailure
	for _, f := range s.db.outbox {
		if f.ResolvedAt == nil {
			cp := *f
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memOutbox) MarkResolved(ctx context.Context, id int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if f, ok := s.db.outbox[id]; ok {
		now := s.db.tick()
		f.ResolvedAt = &now
	}
	return nil
}

func (s *memOutbox) RecordAttempt(ctx context.Context, id int, errText string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if f, ok := s.db.outbox[id]; ok {
		f.Attempts++
		f.Error = errText
	}
	return nil
}

// --- calendar cache ---

type memCalendar struct {
	mu         sync.Mutex
	generation int64
	months     map[string][]*models.Booking
}

func newMemCalendar() *memCalendar {
	return &memCalendar{months: make(map[string][]*models.Booking)}
}

func monthKey(generation int64, year int, month time.Month) string {
	return fmt.Sprintf("g%d:%04d-%02d", generation, year, int(month))
}

func (c *memCalendar) GetMonth(ctx context.Context, year int, month time.Month) ([]*models.Booking, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.months[monthKey(c.generation, year, month)]
	return b, c.generation, ok
}

func (c *memCalendar) SetMonth(ctx context.Context, generation int64, year int, month time.Month, bookings []*models.Booking) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.months[monthKey(generation, year, month)] = bookings
}

func (c *memCalendar) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
}

// --- wiring ---

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) Notify(ctx context.Context, kind notify.Kind, recipient string, payload map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, string(kind))
	return nil
}

// engine wires every service over one memDB
type engine struct {
	db       *memDB
	ledger   *flakyLedger
	calendar *memCalendar
	notifier *recordingNotifier

	availability *AvailabilityService
	bookings     *BookingService
	customers    *CustomerService
	charges      *ChargeService
	payments     *PaymentService
	refunds      *RefundService
	ledgers      *LedgerService
	reconcile    *ReconcileService
	sync         *LedgerSyncService
}

func newEngine() *engine {
	db := newMemDB()
	bookingStore := &memBookings{db: db}
	customerStore := &memCustomers{db: db}
	chargeStore := &memCharges{db: db}
	paymentStore := &memPayments{db: db}
	refundStore := &memRefunds{db: db}
	ledger := &flakyLedger{memLedger: &memLedger{db: db}}
	outbox := &memOutbox{db: db}
	calendar := newMemCalendar()
	notifier := &recordingNotifier{}

	syncer := NewLedgerSyncService(ledger, outbox)
	return &engine{
		db:           db,
		ledger:       ledger,
		calendar:     calendar,
		notifier:     notifier,
		availability: NewAvailabilityService(bookingStore),
		bookings:     NewBookingService(bookingStore, calendar),
		customers:    NewCustomerService(customerStore, chargeStore, paymentStore, refundStore, syncer, calendar, notifier),
		charges:      NewChargeService(customerStore, chargeStore, syncer),
		payments:     NewPaymentService(customerStore, paymentStore, syncer),
		refunds:      NewRefundService(customerStore, refundStore, syncer, calendar, notifier),
		ledgers:      NewLedgerService(ledger),
		reconcile:    NewReconcileService(outbox, syncer, customerStore, chargeStore, paymentStore, refundStore, nil),
		sync:         syncer,
	}
}
