package services

import (
	"context"
	"time"

	"villa-backend/internal/daterange"
	"villa-backend/internal/models"
)

// Lookups return (nil, nil) when the record does not exist.

// BookingStore is the occupancy calendar.
type BookingStore interface {
	// FindOverlapping returns records with checkIn < rng.CheckOut and checkOut > rng.CheckIn,
	// ordered by check-in, skipping records owned by excludeCustomerID.
	FindOverlapping(ctx context.Context, rng daterange.Range, excludeCustomerID *int) ([]*models.Booking, error)
	// ReserveIfAvailable checks and inserts as one guarded step. It returns the first
	// conflicting record and inserts nothing when the range is taken.
	ReserveIfAvailable(ctx context.Context, b *models.Booking, excludeCustomerID *int) (*models.Booking, error)
	// Release deletes the record stored with exactly this range. A nil customerID matches
	// blocked ranges only. Releasing an absent range is a no-op.
	Release(ctx context.Context, rng daterange.Range, customerID *int) (int64, error)
	QueryByMonth(ctx context.Context, year int, month time.Month) ([]*models.Booking, error)
}

// CustomerStore persists stays. Operations that touch the calendar run under the same
// guard as BookingStore.ReserveIfAvailable. Writes that change money or status lock the
// customer and return validation errors when the stay no longer allows them.
type CustomerStore interface {
	// CreateWithBooking inserts the customer and its occupancy record together, or
	// returns the conflicting record and inserts nothing.
	CreateWithBooking(ctx context.Context, c *models.Customer) (*models.Booking, error)
	// MoveDates releases the customer's current range and reserves to in one step.
	MoveDates(ctx context.Context, c *models.Customer, to daterange.Range) (*models.Booking, error)
	// Cancel records the refund, marks the stay cancelled and releases its dates in one step.
	// It fails unless the stay is active and has received at least the refund amount.
	Cancel(ctx context.Context, customerID int, refund *models.Refund) error
	Get(ctx context.Context, id int) (*models.Customer, error)
	List(ctx context.Context, filter *models.CustomerFilter) ([]*models.Customer, error)
	// Update saves identity fields and base charges and rebuilds the totals in one step.
	Update(ctx context.Context, c *models.Customer) (*models.Customer, error)
	// UpdateStatus reports false when the stay is not in from, or when to is completed
	// and a balance is outstanding.
	UpdateStatus(ctx context.Context, id int, from, to models.CustomerStatus) (bool, error)
	Delete(ctx context.Context, id int) error
}

// ChargeStore writes change the charge and rebuild the owning customer's totals in one
// step, returning the customer as stored afterwards.
type ChargeStore interface {
	Create(ctx context.Context, ch *models.ExtraCharge) (*models.Customer, error)
	Get(ctx context.Context, id string) (*models.ExtraCharge, error)
	ListByCustomer(ctx context.Context, customerID int) ([]*models.ExtraCharge, error)
	Update(ctx context.Context, ch *models.ExtraCharge) (*models.Customer, error)
	Delete(ctx context.Context, customerID int, id string) (*models.Customer, error)
	SetMirrors(ctx context.Context, id string, expenseMirrorID, saleMirrorID *int) error
}

// PaymentStore writes rebuild the owning customer's totals like ChargeStore writes.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) (*models.Customer, error)
	Get(ctx context.Context, id string) (*models.Payment, error)
	ListByCustomer(ctx context.Context, customerID int) ([]*models.Payment, error)
	SetSaleMirror(ctx context.Context, id string, mirrorID *int) error
	Delete(ctx context.Context, customerID int, id string) (*models.Customer, error)
}

type RefundStore interface {
	Get(ctx context.Context, id string) (*models.Refund, error)
	ListByCustomer(ctx context.Context, customerID int) ([]*models.Refund, error)
	SetExpenseMirror(ctx context.Context, id string, mirrorID *int) error
}

// LedgerStore holds the expenses and sales ledgers. Mirror rows are keyed by
// (kind, source type, source id), which is unique for non-manual rows.
type LedgerStore interface {
	UpsertMirror(ctx context.Context, e *models.LedgerEntry) error
	UpdateMirror(ctx context.Context, e *models.LedgerEntry) (bool, error)
	DeleteMirror(ctx context.Context, kind models.LedgerKind, sourceType models.SourceType, sourceID string) (int64, error)

	Create(ctx context.Context, e *models.LedgerEntry) error
	Get(ctx context.Context, kind models.LedgerKind, id int) (*models.LedgerEntry, error)
	Update(ctx context.Context, e *models.LedgerEntry) error
	Delete(ctx context.Context, kind models.LedgerKind, id int) error
	List(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) ([]*models.LedgerEntry, error)
	Totals(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) (*models.LedgerTotals, error)
}

// SyncOutbox keeps failed mirror writes until a reconcile sweep re-derives them.
type SyncOutbox interface {
	Record(ctx context.Context, f *models.SyncFailure) error
	ListPending(ctx context.Context, limit int) ([]*models.SyncFailure, error)
	MarkResolved(ctx context.Context, id int) error
	RecordAttempt(ctx context.Context, id int, errText string) error
}

// CalendarCache caches month views of the calendar. Implementations must tolerate
// being unavailable; a miss simply falls through to the store. A miss also returns the
// cache generation, which the caller hands back to SetMonth. Invalidate starts a new
// generation, so a month read before the invalidation is never served after it.
type CalendarCache interface {
	GetMonth(ctx context.Context, year int, month time.Month) (bookings []*models.Booking, generation int64, ok bool)
	SetMonth(ctx context.Context, generation int64, year int, month time.Month, bookings []*models.Booking)
	Invalidate(ctx context.Context)
}

func invalidateCalendar(ctx context.Context, cache CalendarCache) {
	if cache != nil {
		cache.Invalidate(ctx)
	}
}
