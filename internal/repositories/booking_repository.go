package repositories

import (
	"context"
	"fmt"
	"time"

	"villa-backend/internal/daterange"
	"villa-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// calendarLockKey serialises every check-and-reserve on the calendar. There is one
// property, so there is one key.
const calendarLockKey int64 = 7_311_000_001

func lockCalendar(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", calendarLockKey); err != nil {
		return fmt.Errorf("failed to lock calendar: %w", err)
	}
	return nil
}

const bookingSelect = `
	SELECT b.id, b.customer_id, COALESCE(c.name, ''), b.check_in, b.check_out,
		b.occupants, b.booking_type, b.notes, b.created_by_user_id, b.created_at
	FROM bookings b
	LEFT JOIN customers c ON c.id = b.customer_id
`

func scanBookings(rows pgx.Rows) ([]*models.Booking, error) {
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.CustomerID, &b.CustomerName, &b.CheckIn, &b.CheckOut,
			&b.Occupants, &b.Type, &b.Notes, &b.CreatedByUserID, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, &b)
	}
	return bookings, rows.Err()
}

// findOverlapping lists records sharing at least one night with rng, earliest first
func findOverlapping(ctx context.Context, q dbtx, rng daterange.Range, excludeCustomerID *int) ([]*models.Booking, error) {
	rows, err := q.Query(ctx, bookingSelect+`
		WHERE b.check_in < $1 AND b.check_out > $2
			AND ($3::int IS NULL OR b.customer_id IS NULL OR b.customer_id <> $3)
		ORDER BY b.check_in, b.id
	`, rng.CheckOut, rng.CheckIn, excludeCustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping bookings: %w", err)
	}
	return scanBookings(rows)
}

func insertBooking(ctx context.Context, q dbtx, b *models.Booking) error {
	err := q.QueryRow(ctx, `
		INSERT INTO bookings (customer_id, check_in, check_out, occupants, booking_type, notes, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, b.CustomerID, b.CheckIn, b.CheckOut, b.Occupants, b.Type, b.Notes, b.CreatedByUserID,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

type BookingRepository struct {
	DB *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{DB: db}
}

func (r *BookingRepository) FindOverlapping(ctx context.Context, rng daterange.Range, excludeCustomerID *int) ([]*models.Booking, error) {
	return findOverlapping(ctx, r.DB, rng, excludeCustomerID)
}

// ReserveIfAvailable checks and inserts under the calendar lock
func (r *BookingRepository) ReserveIfAvailable(ctx context.Context, b *models.Booking, excludeCustomerID *int) (*models.Booking, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockCalendar(ctx, tx); err != nil {
		return nil, err
	}

	conflicts, err := findOverlapping(ctx, tx, b.Range(), excludeCustomerID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts[0], nil
	}

	if err := insertBooking(ctx, tx, b); err != nil {
		return nil, err
	}
	return nil, tx.Commit(ctx)
}

// Release deletes the record stored with exactly this range
func (r *BookingRepository) Release(ctx context.Context, rng daterange.Range, customerID *int) (int64, error) {
	tag, err := r.DB.Exec(ctx, `
		DELETE FROM bookings
		WHERE check_in = $1 AND check_out = $2
			AND (($3::int IS NULL AND customer_id IS NULL) OR customer_id = $3)
	`, rng.CheckIn, rng.CheckOut, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to release booking: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryByMonth returns every record with at least one night inside the month
func (r *BookingRepository) QueryByMonth(ctx context.Context, year int, month time.Month) ([]*models.Booking, error) {
	return findOverlapping(ctx, r.DB, daterange.MonthBounds(year, month), nil)
}
