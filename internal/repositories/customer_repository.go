package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"villa-backend/internal/apperr"
	"villa-backend/internal/daterange"
	"villa-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type CustomerRepository struct {
	DB *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{DB: db}
}

const customerColumns = `
	id, name, phone, email, address, vehicle_number, id_proof_type, id_proof_number,
	check_in, check_out, check_in_time, check_out_time, occupants, status, notes,
	stay_charges, cuisine_charges, extra_charges_total, total_amount, received_amount, balance_amount,
	created_by_user_id, created_at, updated_at
`

// qualifiedCustomerColumns is customerColumns for statements that join another relation
var qualifiedCustomerColumns = qualify("c", customerColumns)

func qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, col := range parts {
		parts[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(parts, ", ")
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.VehicleNumber, &c.IDProofType, &c.IDProofNumber,
		&c.CheckIn, &c.CheckOut, &c.CheckInTime, &c.CheckOutTime, &c.Occupants, &c.Status, &c.Notes,
		&c.StayCharges, &c.CuisineCharges, &c.ExtraChargesTotal, &c.TotalAmount, &c.ReceivedAmount, &c.BalanceAmount,
		&c.CreatedByUserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// lockCustomer takes the row lock that serialises every write to a customer's money and status
func lockCustomer(ctx context.Context, tx pgx.Tx, id int) (models.CustomerStatus, decimal.Decimal, error) {
	var status models.CustomerStatus
	var received decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT status, received_amount FROM customers WHERE id = $1 FOR UPDATE
	`, id).Scan(&status, &received)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", decimal.Zero, apperr.NotFound("customer", id)
		}
		return "", decimal.Zero, fmt.Errorf("failed to lock customer: %w", err)
	}
	return status, received, nil
}

// lockMutable is lockCustomer for writes that are closed once a stay is cancelled
func lockMutable(ctx context.Context, tx pgx.Tx, id int) error {
	status, _, err := lockCustomer(ctx, tx, id)
	if err != nil {
		return err
	}
	if status == models.CustomerStatusCancelled {
		return apperr.Validation("status", "booking %d is cancelled", id)
	}
	return nil
}

// settleCustomer rebuilds the totals from the stored base charges and sub-ledgers, and
// reopens a completed stay that owes money again. It must run after lockCustomer.
func settleCustomer(ctx context.Context, tx pgx.Tx, id int) (*models.Customer, error) {
	c, err := scanCustomer(tx.QueryRow(ctx, `
		UPDATE customers c SET
			extra_charges_total = s.extras,
			received_amount = s.received,
			total_amount = c.stay_charges + c.cuisine_charges + s.extras,
			balance_amount = c.stay_charges + c.cuisine_charges + s.extras - s.received,
			status = CASE
				WHEN c.status = 'completed' AND c.stay_charges + c.cuisine_charges + s.extras - s.received > 0
				THEN 'active' ELSE c.status END,
			updated_at = NOW()
		FROM (
			SELECT
				(SELECT COALESCE(SUM(amount), 0) FROM extra_charges WHERE customer_id = $1) AS extras,
				(SELECT COALESCE(SUM(amount), 0) FROM payments WHERE customer_id = $1) AS received
		) s
		WHERE c.id = $1
		RETURNING `+qualifiedCustomerColumns, id))
	if err != nil {
		return nil, fmt.Errorf("failed to save customer totals: %w", err)
	}
	return c, nil
}

// CreateWithBooking inserts the customer and its occupancy record under the calendar lock
func (r *CustomerRepository) CreateWithBooking(ctx context.Context, c *models.Customer) (*models.Booking, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockCalendar(ctx, tx); err != nil {
		return nil, err
	}
	conflicts, err := findOverlapping(ctx, tx, c.Range(), nil)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts[0], nil
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO customers (
			name, phone, email, address, vehicle_number, id_proof_type, id_proof_number,
			check_in, check_out, check_in_time, check_out_time, occupants, status, notes,
			stay_charges, cuisine_charges, extra_charges_total, total_amount, received_amount, balance_amount,
			created_by_user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id, created_at, updated_at
	`,
		c.Name, c.Phone, c.Email, c.Address, c.VehicleNumber, c.IDProofType, c.IDProofNumber,
		c.CheckIn, c.CheckOut, c.CheckInTime, c.CheckOutTime, c.Occupants, c.Status, c.Notes,
		c.StayCharges, c.CuisineCharges, c.ExtraChargesTotal, c.TotalAmount, c.ReceivedAmount, c.BalanceAmount,
		c.CreatedByUserID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	customerID := c.ID
	booking := &models.Booking{
		CustomerID:      &customerID,
		CheckIn:         c.CheckIn,
		CheckOut:        c.CheckOut,
		Occupants:       c.Occupants,
		Type:            models.BookingTypeCustomer,
		CreatedByUserID: c.CreatedByUserID,
	}
	if err := insertBooking(ctx, tx, booking); err != nil {
		return nil, err
	}

	return nil, tx.Commit(ctx)
}

// MoveDates swaps the customer's occupancy to the new range under the calendar lock.
// The customer's own record is ignored when checking for overlaps.
func (r *CustomerRepository) MoveDates(ctx context.Context, c *models.Customer, to daterange.Range) (*models.Booking, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockCalendar(ctx, tx); err != nil {
		return nil, err
	}
	if err := lockMutable(ctx, tx, c.ID); err != nil {
		return nil, err
	}
	customerID := c.ID
	conflicts, err := findOverlapping(ctx, tx, to, &customerID)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return conflicts[0], nil
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings SET check_in = $1, check_out = $2 WHERE customer_id = $3
	`, to.CheckIn, to.CheckOut, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to move booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// occupancy row went missing; reserve afresh
		booking := &models.Booking{
			CustomerID:      &customerID,
			CheckIn:         to.CheckIn,
			CheckOut:        to.CheckOut,
			Occupants:       c.Occupants,
			Type:            models.BookingTypeCustomer,
			CreatedByUserID: c.CreatedByUserID,
		}
		if err := insertBooking(ctx, tx, booking); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE customers SET check_in = $1, check_out = $2, updated_at = NOW() WHERE id = $3
	`, to.CheckIn, to.CheckOut, customerID); err != nil {
		return nil, fmt.Errorf("failed to update customer dates: %w", err)
	}

	return nil, tx.Commit(ctx)
}

// Cancel stores the refund, marks the customer cancelled and frees its dates. The refund
// guards are checked again under the row lock, so of two overlapping refunds only one commits.
func (r *CustomerRepository) Cancel(ctx context.Context, customerID int, refund *models.Refund) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	status, received, err := lockCustomer(ctx, tx, customerID)
	if err != nil {
		return err
	}
	if status != models.CustomerStatusActive {
		return apperr.Validation("status", "booking %d must be active to be refunded", customerID)
	}
	if refund.Amount.GreaterThan(received) {
		return apperr.Validation("amount", "refund %s exceeds received amount %s",
			refund.Amount.StringFixed(2), received.StringFixed(2))
	}

	if err := insertRefund(ctx, tx, refund); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE customers SET status = $1, updated_at = NOW() WHERE id = $2
	`, models.CustomerStatusCancelled, customerID); err != nil {
		return fmt.Errorf("failed to cancel customer: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE customer_id = $1`, customerID); err != nil {
		return fmt.Errorf("failed to release booking: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *CustomerRepository) Get(ctx context.Context, id int) (*models.Customer, error) {
	c, err := scanCustomer(r.DB.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CustomerRepository) List(ctx context.Context, filter *models.CustomerFilter) ([]*models.Customer, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone LIKE $%d)", argNum, argNum))
		args = append(args, "%"+filter.Search+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM customers
		%s
		ORDER BY check_in DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, customerColumns, whereClause, argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// Update saves identity fields and the base charges, then rebuilds the totals in the same
// transaction. It returns the customer as stored afterwards.
func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) (*models.Customer, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockMutable(ctx, tx, c.ID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE customers SET
			name = $1, phone = $2, email = $3, address = $4, vehicle_number = $5,
			id_proof_type = $6, id_proof_number = $7, check_in_time = $8, check_out_time = $9,
			occupants = $10, notes = $11, stay_charges = $12, cuisine_charges = $13,
			updated_at = NOW()
		WHERE id = $14
	`,
		c.Name, c.Phone, c.Email, c.Address, c.VehicleNumber,
		c.IDProofType, c.IDProofNumber, c.CheckInTime, c.CheckOutTime,
		c.Occupants, c.Notes, c.StayCharges, c.CuisineCharges,
		c.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	updated, err := settleCustomer(ctx, tx, c.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus moves the customer from one status to another and reports whether it did.
// Moving to completed also requires a settled balance.
func (r *CustomerRepository) UpdateStatus(ctx context.Context, id int, from, to models.CustomerStatus) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE customers SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND ($4 = FALSE OR balance_amount <= 0)
	`, to, id, from, to == models.CustomerStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("failed to update customer status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes the customer; sub-ledger rows and occupancy cascade
func (r *CustomerRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	return err
}
