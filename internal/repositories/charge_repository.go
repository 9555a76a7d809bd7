package repositories

import (
	"context"
	"errors"
	"fmt"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChargeRepository struct {
	DB *pgxpool.Pool
}

func NewChargeRepository(db *pgxpool.Pool) *ChargeRepository {
	return &ChargeRepository{DB: db}
}

const chargeColumns = `
	id::text, customer_id, description, amount, charge_date, record_in_expenses, record_in_sales,
	expense_mirror_id, sale_mirror_id, created_by_user_id, created_at, updated_at
`

func scanCharge(row pgx.Row) (*models.ExtraCharge, error) {
	var ch models.ExtraCharge
	err := row.Scan(
		&ch.ID, &ch.CustomerID, &ch.Description, &ch.Amount, &ch.ChargeDate,
		&ch.RecordInExpenses, &ch.RecordInSales, &ch.ExpenseMirrorID, &ch.SaleMirrorID,
		&ch.CreatedByUserID, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Create inserts the charge and rebuilds the customer's totals in one transaction
func (r *ChargeRepository) Create(ctx context.Context, ch *models.ExtraCharge) (*models.Customer, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockMutable(ctx, tx, ch.CustomerID); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO extra_charges (
			id, customer_id, description, amount, charge_date, record_in_expenses, record_in_sales,
			expense_mirror_id, sale_mirror_id, created_by_user_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`,
		ch.ID, ch.CustomerID, ch.Description, ch.Amount, ch.ChargeDate, ch.RecordInExpenses, ch.RecordInSales,
		ch.ExpenseMirrorID, ch.SaleMirrorID, ch.CreatedByUserID,
	).Scan(&ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create extra charge: %w", err)
	}

	c, err := settleCustomer(ctx, tx, ch.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChargeRepository) Get(ctx context.Context, id string) (*models.ExtraCharge, error) {
	ch, err := scanCharge(r.DB.QueryRow(ctx, `SELECT `+chargeColumns+` FROM extra_charges WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ch, nil
}

func (r *ChargeRepository) ListByCustomer(ctx context.Context, customerID int) ([]*models.ExtraCharge, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+chargeColumns+` FROM extra_charges
		WHERE customer_id = $1
		ORDER BY charge_date, created_at
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []*models.ExtraCharge
	for rows.Next() {
		ch, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, ch)
	}
	return charges, rows.Err()
}

// Update saves the charge's editable fields and rebuilds the customer's totals in one
// transaction. Mirror ids are left alone; they go through SetMirrors.
func (r *ChargeRepository) Update(ctx context.Context, ch *models.ExtraCharge) (*models.Customer, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockMutable(ctx, tx, ch.CustomerID); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE extra_charges SET
			description = $1, amount = $2, charge_date = $3,
			record_in_expenses = $4, record_in_sales = $5,
			updated_at = NOW()
		WHERE id::text = $6 AND customer_id = $7
		RETURNING updated_at
	`,
		ch.Description, ch.Amount, ch.ChargeDate,
		ch.RecordInExpenses, ch.RecordInSales,
		ch.ID, ch.CustomerID,
	).Scan(&ch.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("extra charge", ch.ID)
		}
		return nil, fmt.Errorf("failed to update extra charge: %w", err)
	}

	c, err := settleCustomer(ctx, tx, ch.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the charge and rebuilds the customer's totals in one transaction
func (r *ChargeRepository) Delete(ctx context.Context, customerID int, id string) (*models.Customer, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockMutable(ctx, tx, customerID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM extra_charges WHERE id::text = $1 AND customer_id = $2
	`, id, customerID); err != nil {
		return nil, fmt.Errorf("failed to delete extra charge: %w", err)
	}

	c, err := settleCustomer(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *ChargeRepository) SetMirrors(ctx context.Context, id string, expenseMirrorID, saleMirrorID *int) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE extra_charges SET expense_mirror_id = $1, sale_mirror_id = $2 WHERE id::text = $3
	`, expenseMirrorID, saleMirrorID, id)
	if err != nil {
		return fmt.Errorf("failed to store charge mirror ids: %w", err)
	}
	return nil
}
