package repositories

import (
	"context"
	"errors"
	"fmt"

	"villa-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

const paymentColumns = `
	id::text, customer_id, amount, mode, payment_type, notes, sale_mirror_id, created_by_user_id, paid_at
`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID, &p.CustomerID, &p.Amount, &p.Mode, &p.Type, &p.Notes,
		&p.SaleMirrorID, &p.CreatedByUserID, &p.PaidAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts the payment and rebuilds the customer's totals in one transaction
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) (*models.Customer, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockMutable(ctx, tx, p.CustomerID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, customer_id, amount, mode, payment_type, notes, sale_mirror_id, created_by_user_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.CustomerID, p.Amount, p.Mode, p.Type, p.Notes, p.SaleMirrorID, p.CreatedByUserID, p.PaidAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	c, err := settleCustomer(ctx, tx, p.CustomerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*models.Payment, error) {
	p, err := scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) ListByCustomer(ctx context.Context, customerID int) ([]*models.Payment, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE customer_id = $1
		ORDER BY paid_at
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PaymentRepository) SetSaleMirror(ctx context.Context, id string, mirrorID *int) error {
	_, err := r.DB.Exec(ctx, `UPDATE payments SET sale_mirror_id = $1 WHERE id::text = $2`, mirrorID, id)
	return err
}

// Delete removes the payment and rebuilds the customer's totals in one transaction
func (r *PaymentRepository) Delete(ctx context.Context, customerID int, id string) (*models.Customer, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := lockMutable(ctx, tx, customerID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM payments WHERE id::text = $1 AND customer_id = $2
	`, id, customerID); err != nil {
		return nil, fmt.Errorf("failed to delete payment: %w", err)
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
