package repositories

import (
	"context"
	"errors"
	"fmt"

	"villa-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefundRepository struct {
	DB *pgxpool.Pool
}

func NewRefundRepository(db *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{DB: db}
}

const refundColumns = `
	id::text, customer_id, amount, method, reason, record_in_expenses, expense_mirror_id, created_by_user_id, created_at
`

func scanRefund(row pgx.Row) (*models.Refund, error) {
	var rf models.Refund
	err := row.Scan(
		&rf.ID, &rf.CustomerID, &rf.Amount, &rf.Method, &rf.Reason,
		&rf.RecordInExpenses, &rf.ExpenseMirrorID, &rf.CreatedByUserID, &rf.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rf, nil
}

// insertRefund runs inside CustomerRepository.Cancel's transaction
func insertRefund(ctx context.Context, q dbtx, rf *models.Refund) error {
	_, err := q.Exec(ctx, `
		INSERT INTO refunds (id, customer_id, amount, method, reason, record_in_expenses, expense_mirror_id, created_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rf.ID, rf.CustomerID, rf.Amount, rf.Method, rf.Reason, rf.RecordInExpenses, rf.ExpenseMirrorID, rf.CreatedByUserID, rf.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

func (r *RefundRepository) Get(ctx context.Context, id string) (*models.Refund, error) {
	rf, err := scanRefund(r.DB.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rf, nil
}

func (r *RefundRepository) ListByCustomer(ctx context.Context, customerID int) ([]*models.Refund, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+refundColumns+` FROM refunds
		WHERE customer_id = $1
		ORDER BY created_at
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []*models.Refund
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, rf)
	}
	return refunds, rows.Err()
}

func (r *RefundRepository) SetExpenseMirror(ctx context.Context, id string, mirrorID *int) error {
	_, err := r.DB.Exec(ctx, `UPDATE refunds SET expense_mirror_id = $1 WHERE id::text = $2`, mirrorID, id)
	return err
}
