package repositories

import (
	"context"
	"fmt"

	"villa-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncOutboxRepository stores mirror writes that failed so they can be retried
type SyncOutboxRepository struct {
	DB *pgxpool.Pool
}

func NewSyncOutboxRepository(db *pgxpool.Pool) *SyncOutboxRepository {
	return &SyncOutboxRepository{DB: db}
}

func (r *SyncOutboxRepository) Record(ctx context.Context, f *models.SyncFailure) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO ledger_sync_failures (ledger_kind, operation, source_kind, source_id, customer_id, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, attempts, created_at
	`, f.Kind, f.Operation, f.SourceKind, f.SourceID, f.CustomerID, f.Error,
	).Scan(&f.ID, &f.Attempts, &f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record sync failure: %w", err)
	}
	return nil
}

// ListPending returns unresolved failures, oldest first
func (r *SyncOutboxRepository) ListPending(ctx context.Context, limit int) ([]*models.SyncFailure, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, ledger_kind, operation, source_kind, source_id, customer_id, error, attempts, created_at, resolved_at
		FROM ledger_sync_failures
		WHERE resolved_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []*models.SyncFailure
	for rows.Next() {
		var f models.SyncFailure
		if err := rows.Scan(
			&f.ID, &f.Kind, &f.Operation, &f.SourceKind, &f.SourceID, &f.CustomerID,
			&f.Error, &f.Attempts, &f.CreatedAt, &f.ResolvedAt,
		); err != nil {
			return nil, err
		}
		failures = append(failures, &f)
	}
	return failures, rows.Err()
}

func (r *SyncOutboxRepository) MarkResolved(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `UPDATE ledger_sync_failures SET resolved_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *SyncOutboxRepository) RecordAttempt(ctx context.Context, id int, errText string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE ledger_sync_failures SET attempts = attempts + 1, error = $1 WHERE id = $2
	`, errText, id)
	return err
}
