package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"villa-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository serves both aggregate ledgers. The expenses and sales tables share
// one shape, so every method takes the kind and picks the table from it.
type LedgerRepository struct {
	DB *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{DB: db}
}

func ledgerTable(kind models.LedgerKind) (string, error) {
	switch kind {
	case models.LedgerExpenses:
		return "expenses", nil
	case models.LedgerSales:
		return "sales", nil
	}
	return "", fmt.Errorf("unknown ledger kind %q", kind)
}

const ledgerColumns = `
	id, amount, category, description, entry_date, source_type, source_id,
	customer_id, created_by_user_id, created_at, updated_at
`

func scanLedgerEntry(row pgx.Row, kind models.LedgerKind) (*models.LedgerEntry, error) {
	e := models.LedgerEntry{Kind: kind}
	err := row.Scan(
		&e.ID, &e.Amount, &e.Category, &e.Description, &e.EntryDate, &e.SourceType, &e.SourceID,
		&e.CustomerID, &e.CreatedByUserID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertMirror inserts the mirror row or overwrites the one already keyed by its source
func (r *LedgerRepository) UpsertMirror(ctx context.Context, e *models.LedgerEntry) error {
	table, err := ledgerTable(e.Kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (amount, category, description, entry_date, source_type, source_id, customer_id, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (source_type, source_id) WHERE source_type <> 'manual'
		DO UPDATE SET
			amount = EXCLUDED.amount,
			category = EXCLUDED.category,
			description = EXCLUDED.description,
			entry_date = EXCLUDED.entry_date,
			customer_id = EXCLUDED.customer_id,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`, table)

	err = r.DB.QueryRow(ctx, query,
		e.Amount, e.Category, e.Description, e.EntryDate, e.SourceType, e.SourceID, e.CustomerID, e.CreatedByUserID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert %s mirror: %w", table, err)
	}
	return nil
}

// UpdateMirror rewrites the mirror keyed by its source. It reports false when no such row exists.
func (r *LedgerRepository) UpdateMirror(ctx context.Context, e *models.LedgerEntry) (bool, error) {
	table, err := ledgerTable(e.Kind)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET
			amount = $1, category = $2, description = $3, entry_date = $4, customer_id = $5,
			updated_at = NOW()
		WHERE source_type = $6 AND source_id = $7
		RETURNING id, created_at, updated_at
	`, table)

	err = r.DB.QueryRow(ctx, query,
		e.Amount, e.Category, e.Description, e.EntryDate, e.CustomerID, e.SourceType, e.SourceID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to update %s mirror: %w", table, err)
	}
	return true, nil
}

func (r *LedgerRepository) DeleteMirror(ctx context.Context, kind models.LedgerKind, sourceType models.SourceType, sourceID string) (int64, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return 0, err
	}
	tag, err := r.DB.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE source_type = $1 AND source_id = $2`, table),
		sourceType, sourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s mirror: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// Create inserts a manual entry
func (r *LedgerRepository) Create(ctx context.Context, e *models.LedgerEntry) error {
	table, err := ledgerTable(e.Kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (amount, category, description, entry_date, source_type, source_id, customer_id, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, table)

	err = r.DB.QueryRow(ctx, query,
		e.Amount, e.Category, e.Description, e.EntryDate, e.SourceType, e.SourceID, e.CustomerID, e.CreatedByUserID,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s entry: %w", table, err)
	}
	return nil
}

func (r *LedgerRepository) Get(ctx context.Context, kind models.LedgerKind, id int) (*models.LedgerEntry, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return nil, err
	}
	e, err := scanLedgerEntry(r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, ledgerColumns, table), id), kind)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Update edits a manual entry. Mirror rows are never touched here.
func (r *LedgerRepository) Update(ctx context.Context, e *models.LedgerEntry) error {
	table, err := ledgerTable(e.Kind)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET amount = $1, category = $2, description = $3, entry_date = $4, updated_at = NOW()
		WHERE id = $5 AND source_type = 'manual'
		RETURNING updated_at
	`, table)

	err = r.DB.QueryRow(ctx, query, e.Amount, e.Category, e.Description, e.EntryDate, e.ID).Scan(&e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update %s entry: %w", table, err)
	}
	return nil
}

func (r *LedgerRepository) Delete(ctx context.Context, kind models.LedgerKind, id int) error {
	table, err := ledgerTable(kind)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND source_type = 'manual'`, table), id)
	return err
}

// buildLedgerWhere turns the filter into a WHERE clause and its args
func buildLedgerWhere(filter *models.LedgerFilter) (string, []interface{}, int) {
	var conditions []string
	var args []interface{}
	argNum := 1

	if filter == nil {
		return "", args, argNum
	}

	if filter.SourceType != "" {
		conditions = append(conditions, fmt.Sprintf("source_type = $%d", argNum))
		args = append(args, filter.SourceType)
		argNum++
	}

	if filter.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", argNum))
		args = append(args, *filter.CustomerID)
		argNum++
	}

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, filter.Category)
		argNum++
	}

	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("entry_date >= $%d", argNum))
		args = append(args, *filter.StartDate)
		argNum++
	}

	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("entry_date <= $%d", argNum))
		args = append(args, *filter.EndDate)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}
	return whereClause, args, argNum
}

func (r *LedgerRepository) List(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) ([]*models.LedgerEntry, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return nil, err
	}

	whereClause, args, argNum := buildLedgerWhere(filter)
	limit, offset := 100, 0
	if filter != nil {
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		offset = filter.Offset
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		%s
		ORDER BY entry_date DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, ledgerColumns, table, whereClause, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows, kind)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *LedgerRepository) Totals(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) (*models.LedgerTotals, error) {
	table, err := ledgerTable(kind)
	if err != nil {
		return nil, err
	}

	whereClause, args, _ := buildLedgerWhere(filter)
	totals := &models.LedgerTotals{Kind: kind}
	err = r.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM %s %s`, table, whereClause),
		args...,
	).Scan(&totals.Total, &totals.EntryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to total %s: %w", table, err)
	}
	return totals, nil
}
