package services

import (
	"context"
	"strings"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"
	"villa-backend/internal/timeutil"
)

// LedgerService is the ledger's own API for the expenses and sales collections.
// Only manual rows can be written here; mirrored rows change through their origin record.
type LedgerService struct {
	Ledger LedgerStore
}

func NewLedgerService(ledger LedgerStore) *LedgerService {
	return &LedgerService{Ledger: ledger}
}

func validateKind(kind models.LedgerKind) error {
	if !kind.Valid() {
		return apperr.Validation("kind", "must be expenses or sales")
	}
	return nil
}

func (s *LedgerService) applyRequest(e *models.LedgerEntry, req *models.CreateLedgerEntryRequest) error {
	if !req.Amount.IsPositive() {
		return apperr.Validation("amount", "must be greater than zero")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return apperr.Validation("category", "is required")
	}

	entryDate := timeutil.Today()
	if req.EntryDate != "" {
		d, err := timeutil.ParseDate(req.EntryDate)
		if err != nil {
			return apperr.Validation("entry_date", "%v", err)
		}
		entryDate = d
	}

	e.Amount = req.Amount
	e.Category = category
	e.Description = strings.TrimSpace(req.Description)
	e.EntryDate = entryDate
	return nil
}

// CreateEntry adds a manual row
func (s *LedgerService) CreateEntry(ctx context.Context, kind models.LedgerKind, req *models.CreateLedgerEntryRequest, userID int) (*models.LedgerEntry, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	entry := &models.LedgerEntry{
		Kind:            kind,
		SourceType:      models.SourceManual,
		CreatedByUserID: userID,
	}
	if err := s.applyRequest(entry, req); err != nil {
		return nil, err
	}
	if err := s.Ledger.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LedgerService) GetEntry(ctx context.Context, kind models.LedgerKind, id int) (*models.LedgerEntry, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	entry, err := s.Ledger.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperr.NotFound(string(kind)+" entry", id)
	}
	return entry, nil
}

// UpdateEntry edits a manual row. Mirrored rows are rejected with ErrReadOnlyEntry.
func (s *LedgerService) UpdateEntry(ctx context.Context, kind models.LedgerKind, id int, req *models.CreateLedgerEntryRequest) (*models.LedgerEntry, error) {
	entry, err := s.GetEntry(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if entry.ReadOnly() {
		return nil, apperr.ErrReadOnlyEntry
	}
	if err := s.applyRequest(entry, req); err != nil {
		return nil, err
	}
	if err := s.Ledger.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes a manual row. Mirrored rows are rejected with ErrReadOnlyEntry.
func (s *LedgerService) DeleteEntry(ctx context.Context, kind models.LedgerKind, id int) error {
	entry, err := s.GetEntry(ctx, kind, id)
	if err != nil {
		return err
	}
	if entry.ReadOnly() {
		return apperr.ErrReadOnlyEntry
	}
	return s.Ledger.Delete(ctx, kind, id)
}

func (s *LedgerService) ListEntries(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) ([]*models.LedgerEntry, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.LedgerFilter{}
	}
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	return s.Ledger.List(ctx, kind, filter)
}

// Totals sums a ledger over the filter, usually a date range
func (s *LedgerService) Totals(ctx context.Context, kind models.LedgerKind, filter *models.LedgerFilter) (*models.LedgerTotals, error) {
	if err := validateKind(kind); err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.LedgerFilter{}
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return nil, apperr.Validation("end_date", "must not be before start_date")
	}
	return s.Ledger.Totals(ctx, kind, filter)
}
