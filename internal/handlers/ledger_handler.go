package handlers

import (
	"net/http"

	"villa-backend/internal/apperr"
	"villa-backend/internal/models"
	"villa-backend/internal/services"
	"villa-backend/internal/timeutil"
	"villa-backend/pkg/utils"
)

// LedgerHandler serves one aggregate ledger; the router mounts one per kind
type LedgerHandler struct {
	Service *services.LedgerService
	Kind    models.LedgerKind
}

func NewLedgerHandler(s *services.LedgerService, kind models.LedgerKind) *LedgerHandler {
	return &LedgerHandler{Service: s, Kind: kind}
}

func parseLedgerFilter(r *http.Request) (*models.LedgerFilter, error) {
	q := r.URL.Query()
	filter := &models.LedgerFilter{
		SourceType: models.SourceType(q.Get("source_type")),
		Category:   q.Get("category"),
	}

	if q.Get("customer_id") != "" {
		id, err := queryInt(r, "customer_id", 0)
		if err != nil {
			return nil, err
		}
		filter.CustomerID = &id
	}
	if v := q.Get("start_date"); v != "" {
		d, err := timeutil.ParseDate(v)
		if err != nil {
			return nil, apperr.Validation("start_date", "%v", err)
		}
		filter.StartDate = &d
	}
	if v := q.Get("end_date"); v != "" {
		d, err := timeutil.ParseDate(v)
		if err != nil {
			return nil, apperr.Validation("end_date", "%v", err)
		}
		filter.EndDate = &d
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return nil, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return nil, err
	}
	return filter, nil
}

func (h *LedgerHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLedgerEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.Service.CreateEntry(r.Context(), h.Kind, &req, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusCreated, entry)
}

func (h *LedgerHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.Service.GetEntry(r.Context(), h.Kind, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, entry)
}

func (h *LedgerHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateLedgerEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.Service.UpdateEntry(r.Context(), h.Kind, id, &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, entry)
}

func (h *LedgerHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteEntry(r.Context(), h.Kind, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLedgerFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	entries, err := h.Service.ListEntries(r.Context(), h.Kind, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, entries)
}

func (h *LedgerHandler) Totals(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLedgerFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	totals, err := h.Service.Totals(r.Context(), h.Kind, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, totals)
}
