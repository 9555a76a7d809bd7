package handlers

import (
	"errors"
	"net/http"

	"villa-backend/internal/services"
	"villa-backend/pkg/utils"
)

type ReconciliationHandler struct {
	Service *services.ReconcileService
}

func NewReconciliationHandler(s *services.ReconcileService) *ReconciliationHandler {
	return &ReconciliationHandler{Service: s}
}

func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Report(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, report)
}

// Retry handles POST /api/ledger/reconciliation/retry?limit=
func (h *ReconciliationHandler) Retry(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.Service.RetryPending(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, result)
}

func (h *ReconciliationHandler) Export(w http.ResponseWriter, r *http.Request) {
	location, err := h.Service.ExportReport(r.Context())
	if err != nil {
		if errors.Is(err, services.ErrExportDisabled) {
			utils.Error(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusCreated, map[string]string{"location": location})
}
