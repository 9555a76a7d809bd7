package handlers

import (
	"net/http"

	"villa-backend/internal/models"
	"villa-backend/internal/services"
	"villa-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type ChargeHandler struct {
	Service *services.ChargeService
}

func NewChargeHandler(s *services.ChargeService) *ChargeHandler {
	return &ChargeHandler{Service: s}
}

func (h *ChargeHandler) AddCharge(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateChargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	charge, err := h.Service.AddCharge(r.Context(), customerID, &req, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusCreated, charge)
}

func (h *ChargeHandler) UpdateCharge(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateChargeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	charge, err := h.Service.UpdateCharge(r.Context(), customerID, mux.Vars(r)["charge_id"], &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, charge)
}

func (h *ChargeHandler) DeleteCharge(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteCharge(r.Context(), customerID, mux.Vars(r)["charge_id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChargeHandler) ListCharges(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	charges, err := h.Service.ListCharges(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, charges)
}
