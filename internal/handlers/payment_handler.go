package handlers

import (
	"net/http"

	"villa-backend/internal/models"
	"villa-backend/internal/services"
	"villa-backend/pkg/utils"

	"github.com/gorilla/mux"
)

// PaymentHandler serves both sides of the customer's cash ledger: payments in and refunds out
type PaymentHandler struct {
	Payments *services.PaymentService
	Refunds  *services.RefundService
}

func NewPaymentHandler(payments *services.PaymentService, refunds *services.RefundService) *PaymentHandler {
	return &PaymentHandler{Payments: payments, Refunds: refunds}
}

func (h *PaymentHandler) AddPayment(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.Payments.AddPayment(r.Context(), customerID, &req, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusCreated, payment)
}

func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Payments.DeletePayment(r.Context(), customerID, mux.Vars(r)["payment_id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	payments, err := h.Payments.ListPayments(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, payments)
}

// AddRefund handles POST /api/customers/{id}/refunds; it cancels the stay
func (h *PaymentHandler) AddRefund(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.CreateRefundRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	refund, err := h.Refunds.AddRefund(r.Context(), customerID, &req, currentUserID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusCreated, refund)
}

func (h *PaymentHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	refunds, err := h.Refunds.ListRefunds(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	utils.JSON(w, http.StatusOK, refunds)
}
