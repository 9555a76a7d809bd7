package http

import (
	"net/http"

	"villa-backend/internal/auth"
	"villa-backend/internal/handlers"
	"villa-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func requires(perm string, h http.HandlerFunc) http.Handler {
	return middleware.RequirePermission(perm)(h)
}

func NewRouter(
	bookingHandler *handlers.BookingHandler,
	customerHandler *handlers.CustomerHandler,
	chargeHandler *handlers.ChargeHandler,
	paymentHandler *handlers.PaymentHandler,
	expenseHandler *handlers.LedgerHandler,
	saleHandler *handlers.LedgerHandler,
	reconciliationHandler *handlers.ReconciliationHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.Use(middleware.APILogging)

	// Calendar
	bookingsAPI := api.PathPrefix("/bookings").Subrouter()
	bookingsAPI.Handle("/availability", requires(auth.PermBookingsRead, bookingHandler.CheckAvailability)).Methods("GET")
	bookingsAPI.Handle("/calendar", requires(auth.PermBookingsRead, bookingHandler.MonthCalendar)).Methods("GET")
	bookingsAPI.Handle("/block", requires(auth.PermBookingsWrite, bookingHandler.BlockDates)).Methods("POST")
	bookingsAPI.Handle("/unblock", requires(auth.PermBookingsWrite, bookingHandler.UnblockDates)).Methods("POST")

	// Customers and their stays
	customersAPI := api.PathPrefix("/customers").Subrouter()
	customersAPI.Handle("", requires(auth.PermCustomersWrite, customerHandler.CreateBooking)).Methods("POST")
	customersAPI.Handle("", requires(auth.PermCustomersRead, customerHandler.ListCustomers)).Methods("GET")
	customersAPI.Handle("/{id:[0-9]+}", requires(auth.PermCustomersRead, customerHandler.GetCustomer)).Methods("GET")
	customersAPI.Handle("/{id:[0-9]+}", requires(auth.PermCustomersWrite, customerHandler.UpdateCustomer)).Methods("PUT")
	customersAPI.Handle("/{id:[0-9]+}", requires(auth.PermCustomersDelete, customerHandler.DeleteCustomer)).Methods("DELETE")
	customersAPI.Handle("/{id:[0-9]+}/dates", requires(auth.PermCustomersWrite, customerHandler.UpdateBookingDates)).Methods("PUT")
	customersAPI.Handle("/{id:[0-9]+}/complete", requires(auth.PermCustomersWrite, customerHandler.MarkCompleted)).Methods("POST")
	customersAPI.Handle("/{id:[0-9]+}/reopen", requires(auth.PermCustomersWrite, customerHandler.UndoCompleted)).Methods("POST")

	// Sub-ledgers
	customersAPI.Handle("/{id:[0-9]+}/charges", requires(auth.PermCustomersRead, chargeHandler.ListCharges)).Methods("GET")
	customersAPI.Handle("/{id:[0-9]+}/charges", requires(auth.PermCustomersWrite, chargeHandler.AddCharge)).Methods("POST")
	customersAPI.Handle("/{id:[0-9]+}/charges/{charge_id}", requires(auth.PermCustomersWrite, chargeHandler.UpdateCharge)).Methods("PUT")
	customersAPI.Handle("/{id:[0-9]+}/charges/{charge_id}", requires(auth.PermCustomersWrite, chargeHandler.DeleteCharge)).Methods("DELETE")
	customersAPI.Handle("/{id:[0-9]+}/payments", requires(auth.PermCustomersRead, paymentHandler.ListPayments)).Methods("GET")
	customersAPI.Handle("/{id:[0-9]+}/payments", requires(auth.PermCustomersWrite, paymentHandler.AddPayment)).Methods("POST")
	customersAPI.Handle("/{id:[0-9]+}/payments/{payment_id}", requires(auth.PermCustomersWrite, paymentHandler.DeletePayment)).Methods("DELETE")
	customersAPI.Handle("/{id:[0-9]+}/refunds", requires(auth.PermCustomersRead, paymentHandler.ListRefunds)).Methods("GET")
	customersAPI.Handle("/{id:[0-9]+}/refunds", requires(auth.PermCustomersWrite, paymentHandler.AddRefund)).Methods("POST")

	// Aggregate ledgers
	for prefix, lh := range map[string]*handlers.LedgerHandler{"/expenses": expenseHandler, "/sales": saleHandler} {
		ledgerAPI := api.PathPrefix(prefix).Subrouter()
		ledgerAPI.Handle("", requires(auth.PermLedgerRead, lh.ListEntries)).Methods("GET")
		ledgerAPI.Handle("", requires(auth.PermLedgerWrite, lh.CreateEntry)).Methods("POST")
		ledgerAPI.Handle("/totals", requires(auth.PermLedgerRead, lh.Totals)).Methods("GET")
		ledgerAPI.Handle("/{id:[0-9]+}", requires(auth.PermLedgerRead, lh.GetEntry)).Methods("GET")
		ledgerAPI.Handle("/{id:[0-9]+}", requires(auth.PermLedgerWrite, lh.UpdateEntry)).Methods("PUT")
		ledgerAPI.Handle("/{id:[0-9]+}", requires(auth.PermLedgerWrite, lh.DeleteEntry)).Methods("DELETE")
	}

	reconcileAPI := api.PathPrefix("/ledger/reconciliation").Subrouter()
	reconcileAPI.Handle("", requires(auth.PermLedgerRead, reconciliationHandler.Report)).Methods("GET")
	reconcileAPI.Handle("/retry", requires(auth.PermLedgerWrite, reconciliationHandler.Retry)).Methods("POST")
	reconcileAPI.Handle("/export", requires(auth.PermLedgerWrite, reconciliationHandler.Export)).Methods("POST")

	// Health check endpoints (no auth)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
