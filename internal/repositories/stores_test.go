package repositories_test

import (
	"villa-backend/internal/repositories"
	"villa-backend/internal/services"
)

// The Postgres repositories are what production wires into the services
var (
	_ services.BookingStore  = (*repositories.BookingRepository)(nil)
	_ services.CustomerStore = (*repositories.CustomerRepository)(nil)
	_ services.ChargeStore   = (*repositories.ChargeRepository)(nil)
	_ services.PaymentStore  = (*repositories.PaymentRepository)(nil)
	_ services.RefundStore   = (*repositories.RefundRepository)(nil)
	_ services.LedgerStore   = (*repositories.LedgerRepository)(nil)
	_ services.SyncOutbox    = (*repositories.SyncOutboxRepository)(nil)
)
