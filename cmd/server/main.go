package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"villa-backend/internal/auth"
	"villa-backend/internal/cache"
	"villa-backend/internal/config"
	"villa-backend/internal/database"
	"villa-backend/internal/db"
	h "villa-backend/internal/http"
	"villa-backend/internal/handlers"
	"villa-backend/internal/health"
	"villa-backend/internal/middleware"
	"villa-backend/internal/models"
	"villa-backend/internal/notify"
	"villa-backend/internal/reports"
	"villa-backend/internal/repositories"
	"villa-backend/internal/services"
	"villa-backend/migrations"
)

// issueToken prints a signed token for a staff member and exits. Identity is managed
// outside this service, so this is how operators hand out credentials.
func issueToken(cfg *config.Config, userID int, email, role, perms string) {
	var permissions []string
	for _, p := range strings.Split(perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			permissions = append(permissions, p)
		}
	}

	token, err := auth.NewJWTManager(cfg).GenerateToken(userID, email, role, permissions)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	migrateOnly := flag.Bool("migrate-only", false, "Apply pending migrations and exit")
	tokenFor := flag.String("issue-token", "", "Print a token for this email and exit")
	tokenUser := flag.Int("token-user-id", 0, "User id embedded in an issued token")
	tokenRole := flag.String("token-role", "staff", "Role embedded in an issued token")
	tokenPerms := flag.String("token-permissions", "bookings.read,customers.read", "Comma-separated permissions for an issued token")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	if *tokenFor != "" {
		issueToken(cfg, *tokenUser, *tokenFor, *tokenRole, *tokenPerms)
		return
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()
	log.Printf("Connected to database: %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	// Run database migrations from the embedded SQL files
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool, migrations.FS)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	if *migrateOnly {
		return
	}

	// Calendar cache (optional - graceful fallback if unavailable)
	var calendarCache *cache.CalendarCache
	var cacheChecker health.CacheChecker
	if cfg.Redis.Enabled {
		client, err := cache.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Printf("[Redis] Cache unavailable: %v (calendar reads go to the database)", err)
		} else {
			log.Println("[Redis] Cache connected successfully")
			calendarCache = cache.NewCalendarCache(client, time.Duration(cfg.Booking.CalendarCacheMinutes)*time.Minute)
			cacheChecker = calendarCache
		}
	}

	// Notifications
	var notifier notify.Notifier = notify.NewLogNotifier()
	if cfg.Notify.WebhookURL != "" {
		log.Printf("[Notify] Delivering notifications to %s", cfg.Notify.WebhookURL)
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookToken)
	}
	notifier = notify.Async(notifier)

	// Reconciliation report storage (optional)
	var exporter services.ReportExporter
	if cfg.Reports.Enabled {
		s3Exporter, err := reports.NewS3Exporter(ctx, cfg)
		if err != nil {
			log.Printf("[Reports] Export disabled: %v", err)
		} else {
			exporter = s3Exporter
		}
	}

	// Initialize repositories
	bookingRepo := repositories.NewBookingRepository(pool)
	customerRepo := repositories.NewCustomerRepository(pool)
	chargeRepo := repositories.NewChargeRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	refundRepo := repositories.NewRefundRepository(pool)
	ledgerRepo := repositories.NewLedgerRepository(pool)
	outboxRepo := repositories.NewSyncOutboxRepository(pool)

	// The services take an interface; a nil *CalendarCache is handled by its methods
	var calendar services.CalendarCache
	if calendarCache != nil {
		calendar = calendarCache
	}

	// Initialize services
	syncService := services.NewLedgerSyncService(ledgerRepo, outboxRepo)
	availabilityService := services.NewAvailabilityService(bookingRepo)
	bookingService := services.NewBookingService(bookingRepo, calendar)
	customerService := services.NewCustomerService(customerRepo, chargeRepo, paymentRepo, refundRepo, syncService, calendar, notifier)
	customerService.DefaultCheckInTime = cfg.Booking.DefaultCheckInTime
	customerService.DefaultCheckOutTime = cfg.Booking.DefaultCheckOutTime
	chargeService := services.NewChargeService(customerRepo, chargeRepo, syncService)
	paymentService := services.NewPaymentService(customerRepo, paymentRepo, syncService)
	refundService := services.NewRefundService(customerRepo, refundRepo, syncService, calendar, notifier)
	ledgerService := services.NewLedgerService(ledgerRepo)
	reconcileService := services.NewReconcileService(outboxRepo, syncService, customerRepo, chargeRepo, paymentRepo, refundRepo, exporter)

	reconcileWorker := services.NewReconcileWorker(reconcileService, time.Duration(cfg.Ledger.ReconcileIntervalMinutes)*time.Minute)
	reconcileWorker.Start()
	defer reconcileWorker.Stop()

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool, cacheChecker))
	router := h.NewRouter(
		handlers.NewBookingHandler(availabilityService, bookingService),
		handlers.NewCustomerHandler(customerService),
		handlers.NewChargeHandler(chargeService),
		handlers.NewPaymentHandler(paymentService, refundService),
		handlers.NewLedgerHandler(ledgerService, models.LedgerExpenses),
		handlers.NewLedgerHandler(ledgerService, models.LedgerSales),
		handlers.NewReconciliationHandler(reconcileService),
		healthHandler,
		middleware.NewAuthMiddleware(auth.NewJWTManager(cfg)),
	)

	// Wrap with panic recovery and CORS; request metrics run inside the router
	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(corsMiddleware(router))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)

	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
