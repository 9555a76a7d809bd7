package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"villa-backend/internal/config"
	"villa-backend/internal/db"
)

// Child tables first; CASCADE covers anything added later
var villaTables = []string{
	"ledger_sync_failures",
	"expenses",
	"sales",
	"refunds",
	"payments",
	"extra_charges",
	"bookings",
	"customers",
}

func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Villa Database")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("WARNING: This will DELETE ALL BOOKING AND LEDGER DATA!")
	fmt.Println()
	fmt.Println("This will clear:")
	for _, table := range villaTables {
		fmt.Printf("  - %s\n", table)
	}
	fmt.Println("and restart every ID sequence. Applied migrations are kept.")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	cfg := config.Load()
	pool := db.Connect(cfg)
	defer pool.Close()

	fmt.Println()
	fmt.Printf("Resetting %s on %s:%d...\n", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v\n", err)
	}
	defer tx.Rollback(ctx)

	// Listing every table in one TRUNCATE satisfies the foreign keys between them
	stmt := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(villaTables, ", "))
	if _, err := tx.Exec(ctx, stmt); err != nil {
		log.Fatalf("Failed to truncate tables: %v\n", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v\n", err)
	}

	for _, table := range villaTables {
		fmt.Printf("  cleared %s\n", table)
	}
	fmt.Println()
	fmt.Println("Database reset successful. Cached calendar months expire on their own TTL.")
}
