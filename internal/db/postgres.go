package db

import (
	"context"
	"fmt"
	"log"

	"villa-backend/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func DSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
	)
}

func Connect(cfg *config.Config) *pgxpool.Pool {
	pool, err := pgxpool.New(context.Background(), DSN(cfg))
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	return pool
}
