package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"villa-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Calendar month keys carry the generation they were read under, like calendar:g3:2024-05.
// Invalidate bumps the generation; keys of older generations are never read again and
// expire on their TTL.
const (
	CalendarKeyFmt        = "calendar:g%d:%04d-%02d"
	CalendarGenerationKey = "calendar:generation"
)

// Connect dials Redis and pings it. A nil client means run without a cache.
func Connect(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// CalendarCache keeps month views of the occupancy calendar. Every method is a no-op
// when the client is nil, and Redis errors degrade to cache misses.
type CalendarCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCalendarCache(client *redis.Client, ttl time.Duration) *CalendarCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CalendarCache{client: client, ttl: ttl}
}

func MonthKey(generation int64, year int, month time.Month) string {
	return fmt.Sprintf(CalendarKeyFmt, generation, year, int(month))
}

func (c *CalendarCache) generation(ctx context.Context) int64 {
	gen, err := c.client.Get(ctx, CalendarGenerationKey).Int64()
	if err != nil && err != redis.Nil {
		log.Printf("[Cache] Failed to read calendar generation: %v", err)
	}
	return gen
}

// GetMonth returns the cached month and the generation it was looked up under.
func (c *CalendarCache) GetMonth(ctx context.Context, year int, month time.Month) ([]*models.Booking, int64, bool) {
	if c == nil || c.client == nil {
		return nil, 0, false
	}
	gen := c.generation(ctx)
	data, err := c.client.Get(ctx, MonthKey(gen, year, month)).Bytes()
	if err != nil {
		return nil, gen, false
	}
	var bookings []*models.Booking
	if err := json.Unmarshal(data, &bookings); err != nil {
		return nil, gen, false
	}
	return bookings, gen, true
}

// SetMonth stores bookings under the generation GetMonth reported before they were read
func (c *CalendarCache) SetMonth(ctx context.Context, generation int64, year int, month time.Month, bookings []*models.Booking) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(bookings)
	if err != nil {
		return
	}
	key := MonthKey(generation, year, month)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[Cache] Failed to cache calendar %s: %v", key, err)
	}
}

// Invalidate retires every cached month at once. A stay can span two months, so all of them go.
func (c *CalendarCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, CalendarGenerationKey).Err(); err != nil {
		log.Printf("[Cache] Failed to invalidate calendar: %v", err)
	}
}

// IsHealthy returns true if the Redis connection is working
func (c *CalendarCache) IsHealthy(ctx context.Context) bool {
	if c == nil || c.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}
