package cache

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skyrebook/rebook_core/internal/config"
	"github.com/skyrebook/rebook_core/internal/models"
	"github.com/skyrebook/rebook_core/internal/routing"
)

// ErrLockTimeout is returned when a concurrent computation did not finish in time
var ErrLockTimeout = errors.New("timeout waiting for lock")

// NewClient connects to Redis and pings it
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	// Required by managed Redis offerings
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// ItineraryKey generates the cache key of a resolved request. The network
// version is part of the key so a rebuilt network never serves stale results.
// The record locator is left out: passengers with the same trip share an entry.
func ItineraryKey(prefix, networkVersion string, req models.RebookingRequest, maxLegs int, rules routing.Rules) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d|%s|%d|%d|%d",
		networkVersion,
		req.Origin,
		req.Destination,
		req.Cabin,
		req.Seats,
		req.OriginalDepTime.UTC().Format(time.RFC3339),
		maxLegs,
		rules.MaxDepartureDrift,
		rules.MaxLayover,
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%sitin:%x", prefix, hash[:12])
}

// LockKey generates a mutex lock key
func LockKey(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

// ItineraryCache stores resolved itineraries in Redis
type ItineraryCache struct {
	client   redis.Cmdable
	ttl      time.Duration
	mutexTTL time.Duration
	lockWait time.Duration
}

// NewItineraryCache wraps a connected client with the TTLs from cfg
func NewItineraryCache(client redis.Cmdable, cfg config.RedisConfig) *ItineraryCache {
	return &ItineraryCache{
		client:   client,
		ttl:      cfg.TTL,
		mutexTTL: cfg.MutexTTL,
		lockWait: cfg.LockWait,
	}
}

// GetItineraries retrieves cached results; ok is false on a cache miss
func (c *ItineraryCache) GetItineraries(ctx context.Context, key string) ([]models.RouteOptions, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	routes, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return routes, true, nil
}

// SetItineraries caches results, including empty ones
func (c *ItineraryCache) SetItineraries(ctx context.Context, key string, routes []models.RouteOptions) error {
	data, err := encode(routes)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// AcquireLock attempts to acquire the computation lock of key.
// Returns true if the lock was acquired, false if it is already held.
func (c *ItineraryCache) AcquireLock(ctx context.Context, key string) (bool, error) {
	return c.client.SetNX(ctx, LockKey(key), "1", c.mutexTTL).Result()
}

// ReleaseLock releases the computation lock of key
func (c *ItineraryCache) ReleaseLock(ctx context.Context, key string) error {
	return c.client.Del(ctx, LockKey(key)).Err()
}

// WaitForResult waits for another holder of the lock to finish, then reads
// its result. This avoids a thundering herd on the same request.
func (c *ItineraryCache) WaitForResult(ctx context.Context, key string) ([]models.RouteOptions, bool, error) {
	lockKey := LockKey(key)
	deadline := time.Now().Add(c.lockWait)

	for time.Now().Before(deadline) {
		exists, err := c.client.Exists(ctx, lockKey).Result()
		if err != nil {
			return nil, false, err
		}
		if exists == 0 {
			return c.GetItineraries(ctx, key)
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return nil, false, ErrLockTimeout
}

// HealthCheck pings Redis
func (c *ItineraryCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis ping failed: %w", err)
	}
	return nil
}

func encode(routes []models.RouteOptions) ([]byte, error) {
	if routes == nil {
		routes = []models.RouteOptions{}
	}
	data, err := json.Marshal(routes)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal itineraries: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]models.RouteOptions, error) {
	var routes []models.RouteOptions
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached itineraries: %w", err)
	}
	return routes, nil
}
