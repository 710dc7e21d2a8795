// Package store provides the Redis-backed durable storage for pickup
// confirmations and carrier access tokens.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tournevent/pickup/pkg/carrier/ups"
	"github.com/tournevent/pickup/pkg/pickup"
)

const (
	confirmationKeyPrefix = "pickup:confirmation:"
	tokenKey              = "pickup:token:ups"
)

// Redis implements pickup.ConfirmationStore and ups.TokenStore on a
// single Redis connection.
type Redis struct {
	rdb *redis.Client
}

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("verify redis connection: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewWithClient wraps an existing Redis client, for tests.
func NewWithClient(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

// Close releases the underlying connection.
func (s *Redis) Close() error {
	return s.rdb.Close()
}

// ============================================================================
// pickup.ConfirmationStore
// ============================================================================

// Load returns the persisted pickup record for an order, or (nil, nil)
// when none exists.
func (s *Redis) Load(ctx context.Context, orderID string) (*pickup.Record, error) {
	payload, err := s.rdb.Get(ctx, confirmationKeyPrefix+orderID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load pickup record: %w", err)
	}

	var rec pickup.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode pickup record: %w", err)
	}
	return &rec, nil
}

// Save persists the record with no expiry: confirmations are never deleted
// automatically, only by an explicit Delete.
func (s *Redis) Save(ctx context.Context, rec *pickup.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode pickup record: %w", err)
	}
	if err := s.rdb.Set(ctx, confirmationKeyPrefix+rec.OrderID, payload, 0).Err(); err != nil {
		return fmt.Errorf("save pickup record: %w", err)
	}
	return nil
}

// Delete removes the record for an order.
func (s *Redis) Delete(ctx context.Context, orderID string) error {
	if err := s.rdb.Del(ctx, confirmationKeyPrefix+orderID).Err(); err != nil {
		return fmt.Errorf("delete pickup record: %w", err)
	}
	return nil
}

// ============================================================================
// ups.TokenStore
// ============================================================================

// LoadToken returns the persisted access token, or (nil, nil) when absent.
func (s *Redis) LoadToken(ctx context.Context) (*ups.AccessToken, error) {
	payload, err := s.rdb.Get(ctx, tokenKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	var tok ups.AccessToken
	if err := json.Unmarshal(payload, &tok); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return &tok, nil
}

// SaveToken persists the token with a TTL matching its expiry, so Redis
// drops it once it could never be served again anyway.
func (s *Redis) SaveToken(ctx context.Context, tok ups.AccessToken) error {
	payload, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	ttl := time.Until(tok.Expiry)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, tokenKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// ClearToken removes the persisted token, e.g. ahead of a forced refresh.
func (s *Redis) ClearToken(ctx context.Context) error {
	if err := s.rdb.Del(ctx, tokenKey).Err(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}

var (
	_ pickup.ConfirmationStore = (*Redis)(nil)
	_ ups.TokenStore           = (*Redis)(nil)
)
