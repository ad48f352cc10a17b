// Package cache keeps short-lived read models of loans in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

const outstandingKeyFormat = "loan:%s:outstanding"

// Client is the subset of the redis client the cache relies on
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// LoanCache caches the outstanding balance of a loan. Every payment
// invalidates the entry after its transaction commits.
type LoanCache interface {
	GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, bool, error)
	SetOutstanding(ctx context.Context, loanID uuid.UUID, outstanding *domain.OutstandingResponse) error
	Invalidate(ctx context.Context, loanID uuid.UUID) error
}

type redisLoanCache struct {
	client Client
	ttl    time.Duration
}

func NewRedisLoanCache(client Client, ttl time.Duration) LoanCache {
	return &redisLoanCache{client: client, ttl: ttl}
}

func outstandingKey(loanID uuid.UUID) string {
	return fmt.Sprintf(outstandingKeyFormat, loanID)
}

func (c *redisLoanCache) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, bool, error) {
	raw, err := c.client.Get(ctx, outstandingKey(loanID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var outstanding domain.OutstandingResponse
	if err := json.Unmarshal(raw, &outstanding); err != nil {
		return nil, false, fmt.Errorf("decode cached outstanding: %w", err)
	}
	return &outstanding, true, nil
}

func (c *redisLoanCache) SetOutstanding(ctx context.Context, loanID uuid.UUID, outstanding *domain.OutstandingResponse) error {
	raw, err := json.Marshal(outstanding)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, outstandingKey(loanID), raw, c.ttl).Err()
}

func (c *redisLoanCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	return c.client.Del(ctx, outstandingKey(loanID)).Err()
}

// NoopLoanCache is used when redis is not configured
type NoopLoanCache struct{}

func (NoopLoanCache) GetOutstanding(ctx context.Context, loanID uuid.UUID) (*domain.OutstandingResponse, bool, error) {
	return nil, false, nil
}

func (NoopLoanCache) SetOutstanding(ctx context.Context, loanID uuid.UUID, outstanding *domain.OutstandingResponse) error {
	return nil
}

func (NoopLoanCache) Invalidate(ctx context.Context, loanID uuid.UUID) error {
	return nil
}
