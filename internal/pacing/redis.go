package pacing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Shared spaces dispatches across every process holding the same exchange
// app key. Each dispatch claims a short-lived slot key; whoever fails to claim
// it waits out the remaining TTL.
type Shared struct {
	client *redis.Client
	slots  slotStore
	key    string
	gap    time.Duration
	token  string
}

// slotStore is the part of the redis API the claim loop needs.
type slotStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// NewRedisShared builds a shared pacer with the given addr/password/db.
func NewRedisShared(addr, password string, db int, key string, gap time.Duration) (*Shared, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if gap <= 0 {
		return nil, fmt.Errorf("pacing gap must be positive")
	}
	if key == "" {
		key = "marketsnap:pacing"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Shared{
		client: client,
		slots:  client,
		key:    key,
		gap:    gap,
		token:  fmt.Sprintf("%d", time.Now().UnixNano()),
	}, nil
}

// Ping checks the connection so callers can fall back to local pacing.
func (s *Shared) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis pacer not initialized")
	}
	return s.client.Ping(ctx).Err()
}

// Wait blocks until this process claims the slot key.
func (s *Shared) Wait(ctx context.Context) error {
	if s == nil || s.slots == nil {
		return nil
	}
	for {
		ok, err := s.slots.SetNX(ctx, s.key, s.token, s.gap).Result()
		if err != nil {
			return fmt.Errorf("claim pacing slot: %w", err)
		}
		if ok {
			return nil
		}

		remaining, err := s.slots.PTTL(ctx, s.key).Result()
		if err != nil {
			return fmt.Errorf("read pacing slot ttl: %w", err)
		}
		// -1/-2 mean no expiry or already gone; retry almost immediately.
		if remaining <= 0 {
			remaining = time.Millisecond
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Shared) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
