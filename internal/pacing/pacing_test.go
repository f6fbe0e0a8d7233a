package pacing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSpacesDispatches(t *testing.T) {
	p := NewInterval(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	// First wait passes immediately, the next two each wait one gap.
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestIntervalDisabled(t *testing.T) {
	p := NewInterval(0)
	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, p.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestIntervalHonoursCancellation(t *testing.T) {
	p := NewInterval(time.Hour)
	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.Wait(ctx))
}

type countingPacer struct {
	calls int
	err   error
}

func (c *countingPacer) Wait(context.Context) error {
	c.calls++
	return c.err
}

func TestChainStopsAtFirstError(t *testing.T) {
	first := &countingPacer{err: errors.New("redis down")}
	second := &countingPacer{}
	err := Chain{first, nil, second}.Wait(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestNewRedisSharedValidates(t *testing.T) {
	_, err := NewRedisShared("", "", 0, "", time.Second)
	assert.Error(t, err)
	_, err = NewRedisShared("localhost:6379", "", 0, "", 0)
	assert.Error(t, err)

	s, err := NewRedisShared("localhost:6379", "", 0, "", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "marketsnap:pacing", s.key)
	require.NoError(t, s.Close())
}

// memorySlots mimics SET NX PX and PTTL against a wall clock.
type memorySlots struct {
	mu      sync.Mutex
	expires map[string]time.Time
	claims  []time.Time
}

func newMemorySlots() *memorySlots {
	return &memorySlots{expires: make(map[string]time.Time)}
}

func (m *memorySlots) SetNX(_ context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if exp, ok := m.expires[key]; ok && now.Before(exp) {
		return redis.NewBoolResult(false, nil)
	}
	m.expires[key] = now.Add(expiration)
	m.claims = append(m.claims, now)
	return redis.NewBoolResult(true, nil)
}

func (m *memorySlots) PTTL(_ context.Context, key string) *redis.DurationCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.expires[key]
	if !ok {
		return redis.NewDurationResult(-2*time.Millisecond, nil)
	}
	remaining := time.Until(exp)
	if remaining <= 0 {
		delete(m.expires, key)
		return redis.NewDurationResult(-2*time.Millisecond, nil)
	}
	return redis.NewDurationResult(remaining, nil)
}

func sharedOn(slots slotStore, gap time.Duration, token string) *Shared {
	return &Shared{slots: slots, key: "marketsnap:pacing:test", gap: gap, token: token}
}

func TestSharedSpacesWaitsOnOneKey(t *testing.T) {
	const gap = 60 * time.Millisecond
	slots := newMemorySlots()
	a := sharedOn(slots, gap, "a")
	b := sharedOn(slots, gap, "b")

	var wg sync.WaitGroup
	for _, s := range []*Shared{a, b, a} {
		wg.Add(1)
		go func(s *Shared) {
			defer wg.Done()
			assert.NoError(t, s.Wait(context.Background()))
		}(s)
	}
	wg.Wait()

	slots.mu.Lock()
	defer slots.mu.Unlock()
	require.Len(t, slots.claims, 3)
	for i := 1; i < len(slots.claims); i++ {
		assert.GreaterOrEqual(t, slots.claims[i].Sub(slots.claims[i-1]), gap)
	}
}

func TestSharedWaitHonoursCancellation(t *testing.T) {
	slots := newMemorySlots()
	holder := sharedOn(slots, time.Hour, "holder")
	require.NoError(t, holder.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := sharedOn(slots, time.Hour, "waiter").Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

type failingSlots struct{}

func (failingSlots) SetNX(context.Context, string, interface{}, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(false, errors.New("connection refused"))
}

func (failingSlots) PTTL(context.Context, string) *redis.DurationCmd {
	return redis.NewDurationResult(0, nil)
}

func TestSharedWaitSurfacesRedisErrors(t *testing.T) {
	err := sharedOn(failingSlots{}, time.Second, "x").Wait(context.Background())
	assert.ErrorContains(t, err, "claim pacing slot")
}
