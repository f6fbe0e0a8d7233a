package workers

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

func snapshotWith(backOverround float64, margin *float64) markets.MarketSnapshot {
	return markets.MarketSnapshot{
		RunID:      "run-1",
		Descriptor: markets.MarketDescriptor{MarketID: "1.1"},
		Book:       markets.MarketBook{MarketID: "1.1", Tier: markets.TierHigh},
		Analytics:  markets.MarketAnalytics{BackOverround: backOverround},
		Runners: []markets.RunnerSnapshot{{
			Descriptor: markets.RunnerDescriptor{SelectionID: "7", Name: "Alpha"},
			Analytics: &markets.RunnerAnalytics{
				BestBack:        markets.Float(2.2),
				BestLay:         markets.Float(2.1),
				ArbitrageMargin: margin,
			},
		}},
	}
}

func TestWatcherEvaluate(t *testing.T) {
	w := NewWatcher(100)

	snap := snapshotWith(98.2, nil)
	alert, ok := w.Evaluate(&snap)
	require.True(t, ok)
	assert.Equal(t, []string{"back overround 98.20% under 100.00%"}, alert.Reasons)

	snap = snapshotWith(104, markets.Float(0.1))
	alert, ok = w.Evaluate(&snap)
	require.True(t, ok)
	assert.Equal(t, []string{"Alpha back 2.20 over lay 2.10"}, alert.Reasons)

	snap = snapshotWith(104, nil)
	_, ok = w.Evaluate(&snap)
	assert.False(t, ok)

	snap = snapshotWith(0, nil)
	_, ok = w.Evaluate(&snap)
	assert.False(t, ok, "an empty book is not a signal")
}

// scriptedReader replays messages, then blocks until the context ends.
type scriptedReader struct {
	msgs []kafkago.Message
	errs []error
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafkago.Message{}, err
	}
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func withReadRetryDelay(t *testing.T, d time.Duration) {
	t.Helper()
	prev := readRetryDelay
	readRetryDelay = d
	t.Cleanup(func() { readRetryDelay = prev })
}

func TestConsumeSkipsBadMessages(t *testing.T) {
	withReadRetryDelay(t, time.Millisecond)
	good, err := json.Marshal(snapshotWith(97, nil))
	require.NoError(t, err)

	reader := &scriptedReader{
		errs: []error{errors.New("rebalance")},
		msgs: []kafkago.Message{
			{Key: []byte("bad"), Value: []byte("{not json")},
			{Key: []byte("empty"), Value: []byte(`{}`)},
			{Key: []byte("1.1"), Value: good},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWatcher(100)
	var handled []string
	Consume(ctx, reader, func(ctx context.Context, snap *markets.MarketSnapshot) error {
		handled = append(handled, snap.Descriptor.MarketID)
		err := w.Handle(ctx, snap)
		cancel()
		return err
	})

	assert.Equal(t, []string{"1.1"}, handled)
	seen, alerts := w.Stats()
	assert.Equal(t, 1, seen)
	assert.Equal(t, 1, alerts)
}

// brokenReader fails every read without blocking.
type brokenReader struct {
	reads atomic.Int64
}

func (r *brokenReader) ReadMessage(context.Context) (kafkago.Message, error) {
	r.reads.Add(1)
	return kafkago.Message{}, errors.New("reader closed")
}

func TestConsumeBacksOffOnPersistentReadErrors(t *testing.T) {
	withReadRetryDelay(t, 20*time.Millisecond)

	reader := &brokenReader{}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		Consume(ctx, reader, nil)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not stop after cancellation")
	}
	assert.LessOrEqual(t, reader.reads.Load(), int64(10))
	assert.GreaterOrEqual(t, reader.reads.Load(), int64(1))
}

func TestDecodeRequiresMarketID(t *testing.T) {
	_, err := Decode(kafkago.Message{Key: []byte("k"), Value: []byte(`{"run_id":"r"}`)})
	assert.Error(t, err)
}
