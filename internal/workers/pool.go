package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hetulpatel/marketsnap/internal/kafka"
	"github.com/hetulpatel/marketsnap/internal/logging"
	"github.com/hetulpatel/marketsnap/internal/markets"
)

// readRetryDelay spaces retries after a failed read.
var readRetryDelay = time.Second

type Handler func(context.Context, *markets.MarketSnapshot) error

// MessageReader is the subset of *kafka.Reader a worker needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
}

func Run(ctx context.Context, brokers []string, topic, group string, workerCount int, handler Handler) {
	if workerCount <= 0 {
		workerCount = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			reader := kafka.NewReader(brokers, topic, group)
			defer reader.Close()
			logging.Debugf("[workers] worker %d consuming %s", id, topic)
			Consume(ctx, reader, handler)
		}(i)
	}

	<-ctx.Done()
	wg.Wait()
}

// Consume reads until ctx is done. Bad messages and handler errors are
// logged and skipped.
func Consume(ctx context.Context, reader MessageReader, handler Handler) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Errorf("[workers] read error: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(readRetryDelay):
			}
			continue
		}

		snapshot, err := Decode(msg)
		if err != nil {
			logging.Errorf("[workers] %v", err)
			continue
		}

		if handler != nil {
			if err := handler(ctx, snapshot); err != nil {
				logging.Errorf("[workers] handler error market=%s: %v", snapshot.Descriptor.MarketID, err)
			}
		}
	}
}

// Decode parses a published snapshot message.
func Decode(msg kafkago.Message) (*markets.MarketSnapshot, error) {
	var snapshot markets.MarketSnapshot
	if err := json.Unmarshal(msg.Value, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot key=%s: %w", msg.Key, err)
	}
	if snapshot.Descriptor.MarketID == "" {
		return nil, fmt.Errorf("snapshot key=%s has no market id", msg.Key)
	}
	return &snapshot, nil
}
