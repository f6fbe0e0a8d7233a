package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/marketsnap/internal/markets"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher sends each market snapshot of a run as one Kafka message keyed
// by market id.
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

// Present publishes the run. It satisfies markets.Presenter.
func (p *Publisher) Present(ctx context.Context, snapshots []markets.MarketSnapshot) error {
	if p == nil || p.writer == nil || len(snapshots) == 0 {
		return nil
	}
	msgs, err := Messages(snapshots)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Messages encodes snapshots as Kafka messages in run order.
func Messages(snapshots []markets.MarketSnapshot) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(snapshots))
	for _, snap := range snapshots {
		payload, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("marshal snapshot %s: %w", snap.Descriptor.MarketID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(snap.Descriptor.MarketID),
			Value: payload,
			Time:  snap.CapturedAt,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(snap.RunID)},
				{Key: "detail_tier", Value: []byte(snap.Book.Tier.String())},
			},
		})
	}
	return msgs, nil
}
