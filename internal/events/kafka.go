package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"schoolboard/internal/middleware"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes board events to a Kafka topic keyed by post id, so
// events of one post stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaPublisher returns a publisher for the comma-separated broker list.
// Writes are asynchronous: Publish only enqueues, and delivery failures are
// logged by the writer's completion callback.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: newKafkaWriter(brokers, topic)}
}

func newKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				middleware.Logger.Warn("Failed to deliver board events",
					slog.String("topic", topic),
					slog.Int("count", len(msgs)),
					slog.String("error", err.Error()))
			}
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event BoardEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal board event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.PostID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write board event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func splitBrokers(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
