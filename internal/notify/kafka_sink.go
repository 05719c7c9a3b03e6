package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "storefront-notifications"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes notifications keyed by profile id so one profile's
// messages stay ordered within a partition.
type KafkaSink struct {
	writer messageWriter
	log    *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, log *slog.Logger) *KafkaSink {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("notification delivery failed", "count", len(messages), "error", err)
			}
		},
	}
	return &KafkaSink{writer: writer, log: log}
}

func (s *KafkaSink) Notify(ctx context.Context, n Notification) {
	value, err := json.Marshal(n)
	if err != nil {
		s.log.Error("marshal notification failed", "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(n.ProfileID),
		Value: value,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.log.Warn("publish notification failed", "profile_id", n.ProfileID, "error", err)
	}
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
