package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coffeeshop/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const eventTypeOrderPlaced = "order.placed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisherは注文確定をKafkaへ流す。
// 注文は既にDBに入っているので、送れなくても注文自体は失敗にしない。
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, timeout: 5 * time.Second, logger: logger}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, ev model.OrderPlaced) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order placed: %w", err)
	}

	msg := kafka.Message{
		// 同じゲストのイベントは同じパーティションへ
		Key:   []byte(ev.GuestID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeOrderPlaced)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order placed: %w", err)
	}

	p.logger.Info("order placed event published",
		zap.String("guest_id", ev.GuestID),
		zap.Int("orders", len(ev.OrderIDs)),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisherはKAFKA_BROKERS未設定のとき用
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(ctx context.Context, ev model.OrderPlaced) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }
