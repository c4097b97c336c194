// Package events publishes settlement events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"trade-settlement-engine/config"
	"trade-settlement-engine/internal/core/domain"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// orderSettledEvent is the wire form of an order.settled event.
type orderSettledEvent struct {
	OrderID    int64     `json:"order_id"`
	Title      string    `json:"title"`
	SupplierID int64     `json:"supplier_id"`
	ConsumerID int64     `json:"consumer_id"`
	Price      string    `json:"price"`
	SettledAt  time.Time `json:"settled_at"`
}

// KafkaPublisher implements ports.EventPublisher on a Kafka topic.
// Publishing is best-effort: the settlement outcome never depends on it.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewKafkaPublisher creates a publisher for the configured topic.
// Returns nil when events are disabled or no brokers are configured; callers
// treat a nil publisher as "publishing off".
func NewKafkaPublisher(cfg config.EventsConfig, log zerolog.Logger) *KafkaPublisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		return nil
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("Kafka event publisher enabled")

	return &KafkaPublisher{writer: writer, log: log}
}

// PublishOrderSettled emits one event per settled order, keyed by order ID so
// a partitioned topic keeps per-order ordering.
func (p *KafkaPublisher) PublishOrderSettled(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(orderSettledEvent{
		OrderID:    order.ID,
		Title:      order.Title,
		SupplierID: order.SupplierID,
		ConsumerID: order.ConsumerID,
		Price:      order.Price.String(),
		SettledAt:  order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order.settled event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(order.ID, 10)),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order.settled event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
