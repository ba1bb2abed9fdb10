package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"checkout-service/internal/domain"
	"checkout-service/internal/logging"
	"checkout-service/internal/metrics"
)

const TypeOrderPlaced = "order.placed"

// OrderPlaced is emitted once the backend has accepted an order.
type OrderPlaced struct {
	Type          string               `json:"type"`
	SessionID     string               `json:"sessionId"`
	OrderID       string               `json:"orderId"`
	OrderNumber   string               `json:"orderNumber,omitempty"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	CouponCode    string               `json:"couponCode,omitempty"`
	Totals        domain.Totals        `json:"totals"`
	Items         []domain.OrderItem   `json:"items"`
	OccurredAt    time.Time            `json:"occurredAt"`
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by order id.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(w, topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	logger = logging.OrNop(logger)
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, evt OrderPlaced) error {
	evt.Type = TypeOrderPlaced
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
		Time: evt.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(p.topic, "error").Inc()
		return fmt.Errorf("write %s: %w", evt.Type, err)
	}
	metrics.EventsPublished.WithLabelValues(p.topic, "ok").Inc()
	p.logger.Debug("event published", zap.String("type", evt.Type), zap.String("order_id", evt.OrderID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }

func (Nop) Close() error { return nil }
