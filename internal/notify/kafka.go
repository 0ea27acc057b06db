package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Producer: то, что KafkaChannel требует от writer'а.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaChannel публикует уведомления JSON-сообщениями с ключом item id.
type KafkaChannel struct {
	producer Producer
}

func NewKafkaChannel(p Producer) *KafkaChannel {
	return &KafkaChannel{producer: p}
}

// NewKafkaProducer создаёт writer с трассировкой: контекст спана уходит в заголовки сообщения.
func NewKafkaProducer(broker, topic string, tp trace.TracerProvider) (Producer, error) {
	if broker == "" {
		return nil, fmt.Errorf("kafka broker address is empty")
	}
	base := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(topic),
			attribute.String("messaging.kafka.client_id", "cocostock"),
		}),
	)
}

func (c *KafkaChannel) Name() string { return "kafka" }

func (c *KafkaChannel) Deliver(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(a.ItemID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("LowStock")},
		},
	}
	return c.producer.WriteMessage(ctx, msg)
}

func (c *KafkaChannel) Close() error {
	return c.producer.Close()
}
