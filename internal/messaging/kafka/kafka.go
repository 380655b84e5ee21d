package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

type producer interface {
	WriteMessage(ctx context.Context, msg kafkaGo.Message) error
	Close() error
}

// Broker publishes and consumes JSON events on Kafka. Producers are traced
// and created lazily, one per topic.
type Broker struct {
	brokers  []string
	clientID string
	tp       trace.TracerProvider
	logger   *zap.Logger

	mu      sync.Mutex
	writers map[string]producer
}

// NewBroker creates a Kafka publisher and subscriber.
func NewBroker(brokers []string, clientID string, tp trace.TracerProvider, logger *zap.Logger) *Broker {
	return &Broker{
		brokers:  brokers,
		clientID: clientID,
		tp:       tp,
		logger:   logger,
		writers:  map[string]producer{},
	}
}

var (
	_ messaging.Publisher  = (*Broker)(nil)
	_ messaging.Subscriber = (*Broker)(nil)
)

func (b *Broker) writer(topic string) (producer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.writers[topic]; ok {
		return w, nil
	}

	base := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(b.brokers...),
		Topic:                  topic,
		Balancer:               &kafkaGo.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	w, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(b.tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			semconv.MessagingDestinationNameKey.String(topic),
			attribute.String("messaging.kafka.client_id", b.clientID),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create writer for %s: %w", topic, err)
	}
	b.writers[topic] = w
	return w, nil
}

func (b *Broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	w, err := b.writer(topic)
	if err != nil {
		return err
	}

	msg := kafkaGo.Message{
		Key:   []byte(key),
		Value: payload,
	}
	if t := messaging.EventType(event); t != "" {
		msg.Headers = append(msg.Headers, kafkaGo.Header{Key: messaging.EventTypeHeader, Value: []byte(t)})
	}
	return w.WriteMessage(ctx, msg)
}

func (b *Broker) Consume(ctx context.Context, topic string, groupID string, handler messaging.Handler) error {
	reader, err := otelkafka.NewReader(kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: b.brokers,
		Topic:   topic,
		GroupID: groupID,
	}))
	if err != nil {
		return fmt.Errorf("failed to create reader for %s: %w", topic, err)
	}
	defer reader.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("Consumer shutting down", zap.String("topic", topic))
				return nil
			}
			b.logger.Error("Error reading message", zap.String("topic", topic), zap.Error(err))
			continue
		}

		m := messaging.Message{Topic: topic, Key: string(msg.Key), Payload: msg.Value}
		for _, h := range msg.Headers {
			if h.Key == messaging.EventTypeHeader {
				m.EventType = string(h.Value)
			}
		}
		if err := handler(ctx, m); err != nil {
			b.logger.Error("Error handling message", zap.String("topic", topic), zap.Error(err))
		}
	}
}

// Close flushes and closes every producer.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	for topic, w := range b.writers {
		if cerr := w.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close writer for %s: %w", topic, cerr))
		}
	}
	b.writers = map[string]producer{}
	return err
}
