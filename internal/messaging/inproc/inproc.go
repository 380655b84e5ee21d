// Package inproc delivers events between goroutines of one process through a
// watermill Go channel. It stands in for Kafka when no brokers are configured.
package inproc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
)

const keyMetadata = "key"

// Bus is an in-memory publisher and subscriber.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
}

// NewBus creates a Bus. Messages published while nobody subscribes to the
// topic are dropped.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, zapAdapter{logger}),
		logger: logger,
	}
}

var (
	_ messaging.Publisher  = (*Bus)(nil)
	_ messaging.Subscriber = (*Bus)(nil)
)

func (b *Bus) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(keyMetadata, key)
	if t := messaging.EventType(event); t != "" {
		msg.Metadata.Set(messaging.EventTypeHeader, t)
	}
	return b.pubsub.Publish(topic, msg)
}

// Consume ignores groupID: every subscriber receives every message.
func (b *Bus) Consume(ctx context.Context, topic string, _ string, handler messaging.Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	for msg := range messages {
		m := messaging.Message{
			Topic:     topic,
			Key:       msg.Metadata.Get(keyMetadata),
			EventType: msg.Metadata.Get(messaging.EventTypeHeader),
			Payload:   msg.Payload,
		}
		if err := handler(ctx, m); err != nil {
			b.logger.Error("Error handling message", zap.String("topic", topic), zap.Error(err))
		}
		msg.Ack()
	}
	b.logger.Info("Consumer shutting down", zap.String("topic", topic))
	return nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

type zapAdapter struct {
	logger *zap.Logger
}

func (a zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a zapAdapter) Info(msg string, fields watermill.LogFields) {
	a.logger.Info(msg, zapFields(fields)...)
}

func (a zapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.logger.Debug(msg, zapFields(fields)...)
}

func (a zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return zapAdapter{a.logger.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
