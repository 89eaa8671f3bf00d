package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/events"
	"github.com/kartal788/dftest/pkg/interfaces"
)

const (
	publishTimeout = 5 * time.Second
	ackWait        = 30 * time.Second
	maxDeliver     = 5
)

// EventBus implements interfaces.EventBus on JetStream. Each subscribed
// subject gets a durable consumer with explicit acks; a failing handler
// naks the message so it is redelivered up to maxDeliver times.
type EventBus struct {
	client  *Client
	durable string
	logger  *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]interfaces.EventHandler
	consumes []jetstream.ConsumeContext
}

// NewEventBus creates a bus whose consumers are named after durable.
func NewEventBus(client *Client, durable string, logger *zap.Logger) *EventBus {
	return &EventBus{
		client:   client,
		durable:  durable,
		logger:   logger.Named("nats-bus"),
		handlers: make(map[string][]interfaces.EventHandler),
	}
}

// Publish writes the envelope with its id as the deduplication key.
func (b *EventBus) Publish(ctx context.Context, event interfaces.Event) error {
	env, ok := event.(*events.Envelope)
	if !ok {
		return fmt.Errorf("unsupported event type %T", event)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	ack, err := b.client.JetStream().Publish(pubCtx, env.Type, data, jetstream.WithMsgID(env.ID))
	if err != nil {
		b.logger.Error("failed to publish event",
			zap.Error(err),
			zap.String("event_id", env.ID),
			zap.String("event_type", env.Type))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("event published",
		zap.String("event_id", env.ID),
		zap.String("event_type", env.Type),
		zap.Uint64("sequence", ack.Sequence),
		zap.Bool("duplicate", ack.Duplicate))
	return nil
}

func (b *EventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Start creates one durable consumer per subscribed subject.
func (b *EventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subject := range b.handlers {
		consumer, err := b.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
			Durable:       ConsumerName(b.durable, subject),
			FilterSubject: subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       ackWait,
			MaxDeliver:    maxDeliver,
			DeliverPolicy: jetstream.DeliverAllPolicy,
			MaxAckPending: 100,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer for %s: %w", subject, err)
		}

		cc, err := consumer.Consume(b.handleMsg)
		if err != nil {
			return fmt.Errorf("failed to consume %s: %w", subject, err)
		}
		b.consumes = append(b.consumes, cc)
	}

	b.logger.Info("event bus started",
		zap.String("durable", b.durable),
		zap.Int("subjects", len(b.consumes)))
	return nil
}

func (b *EventBus) handleMsg(msg jetstream.Msg) {
	if err := b.dispatch(context.Background(), msg.Data()); err != nil {
		b.logger.Error("failed to handle message", zap.String("subject", msg.Subject()), zap.Error(err))
		if nakErr := msg.Nak(); nakErr != nil {
			b.logger.Warn("failed to nak message", zap.Error(nakErr))
		}
		return
	}
	if err := msg.Ack(); err != nil {
		b.logger.Warn("failed to ack message", zap.Error(err))
	}
}

// dispatch decodes data and runs every handler for its type. Malformed
// payloads return nil so they are acked rather than redelivered forever.
func (b *EventBus) dispatch(ctx context.Context, data []byte) error {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		b.logger.Warn("dropping malformed message", zap.Error(err))
		return nil
	}

	b.mu.RLock()
	handlers := b.handlers[env.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, &env); err != nil {
			return fmt.Errorf("%s handler: %w", env.Type, err)
		}
	}
	return nil
}

func (b *EventBus) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cc := range b.consumes {
		cc.Stop()
	}
	b.consumes = nil
	b.logger.Info("event bus stopped")
	return nil
}

// ConsumerName derives a valid durable name from a subject.
func ConsumerName(durable, subject string) string {
	return durable + "-" + strings.NewReplacer(".", "-", "*", "all", ">", "rest").Replace(subject)
}
