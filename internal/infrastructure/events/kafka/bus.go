package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/events"
	"github.com/kartal788/dftest/pkg/config"
	"github.com/kartal788/dftest/pkg/interfaces"
)

// EventBus implements interfaces.EventBus on a Kafka topic and consumer group.
// Offsets are marked after every handler returns, so a crash redelivers.
type EventBus struct {
	publisher *Publisher
	group     sarama.ConsumerGroup
	topic     string
	logger    *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]interfaces.EventHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEventBus connects the producer and the consumer group.
func NewEventBus(cfg config.KafkaConfig, logger *zap.Logger) (*EventBus, error) {
	publisher, err := NewPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, err
	}

	sc := sarama.NewConfig()
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}
	return newEventBus(publisher, group, cfg.Topic, logger), nil
}

func newEventBus(publisher *Publisher, group sarama.ConsumerGroup, topic string, logger *zap.Logger) *EventBus {
	return &EventBus{
		publisher: publisher,
		group:     group,
		topic:     topic,
		logger:    logger.Named("kafka"),
		handlers:  make(map[string][]interfaces.EventHandler),
	}
}

func (b *EventBus) Publish(ctx context.Context, event interfaces.Event) error {
	return b.publisher.Publish(ctx, event)
}

func (b *EventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// Start joins the consumer group in the background.
func (b *EventBus) Start(ctx context.Context) error {
	ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		for {
			if err := b.group.Consume(ctx, []string{b.topic}, b); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				b.logger.Error("consume failed", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-b.group.Errors():
				if !ok {
					return
				}
				b.logger.Warn("consumer group error", zap.Error(err))
			}
		}
	}()

	b.logger.Info("event bus started", zap.String("topic", b.topic))
	return nil
}

func (b *EventBus) Stop() error {
	if b.cancel != nil {
		b.cancel()
	}
	err := errors.Join(b.group.Close(), b.publisher.Close())
	b.wg.Wait()
	return err
}

// Setup implements sarama.ConsumerGroupHandler
func (b *EventBus) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup implements sarama.ConsumerGroupHandler
func (b *EventBus) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim implements sarama.ConsumerGroupHandler
func (b *EventBus) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		b.deliver(session.Context(), message.Value)
		session.MarkMessage(message, "")
	}
	return nil
}

// deliver decodes one record and runs its handlers. Malformed records and
// handler errors are logged and the offset still advances.
func (b *EventBus) deliver(ctx context.Context, value []byte) {
	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		b.logger.Warn("dropping malformed record", zap.Error(err))
		return
	}

	b.mu.RLock()
	handlers := b.handlers[env.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, &env); err != nil {
			b.logger.Error("event handler failed",
				zap.String("event_type", env.Type),
				zap.String("event_id", env.ID),
				zap.Error(err))
		}
	}
}
