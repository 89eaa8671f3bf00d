package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/pkg/interfaces"
)

// InMemoryEventBus is an in-process implementation of interfaces.EventBus.
// Publish delivers asynchronously so publishers never block on handlers.
type InMemoryEventBus struct {
	handlers map[string][]interfaces.EventHandler
	mu       sync.RWMutex
	logger   *zap.Logger
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &InMemoryEventBus{
		handlers: make(map[string][]interfaces.EventHandler),
		logger:   logger.Named("eventbus"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Publish hands event to every subscriber of its type on a background goroutine.
func (eb *InMemoryEventBus) Publish(ctx context.Context, event interfaces.Event) error {
	eb.mu.RLock()
	handlers := append([]interfaces.EventHandler(nil), eb.handlers[event.EventType()]...)
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	eb.wg.Add(1)
	go func() {
		defer eb.wg.Done()
		eb.dispatch(eb.ctx, event, handlers)
	}()
	return nil
}

// PublishSync delivers event on the caller's goroutine.
func (eb *InMemoryEventBus) PublishSync(ctx context.Context, event interfaces.Event) {
	eb.mu.RLock()
	handlers := eb.handlers[event.EventType()]
	eb.mu.RUnlock()
	eb.dispatch(ctx, event, handlers)
}

func (eb *InMemoryEventBus) dispatch(ctx context.Context, event interfaces.Event, handlers []interfaces.EventHandler) {
	for _, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			eb.logger.Error("event handler failed",
				zap.String("event_type", event.EventType()),
				zap.String("aggregate_id", event.AggregateID()),
				zap.Error(err))
		}
	}
}

// Subscribe registers a handler for a specific event type
func (eb *InMemoryEventBus) Subscribe(eventType string, handler interfaces.EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debug("event handler subscribed", zap.String("event_type", eventType))
	return nil
}

// Start starts the event bus
func (eb *InMemoryEventBus) Start(ctx context.Context) error {
	eb.logger.Info("event bus started", zap.String("transport", "memory"))
	return nil
}

// Stop waits for in-flight deliveries.
func (eb *InMemoryEventBus) Stop() error {
	eb.cancel()
	eb.wg.Wait()
	eb.logger.Info("event bus stopped")
	return nil
}

// Wait blocks until every delivery started so far has finished.
func (eb *InMemoryEventBus) Wait() {
	eb.wg.Wait()
}
