// Package events selects the event transport for the catalog.
package events

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kartal788/dftest/internal/infrastructure/events/kafka"
	"github.com/kartal788/dftest/internal/infrastructure/events/nats"
	"github.com/kartal788/dftest/pkg/config"
	pkgevents "github.com/kartal788/dftest/pkg/events"
	"github.com/kartal788/dftest/pkg/interfaces"
)

// Broker names accepted by NewEventBus.
const (
	BrokerMemory = "memory"
	BrokerNATS   = "nats"
	BrokerKafka  = "kafka"
)

// NewEventBus builds the configured transport. The returned cleanup releases
// connections the transport owns beyond Stop.
func NewEventBus(cfg config.EventsConfig, logger *zap.Logger) (interfaces.EventBus, func(), error) {
	switch cfg.Broker {
	case "", BrokerMemory:
		return pkgevents.NewInMemoryEventBus(logger), func() {}, nil

	case BrokerNATS:
		client, cleanup, err := nats.NewClient(cfg.NATS, logger)
		if err != nil {
			return nil, nil, err
		}
		return nats.NewEventBus(client, cfg.NATS.DurableName, logger), cleanup, nil

	case BrokerKafka:
		bus, err := kafka.NewEventBus(cfg.Kafka, logger)
		if err != nil {
			return nil, nil, err
		}
		return bus, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown event broker %q", cfg.Broker)
}
