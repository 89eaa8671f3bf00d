// Package kafka carries catalog events over a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/kartal788/dftest/internal/events"
	"github.com/kartal788/dftest/pkg/interfaces"
)

const eventTypeHeader = "event_type"

// Publisher writes envelopes to one topic, keyed by aggregate id.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher creates a new Kafka event publisher
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return newPublisher(producer, topic), nil
}

func newPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

// Publish sends event and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, event interfaces.Event) error {
	msg, err := toProducerMessage(p.topic, event)
	if err != nil {
		return err
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Close closes the publisher
func (p *Publisher) Close() error {
	return p.producer.Close()
}

func toProducerMessage(topic string, event interfaces.Event) (*sarama.ProducerMessage, error) {
	env, ok := event.(*events.Envelope)
	if !ok {
		return nil, fmt.Errorf("unsupported event type %T", event)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshaling message: %w", err)
	}

	return &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(env.AggregateID()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte(eventTypeHeader), Value: []byte(env.EventType())},
		},
	}, nil
}
