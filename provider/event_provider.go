package provider

import (
	"context"

	"github.com/0xHustling/LP-Betting-Pools/events/kafka"
	"github.com/rs/zerolog"
)

// EventProvider implements providers.EventSink on the Kafka producer. Emits
// are fire-and-forget; a lost event never blocks or fails settlement.
type EventProvider struct {
	producer *kafka.Producer
	topic    string
	logger   zerolog.Logger
}

// NewEventProvider creates a Kafka-backed event sink
func NewEventProvider(producer *kafka.Producer, topic string, logger zerolog.Logger) *EventProvider {
	return &EventProvider{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "event_provider").Logger(),
	}
}

// Emit publishes a bet lifecycle event
func (p *EventProvider) Emit(ctx context.Context, eventType string, payload interface{}) {
	if p.producer == nil {
		return
	}
	if err := p.producer.SendMessage(p.topic, eventType, kafka.NewEvent(eventType, payload)); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Msg("Failed to emit event")
	}
}
