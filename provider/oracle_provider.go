package provider

import (
	"context"

	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/0xHustling/LP-Betting-Pools/events/kafka"
	"github.com/0xHustling/LP-Betting-Pools/pkg/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OracleProvider implements providers.RandomnessChannel over Kafka. A request
// publishes a ticket to the randomness request topic; deliveries come back
// asynchronously on the delivery topic via the randomness consumer.
type OracleProvider struct {
	producer *kafka.Producer
	topic    string
	logger   zerolog.Logger
}

// NewOracleProvider creates a Kafka-backed randomness channel
func NewOracleProvider(producer *kafka.Producer, topic string, logger zerolog.Logger) *OracleProvider {
	return &OracleProvider{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "oracle_provider").Logger(),
	}
}

// Request publishes a randomness request and returns its ticket id. The
// publish is synchronous so a broker failure surfaces here, before the bet
// is recorded against the ticket.
func (p *OracleProvider) Request(ctx context.Context, req providers.RandomnessRequest) (uuid.UUID, error) {
	if p.producer == nil {
		return uuid.Nil, errors.New(errors.ErrKafkaError, "randomness channel is not configured")
	}

	ticketID := uuid.New()

	payload := map[string]interface{}{
		"ticket_id":  ticketID.String(),
		"num_values": req.NumValues,
	}
	if err := p.producer.SendMessageSync(ctx, p.topic, ticketID.String(), kafka.NewEvent("randomness.requested", payload)); err != nil {
		return uuid.Nil, err
	}

	p.logger.Debug().
		Str("ticket_id", ticketID.String()).
		Int("num_values", req.NumValues).
		Msg("Randomness requested")

	return ticketID, nil
}
