package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Delivery is a randomness callback read off the delivery topic
type Delivery struct {
	TicketID uuid.UUID
	Values   []uint64
}

// DeliveryHandler processes a randomness delivery. It is the only path into
// engine settlement; no HTTP route can trigger it.
type DeliveryHandler func(ctx context.Context, delivery Delivery) error

// deliveryPayload is the wire shape of a delivery event payload
type deliveryPayload struct {
	TicketID string   `mapstructure:"ticket_id"`
	Values   []uint64 `mapstructure:"values"`
}

// RandomnessConsumer reads randomness deliveries from Kafka and dispatches
// them to the configured handler. Duplicate and out-of-order deliveries are
// the handler's problem; the consumer just decodes and forwards.
type RandomnessConsumer struct {
	reader  *kafka.Reader
	handler DeliveryHandler
	logger  zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	Topic         string
	ConsumerGroup string
	Logger        zerolog.Logger
}

// NewRandomnessConsumer creates a consumer for the randomness delivery topic
func NewRandomnessConsumer(config ConsumerConfig, handler DeliveryHandler) *RandomnessConsumer {
	ctx, cancel := context.WithCancel(context.Background())

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        config.Brokers,
		Topic:          config.Topic,
		GroupID:        config.ConsumerGroup,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &RandomnessConsumer{
		reader:  reader,
		handler: handler,
		logger:  config.Logger.With().Str("component", "randomness_consumer").Logger(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins consuming deliveries in a background goroutine
func (c *RandomnessConsumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.logger.Info().Msg("Randomness consumer started")
		for {
			msg, err := c.reader.ReadMessage(c.ctx)
			if err != nil {
				if c.ctx.Err() != nil {
					return
				}
				c.logger.Error().Err(err).Msg("Failed to read message")
				continue
			}
			c.handleMessage(msg)
		}
	}()
}

// handleMessage decodes a delivery event and forwards it to the handler
func (c *RandomnessConsumer) handleMessage(msg kafka.Message) {
	var event struct {
		Type    string                 `json:"type"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error().Err(err).Str("key", string(msg.Key)).Msg("Failed to unmarshal delivery event")
		return
	}

	var payload deliveryPayload
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &payload,
		WeaklyTypedInput: true,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build payload decoder")
		return
	}
	if err := decoder.Decode(event.Payload); err != nil {
		c.logger.Error().Err(err).Str("key", string(msg.Key)).Msg("Failed to decode delivery payload")
		return
	}

	ticketID, err := uuid.Parse(payload.TicketID)
	if err != nil {
		c.logger.Error().Err(err).Str("ticket_id", payload.TicketID).Msg("Delivery carries invalid ticket id")
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	if err := c.handler(ctx, Delivery{TicketID: ticketID, Values: payload.Values}); err != nil {
		c.logger.Error().
			Err(err).
			Str("ticket_id", ticketID.String()).
			Msg("Delivery handler failed")
		return
	}

	c.logger.Debug().Str("ticket_id", ticketID.String()).Msg("Delivery dispatched")
}

// Stop halts consumption and closes the reader
func (c *RandomnessConsumer) Stop() error {
	c.cancel()
	c.wg.Wait()
	return c.reader.Close()
}
