package provider

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/0xHustling/LP-Betting-Pools/db/redis"
	"github.com/0xHustling/LP-Betting-Pools/pkg/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const betKeyPrefix = "bet:"

// BetStateProvider implements providers.BetStore on Redis. Records are kept
// without expiry; settled bets are immutable history.
type BetStateProvider struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewBetStateProvider creates a Redis-backed bet store
func NewBetStateProvider(client *redis.Client, logger zerolog.Logger) *BetStateProvider {
	return &BetStateProvider{
		redis:  client,
		logger: logger.With().Str("component", "bet_state_provider").Logger(),
	}
}

// Save writes a bet record, overwriting any previous version
func (p *BetStateProvider) Save(ctx context.Context, record providers.BetRecord) error {
	key := betKeyPrefix + record.TicketID.String()
	if err := p.redis.SetJSON(ctx, key, record, 0); err != nil {
		return fmt.Errorf("failed to save bet %s: %w", record.TicketID, err)
	}
	p.logger.Debug().
		Str("ticket_id", record.TicketID.String()).
		Bool("settled", record.Settled).
		Msg("Bet record saved")
	return nil
}

// Get loads a bet record by ticket id
func (p *BetStateProvider) Get(ctx context.Context, ticketID uuid.UUID) (providers.BetRecord, bool, error) {
	var record providers.BetRecord
	key := betKeyPrefix + ticketID.String()
	err := p.redis.GetJSON(ctx, key, &record)
	if stderrors.Is(err, redis.ErrKeyNotFound) {
		return providers.BetRecord{}, false, nil
	}
	if err != nil {
		return providers.BetRecord{}, false, fmt.Errorf("failed to load bet %s: %w", ticketID, err)
	}
	return record, true, nil
}
