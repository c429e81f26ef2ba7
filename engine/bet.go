package engine

import (
	"time"

	"github.com/0xHustling/LP-Betting-Pools/pkg/providers"
	"github.com/0xHustling/LP-Betting-Pools/pool"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bet is the per-ticket settlement record. A bet transitions
// unsettled -> settled at most once and is never deleted; after settlement it
// stays behind as an immutable record of the outcome.
type Bet struct {
	TicketID    uuid.UUID
	Bettor      string
	Stake       decimal.Decimal
	ProtocolFee decimal.Decimal
	MaxPayout   decimal.Decimal
	PlacedAt    time.Time
	Settled     bool
	Payout      decimal.Decimal
	SettledAt   *time.Time

	reservation *pool.Reservation
}

// StakeNet returns the stake minus the protocol fee recorded at placement
func (b *Bet) StakeNet() decimal.Decimal {
	return b.Stake.Sub(b.ProtocolFee)
}

// Record converts the bet into its persisted form
func (b *Bet) Record() providers.BetRecord {
	return providers.BetRecord{
		TicketID:    b.TicketID,
		Bettor:      b.Bettor,
		Stake:       b.Stake,
		ProtocolFee: b.ProtocolFee,
		MaxPayout:   b.MaxPayout,
		PlacedAt:    b.PlacedAt,
		Settled:     b.Settled,
		Payout:      b.Payout,
		SettledAt:   b.SettledAt,
	}
}

// BetPlacedEvent is emitted when a bet is recorded
type BetPlacedEvent struct {
	TicketID  uuid.UUID       `json:"ticket_id"`
	Bettor    string          `json:"bettor"`
	Stake     decimal.Decimal `json:"stake"`
	MaxPayout decimal.Decimal `json:"max_payout"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// BetSettledEvent is emitted when a bet settles, normally or via refund
type BetSettledEvent struct {
	TicketID  uuid.UUID       `json:"ticket_id"`
	Bettor    string          `json:"bettor"`
	Payout    decimal.Decimal `json:"payout"`
	Refunded  bool            `json:"refunded"`
	SettledAt time.Time       `json:"settled_at"`
}
