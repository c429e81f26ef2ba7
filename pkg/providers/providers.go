package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Treasury is the capital-transfer primitive. Debit pulls funds from an
// account into pooled custody, Credit pays funds out. A failed transfer must
// abort the enclosing operation; callers roll back their accounting.
type Treasury interface {
	Debit(ctx context.Context, account string, amount decimal.Decimal) error
	Credit(ctx context.Context, account string, amount decimal.Decimal) error
}

// RandomnessRequest describes a randomness ticket request.
type RandomnessRequest struct {
	NumValues int `json:"num_values"`
}

// RandomnessChannel is the opaque oracle boundary. Request is fire-and-forget:
// it returns a ticket id correlating the request with a later delivery, which
// may arrive out of order or never.
type RandomnessChannel interface {
	Request(ctx context.Context, req RandomnessRequest) (uuid.UUID, error)
}

// BetRecord is the persisted form of a bet. Records are written at placement
// and rewritten once at settlement; they are never deleted.
type BetRecord struct {
	TicketID    uuid.UUID       `json:"ticket_id"`
	Bettor      string          `json:"bettor"`
	Stake       decimal.Decimal `json:"stake"`
	ProtocolFee decimal.Decimal `json:"protocol_fee"`
	MaxPayout   decimal.Decimal `json:"max_payout"`
	PlacedAt    time.Time       `json:"placed_at"`
	Settled     bool            `json:"settled"`
	Payout      decimal.Decimal `json:"payout"`
	SettledAt   *time.Time      `json:"settled_at,omitempty"`
}

// BetStore persists bet records as a write-through journal.
type BetStore interface {
	Save(ctx context.Context, record BetRecord) error
	Get(ctx context.Context, ticketID uuid.UUID) (BetRecord, bool, error)
}

// EventSink publishes bet lifecycle events to downstream consumers.
type EventSink interface {
	Emit(ctx context.Context, eventType string, payload interface{})
}
