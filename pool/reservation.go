package pool

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation is a capability handle for capital earmarked against a single
// bet's maximum payout. It is returned by Reserve and consumed exactly once
// by Release or CancelReservation; the pool refuses a handle it did not
// issue or has already consumed. Fields are unexported so callers cannot
// forge or alter a handle.
type Reservation struct {
	id        uuid.UUID
	caller    string
	maxPayout decimal.Decimal
	stake     decimal.Decimal
	fee       decimal.Decimal
}

// ID returns the reservation identifier
func (r *Reservation) ID() uuid.UUID {
	return r.id
}

// Caller returns the authorized caller that made the reservation
func (r *Reservation) Caller() string {
	return r.caller
}

// MaxPayout returns the earmarked maximum payout
func (r *Reservation) MaxPayout() decimal.Decimal {
	return r.maxPayout
}
