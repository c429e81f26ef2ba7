package engine

import (
	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/shopspring/decimal"
)

// SymbolCount is the size of the symbol space on each reel
const SymbolCount = 6

// Paytable is the fixed, ordered multiplier table. Index 0 holds the
// multiplier for a triple of the highest-rank symbol (symbol 1), index 5 the
// lowest. Outcome resolution is a pure function over the symbol triple; no
// dynamic dispatch.
type Paytable struct {
	multipliers []decimal.Decimal
}

// NewPaytable builds a paytable from multipliers ordered by symbol rank
func NewPaytable(multipliers []float64) (*Paytable, error) {
	if len(multipliers) != SymbolCount {
		return nil, errors.NewWithDebug(errors.ErrConfigError, "paytable requires one multiplier per symbol", "expected 6 entries")
	}
	table := make([]decimal.Decimal, SymbolCount)
	for i, m := range multipliers {
		if m <= 0 {
			return nil, errors.New(errors.ErrConfigError, "paytable multipliers must be positive")
		}
		table[i] = decimal.NewFromFloat(m)
	}
	return &Paytable{multipliers: table}, nil
}

// DefaultPaytable returns the standard six-symbol multiplier table
func DefaultPaytable() *Paytable {
	pt, _ := NewPaytable([]float64{25, 15, 10, 8, 5, 3})
	return pt
}

// Top returns the largest multiplier; it bounds the maximum possible payout
func (p *Paytable) Top() decimal.Decimal {
	top := p.multipliers[0]
	for _, m := range p.multipliers[1:] {
		if m.GreaterThan(top) {
			top = m
		}
	}
	return top
}

// Multipliers returns a copy of the multiplier table
func (p *Paytable) Multipliers() []decimal.Decimal {
	out := make([]decimal.Decimal, len(p.multipliers))
	copy(out, p.multipliers)
	return out
}

// SymbolOf maps a raw random value into the 1..SymbolCount symbol space
func SymbolOf(value uint64) int {
	return int(value%SymbolCount) + 1
}

// Resolve computes the payout for a symbol triple against the net stake.
// Three equal symbols pay the multiplier for that symbol's rank; exactly two
// equal symbols push the net stake back; no match pays nothing.
func (p *Paytable) Resolve(symbols [3]int, stakeNet decimal.Decimal) decimal.Decimal {
	a, b, c := symbols[0], symbols[1], symbols[2]
	switch {
	case a == b && b == c:
		return stakeNet.Mul(p.multipliers[a-1])
	case a == b || b == c || a == c:
		return stakeNet
	default:
		return decimal.Zero
	}
}
