package pool

import (
	"sync"

	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/shopspring/decimal"
)

// ShareLedger is the claim-token boundary. Shares are fungible proportional
// claims on pool capital; mint/burn/transfer semantics are assumed correct.
type ShareLedger interface {
	Mint(account string, shares decimal.Decimal) error
	Burn(account string, shares decimal.Decimal) error
	Transfer(from, to string, shares decimal.Decimal) error
	BalanceOf(account string) decimal.Decimal
	TotalSupply() decimal.Decimal
}

// MemoryLedger is an in-process ShareLedger. It maintains the invariant
// sum(balances) == total.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
	total    decimal.Decimal
}

// NewMemoryLedger creates an empty in-memory share ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[string]decimal.Decimal),
	}
}

// Mint credits shares to an account
func (l *MemoryLedger) Mint(account string, shares decimal.Decimal) error {
	if shares.IsNegative() {
		return errors.New(errors.ErrInvalidRequest, "cannot mint negative shares")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(shares)
	l.total = l.total.Add(shares)
	return nil
}

// Burn debits shares from an account
func (l *MemoryLedger) Burn(account string, shares decimal.Decimal) error {
	if shares.IsNegative() {
		return errors.New(errors.ErrInvalidRequest, "cannot burn negative shares")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[account]
	if balance.LessThan(shares) {
		return errors.NewWithDebug(errors.ErrInsufficientLiquidity, "insufficient share balance", account)
	}
	l.balances[account] = balance.Sub(shares)
	l.total = l.total.Sub(shares)
	return nil
}

// Transfer moves shares between accounts
func (l *MemoryLedger) Transfer(from, to string, shares decimal.Decimal) error {
	if shares.IsNegative() {
		return errors.New(errors.ErrInvalidRequest, "cannot transfer negative shares")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[from]
	if balance.LessThan(shares) {
		return errors.NewWithDebug(errors.ErrInsufficientLiquidity, "insufficient share balance", from)
	}
	l.balances[from] = balance.Sub(shares)
	l.balances[to] = l.balances[to].Add(shares)
	return nil
}

// BalanceOf returns the share balance of an account
func (l *MemoryLedger) BalanceOf(account string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// TotalSupply returns the total minted shares
func (l *MemoryLedger) TotalSupply() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
