package pool

import (
	"context"
	"sync"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/0xHustling/LP-Betting-Pools/pkg/poolfeed"
	"github.com/0xHustling/LP-Betting-Pools/pkg/providers"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	two            = decimal.NewFromInt(2)
	tenThousandBps = decimal.NewFromInt(10000)
)

// Config holds liquidity pool parameters
type Config struct {
	MaxCapacity    decimal.Decimal
	ExitFeeBps     int64
	BetToPoolRatio int64
	EpochLength    time.Duration
	WithdrawWindow time.Duration
	Operator       string
}

// Stats is a read-only snapshot of pool accounting
type Stats struct {
	Balance             decimal.Decimal `json:"balance"`
	PendingReserved     decimal.Decimal `json:"pending_reserved"`
	AccruedProtocolFees decimal.Decimal `json:"accrued_protocol_fees"`
	TotalShares         decimal.Decimal `json:"total_shares"`
	MaxCapacity         decimal.Decimal `json:"max_capacity"`
	ExitFeeBps          int64           `json:"exit_fee_bps"`
	BetToPoolRatio      int64           `json:"bet_to_pool_ratio"`
	EpochState          string          `json:"epoch_state"`
	EpochStart          time.Time       `json:"epoch_start"`
	EpochEnd            time.Time       `json:"epoch_end"`
	WindowClose         time.Time       `json:"window_close"`
}

// Pool owns pooled capital, LP share accounting, the epoch clock and the
// reservation table. Every public operation runs under a single mutex so no
// caller ever observes balance < pendingReserved mid-update. Payouts mutate
// accounting first and touch the treasury last; a failed transfer rolls the
// operation back.
type Pool struct {
	mu           sync.Mutex
	cfg          Config
	balance      decimal.Decimal
	pending      decimal.Decimal
	accruedFees  decimal.Decimal
	epochStart   time.Time
	reservations map[uuid.UUID]*Reservation
	authorized   map[string]bool
	ledger       ShareLedger
	treasury     providers.Treasury
	feed         *poolfeed.Broadcaster
	logger       zerolog.Logger
	now          func() time.Time
}

// New creates a liquidity pool. The epoch clock starts at the current instant.
func New(cfg Config, ledger ShareLedger, treasury providers.Treasury, logger zerolog.Logger) (*Pool, error) {
	if cfg.MaxCapacity.Sign() <= 0 {
		return nil, errors.New(errors.ErrConfigError, "max capacity must be positive")
	}
	if cfg.ExitFeeBps < 0 || cfg.ExitFeeBps > 10000 {
		return nil, errors.New(errors.ErrConfigError, "exit fee bps out of range")
	}
	if cfg.BetToPoolRatio <= 0 {
		return nil, errors.New(errors.ErrConfigError, "bet-to-pool ratio must be positive")
	}
	if cfg.EpochLength <= 0 || cfg.WithdrawWindow <= 0 {
		return nil, errors.New(errors.ErrConfigError, "epoch length and withdraw window must be positive")
	}

	p := &Pool{
		cfg:          cfg,
		reservations: make(map[uuid.UUID]*Reservation),
		authorized:   make(map[string]bool),
		ledger:       ledger,
		treasury:     treasury,
		logger:       logger.With().Str("component", "liquidity_pool").Logger(),
		now:          time.Now,
	}
	p.epochStart = p.now()
	return p, nil
}

// SetFeed attaches a broadcaster that receives a snapshot after every mutation
func (p *Pool) SetFeed(feed *poolfeed.Broadcaster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feed = feed
}

// AuthorizeCaller permits a game identity to reserve and release capital
func (p *Pool) AuthorizeCaller(callerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authorized[callerID] = true
	p.logger.Info().Str("caller", callerID).Msg("Caller authorized")
}

// RevokeCaller removes a game identity from the authorized set
func (p *Pool) RevokeCaller(callerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.authorized, callerID)
	p.logger.Info().Str("caller", callerID).Msg("Caller revoked")
}

// Deposit pulls capital from the depositor and mints proportional claim
// shares. The first depositor seeds the share price at 2:1 to dampen
// first-mover share dilution; later deposits mint pro rata against current
// pool value, so accrued profits stay with existing holders.
func (p *Pool) Deposit(ctx context.Context, account string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, errors.New(errors.ErrInvalidRequest, "deposit amount must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.balance.Add(amount).GreaterThan(p.cfg.MaxCapacity) {
		return decimal.Zero, errors.New(errors.ErrCapacityExceeded, "deposit exceeds pool capacity")
	}

	totalShares := p.ledger.TotalSupply()
	var shares decimal.Decimal
	if totalShares.IsZero() {
		shares = amount.Div(two).Floor()
	} else {
		shares = amount.Mul(totalShares).Div(p.balance).Floor()
	}
	if shares.IsZero() {
		return decimal.Zero, errors.New(errors.ErrDustDeposit, "deposit too small to mint shares")
	}

	if err := p.treasury.Debit(ctx, account, amount); err != nil {
		return decimal.Zero, errors.Wrap(err, errors.ErrTransferFailed, "failed to collect deposit")
	}

	p.balance = p.balance.Add(amount)
	if err := p.ledger.Mint(account, shares); err != nil {
		// Undo the collected capital; the mint failing means no claim exists.
		p.balance = p.balance.Sub(amount)
		if crerr := p.treasury.Credit(ctx, account, amount); crerr != nil {
			p.logger.Error().Err(crerr).Str("account", account).Msg("Failed to return deposit after mint failure")
		}
		return decimal.Zero, err
	}

	p.logger.Info().
		Str("account", account).
		Str("amount", amount.String()).
		Str("shares", shares.String()).
		Msg("Deposit accepted")
	p.publish()

	return shares, nil
}

// Withdraw burns claim shares and pays out the proportional pool value minus
// the exit fee. Only permitted once the current epoch has ended; the window
// stays open until FinalizeEpoch starts the next epoch.
func (p *Pool) Withdraw(ctx context.Context, account string, shares decimal.Decimal) (decimal.Decimal, error) {
	if shares.Sign() <= 0 {
		return decimal.Zero, errors.New(errors.ErrInvalidRequest, "share amount must be positive")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.epochStateLocked() == EpochActive {
		return decimal.Zero, errors.New(errors.ErrWithdrawClosed, "withdrawals are closed until the epoch ends")
	}

	totalShares := p.ledger.TotalSupply()
	if totalShares.IsZero() {
		return decimal.Zero, errors.New(errors.ErrInvalidRequest, "no shares outstanding")
	}

	gross := shares.Mul(p.balance).Div(totalShares)
	if gross.IsZero() {
		return decimal.Zero, errors.New(errors.ErrInvalidRequest, "withdrawal amounts to zero")
	}
	if p.balance.Sub(gross).LessThan(p.pending) {
		return decimal.Zero, errors.New(errors.ErrInsufficientLiquidity, "withdrawal would break reserved capital")
	}

	if err := p.ledger.Burn(account, shares); err != nil {
		return decimal.Zero, err
	}

	exitFee := gross.Mul(decimal.NewFromInt(p.cfg.ExitFeeBps)).Div(tenThousandBps)
	net := gross.Sub(exitFee)
	p.balance = p.balance.Sub(gross)
	p.accruedFees = p.accruedFees.Add(exitFee)

	if err := p.treasury.Credit(ctx, account, net); err != nil {
		// Transfer failure is fatal: restore shares and balances.
		p.balance = p.balance.Add(gross)
		p.accruedFees = p.accruedFees.Sub(exitFee)
		if merr := p.ledger.Mint(account, shares); merr != nil {
			p.logger.Error().Err(merr).Str("account", account).Msg("Failed to restore shares after payout failure")
		}
		return decimal.Zero, errors.Wrap(err, errors.ErrTransferFailed, "withdrawal payout failed")
	}

	p.logger.Info().
		Str("account", account).
		Str("shares", shares.String()).
		Str("gross", gross.String()).
		Str("exit_fee", exitFee.String()).
		Msg("Withdrawal paid")
	p.publish()

	return net, nil
}

// Reserve earmarks capital against a bet's maximum payout and books the
// incoming stake. The solvency gate caps any single reservation at
// (balance - pendingReserved) / betToPoolRatio. Only authorized callers may
// reserve, and only while the epoch is active.
func (p *Pool) Reserve(callerID string, maxPayout, stake, protocolFee decimal.Decimal) (*Reservation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.authorized[callerID] {
		return nil, errors.NewWithDebug(errors.ErrForbidden, "caller is not authorized to reserve capital", callerID)
	}
	if p.epochStateLocked() != EpochActive {
		return nil, errors.New(errors.ErrEpochClosed, "reservations are closed outside the active epoch")
	}
	if maxPayout.Sign() <= 0 {
		return nil, errors.New(errors.ErrInvalidRequest, "max payout must be positive")
	}
	if protocolFee.IsNegative() || protocolFee.GreaterThan(stake) {
		return nil, errors.New(errors.ErrInvalidRequest, "protocol fee out of range")
	}
	if maxPayout.GreaterThan(p.freeReserveCapacityLocked()) {
		return nil, errors.New(errors.ErrInsufficientLiquidity, "max payout exceeds free reserve capacity")
	}

	res := &Reservation{
		id:        uuid.New(),
		caller:    callerID,
		maxPayout: maxPayout,
		stake:     stake,
		fee:       protocolFee,
	}
	p.reservations[res.id] = res
	p.pending = p.pending.Add(maxPayout)
	p.balance = p.balance.Add(stake.Sub(protocolFee))
	p.accruedFees = p.accruedFees.Add(protocolFee)

	p.logger.Debug().
		Str("reservation_id", res.id.String()).
		Str("caller", callerID).
		Str("max_payout", maxPayout.String()).
		Str("stake", stake.String()).
		Msg("Capital reserved")
	p.publish()

	return res, nil
}

// Release consumes a reservation, frees the earmarked capital and pays the
// recipient. The handle must have been issued by Reserve and not consumed
// before; a second release of the same handle is rejected rather than
// double-spent.
func (p *Pool) Release(ctx context.Context, res *Reservation, payout decimal.Decimal, recipient string) error {
	if res == nil {
		return errors.New(errors.ErrReservationUnknown, "nil reservation")
	}
	if payout.IsNegative() {
		return errors.New(errors.ErrInvalidRequest, "payout cannot be negative")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	held, ok := p.reservations[res.id]
	if !ok || held != res {
		return errors.NewWithDebug(errors.ErrReservationUnknown, "reservation not held by pool", res.id.String())
	}
	if payout.GreaterThan(p.balance) {
		return errors.New(errors.ErrInsufficientLiquidity, "payout exceeds pool balance")
	}

	delete(p.reservations, res.id)
	p.balance = p.balance.Sub(payout)
	p.pending = p.pending.Sub(res.maxPayout)

	if payout.Sign() > 0 {
		if err := p.treasury.Credit(ctx, recipient, payout); err != nil {
			p.reservations[res.id] = res
			p.balance = p.balance.Add(payout)
			p.pending = p.pending.Add(res.maxPayout)
			return errors.Wrap(err, errors.ErrTransferFailed, "settlement payout failed")
		}
	}

	p.logger.Debug().
		Str("reservation_id", res.id.String()).
		Str("payout", payout.String()).
		Str("recipient", recipient).
		Msg("Reservation released")
	p.publish()

	return nil
}

// CancelReservation unwinds a reservation whose bet never came into existence
// (e.g. the randomness request failed after reserving). It reverses the
// accounting of Reserve without paying anyone; the caller returns the stake
// to the bettor.
func (p *Pool) CancelReservation(res *Reservation) error {
	if res == nil {
		return errors.New(errors.ErrReservationUnknown, "nil reservation")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	held, ok := p.reservations[res.id]
	if !ok || held != res {
		return errors.NewWithDebug(errors.ErrReservationUnknown, "reservation not held by pool", res.id.String())
	}

	delete(p.reservations, res.id)
	p.pending = p.pending.Sub(res.maxPayout)
	p.balance = p.balance.Sub(res.stake.Sub(res.fee))
	p.accruedFees = p.accruedFees.Sub(res.fee)

	p.logger.Debug().Str("reservation_id", res.id.String()).Msg("Reservation cancelled")
	p.publish()

	return nil
}

// FinalizeEpoch closes the elapsed epoch and starts the next one. Permitted
// only after both the epoch and the withdraw window have elapsed.
func (p *Pool) FinalizeEpoch() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.epochStateLocked() != EpochFinalizable {
		return errors.New(errors.ErrEpochNotFinalizable, "withdraw window has not closed yet")
	}

	previous := p.epochStart
	p.epochStart = nextEpochStart(p.epochStart, p.cfg.EpochLength, p.now())

	p.logger.Info().
		Time("previous_start", previous).
		Time("epoch_start", p.epochStart).
		Msg("Epoch finalized")
	p.publish()

	return nil
}

// WithdrawAccruedFees zeroes the accrued protocol fees and pays them out
func (p *Pool) WithdrawAccruedFees(ctx context.Context, recipient string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accruedFees.IsZero() {
		return decimal.Zero, errors.New(errors.ErrInvalidRequest, "no accrued fees to withdraw")
	}

	amount := p.accruedFees
	p.accruedFees = decimal.Zero

	if err := p.treasury.Credit(ctx, recipient, amount); err != nil {
		p.accruedFees = amount
		return decimal.Zero, errors.Wrap(err, errors.ErrTransferFailed, "fee payout failed")
	}

	p.logger.Info().
		Str("recipient", recipient).
		Str("amount", amount.String()).
		Msg("Accrued fees withdrawn")
	p.publish()

	return amount, nil
}

// SetMaxCapacity updates the deposit ceiling
func (p *Pool) SetMaxCapacity(capacity decimal.Decimal) error {
	if capacity.Sign() <= 0 {
		return errors.New(errors.ErrInvalidRequest, "max capacity must be positive")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.MaxCapacity = capacity
	return nil
}

// SetExitFeeBps updates the exit fee rate
func (p *Pool) SetExitFeeBps(bps int64) error {
	if bps < 0 || bps > 10000 {
		return errors.New(errors.ErrInvalidRequest, "exit fee bps out of range")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.ExitFeeBps = bps
	return nil
}

// CanCover reports whether the pool balance covers a payout of the given size
func (p *Pool) CanCover(amount decimal.Decimal) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance.GreaterThanOrEqual(amount)
}

// Balance returns the current pool balance
func (p *Pool) Balance() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balance
}

// PendingReserved returns capital currently earmarked for unsettled bets
func (p *Pool) PendingReserved() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// AccruedProtocolFees returns fees collected and not yet withdrawn
func (p *Pool) AccruedProtocolFees() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.accruedFees
}

// FreeReserveCapacity returns the largest reservation the pool accepts now
func (p *Pool) FreeReserveCapacity() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.freeReserveCapacityLocked()
}

// EpochStateNow returns the current epoch state
func (p *Pool) EpochStateNow() EpochState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epochStateLocked()
}

// Stats returns a snapshot of pool accounting
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	epochEnd := p.epochStart.Add(p.cfg.EpochLength)
	return Stats{
		Balance:             p.balance,
		PendingReserved:     p.pending,
		AccruedProtocolFees: p.accruedFees,
		TotalShares:         p.ledger.TotalSupply(),
		MaxCapacity:         p.cfg.MaxCapacity,
		ExitFeeBps:          p.cfg.ExitFeeBps,
		BetToPoolRatio:      p.cfg.BetToPoolRatio,
		EpochState:          p.epochStateLocked().String(),
		EpochStart:          p.epochStart,
		EpochEnd:            epochEnd,
		WindowClose:         epochEnd.Add(p.cfg.WithdrawWindow),
	}
}

func (p *Pool) epochStateLocked() EpochState {
	return epochStateAt(p.epochStart, p.cfg.EpochLength, p.cfg.WithdrawWindow, p.now())
}

func (p *Pool) freeReserveCapacityLocked() decimal.Decimal {
	return p.balance.Sub(p.pending).Div(decimal.NewFromInt(p.cfg.BetToPoolRatio))
}

// publish sends a snapshot to the attached feed; must be called with mu held
func (p *Pool) publish() {
	if p.feed == nil {
		return
	}
	p.feed.Send(poolfeed.Update{
		Balance:         p.balance,
		PendingReserved: p.pending,
		TotalShares:     p.ledger.TotalSupply(),
		AccruedFees:     p.accruedFees,
		EpochState:      p.epochStateLocked().String(),
		Timestamp:       p.now(),
	})
}
