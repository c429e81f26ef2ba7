package engine

import (
	"context"
	"sync"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/0xHustling/LP-Betting-Pools/pkg/providers"
	"github.com/0xHustling/LP-Betting-Pools/pool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Event types emitted on the event sink
const (
	EventBetPlaced  = "bet.placed"
	EventBetSettled = "bet.settled"
)

// Origin identifies how a bet request reached the engine
type Origin string

const (
	// OriginPlayer marks a bet placed directly by the player session.
	// Anything else is treated as an intermediary that could inspect the
	// randomness outcome before committing, so it is rejected.
	OriginPlayer Origin = "player"
)

// CapitalPool is the engine's view of the liquidity pool reservation protocol
type CapitalPool interface {
	Reserve(callerID string, maxPayout, stake, protocolFee decimal.Decimal) (*pool.Reservation, error)
	Release(ctx context.Context, res *pool.Reservation, payout decimal.Decimal, recipient string) error
	CancelReservation(res *pool.Reservation) error
	CanCover(amount decimal.Decimal) bool
}

// Config holds betting engine parameters
type Config struct {
	CallerID       string
	MinBet         decimal.Decimal
	MaxBet         decimal.Decimal
	ProtocolFeeBps int64
	RefundDelay    time.Duration
	Paytable       *Paytable
}

// PlaceBetRequest carries a validated-at-the-edge bet placement
type PlaceBetRequest struct {
	Bettor string
	Stake  decimal.Decimal
	Origin Origin
}

// Engine owns bet records and drives settlement through the pool's
// reservation protocol. Bet state mutates only under the engine mutex; the
// settled flag guarantees each release happens at most once even under
// duplicated or replayed randomness callbacks.
type Engine struct {
	mu       sync.Mutex
	cfg      Config
	paused   bool
	capital  CapitalPool
	treasury providers.Treasury
	oracle   providers.RandomnessChannel
	store    providers.BetStore
	events   providers.EventSink
	bets     map[uuid.UUID]*Bet
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a betting engine bound to a capital pool
func New(cfg Config, capital CapitalPool, treasury providers.Treasury, oracle providers.RandomnessChannel, logger zerolog.Logger) (*Engine, error) {
	if capital == nil {
		return nil, errors.New(errors.ErrConfigError, "capital pool is required")
	}
	if cfg.Paytable == nil {
		return nil, errors.New(errors.ErrConfigError, "paytable is required")
	}
	if cfg.MinBet.Sign() <= 0 || cfg.MaxBet.LessThan(cfg.MinBet) {
		return nil, errors.New(errors.ErrConfigError, "bet bounds invalid")
	}
	if cfg.ProtocolFeeBps < 0 || cfg.ProtocolFeeBps > 10000 {
		return nil, errors.New(errors.ErrConfigError, "protocol fee bps out of range")
	}

	return &Engine{
		cfg:      cfg,
		capital:  capital,
		treasury: treasury,
		oracle:   oracle,
		bets:     make(map[uuid.UUID]*Bet),
		logger:   logger.With().Str("component", "betting_engine").Logger(),
		now:      time.Now,
	}, nil
}

// SetBetStore attaches a persistence journal for bet records
func (e *Engine) SetBetStore(store providers.BetStore) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store = store
}

// SetEventSink attaches a sink for bet lifecycle events
func (e *Engine) SetEventSink(sink providers.EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = sink
}

// PlaceBet validates the wager, reserves the maximum possible payout from the
// pool, collects the stake, requests a randomness ticket and records the
// pending bet. The returned bet is a copy of the recorded state.
func (e *Engine) PlaceBet(ctx context.Context, req PlaceBetRequest) (*Bet, error) {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return nil, errors.New(errors.ErrEnginePaused, "betting is paused")
	}
	minBet, maxBet := e.cfg.MinBet, e.cfg.MaxBet
	feeBps := e.cfg.ProtocolFeeBps
	topMultiplier := e.cfg.Paytable.Top()
	callerID := e.cfg.CallerID
	e.mu.Unlock()

	if req.Bettor == "" {
		return nil, errors.New(errors.ErrInvalidRequest, "bettor account is required")
	}
	if req.Origin != OriginPlayer {
		return nil, errors.New(errors.ErrNotOriginator, "bets must originate from the player session")
	}
	if req.Stake.LessThan(minBet) {
		return nil, errors.New(errors.ErrBetTooSmall, "stake below minimum bet")
	}
	if req.Stake.GreaterThan(maxBet) {
		return nil, errors.New(errors.ErrBetTooLarge, "stake above maximum bet")
	}

	protocolFee := req.Stake.Mul(decimal.NewFromInt(feeBps)).Div(decimal.NewFromInt(10000))
	maxPayout := req.Stake.Mul(topMultiplier)

	if err := e.treasury.Debit(ctx, req.Bettor, req.Stake); err != nil {
		return nil, errors.Wrap(err, errors.ErrTransferFailed, "failed to collect stake")
	}

	res, err := e.capital.Reserve(callerID, maxPayout, req.Stake, protocolFee)
	if err != nil {
		if crerr := e.treasury.Credit(ctx, req.Bettor, req.Stake); crerr != nil {
			e.logger.Error().Err(crerr).Str("bettor", req.Bettor).Msg("Failed to return stake after reserve rejection")
		}
		return nil, err
	}

	ticketID, err := e.oracle.Request(ctx, providers.RandomnessRequest{NumValues: 3})
	if err != nil {
		if cerr := e.capital.CancelReservation(res); cerr != nil {
			e.logger.Error().Err(cerr).Msg("Failed to cancel reservation after randomness request failure")
		}
		if crerr := e.treasury.Credit(ctx, req.Bettor, req.Stake); crerr != nil {
			e.logger.Error().Err(crerr).Str("bettor", req.Bettor).Msg("Failed to return stake after randomness request failure")
		}
		return nil, errors.Wrap(err, errors.ErrKafkaError, "randomness request failed")
	}

	bet := &Bet{
		TicketID:    ticketID,
		Bettor:      req.Bettor,
		Stake:       req.Stake,
		ProtocolFee: protocolFee,
		MaxPayout:   maxPayout,
		PlacedAt:    e.now(),
		Payout:      decimal.Zero,
		reservation: res,
	}

	e.mu.Lock()
	e.bets[ticketID] = bet
	e.mu.Unlock()

	e.persist(ctx, bet)
	e.emit(ctx, EventBetPlaced, BetPlacedEvent{
		TicketID:  bet.TicketID,
		Bettor:    bet.Bettor,
		Stake:     bet.Stake,
		MaxPayout: bet.MaxPayout,
		PlacedAt:  bet.PlacedAt,
	})

	e.logger.Info().
		Str("ticket_id", ticketID.String()).
		Str("bettor", req.Bettor).
		Str("stake", req.Stake.String()).
		Str("max_payout", maxPayout.String()).
		Msg("Bet placed")

	copied := *bet
	return &copied, nil
}

// Deliver handles a randomness callback for a ticket. Unknown tickets,
// already-settled bets and payouts the pool cannot cover are all silent
// no-ops: the oracle channel is not a party we can surface errors to, and an
// unpayable bet stays pending until the refund path opens.
func (e *Engine) Deliver(ctx context.Context, ticketID uuid.UUID, values []uint64) error {
	if len(values) != 3 {
		return errors.NewWithDebug(errors.ErrInvalidRequest, "randomness delivery requires three values", ticketID.String())
	}

	e.mu.Lock()
	bet, ok := e.bets[ticketID]
	if !ok {
		e.mu.Unlock()
		e.logger.Warn().Str("ticket_id", ticketID.String()).Msg("Delivery for unknown ticket ignored")
		return nil
	}
	if bet.Settled {
		e.mu.Unlock()
		e.logger.Debug().Str("ticket_id", ticketID.String()).Msg("Duplicate delivery ignored")
		return nil
	}

	symbols := [3]int{SymbolOf(values[0]), SymbolOf(values[1]), SymbolOf(values[2])}
	payout := e.cfg.Paytable.Resolve(symbols, bet.StakeNet())
	e.mu.Unlock()

	if payout.Sign() > 0 && !e.capital.CanCover(payout) {
		e.logger.Warn().
			Str("ticket_id", ticketID.String()).
			Str("payout", payout.String()).
			Msg("Pool cannot cover payout, settlement deferred")
		return nil
	}

	if err := e.settle(ctx, bet, payout, false); err != nil {
		return err
	}

	e.logger.Info().
		Str("ticket_id", ticketID.String()).
		Ints("symbols", symbols[:]).
		Str("payout", payout.String()).
		Msg("Bet settled")

	return nil
}

// ForceRefund settles a bet whose randomness never arrived, returning the
// stake minus the protocol fee. Callable by anyone once the safety delay has
// elapsed since placement.
func (e *Engine) ForceRefund(ctx context.Context, ticketID uuid.UUID) error {
	e.mu.Lock()
	bet, ok := e.bets[ticketID]
	if !ok {
		e.mu.Unlock()
		return errors.New(errors.ErrBetNotFound, "bet not found")
	}
	if bet.Settled {
		e.mu.Unlock()
		return errors.New(errors.ErrBetSettled, "bet already settled")
	}
	stakeNet := bet.StakeNet()
	placedAt := bet.PlacedAt
	delay := e.cfg.RefundDelay
	e.mu.Unlock()

	if stakeNet.Sign() <= 0 {
		return errors.New(errors.ErrInvalidRequest, "nothing to refund")
	}
	if e.now().Before(placedAt.Add(delay)) {
		return errors.New(errors.ErrRefundTooEarly, "refund safety delay has not elapsed")
	}
	if !e.capital.CanCover(stakeNet) {
		return errors.New(errors.ErrInsufficientLiquidity, "pool cannot cover the refund")
	}

	if err := e.settle(ctx, bet, stakeNet, true); err != nil {
		return err
	}

	e.logger.Info().
		Str("ticket_id", ticketID.String()).
		Str("refund", stakeNet.String()).
		Msg("Bet refunded")

	return nil
}

// settle marks the bet settled and releases its reservation. The settled
// flag flips before the release so a concurrent attempt sees it; a failed
// release flips it back, leaving the bet pending.
func (e *Engine) settle(ctx context.Context, bet *Bet, payout decimal.Decimal, refunded bool) error {
	e.mu.Lock()
	if bet.Settled {
		e.mu.Unlock()
		return nil
	}
	settledAt := e.now()
	bet.Settled = true
	bet.Payout = payout
	bet.SettledAt = &settledAt
	e.mu.Unlock()

	if err := e.capital.Release(ctx, bet.reservation, payout, bet.Bettor); err != nil {
		e.mu.Lock()
		bet.Settled = false
		bet.Payout = decimal.Zero
		bet.SettledAt = nil
		e.mu.Unlock()
		return err
	}

	e.persist(ctx, bet)
	e.emit(ctx, EventBetSettled, BetSettledEvent{
		TicketID:  bet.TicketID,
		Bettor:    bet.Bettor,
		Payout:    payout,
		Refunded:  refunded,
		SettledAt: settledAt,
	})

	return nil
}

// GetBet returns a copy of the bet for a ticket
func (e *Engine) GetBet(ticketID uuid.UUID) (*Bet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	bet, ok := e.bets[ticketID]
	if !ok {
		return nil, false
	}
	copied := *bet
	return &copied, true
}

// Pause stops accepting new bets; pending bets still settle
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.logger.Warn().Msg("Engine paused")
}

// Unpause resumes accepting bets
func (e *Engine) Unpause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.logger.Info().Msg("Engine unpaused")
}

// Paused reports whether bet placement is paused
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetBetLimits updates the wager bounds
func (e *Engine) SetBetLimits(minBet, maxBet decimal.Decimal) error {
	if minBet.Sign() <= 0 || maxBet.LessThan(minBet) {
		return errors.New(errors.ErrInvalidRequest, "bet bounds invalid")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.MinBet = minBet
	e.cfg.MaxBet = maxBet
	return nil
}

// SetProtocolFeeBps updates the protocol fee rate
func (e *Engine) SetProtocolFeeBps(bps int64) error {
	if bps < 0 || bps > 10000 {
		return errors.New(errors.ErrInvalidRequest, "protocol fee bps out of range")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg.ProtocolFeeBps = bps
	return nil
}

// SetCapitalPool rebinds the engine to a different pool; nil is rejected
func (e *Engine) SetCapitalPool(capital CapitalPool) error {
	if capital == nil {
		return errors.New(errors.ErrInvalidRequest, "capital pool cannot be nil")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.capital = capital
	return nil
}

// Limits returns the current wager bounds and fee rate
func (e *Engine) Limits() (minBet, maxBet decimal.Decimal, feeBps int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.MinBet, e.cfg.MaxBet, e.cfg.ProtocolFeeBps
}

func (e *Engine) persist(ctx context.Context, bet *Bet) {
	e.mu.Lock()
	store := e.store
	record := bet.Record()
	e.mu.Unlock()
	if store == nil {
		return
	}
	if err := store.Save(ctx, record); err != nil {
		e.logger.Error().Err(err).Str("ticket_id", record.TicketID.String()).Msg("Failed to persist bet record")
	}
}

func (e *Engine) emit(ctx context.Context, eventType string, payload interface{}) {
	e.mu.Lock()
	sink := e.events
	e.mu.Unlock()
	if sink == nil {
		return
	}
	sink.Emit(ctx, eventType, payload)
}
