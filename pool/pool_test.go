package pool

import (
	"context"
	"testing"
	"time"

	"github.com/0xHustling/LP-Betting-Pools/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type transfer struct {
	account string
	amount  decimal.Decimal
}

// fakeTreasury records transfers and can be told to fail
type fakeTreasury struct {
	debits    []transfer
	credits   []transfer
	debitErr  error
	creditErr error
}

func (f *fakeTreasury) Debit(_ context.Context, account string, amount decimal.Decimal) error {
	if f.debitErr != nil {
		return f.debitErr
	}
	f.debits = append(f.debits, transfer{account, amount})
	return nil
}

func (f *fakeTreasury) Credit(_ context.Context, account string, amount decimal.Decimal) error {
	if f.creditErr != nil {
		return f.creditErr
	}
	f.credits = append(f.credits, transfer{account, amount})
	return nil
}

const testCaller = "engine-under-test"

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testConfig() Config {
	return Config{
		MaxCapacity:    dec("1000"),
		ExitFeeBps:     100,
		BetToPoolRatio: 100,
		EpochLength:    24 * time.Hour,
		WithdrawWindow: time.Hour,
		Operator:       "operator",
	}
}

// newTestPool builds a pool with a frozen clock the test can advance
func newTestPool(t *testing.T, cfg Config) (*Pool, *fakeTreasury, *MemoryLedger, *time.Time) {
	t.Helper()

	treasury := &fakeTreasury{}
	ledger := NewMemoryLedger()
	p, err := New(cfg, ledger, treasury, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	p.epochStart = now
	p.AuthorizeCaller(testCaller)

	return p, treasury, ledger, &now
}

func TestDepositShareMath(t *testing.T) {
	tests := []struct {
		name       string
		deposits   []string
		account    string
		amount     string
		wantShares string
		wantCode   int
	}{
		{
			name:       "first deposit mints half",
			account:    "lp-1",
			amount:     "100",
			wantShares: "50",
		},
		{
			name:       "proportional after first",
			deposits:   []string{"100"},
			account:    "lp-2",
			amount:     "100",
			wantShares: "50",
		},
		{
			name:       "fractional shares floored",
			deposits:   []string{"100"},
			account:    "lp-2",
			amount:     "7",
			wantShares: "3",
		},
		{
			name:     "dust deposit rejected",
			account:  "lp-1",
			amount:   "1",
			wantCode: errors.ErrDustDeposit,
		},
		{
			name:     "capacity exceeded",
			deposits: []string{"600"},
			account:  "lp-2",
			amount:   "500",
			wantCode: errors.ErrCapacityExceeded,
		},
		{
			name:     "non-positive amount",
			account:  "lp-1",
			amount:   "0",
			wantCode: errors.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, treasury, _, _ := newTestPool(t, testConfig())
			for _, d := range tt.deposits {
				if _, err := p.Deposit(context.Background(), "lp-1", dec(d)); err != nil {
					t.Fatalf("seed deposit: %v", err)
				}
			}
			debitsBefore := len(treasury.debits)

			shares, err := p.Deposit(context.Background(), tt.account, dec(tt.amount))
			if tt.wantCode != 0 {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("expected code %d, got %v", tt.wantCode, err)
				}
				if len(treasury.debits) != debitsBefore {
					t.Errorf("rejected deposit must not touch the treasury")
				}
				return
			}
			if err != nil {
				t.Fatalf("Deposit: %v", err)
			}
			if !shares.Equal(dec(tt.wantShares)) {
				t.Errorf("shares = %s, want %s", shares, tt.wantShares)
			}
		})
	}
}

func TestDepositTwoUnitPool(t *testing.T) {
	p, _, ledger, _ := newTestPool(t, testConfig())

	shares, err := p.Deposit(context.Background(), "lp-1", dec("2"))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if !shares.Equal(dec("1")) {
		t.Errorf("shares = %s, want 1", shares)
	}

	// A one-unit deposit against a 2:1 pool floors to zero shares.
	if _, err := p.Deposit(context.Background(), "lp-2", dec("1")); !errors.Is(err, errors.ErrDustDeposit) {
		t.Errorf("expected dust rejection, got %v", err)
	}
	if !ledger.TotalSupply().Equal(dec("1")) {
		t.Errorf("total supply = %s, want 1", ledger.TotalSupply())
	}
}

func TestDepositTransferFailure(t *testing.T) {
	p, treasury, ledger, _ := newTestPool(t, testConfig())
	treasury.debitErr = errors.New(errors.ErrServiceUnavailable, "treasury down")

	_, err := p.Deposit(context.Background(), "lp-1", dec("100"))
	if !errors.Is(err, errors.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if !p.Balance().IsZero() {
		t.Errorf("balance = %s, want 0", p.Balance())
	}
	if !ledger.TotalSupply().IsZero() {
		t.Errorf("no shares may exist after a failed deposit")
	}
}

func TestWithdrawClosedDuringActiveEpoch(t *testing.T) {
	p, _, _, _ := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("100")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	_, err := p.Withdraw(context.Background(), "lp-1", dec("10"))
	if !errors.Is(err, errors.ErrWithdrawClosed) {
		t.Fatalf("expected withdraw closed, got %v", err)
	}
}

func TestWithdrawPaysProportionalMinusExitFee(t *testing.T) {
	p, treasury, ledger, now := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("100")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	*now = now.Add(24*time.Hour + time.Minute) // inside the withdraw window

	net, err := p.Withdraw(context.Background(), "lp-1", dec("25"))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	// 25 of 50 shares claim 50 gross; 1% exit fee leaves 49.5.
	if !net.Equal(dec("49.5")) {
		t.Errorf("net = %s, want 49.5", net)
	}
	if !p.Balance().Equal(dec("50")) {
		t.Errorf("balance = %s, want 50", p.Balance())
	}
	if !p.AccruedProtocolFees().Equal(dec("0.5")) {
		t.Errorf("accrued fees = %s, want 0.5", p.AccruedProtocolFees())
	}
	if !ledger.BalanceOf("lp-1").Equal(dec("25")) {
		t.Errorf("remaining shares = %s, want 25", ledger.BalanceOf("lp-1"))
	}
	last := treasury.credits[len(treasury.credits)-1]
	if last.account != "lp-1" || !last.amount.Equal(dec("49.5")) {
		t.Errorf("credit = %+v, want lp-1 / 49.5", last)
	}
}

func TestWithdrawCannotBreakReservedCapital(t *testing.T) {
	p, _, _, now := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("1000")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	// Reserve the full free capacity: (1000-0)/100 = 10.
	if _, err := p.Reserve(testCaller, dec("10"), dec("1"), decimal.Zero); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	*now = now.Add(24*time.Hour + time.Minute)

	// Withdrawing everything would leave less than the 10 still earmarked.
	_, err := p.Withdraw(context.Background(), "lp-1", dec("500"))
	if !errors.Is(err, errors.ErrInsufficientLiquidity) {
		t.Fatalf("expected solvency rejection, got %v", err)
	}

	// A small withdrawal that keeps balance >= pending goes through.
	if _, err := p.Withdraw(context.Background(), "lp-1", dec("10")); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if p.Balance().LessThan(p.PendingReserved()) {
		t.Errorf("balance %s below pending %s", p.Balance(), p.PendingReserved())
	}
}

func TestWithdrawPayoutFailureRollsBack(t *testing.T) {
	p, treasury, ledger, now := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("100")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	*now = now.Add(24*time.Hour + time.Minute)
	treasury.creditErr = errors.New(errors.ErrServiceUnavailable, "treasury down")

	_, err := p.Withdraw(context.Background(), "lp-1", dec("25"))
	if !errors.Is(err, errors.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if !p.Balance().Equal(dec("100")) {
		t.Errorf("balance = %s, want 100 after rollback", p.Balance())
	}
	if !ledger.BalanceOf("lp-1").Equal(dec("50")) {
		t.Errorf("shares = %s, want 50 after rollback", ledger.BalanceOf("lp-1"))
	}
	if !p.AccruedProtocolFees().IsZero() {
		t.Errorf("accrued fees = %s, want 0 after rollback", p.AccruedProtocolFees())
	}
}

func TestReserveGates(t *testing.T) {
	p, _, _, now := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("1000")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	if _, err := p.Reserve("unknown-caller", dec("5"), dec("1"), decimal.Zero); !errors.Is(err, errors.ErrForbidden) {
		t.Errorf("unauthorized caller: got %v", err)
	}

	// Free capacity is (1000-0)/100 = 10.
	if _, err := p.Reserve(testCaller, dec("11"), dec("1"), decimal.Zero); !errors.Is(err, errors.ErrInsufficientLiquidity) {
		t.Errorf("over-capacity reservation: got %v", err)
	}

	res, err := p.Reserve(testCaller, dec("10"), dec("1"), dec("0.02"))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !p.PendingReserved().Equal(dec("10")) {
		t.Errorf("pending = %s, want 10", p.PendingReserved())
	}
	// Stake net of fee lands in the pool, the fee accrues separately.
	if !p.Balance().Equal(dec("1000.98")) {
		t.Errorf("balance = %s, want 1000.98", p.Balance())
	}
	if !p.AccruedProtocolFees().Equal(dec("0.02")) {
		t.Errorf("accrued fees = %s, want 0.02", p.AccruedProtocolFees())
	}
	if !res.MaxPayout().Equal(dec("10")) {
		t.Errorf("reservation max payout = %s, want 10", res.MaxPayout())
	}

	// Reservations close once the epoch ends.
	*now = now.Add(24*time.Hour + time.Minute)
	if _, err := p.Reserve(testCaller, dec("1"), dec("1"), decimal.Zero); !errors.Is(err, errors.ErrEpochClosed) {
		t.Errorf("epoch-closed reservation: got %v", err)
	}
}

func TestReleaseConsumesHandleExactlyOnce(t *testing.T) {
	p, treasury, _, _ := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("1000")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	res, err := p.Reserve(testCaller, dec("10"), dec("1"), decimal.Zero)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := p.Release(context.Background(), res, dec("10"), "bettor-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !p.PendingReserved().IsZero() {
		t.Errorf("pending = %s, want 0", p.PendingReserved())
	}
	if !p.Balance().Equal(dec("991")) {
		t.Errorf("balance = %s, want 991", p.Balance())
	}
	last := treasury.credits[len(treasury.credits)-1]
	if last.account != "bettor-1" || !last.amount.Equal(dec("10")) {
		t.Errorf("credit = %+v, want bettor-1 / 10", last)
	}

	// Replaying the consumed handle is rejected, not double-spent.
	if err := p.Release(context.Background(), res, dec("10"), "bettor-1"); !errors.Is(err, errors.ErrReservationUnknown) {
		t.Errorf("second release: got %v", err)
	}

	// A handle the pool never issued is rejected even with a colliding id.
	forged := &Reservation{id: uuid.New()}
	if err := p.Release(context.Background(), forged, dec("1"), "bettor-1"); !errors.Is(err, errors.ErrReservationUnknown) {
		t.Errorf("forged release: got %v", err)
	}
}

func TestReleaseZeroPayoutKeepsStake(t *testing.T) {
	p, treasury, _, _ := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("1000")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	res, err := p.Reserve(testCaller, dec("10"), dec("1"), decimal.Zero)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	creditsBefore := len(treasury.credits)

	if err := p.Release(context.Background(), res, decimal.Zero, "bettor-1"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if len(treasury.credits) != creditsBefore {
		t.Errorf("zero payout must not touch the treasury")
	}
	if !p.Balance().Equal(dec("1001")) {
		t.Errorf("balance = %s, want 1001", p.Balance())
	}
}

func TestReleasePayoutFailureRestoresReservation(t *testing.T) {
	p, treasury, _, _ := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("1000")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	res, err := p.Reserve(testCaller, dec("10"), dec("1"), decimal.Zero)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	treasury.creditErr = errors.New(errors.ErrServiceUnavailable, "treasury down")

	if err := p.Release(context.Background(), res, dec("10"), "bettor-1"); !errors.Is(err, errors.ErrTransferFailed) {
		t.Fatalf("expected transfer failure, got %v", err)
	}
	if !p.PendingReserved().Equal(dec("10")) {
		t.Errorf("pending = %s, want 10 after rollback", p.PendingReserved())
	}

	// The handle survives the failed release and can settle later.
	treasury.creditErr = nil
	if err := p.Release(context.Background(), res, dec("10"), "bettor-1"); err != nil {
		t.Errorf("retry release: %v", err)
	}
}

func TestCancelReservationReversesAccounting(t *testing.T) {
	p, _, _, _ := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("1000")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	res, err := p.Reserve(testCaller, dec("10"), dec("1"), dec("0.02"))
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := p.CancelReservation(res); err != nil {
		t.Fatalf("CancelReservation: %v", err)
	}

	if !p.Balance().Equal(dec("1000")) {
		t.Errorf("balance = %s, want 1000", p.Balance())
	}
	if !p.PendingReserved().IsZero() {
		t.Errorf("pending = %s, want 0", p.PendingReserved())
	}
	if !p.AccruedProtocolFees().IsZero() {
		t.Errorf("accrued fees = %s, want 0", p.AccruedProtocolFees())
	}
	if err := p.CancelReservation(res); !errors.Is(err, errors.ErrReservationUnknown) {
		t.Errorf("second cancel: got %v", err)
	}
}

func TestFinalizeEpoch(t *testing.T) {
	p, _, _, now := newTestPool(t, testConfig())
	start := p.epochStart

	if err := p.FinalizeEpoch(); !errors.Is(err, errors.ErrEpochNotFinalizable) {
		t.Errorf("finalize during active epoch: got %v", err)
	}

	*now = start.Add(24*time.Hour + 30*time.Minute) // withdraw window open
	if err := p.FinalizeEpoch(); !errors.Is(err, errors.ErrEpochNotFinalizable) {
		t.Errorf("finalize during withdraw window: got %v", err)
	}

	*now = start.Add(25*time.Hour + time.Minute)
	if err := p.FinalizeEpoch(); err != nil {
		t.Fatalf("FinalizeEpoch: %v", err)
	}
	if !p.epochStart.Equal(start.Add(24 * time.Hour)) {
		t.Errorf("epoch start = %v, want one period forward", p.epochStart)
	}
	if p.EpochStateNow() != EpochActive {
		t.Errorf("state = %v, want active after finalize", p.EpochStateNow())
	}
}

func TestFinalizeEpochSkipsWholePeriods(t *testing.T) {
	p, _, _, now := newTestPool(t, testConfig())
	start := p.epochStart

	// Five and a half epochs pass with nobody finalizing.
	*now = start.Add(5*24*time.Hour + 12*time.Hour)
	if err := p.FinalizeEpoch(); err != nil {
		t.Fatalf("FinalizeEpoch: %v", err)
	}
	if !p.epochStart.Equal(start.Add(5 * 24 * time.Hour)) {
		t.Errorf("epoch start = %v, want five whole periods forward", p.epochStart)
	}
}

func TestWithdrawAccruedFees(t *testing.T) {
	p, treasury, _, _ := newTestPool(t, testConfig())
	if _, err := p.Deposit(context.Background(), "lp-1", dec("1000")); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	if _, err := p.WithdrawAccruedFees(context.Background(), "operator"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty fee sweep: got %v", err)
	}

	if _, err := p.Reserve(testCaller, dec("10"), dec("1"), dec("0.02")); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	amount, err := p.WithdrawAccruedFees(context.Background(), "operator")
	if err != nil {
		t.Fatalf("WithdrawAccruedFees: %v", err)
	}
	if !amount.Equal(dec("0.02")) {
		t.Errorf("swept = %s, want 0.02", amount)
	}
	if !p.AccruedProtocolFees().IsZero() {
		t.Errorf("accrued fees = %s, want 0", p.AccruedProtocolFees())
	}
	last := treasury.credits[len(treasury.credits)-1]
	if last.account != "operator" || !last.amount.Equal(dec("0.02")) {
		t.Errorf("credit = %+v, want operator / 0.02", last)
	}
}
