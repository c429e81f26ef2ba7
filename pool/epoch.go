package pool

import "time"

// EpochState describes where the epoch clock currently sits.
//
// Active          -> reservations allowed, withdrawals blocked
// WithdrawWindow  -> withdrawals allowed, reservations blocked
// Finalizable     -> withdrawals still allowed; FinalizeEpoch re-opens Active
type EpochState int

const (
	EpochActive EpochState = iota
	EpochWithdrawWindow
	EpochFinalizable
)

// String returns a readable epoch state name
func (s EpochState) String() string {
	switch s {
	case EpochActive:
		return "active"
	case EpochWithdrawWindow:
		return "withdraw_window"
	case EpochFinalizable:
		return "finalizable"
	default:
		return "unknown"
	}
}

// epochStateAt computes the epoch state for a given instant
func epochStateAt(start time.Time, length, window time.Duration, now time.Time) EpochState {
	end := start.Add(length)
	switch {
	case now.Before(end):
		return EpochActive
	case now.Before(end.Add(window)):
		return EpochWithdrawWindow
	default:
		return EpochFinalizable
	}
}

// nextEpochStart skips forward to the most recent elapsed epoch boundary.
// Whole-period floor division keeps this O(1) no matter how many epochs
// passed without a finalize call.
func nextEpochStart(start time.Time, length time.Duration, now time.Time) time.Time {
	elapsed := now.Sub(start)
	if elapsed < length {
		return start
	}
	periods := elapsed / length
	return start.Add(periods * length)
}
