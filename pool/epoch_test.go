package pool

import (
	"testing"
	"time"
)

func TestEpochStateAt(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	length := 24 * time.Hour
	window := time.Hour

	tests := []struct {
		name string
		now  time.Time
		want EpochState
	}{
		{"at start", start, EpochActive},
		{"mid epoch", start.Add(12 * time.Hour), EpochActive},
		{"last instant of epoch", start.Add(length - time.Nanosecond), EpochActive},
		{"epoch boundary", start.Add(length), EpochWithdrawWindow},
		{"mid window", start.Add(length + 30*time.Minute), EpochWithdrawWindow},
		{"window boundary", start.Add(length + window), EpochFinalizable},
		{"long after", start.Add(10 * length), EpochFinalizable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := epochStateAt(start, length, window, tt.now); got != tt.want {
				t.Errorf("epochStateAt = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextEpochStart(t *testing.T) {
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	length := 24 * time.Hour

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"one period elapsed", start.Add(25 * time.Hour), start.Add(length)},
		{"exactly one period", start.Add(length), start.Add(length)},
		{"five and a half periods", start.Add(5*length + 12*time.Hour), start.Add(5 * length)},
		{"not yet elapsed", start.Add(time.Hour), start},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextEpochStart(start, length, tt.now); !got.Equal(tt.want) {
				t.Errorf("nextEpochStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEpochStateString(t *testing.T) {
	tests := []struct {
		state EpochState
		want  string
	}{
		{EpochActive, "active"},
		{EpochWithdrawWindow, "withdraw_window"},
		{EpochFinalizable, "finalizable"},
		{EpochState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("EpochState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
