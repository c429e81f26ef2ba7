package engine

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewPaytableValidation(t *testing.T) {
	tests := []struct {
		name        string
		multipliers []float64
		wantErr     bool
	}{
		{"standard table", []float64{25, 15, 10, 8, 5, 3}, false},
		{"too few entries", []float64{25, 15, 10}, true},
		{"too many entries", []float64{25, 15, 10, 8, 5, 3, 2}, true},
		{"zero multiplier", []float64{25, 15, 10, 8, 5, 0}, true},
		{"negative multiplier", []float64{25, 15, 10, 8, 5, -3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPaytable(tt.multipliers)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPaytable error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSymbolOf(t *testing.T) {
	tests := []struct {
		value uint64
		want  int
	}{
		{0, 1},
		{1, 2},
		{5, 6},
		{6, 1},
		{7, 2},
		{600000000007, 2},
	}

	for _, tt := range tests {
		if got := SymbolOf(tt.value); got != tt.want {
			t.Errorf("SymbolOf(%d) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestPaytableTop(t *testing.T) {
	pt := DefaultPaytable()
	if !pt.Top().Equal(decimal.NewFromInt(25)) {
		t.Errorf("Top = %s, want 25", pt.Top())
	}

	// Top is positional-independent.
	shuffled, err := NewPaytable([]float64{3, 5, 25, 8, 10, 15})
	if err != nil {
		t.Fatalf("NewPaytable: %v", err)
	}
	if !shuffled.Top().Equal(decimal.NewFromInt(25)) {
		t.Errorf("Top = %s, want 25", shuffled.Top())
	}
}

func TestResolve(t *testing.T) {
	pt := DefaultPaytable()
	stakeNet := decimal.NewFromInt(2)

	tests := []struct {
		name    string
		symbols [3]int
		want    string
	}{
		{"triple rank one", [3]int{1, 1, 1}, "50"},
		{"triple rank four", [3]int{4, 4, 4}, "16"},
		{"triple rank six", [3]int{6, 6, 6}, "6"},
		{"leading pair", [3]int{2, 2, 5}, "2"},
		{"trailing pair", [3]int{5, 2, 2}, "2"},
		{"outer pair", [3]int{3, 1, 3}, "2"},
		{"no match", [3]int{1, 2, 3}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pt.Resolve(tt.symbols, stakeNet)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("Resolve(%v) = %s, want %s", tt.symbols, got, want)
			}
		})
	}
}
