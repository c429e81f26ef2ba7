package poolfeed

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Update is a snapshot of pool accounting published after every mutation.
type Update struct {
	Balance         decimal.Decimal `json:"balance"`
	PendingReserved decimal.Decimal `json:"pending_reserved"`
	TotalShares     decimal.Decimal `json:"total_shares"`
	AccruedFees     decimal.Decimal `json:"accrued_fees"`
	EpochState      string          `json:"epoch_state"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Broadcaster is a minimal pub/sub for pool snapshots. Every listener gets
// its own buffered channel.
type Broadcaster struct {
	mu        sync.Mutex
	buffer    int
	nextID    int
	listeners map[int]chan Update
	closed    bool
}

// NewBroadcaster creates a broadcaster whose listener channels hold up to
// buffer snapshots each.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broadcaster{
		buffer:    buffer,
		listeners: make(map[int]chan Update),
	}
}

// Send publishes an update to all listeners (non-blocking with drop on full
// buffer). Dropping is acceptable since every update carries the full state.
func (b *Broadcaster) Send(update Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range lo.Values(b.listeners) {
		select {
		case ch <- update:
		default:
			// drop if listener is slow; keep simple
		}
	}
}

// Listen returns a channel plus a cancel function to stop listening.
func (b *Broadcaster) Listen(ctx context.Context) (<-chan Update, context.CancelFunc) {
	listenerCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		out := make(chan Update)
		close(out)
		return out, cancel
	}
	id := b.nextID
	b.nextID++
	ch := make(chan Update, b.buffer)
	b.listeners[id] = ch
	b.mu.Unlock()

	go func() {
		<-listenerCtx.Done()
		b.mu.Lock()
		if existing, ok := b.listeners[id]; ok {
			delete(b.listeners, id)
			close(existing)
		}
		b.mu.Unlock()
	}()

	return ch, cancel
}

// Close shuts down the broadcaster and closes all listener channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.listeners {
		delete(b.listeners, id)
		close(ch)
	}
}
