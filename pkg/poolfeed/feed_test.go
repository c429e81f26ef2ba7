package poolfeed

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBroadcasterFansOut(t *testing.T) {
	b := NewBroadcaster(4)
	defer b.Close()

	ch1, cancel1 := b.Listen(context.Background())
	defer cancel1()
	ch2, cancel2 := b.Listen(context.Background())
	defer cancel2()

	update := Update{Balance: decimal.NewFromInt(100), EpochState: "active"}
	b.Send(update)

	for i, ch := range []<-chan Update{ch1, ch2} {
		select {
		case got := <-ch:
			if !got.Balance.Equal(update.Balance) {
				t.Errorf("listener %d: balance = %s, want 100", i, got.Balance)
			}
		case <-time.After(time.Second):
			t.Fatalf("listener %d: timed out waiting for update", i)
		}
	}
}

func TestBroadcasterDropsWhenListenerFull(t *testing.T) {
	b := NewBroadcaster(1)
	defer b.Close()

	ch, cancel := b.Listen(context.Background())
	defer cancel()

	// The second send overflows the single-slot buffer and is dropped
	// rather than blocking the publisher.
	b.Send(Update{EpochState: "first"})
	b.Send(Update{EpochState: "second"})

	got := <-ch
	if got.EpochState != "first" {
		t.Errorf("got %q, want the first snapshot", got.EpochState)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra snapshot %q", extra.EpochState)
	default:
	}
}

func TestBroadcasterCancelStopsListener(t *testing.T) {
	b := NewBroadcaster(4)
	defer b.Close()

	ch, cancel := b.Listen(context.Background())
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return // channel closed as expected
			}
		case <-deadline:
			t.Fatal("listener channel was not closed after cancel")
		}
	}
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster(4)
	ch, cancel := b.Listen(context.Background())
	defer cancel()

	b.Close()

	if _, ok := <-ch; ok {
		t.Error("listener channel must be closed after Close")
	}

	// Further sends and listens are inert.
	b.Send(Update{})
	late, lateCancel := b.Listen(context.Background())
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Error("listening on a closed broadcaster must return a closed channel")
	}
}
