package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

func newTestFeed(volatility float64, seed uint64) *Feed {
	return New(Config{
		Symbols:    []string{"ACME", "BNB", "CRYPTO"},
		Volatility: volatility,
		Seed:       seed,
	})
}

func TestNewSeedsQuotesInRange(t *testing.T) {
	f := newTestFeed(0.015, 7)
	quotes := f.Quotes()
	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(quotes))
	}
	for _, q := range quotes {
		if q.Price < seedPriceMin || q.Price > seedPriceMax {
			t.Errorf("%s: seed price %.2f outside [%.2f, %.2f]", q.Symbol, q.Price, float64(seedPriceMin), float64(seedPriceMax))
		}
		if q.Open != q.Price || q.High != q.Price || q.Low != q.Price || q.PreviousClose != q.Price {
			t.Errorf("%s: open/high/low/previous_close not seeded to price: %+v", q.Symbol, q)
		}
		if q.Change != 0 || q.ChangePercent != 0 {
			t.Errorf("%s: expected zero change on seed, got %.2f / %.3f", q.Symbol, q.Change, q.ChangePercent)
		}
		if q.Volume < seedVolumeMin || q.Volume > seedVolumeMax {
			t.Errorf("%s: seed volume %d outside [%d, %d]", q.Symbol, q.Volume, seedVolumeMin, seedVolumeMax)
		}
	}
}

func TestNewNormalizesSymbols(t *testing.T) {
	f := New(Config{Symbols: []string{" acme ", "BNB", "acme", "", "bnb"}, Seed: 1})
	quotes := f.Quotes()
	if len(quotes) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 quotes, got %d", len(quotes))
	}
	if quotes[0].Symbol != "ACME" || quotes[1].Symbol != "BNB" {
		t.Errorf("expected registration order ACME, BNB; got %s, %s", quotes[0].Symbol, quotes[1].Symbol)
	}
}

func TestDeterministicSeed(t *testing.T) {
	f1 := newTestFeed(0.015, 42)
	f2 := newTestFeed(0.015, 42)

	for i := 0; i < 5; i++ {
		f1.tick()
		f2.tick()
	}

	q1, q2 := f1.Quotes(), f2.Quotes()
	for i := range q1 {
		a, b := q1[i], q2[i]
		if a.Symbol != b.Symbol || a.Price != b.Price || a.High != b.High ||
			a.Low != b.Low || a.Volume != b.Volume || a.Change != b.Change ||
			a.ChangePercent != b.ChangePercent || a.PreviousClose != b.PreviousClose {
			t.Errorf("seeded feeds diverged at %s:\n%+v\n%+v", a.Symbol, a, b)
		}
	}
}

func TestZeroVolatilityTickHoldsPrice(t *testing.T) {
	f := newTestFeed(0, 11)
	before := f.Quotes()

	batch := f.tick()

	for i, q := range batch {
		if q.Price != before[i].Price {
			t.Errorf("%s: price moved with zero volatility: %.2f -> %.2f", q.Symbol, before[i].Price, q.Price)
		}
		if q.Change != 0 || q.ChangePercent != 0 {
			t.Errorf("%s: expected zero change, got %.2f / %.3f", q.Symbol, q.Change, q.ChangePercent)
		}
		if q.PreviousClose != before[i].Price {
			t.Errorf("%s: previous_close not set to prior price", q.Symbol)
		}
		if q.Volume < before[i].Volume {
			t.Errorf("%s: volume decreased: %d -> %d", q.Symbol, before[i].Volume, q.Volume)
		}
	}
}

func TestTickCoversEverySymbolOnce(t *testing.T) {
	f := newTestFeed(0.015, 3)
	batch := f.tick()
	if len(batch) != 3 {
		t.Fatalf("expected batch of 3, got %d", len(batch))
	}
	seen := make(map[string]int)
	for _, q := range batch {
		seen[q.Symbol]++
	}
	for sym, n := range seen {
		if n != 1 {
			t.Errorf("%s appeared %d times in one batch", sym, n)
		}
	}
}

func TestTickInvariants(t *testing.T) {
	// High volatility to exercise the price floor and the extremes.
	f := newTestFeed(5.0, 99)
	for i := 0; i < 200; i++ {
		for _, q := range f.tick() {
			if q.Price < priceFloor {
				t.Fatalf("%s: price %.2f below floor %.2f", q.Symbol, q.Price, float64(priceFloor))
			}
			if q.High < q.Price || q.Low > q.Price {
				t.Fatalf("%s: extremes broken: low=%.2f price=%.2f high=%.2f", q.Symbol, q.Low, q.Price, q.High)
			}
			if q.Low > q.Open || q.High < q.Open {
				t.Fatalf("%s: open %.2f outside [low=%.2f, high=%.2f]", q.Symbol, q.Open, q.Low, q.High)
			}
			if want := model.Round(q.Price-q.PreviousClose, 2); q.Change != want {
				t.Fatalf("%s: change %.2f, want %.2f", q.Symbol, q.Change, want)
			}
			if want := model.Round(q.Change/q.PreviousClose*100, 3); q.ChangePercent != want {
				t.Fatalf("%s: change_percent %.3f, want %.3f", q.Symbol, q.ChangePercent, want)
			}
		}
	}
}

func TestUnknownSymbol(t *testing.T) {
	f := newTestFeed(0.015, 5)

	_, err := f.Quote("NOPE")
	var unknown *UnknownSymbolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownSymbolError, got %v", err)
	}
	if unknown.Symbol != "NOPE" {
		t.Errorf("expected symbol NOPE in error, got %s", unknown.Symbol)
	}

	if _, err := f.Price("nope"); !errors.As(err, &unknown) {
		t.Errorf("expected UnknownSymbolError from Price, got %v", err)
	}

	// Lookup is case-insensitive for known symbols.
	if _, err := f.Quote("acme"); err != nil {
		t.Errorf("expected case-insensitive lookup, got %v", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	f := newTestFeed(0.015, 13)
	q, err := f.Quote("ACME")
	if err != nil {
		t.Fatal(err)
	}
	q.Price = -1

	again, err := f.Quote("ACME")
	if err != nil {
		t.Fatal(err)
	}
	if again.Price == -1 {
		t.Error("mutating a returned quote leaked into the feed")
	}
}

func TestSubscriberReceivesBatches(t *testing.T) {
	f := New(Config{
		Symbols:        []string{"ACME"},
		UpdateInterval: 10 * time.Millisecond,
		Volatility:     0.015,
		Seed:           21,
	})
	sub := f.Subscribe()
	f.Start(context.Background())
	defer f.Stop()

	select {
	case batch := <-sub.C:
		if len(batch) != 1 || batch[0].Symbol != "ACME" {
			t.Errorf("unexpected batch: %+v", batch)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tick batch")
	}
}

func TestOnTickHookFires(t *testing.T) {
	f := New(Config{
		Symbols:        []string{"ACME"},
		UpdateInterval: 10 * time.Millisecond,
		Volatility:     0.015,
		Seed:           3,
	})
	ticked := make(chan struct{}, 1)
	f.OnTick = func() {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}
	f.Start(context.Background())
	defer f.Stop()

	select {
	case <-ticked:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tick hook")
	}
}

func TestSlowSubscriberDropsBatches(t *testing.T) {
	f := New(Config{
		Symbols:          []string{"ACME"},
		Volatility:       0.015,
		Seed:             8,
		SubscriberBuffer: 1,
	})
	drops := 0
	f.OnDrop = func() { drops++ }

	sub := f.Subscribe()
	f.publish(f.tick()) // fills the buffer
	f.publish(f.tick()) // must drop, not block
	f.publish(f.tick()) // must drop, not block

	if drops != 2 {
		t.Errorf("expected 2 drops, got %d", drops)
	}

	// The first batch is still deliverable.
	select {
	case batch := <-sub.C:
		if len(batch) != 1 {
			t.Errorf("expected batch of 1, got %d", len(batch))
		}
	default:
		t.Error("expected a buffered batch")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	f := newTestFeed(0.015, 2)
	sub := f.Subscribe()
	f.Unsubscribe(sub)
	if _, ok := <-sub.C; ok {
		t.Error("expected closed channel after unsubscribe")
	}
	// Double unsubscribe must not panic.
	f.Unsubscribe(sub)

	f.publish(f.tick()) // no subscribers left; must not panic
}

func TestStopClosesSubscribersAndIsIdempotent(t *testing.T) {
	f := New(Config{
		Symbols:        []string{"ACME"},
		UpdateInterval: 5 * time.Millisecond,
		Volatility:     0.015,
		Seed:           4,
	})
	sub := f.Subscribe()
	f.Start(context.Background())
	f.Start(context.Background()) // second start is a no-op
	f.Stop()
	f.Stop() // second stop is a no-op

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return // channel closed as expected
			}
		case <-deadline:
			t.Fatal("subscription channel not closed after Stop")
		}
	}
}
