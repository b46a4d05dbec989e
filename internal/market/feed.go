// Package market simulates live stock quotes for a configurable set of
// symbols and fans per-tick updates out to subscribers.
package market

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/henryhwan14/DISCORDBOT/internal/model"
)

// Price simulation bounds. New symbols seed uniformly inside
// [seedPriceMin, seedPriceMax]; ticks never move a price below priceFloor.
const (
	seedPriceMin = 15.0
	seedPriceMax = 400.0
	priceFloor   = 0.25

	seedVolumeMin = 1000
	seedVolumeMax = 10000
	tickVolumeMax = 1500
)

// UnknownSymbolError reports a lookup for a symbol the feed does not simulate.
type UnknownSymbolError struct {
	Symbol string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown symbol: %s", e.Symbol)
}

// Config configures a Feed.
type Config struct {
	// Symbols to simulate. Normalized to uppercase; duplicates collapse to
	// the first occurrence; registration order is preserved.
	Symbols []string

	// UpdateInterval is the time between ticks. Defaults to 2s.
	UpdateInterval time.Duration

	// Volatility is the standard deviation of the per-tick percentage move.
	// Zero produces a flat tape (useful in tests); callers wanting the
	// usual default pass it explicitly.
	Volatility float64

	// Seed makes the whole simulation reproducible. Zero seeds from the
	// clock.
	Seed uint64

	// SubscriberBuffer is the per-subscriber channel capacity. Defaults
	// to 16.
	SubscriberBuffer int

	Log zerolog.Logger
}

// Feed is an in-memory market that owns the authoritative quote for every
// registered symbol. A single goroutine started by Start advances all
// quotes atomically each interval; readers always see a fully-applied tick.
type Feed struct {
	mu     sync.Mutex
	quotes map[string]*model.Quote
	order  []string // symbol registration order

	interval time.Duration
	normal   distuv.Normal
	rng      *rand.Rand

	subMu  sync.RWMutex
	subs   map[*Subscription]struct{}
	subBuf int

	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	log zerolog.Logger

	// OnDrop is called when a full subscriber channel forces a batch drop.
	OnDrop func()
	// OnTick is called once per published tick batch.
	OnTick func()
}

// Subscription delivers per-tick quote batches on C. A subscriber that
// falls behind loses batches; the feed never blocks on a slow consumer.
// C is closed when the feed stops or the subscription is cancelled.
type Subscription struct {
	C  <-chan []model.Quote
	ch chan []model.Quote
}

// New creates a Feed and seeds an initial quote for every symbol.
func New(cfg Config) *Feed {
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 2 * time.Second
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = 16
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)

	f := &Feed{
		quotes:   make(map[string]*model.Quote),
		interval: cfg.UpdateInterval,
		normal:   distuv.Normal{Mu: 0, Sigma: cfg.Volatility, Src: src},
		rng:      rand.New(src),
		subs:     make(map[*Subscription]struct{}),
		subBuf:   cfg.SubscriberBuffer,
		log:      cfg.Log.With().Str("component", "market").Logger(),
	}

	seedPrice := distuv.Uniform{Min: seedPriceMin, Max: seedPriceMax, Src: src}
	for _, raw := range cfg.Symbols {
		sym := strings.ToUpper(strings.TrimSpace(raw))
		if sym == "" {
			continue
		}
		if _, dup := f.quotes[sym]; dup {
			continue
		}
		f.quotes[sym] = f.seedQuote(sym, seedPrice)
		f.order = append(f.order, sym)
	}
	return f
}

func (f *Feed) seedQuote(symbol string, seedPrice distuv.Uniform) *model.Quote {
	base := model.Round(seedPrice.Rand(), 2)
	return &model.Quote{
		Symbol:        symbol,
		Price:         base,
		Open:          base,
		High:          base,
		Low:           base,
		PreviousClose: base,
		Volume:        seedVolumeMin + f.rng.Int63n(seedVolumeMax-seedVolumeMin+1),
		UpdatedAt:     time.Now().UTC(),
	}
}

// Start launches the tick loop. It returns immediately and is a no-op if
// the feed is already running. The loop stops when ctx is cancelled or
// Stop is called.
func (f *Feed) Start(ctx context.Context) {
	f.lifeMu.Lock()
	defer f.lifeMu.Unlock()
	if f.running {
		select {
		case <-f.done: // previous loop exited with the parent context
		default:
			return
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.running = true
	go f.run(ctx, f.done)
	f.log.Info().
		Int("symbols", len(f.order)).
		Dur("interval", f.interval).
		Float64("volatility", f.normal.Sigma).
		Msg("feed started")
}

// Stop halts the tick loop and closes every subscription channel. It
// blocks until any in-flight tick has been fully applied and published.
// Safe to call multiple times.
func (f *Feed) Stop() {
	f.lifeMu.Lock()
	if !f.running {
		f.lifeMu.Unlock()
		return
	}
	f.running = false
	cancel, done := f.cancel, f.done
	f.lifeMu.Unlock()

	cancel()
	<-done
	f.log.Info().Msg("feed stopped")
}

func (f *Feed) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer f.closeSubscribers()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.publish(f.tick())
			if f.OnTick != nil {
				f.OnTick()
			}
		}
	}
}

// tick advances every symbol exactly once under the state lock and returns
// the resulting batch of quote copies, in registration order.
func (f *Feed) tick() []model.Quote {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	batch := make([]model.Quote, 0, len(f.order))
	for _, sym := range f.order {
		q := f.quotes[sym]

		move := f.normal.Rand()
		price := model.Round(math.Max(priceFloor, q.Price*(1+move)), 2)

		if price > q.High {
			q.High = price
		}
		if price < q.Low {
			q.Low = price
		}
		q.Volume += f.rng.Int63n(tickVolumeMax + 1)
		q.PreviousClose = q.Price
		q.Price = price
		q.Change = model.Round(q.Price-q.PreviousClose, 2)
		if q.PreviousClose != 0 {
			q.ChangePercent = model.Round(q.Change/q.PreviousClose*100, 3)
		} else {
			q.ChangePercent = 0
		}
		q.UpdatedAt = now

		batch = append(batch, *q)
	}
	return batch
}

// publish fans a batch out to all subscribers, dropping it for any whose
// channel is full.
func (f *Feed) publish(batch []model.Quote) {
	if len(batch) == 0 {
		return
	}
	f.subMu.RLock()
	defer f.subMu.RUnlock()
	for s := range f.subs {
		select {
		case s.ch <- batch:
		default:
			if f.OnDrop != nil {
				f.OnDrop()
			} else {
				f.log.Warn().Msg("subscriber channel full, dropping batch")
			}
		}
	}
}

// Subscribe registers a new listener for tick batches.
func (f *Feed) Subscribe() *Subscription {
	ch := make(chan []model.Quote, f.subBuf)
	s := &Subscription{C: ch, ch: ch}
	f.subMu.Lock()
	f.subs[s] = struct{}{}
	f.subMu.Unlock()
	return s
}

// Unsubscribe removes a listener and closes its channel. Unknown or
// already-removed subscriptions are ignored.
func (f *Feed) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	f.subMu.Lock()
	if _, ok := f.subs[s]; ok {
		delete(f.subs, s)
		close(s.ch)
	}
	f.subMu.Unlock()
}

func (f *Feed) closeSubscribers() {
	f.subMu.Lock()
	for s := range f.subs {
		delete(f.subs, s)
		close(s.ch)
	}
	f.subMu.Unlock()
}

// Quotes returns a snapshot of every quote in registration order.
func (f *Feed) Quotes() []model.Quote {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Quote, 0, len(f.order))
	for _, sym := range f.order {
		out = append(out, *f.quotes[sym])
	}
	return out
}

// Quote returns a snapshot of one symbol's quote. Lookup is
// case-insensitive.
func (f *Feed) Quote(symbol string) (model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[strings.ToUpper(symbol)]
	if !ok {
		return model.Quote{}, &UnknownSymbolError{Symbol: symbol}
	}
	return *q, nil
}

// Price returns the current price for symbol.
func (f *Feed) Price(symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[strings.ToUpper(symbol)]
	if !ok {
		return 0, &UnknownSymbolError{Symbol: symbol}
	}
	return q.Price, nil
}
