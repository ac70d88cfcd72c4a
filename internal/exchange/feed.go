// Package exchange hosts bar sources: a deterministic generator and the Binance kline stream.
package exchange

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"nnfx-go/internal/metrics"
	"nnfx-go/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic bars (tests, offline runs).
	ProviderStub = "stub"
	// ProviderBinance streams closed klines from Binance public websockets.
	ProviderBinance = "binance"
)

// Feed is a pluggable closed-bar stream.
type Feed struct {
	provider string
	symbols  []string
	log      zerolog.Logger
	interval string
	baseURL  string
	stubTick time.Duration
	backoff  time.Duration
	mu       sync.RWMutex
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultInterval       = "1h"
	defaultBinanceBaseURL = "wss://stream.binance.com:9443"
	defaultStubTick       = 500 * time.Millisecond
)

// WithInterval sets the kline interval (Binance notation, e.g. "1m", "4h", "1d").
func WithInterval(interval string) Option {
	return func(f *Feed) {
		if interval = strings.TrimSpace(interval); interval != "" {
			f.interval = interval
		}
	}
}

// WithBaseURL overrides the websocket endpoint.
func WithBaseURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithStubTick sets the wall-clock spacing of synthetic bars.
func WithStubTick(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubTick = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, symbols []string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider: strings.ToLower(provider),
		log:      log,
		interval: defaultInterval,
		baseURL:  defaultBinanceBaseURL,
		stubTick: defaultStubTick,
		backoff:  time.Second,
	}
	f.setSymbols(symbols)
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Symbols returns the tracked symbols, sorted.
func (f *Feed) Symbols() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

func (f *Feed) setSymbols(symbols []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	unique := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		unique[sym] = struct{}{}
	}
	f.symbols = f.symbols[:0]
	for sym := range unique {
		f.symbols = append(f.symbols, sym)
	}
	sort.Strings(f.symbols)
}

// Run pushes closed bars onto out until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- signal.Bar) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) emit(ctx context.Context, out chan<- signal.Bar, b signal.Bar) error {
	select {
	case out <- b:
		metrics.FeedBarsTotal.WithLabelValues(f.provider, b.Symbol).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StubBar is the i-th synthetic bar of symbol: a slow sine wave around 1.2 with a
// per-symbol phase. The sequence is deterministic.
func StubBar(symbol string, i int, ts int64) signal.Bar {
	var phase float64
	for _, r := range symbol {
		phase += float64(r)
	}
	x := 1.2 + 0.02*math.Sin((float64(i)+phase)/12) + 0.0004*float64(i%5)
	return signal.Bar{
		Symbol: symbol,
		Ts:     ts,
		Open:   x - 0.001,
		High:   x + 0.003,
		Low:    x - 0.003,
		Close:  x,
		Volume: 1000 + 300*math.Cos(float64(i)/4),
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- signal.Bar) error {
	ticker := time.NewTicker(f.stubTick)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			for _, s := range f.Symbols() {
				if err := f.emit(ctx, out, StubBar(s, i, ts.UnixMilli())); err != nil {
					return err
				}
			}
		}
	}
}
