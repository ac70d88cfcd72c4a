package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nnfx-go/internal/account"
	"nnfx-go/internal/config"
	"nnfx-go/internal/engine"
	"nnfx-go/internal/exchange"
	"nnfx-go/internal/execution"
	"nnfx-go/internal/risk"
	sig "nnfx-go/internal/signal"
	"nnfx-go/internal/strategy"
)

func loadParams(t *testing.T) strategy.Params {
	t.Helper()
	cfg, err := config.Load(filepath.Join("..", "config", "testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg.Strategy
}

func TestFeedToJournalFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	symbols := []string{"EURUSD", "GBPUSD", "USDJPY"}
	feed := exchange.NewFeed(exchange.ProviderStub, symbols, zerolog.Nop(), exchange.WithStubTick(time.Millisecond))
	bars := make(chan sig.Bar, 64)
	steps := make(chan []sig.Bar, 8)
	go func() { _ = feed.Run(ctx, bars) }()
	go func() { _ = exchange.NewStepper(feed.Symbols()).Run(ctx, bars, steps) }()

	path := filepath.Join(t.TempDir(), "intents.jsonl")
	journal, err := execution.NewJSONLSink(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	orders := execution.NewManager(execution.Fanout{execution.NewExecutor(logger), journal}, logger)
	trader, err := strategy.NewTrader(loadParams(t), feed.Symbols(), account.NewAccount(10000), orders,
		risk.Sizer{Account: "USD"}, logger)
	if err != nil {
		t.Fatalf("NewTrader: %v", err)
	}

	var emitted int
	for n := 0; n < 250; n++ {
		select {
		case step := <-steps:
			if len(step) != len(symbols) {
				t.Fatalf("step %d has %d bars", n, len(step))
			}
			decisions, err := trader.Step(ctx, step)
			if err != nil {
				t.Fatalf("step %d: %v", n, err)
			}
			for _, d := range decisions {
				emitted += len(d.Intents)
			}
		case <-ctx.Done():
			t.Fatalf("timed out after %d steps", n)
		}
	}
	if err := journal.Close(); err != nil {
		t.Fatalf("close journal: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer f.Close()
	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var in execution.Intent
		if err := json.Unmarshal(scanner.Bytes(), &in); err != nil {
			t.Fatalf("decode journal line %d: %v", lines, err)
		}
		lines++
	}
	if lines != emitted {
		t.Fatalf("journal has %d intents, decisions reported %d", lines, emitted)
	}
	if emitted > 0 && !strings.Contains(buf.String(), "submit intent") {
		t.Fatalf("expected executor log lines, got %s", buf.String())
	}
}

// fillBroker fills market entries at the next bar's close, books the result when a close
// intent arrives, and reports each change as a position update.
type fillBroker struct {
	pending  []execution.Intent
	open     map[string]execution.Intent
	prices   map[string]float64
	received int
}

func (b *fillBroker) Submit(in execution.Intent) error {
	b.received++
	b.pending = append(b.pending, in)
	return nil
}

func (b *fillBroker) Advance(_ context.Context, bars []sig.Bar) (engine.Report, error) {
	for _, bar := range bars {
		b.prices[bar.Symbol] = bar.Close
	}
	r := engine.Report{Positions: map[string]float64{}}
	for _, in := range b.pending {
		px := b.prices[in.Symbol]
		switch {
		case in.Role == execution.RoleEntry:
			in.Price = px
			b.open[in.Symbol] = in
			units := in.Size.InexactFloat64()
			if in.Side == execution.Sell {
				units = -units
			}
			r.Positions[in.Symbol] = units
			r.Notifications = append(r.Notifications, execution.Notification{Ref: in.Ref, Status: execution.Completed, Price: px})
		case in.Type == execution.Close:
			entry, ok := b.open[in.Symbol]
			if !ok {
				continue
			}
			pnl := (px - entry.Price) * entry.Size.InexactFloat64()
			if entry.Side == execution.Sell {
				pnl = -pnl
			}
			delete(b.open, in.Symbol)
			r.Positions[in.Symbol] = 0
			r.Closed = append(r.Closed, execution.TradeClosed{Symbol: in.Symbol, RealizedPnL: pnl})
		case in.Type == execution.Cancel:
			r.Notifications = append(r.Notifications, execution.Notification{Ref: in.TargetRef, Status: execution.Canceled})
		}
	}
	b.pending = b.pending[:0]
	return r, nil
}

func TestEvaluateOverStubHistory(t *testing.T) {
	symbols := []string{"EURUSD", "GBPUSD"}
	steps := make([][]sig.Bar, 400)
	for i := range steps {
		for _, s := range symbols {
			steps[i] = append(steps[i], exchange.StubBar(s, i, int64(i)*3_600_000))
		}
	}
	broker := &fillBroker{open: map[string]execution.Intent{}, prices: map[string]float64{}}
	res, err := engine.Run(context.Background(), loadParams(t), steps, broker, engine.Options{Log: zerolog.Nop()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Steps != len(steps) {
		t.Fatalf("expected %d steps, got %d", len(steps), res.Steps)
	}
	if res.Summary.Trades > res.Entries {
		t.Fatalf("more closed trades (%d) than entries (%d)", res.Summary.Trades, res.Entries)
	}
	for _, m := range []account.Metric{account.NormalizedReturn, account.SQN, account.MaxDrawdown} {
		v, err := res.Summary.Value(m)
		if err != nil || math.IsNaN(v) {
			t.Fatalf("metric %s: %v %v", m, v, err)
		}
	}
	if res.Entries > 0 && broker.received == 0 {
		t.Fatalf("entries reported but broker saw no intents")
	}
}
