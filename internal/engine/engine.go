// Package engine runs one strategy parameter set end to end and scores it. Optimizers
// call Evaluate in their own loop; no search state lives here.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"nnfx-go/internal/account"
	"nnfx-go/internal/execution"
	"nnfx-go/internal/risk"
	"nnfx-go/internal/signal"
	"nnfx-go/internal/strategy"

	"github.com/rs/zerolog"
)

// Broker is the execution venue. It receives intents and, once per timestep, reports
// what happened to them. Fills are the broker's business.
type Broker interface {
	execution.Sink
	Advance(ctx context.Context, bars []signal.Bar) (Report, error)
}

// Report is the venue's view after processing one timestep.
type Report struct {
	Notifications []execution.Notification
	Closed        []execution.TradeClosed
	// Positions holds signed units for every symbol whose position changed.
	Positions map[string]float64
}

// Options configure the simulated account.
type Options struct {
	AccountCurrency string
	StartingCash    float64
	Limits          risk.Limits
	Log             zerolog.Logger
}

const defaultStartingCash = 10000

// Result is the outcome of one run.
type Result struct {
	Steps     int
	Entries   int
	Exits     int
	Skipped   int
	Summary   account.Summary
	Decisions []strategy.Decision
}

// Evaluate replays steps through the trader and returns the requested metric.
func Evaluate(ctx context.Context, params strategy.Params, steps [][]signal.Bar, broker Broker, metric account.Metric, opts Options) (float64, error) {
	res, err := Run(ctx, params, steps, broker, opts)
	if err != nil {
		return 0, err
	}
	return res.Summary.Value(metric)
}

// Run replays steps, one timestep per element. Each timestep the broker reports first
// so the account and order book reflect the venue before new decisions are made.
func Run(ctx context.Context, params strategy.Params, steps [][]signal.Bar, broker Broker, opts Options) (Result, error) {
	if broker == nil {
		return Result{}, errors.New("engine: broker is required")
	}
	if opts.StartingCash <= 0 {
		opts.StartingCash = defaultStartingCash
	}
	if opts.AccountCurrency == "" {
		opts.AccountCurrency = "USD"
	}

	acct := account.NewAccount(opts.StartingCash)
	orders := execution.NewManager(broker, opts.Log)
	sizer := risk.Sizer{Account: opts.AccountCurrency, Limits: opts.Limits}
	trader, err := strategy.NewTrader(params, symbolsOf(steps), acct, orders, sizer, opts.Log)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i, bars := range steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		report, err := broker.Advance(ctx, bars)
		if err != nil {
			return res, fmt.Errorf("broker step %d: %w", i, err)
		}
		if err := apply(report, acct, trader); err != nil {
			return res, fmt.Errorf("apply step %d: %w", i, err)
		}

		decisions, err := trader.Step(ctx, bars)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", i, err)
		}
		res.Steps++
		for _, d := range decisions {
			switch d.Action {
			case strategy.ActionEnter:
				res.Entries++
			case strategy.ActionExit:
				res.Exits++
			case strategy.ActionSkip:
				res.Skipped++
			}
		}
		res.Decisions = append(res.Decisions, decisions...)
	}
	res.Summary = acct.Ledger().Summary()
	opts.Log.Info().Int("steps", res.Steps).Int("entries", res.Entries).Int("trades", res.Summary.Trades).
		Float64("rnorm", res.Summary.NormalizedReturn).Float64("sqn", res.Summary.SQN).Msg("run complete")
	return res, nil
}

func apply(r Report, acct *account.Account, trader *strategy.Trader) error {
	for sym, units := range r.Positions {
		acct.SetPosition(sym, units)
	}
	for _, tc := range r.Closed {
		acct.TradeClosed(tc)
	}
	var errs []error
	for _, n := range r.Notifications {
		if _, err := trader.Notify(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func symbolsOf(steps [][]signal.Bar) []string {
	var syms []string
	for _, bars := range steps {
		for _, b := range bars {
			if !slices.Contains(syms, b.Symbol) {
				syms = append(syms, b.Symbol)
			}
		}
	}
	slices.Sort(syms)
	return syms
}
