// Package strategy turns per-instrument signals into entry and exit decisions and hands
// them to the bracket order manager.
package strategy

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"nnfx-go/internal/execution"
	"nnfx-go/internal/metrics"
	"nnfx-go/internal/risk"
	"nnfx-go/internal/signal"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Account reports the externally held position and equity. The trader never changes it.
type Account interface {
	Position(symbol string) signal.Direction
	Equity() float64
}

// Action is what the trader did for one instrument on one bar.
type Action string

const (
	ActionNone  Action = "none"
	ActionEnter Action = "enter"
	ActionExit  Action = "exit"
	ActionSkip  Action = "skip"
)

// Decision records the outcome of one instrument's bar.
type Decision struct {
	Symbol    string
	Ts        int64
	Position  signal.Direction
	Direction signal.Direction
	Reason    Reason
	Action    Action
	Intents   []execution.Intent
	Err       error
}

// Trader runs the decision rules for a fixed set of instruments.
type Trader struct {
	log     zerolog.Logger
	params  Params
	sizer   risk.Sizer
	account Account
	orders  *execution.Manager

	mu          sync.Mutex
	instruments map[string]*instrument
}

// NewTrader builds the signals of every symbol. A bad indicator selection fails here.
func NewTrader(params Params, symbols []string, account Account, orders *execution.Manager, sizer risk.Sizer, log zerolog.Logger) (*Trader, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if account == nil || orders == nil {
		return nil, errors.New("trader needs an account and an order manager")
	}
	sizer.RiskPercent = params.RiskPercent
	t := &Trader{
		log:         log,
		params:      params,
		sizer:       sizer,
		account:     account,
		orders:      orders,
		instruments: make(map[string]*instrument, len(symbols)),
	}
	for _, sym := range symbols {
		if _, dup := t.instruments[sym]; dup {
			return nil, fmt.Errorf("duplicate symbol %s", sym)
		}
		in, err := newInstrument(sym, params)
		if err != nil {
			return nil, err
		}
		t.instruments[sym] = in
	}
	return t, nil
}

// Params returns the effective parameters.
func (t *Trader) Params() Params { return t.params }

// Step processes one timestep. All instruments first advance their signals in parallel;
// decisions and order emission then run instrument by instrument against the complete
// set of current closes.
func (t *Trader) Step(ctx context.Context, bars []signal.Bar) ([]Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	work := make([]*instrument, len(bars))
	for i, b := range bars {
		in := t.instruments[b.Symbol]
		if in == nil {
			return nil, fmt.Errorf("unknown symbol %s", b.Symbol)
		}
		if slices.Contains(work[:i], in) {
			return nil, fmt.Errorf("symbol %s appears twice in one step", b.Symbol)
		}
		work[i] = in
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range work {
		in, b := work[i], bars[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in.advance(b)
			metrics.BarsTotal.WithLabelValues(in.symbol).Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	closes := make(map[string]float64, len(t.instruments))
	for sym, in := range t.instruments {
		if in.bars > 0 {
			closes[sym] = in.last.Close
		}
	}

	slices.SortFunc(work, func(a, b *instrument) int { return cmp.Compare(a.symbol, b.symbol) })
	decisions := make([]Decision, 0, len(work))
	var errs []error
	for _, in := range work {
		d := t.decide(in, closes)
		if d.Err != nil && !isSizing(d.Err) {
			errs = append(errs, d.Err)
		}
		decisions = append(decisions, d)
	}
	return decisions, errors.Join(errs...)
}

func isSizing(err error) bool {
	var se *risk.SizingError
	return errors.As(err, &se)
}

func (t *Trader) decide(in *instrument, closes map[string]float64) Decision {
	snap := in.snapshot()
	pos := t.account.Position(in.symbol)
	d := Decision{Symbol: in.symbol, Ts: in.last.Ts, Position: pos, Action: ActionNone}

	if pos != signal.Flat {
		if !ShouldExit(pos, snap.Exit, snap.Baseline, snap.C1, snap.C2) {
			return d
		}
		d.Action, d.Reason = ActionExit, ReasonExit
		d.Intents, d.Err = t.orders.Close(in.symbol, pos, in.last.Ts)
		metrics.DecisionsTotal.WithLabelValues(in.symbol, pos.Opposite().String(), string(ReasonExit)).Inc()
		t.log.Info().Str("sym", in.symbol).Str("position", pos.String()).Msg("exit signal")
		return d
	}

	if t.orders.HasLive(in.symbol) {
		d.Action = ActionSkip
		return d
	}

	out := Decide(in.history())
	d.Direction, d.Reason = out.Direction, out.Reason
	if out.Direction == signal.Flat {
		if out.Bridge {
			t.log.Debug().Str("sym", in.symbol).Msg("bridge too far, confirmation vetoed")
		}
		return d
	}

	stopDist := t.params.SLMultiple * snap.ATR
	size, err := t.sizer.Size(in.symbol, snap.Close, stopDist, t.account.Equity(), closes)
	if err != nil {
		d.Action, d.Err = ActionSkip, err
		metrics.SizingErrorsTotal.WithLabelValues(in.symbol).Inc()
		t.log.Warn().Err(err).Str("sym", in.symbol).Str("dir", out.Direction.String()).Msg("entry skipped")
		return d
	}

	d.Action = ActionEnter
	d.Intents, d.Err = t.orders.Open(execution.Bracket{
		Symbol:     in.symbol,
		Direction:  out.Direction,
		Half:       size.Half,
		Price:      snap.Close,
		ATR:        snap.ATR,
		SLMultiple: t.params.SLMultiple,
		TPMultiple: t.params.TPMultiple,
		Ts:         in.last.Ts,
	})
	metrics.DecisionsTotal.WithLabelValues(in.symbol, out.Direction.String(), string(out.Reason)).Inc()
	t.log.Info().Str("sym", in.symbol).Str("dir", out.Direction.String()).Str("reason", string(out.Reason)).
		Str("method", size.Method.String()).Msg("entry")
	return d
}

// Notify forwards a venue order update to the bracket manager, supplying each
// instrument's current ATR for trailing-stop promotion.
func (t *Trader) Notify(n execution.Notification) (*execution.Intent, error) {
	return t.orders.Notify(n, t.ATR)
}

// ATR returns the current ATR of symbol, or 0 when unknown.
func (t *Trader) ATR(symbol string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if in := t.instruments[symbol]; in != nil {
		return in.baseline.ATR()
	}
	return 0
}

// Snapshot returns the current signal state of symbol.
func (t *Trader) Snapshot(symbol string) (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	in := t.instruments[symbol]
	if in == nil {
		return Snapshot{}, false
	}
	return in.snapshot(), true
}
