// Package paper is a simulated venue for replays. Market and close orders fill at the
// next bar's open; stop, limit and trailing orders trigger against the bar's range.
package paper

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"nnfx-go/internal/engine"
	"nnfx-go/internal/execution"
	"nnfx-go/internal/risk"
	"nnfx-go/internal/signal"
)

const epsilon = 1e-9

type position struct {
	Units    float64 // signed
	AvgCost  float64
	Realized float64 // account currency, since the position opened
}

type working struct {
	execution.Intent
	extreme float64 // best price seen, trailing stops only
	armed   bool
}

// Broker implements engine.Broker.
type Broker struct {
	mu        sync.Mutex
	log       zerolog.Logger
	account   string
	pending   []execution.Intent
	orders    []*working
	positions map[string]*position
	closes    map[string]float64
}

var _ engine.Broker = (*Broker)(nil)

// NewBroker builds an empty venue settling PnL in the account currency.
func NewBroker(account string, log zerolog.Logger) *Broker {
	if account == "" {
		account = "USD"
	}
	return &Broker{
		log:       log,
		account:   account,
		positions: make(map[string]*position),
		closes:    make(map[string]float64),
	}
}

// Submit queues an intent for the next bar.
func (b *Broker) Submit(in execution.Intent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, in)
	return nil
}

// Units returns the signed position held in symbol.
func (b *Broker) Units(symbol string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p := b.positions[symbol]; p != nil {
		return p.Units
	}
	return 0
}

// Working returns the number of live resting orders.
func (b *Broker) Working() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}

type step struct {
	report  engine.Report
	touched map[string]bool
}

func (s *step) notify(ref string, status execution.Status, size, price float64) {
	s.report.Notifications = append(s.report.Notifications,
		execution.Notification{Ref: ref, Status: status, Size: size, Price: price})
}

// Advance processes one timestep of bars.
func (b *Broker) Advance(_ context.Context, bars []signal.Bar) (engine.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bysymbol := make(map[string]signal.Bar, len(bars))
	for _, bar := range bars {
		bysymbol[bar.Symbol] = bar
		b.closes[bar.Symbol] = bar.Close
	}
	st := &step{touched: make(map[string]bool)}

	var carry []execution.Intent
	for _, in := range b.pending {
		bar, ok := bysymbol[in.Symbol]
		if !ok {
			carry = append(carry, in)
			continue
		}
		b.accept(st, in, bar)
	}
	b.pending = carry

	for _, o := range slices.Clone(b.orders) {
		if !slices.Contains(b.orders, o) {
			continue
		}
		if bar, ok := bysymbol[o.Symbol]; ok {
			b.trigger(st, o, bar)
		}
	}

	st.report.Positions = make(map[string]float64, len(st.touched))
	for sym := range st.touched {
		st.report.Positions[sym] = b.units(sym)
	}
	return st.report, nil
}

func (b *Broker) units(symbol string) float64 {
	if p := b.positions[symbol]; p != nil {
		return p.Units
	}
	return 0
}

func (b *Broker) accept(st *step, in execution.Intent, bar signal.Bar) {
	switch in.Type {
	case execution.Market:
		b.fill(st, in.Symbol, in.Side, in.Size.InexactFloat64(), bar.Open, bar.Ts)
		st.notify(in.Ref, execution.Completed, in.Size.InexactFloat64(), bar.Open)
	case execution.Close:
		if units := b.units(in.Symbol); units != 0 {
			b.fill(st, in.Symbol, execution.SideOf(signal.Sign(-units)), math.Abs(units), bar.Open, bar.Ts)
		}
		st.notify(in.Ref, execution.Completed, 0, bar.Open)
	case execution.Cancel:
		if i := slices.IndexFunc(b.orders, func(o *working) bool { return o.Ref == in.TargetRef }); i >= 0 {
			b.orders = slices.Delete(b.orders, i, i+1)
			st.notify(in.TargetRef, execution.Canceled, 0, 0)
		}
	case execution.Stop, execution.Limit, execution.StopTrail:
		b.orders = append(b.orders, &working{Intent: in, extreme: bar.Open})
		st.notify(in.Ref, execution.Accepted, in.Size.InexactFloat64(), in.Price)
	default:
		st.notify(in.Ref, execution.Rejected, 0, 0)
	}
}

// trigger checks one resting order against bar and fills it when touched.
func (b *Broker) trigger(st *step, o *working, bar signal.Bar) {
	sell := o.Side == execution.Sell
	var px float64
	var hit bool
	switch o.Type {
	case execution.Stop:
		if sell && bar.Low <= o.Price {
			px, hit = math.Min(bar.Open, o.Price), true
		} else if !sell && bar.High >= o.Price {
			px, hit = math.Max(bar.Open, o.Price), true
		}
	case execution.Limit:
		if sell && bar.High >= o.Price {
			px, hit = math.Max(bar.Open, o.Price), true
		} else if !sell && bar.Low <= o.Price {
			px, hit = math.Min(bar.Open, o.Price), true
		}
	case execution.StopTrail:
		if sell {
			stop := o.extreme - o.TrailAmount
			if bar.Low <= stop {
				px, hit = math.Min(bar.Open, stop), true
			}
			o.extreme = math.Max(o.extreme, bar.High)
		} else {
			stop := o.extreme + o.TrailAmount
			if bar.High >= stop {
				px, hit = math.Max(bar.Open, stop), true
			}
			o.extreme = math.Min(o.extreme, bar.Low)
		}
	}
	if !hit {
		return
	}

	b.remove(o.Ref)
	size := math.Min(o.Size.InexactFloat64(), math.Abs(b.units(o.Symbol)))
	b.fill(st, o.Symbol, o.Side, size, px, bar.Ts)

	// One-cancels-other within a bracket: a target fill withdraws the protective stop,
	// which the order manager reads as the signal to trail the remainder. A stop fill
	// withdraws the target.
	for _, sib := range slices.Clone(b.orders) {
		if sib.ParentRef == o.ParentRef && sib.Symbol == o.Symbol {
			b.remove(sib.Ref)
			if o.Role == execution.RoleTakeProfit {
				st.notify(o.Ref, execution.Completed, size, px)
				st.notify(sib.Ref, execution.Canceled, 0, 0)
				return
			}
			st.notify(sib.Ref, execution.Canceled, 0, 0)
		}
	}
	st.notify(o.Ref, execution.Completed, size, px)
}

func (b *Broker) remove(ref string) {
	b.orders = slices.DeleteFunc(b.orders, func(o *working) bool { return o.Ref == ref })
}

// fill applies an execution to the position, averaging cost when adding and realizing
// PnL when reducing. A flat result reports the trade as closed.
func (b *Broker) fill(st *step, symbol string, side execution.Side, qty, price float64, ts int64) {
	if qty <= epsilon || price <= 0 {
		return
	}
	p := b.positions[symbol]
	if p == nil {
		p = &position{}
		b.positions[symbol] = p
	}
	st.touched[symbol] = true

	signed := qty
	if side == execution.Sell {
		signed = -qty
	}
	if p.Units == 0 || math.Signbit(p.Units) == math.Signbit(signed) {
		total := p.Units + signed
		p.AvgCost = (p.AvgCost*math.Abs(p.Units) + price*qty) / math.Abs(total)
		p.Units = total
		return
	}

	closed := math.Min(qty, math.Abs(p.Units))
	pnl := (price - p.AvgCost) * closed
	if p.Units < 0 {
		pnl = -pnl
	}
	converted, err := risk.ToAccount(symbol, b.account, pnl, price, b.closes)
	if err != nil {
		b.log.Warn().Err(err).Str("sym", symbol).Msg("pnl left in quote currency")
		converted = pnl
	}
	p.Realized += converted
	p.Units += math.Copysign(closed, signed)

	if math.Abs(p.Units) <= epsilon {
		st.report.Closed = append(st.report.Closed, execution.TradeClosed{Symbol: symbol, RealizedPnL: p.Realized, Ts: ts})
		b.log.Debug().Str("sym", symbol).Float64("pnl", p.Realized).Msg("paper trade closed")
		delete(b.positions, symbol)
		if rest := qty - closed; rest > epsilon {
			b.fill(st, symbol, side, rest, price, ts)
		}
	}
}
