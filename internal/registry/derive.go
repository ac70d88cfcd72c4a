package registry

import (
	"math"

	"nnfx-go/internal/filter"
	"nnfx-go/internal/series"
	"nnfx-go/internal/signal"
)

// Signal is a tri-state trade signal advanced once per bar. Its value is Flat until every
// filter behind it is ready.
type Signal interface {
	filter.Filter
	Advance(b signal.Bar) signal.Direction
	Value() signal.Direction
}

type derived struct {
	deps  []filter.Filter
	step  func(signal.Bar) signal.Direction
	value signal.Direction
}

func newDerived(step func(signal.Bar) signal.Direction, deps ...filter.Filter) *derived {
	return &derived{deps: deps, step: step}
}

// Advance feeds b to the underlying filters and derives the signal.
func (d *derived) Advance(b signal.Bar) signal.Direction {
	v := d.step(b)
	if !d.Ready() || (v != signal.Long && v != signal.Short) {
		v = signal.Flat
	}
	d.value = v
	return v
}

// Value returns the signal derived on the latest bar.
func (d *derived) Value() signal.Direction { return d.value }

// Warmup implements filter.Filter.
func (d *derived) Warmup() int {
	out := 0
	for _, f := range d.deps {
		out = max(out, f.Warmup())
	}
	return out
}

// Ready implements filter.Filter.
func (d *derived) Ready() bool {
	for _, f := range d.deps {
		if !f.Ready() {
			return false
		}
	}
	return true
}

// crossover emits a one-bar impulse when diff changes sign, measured against the last
// nonzero diff so touching the line without crossing it does not count.
type crossover struct{ last float64 }

func (c *crossover) step(diff float64) signal.Direction {
	if math.IsNaN(diff) || math.IsInf(diff, 0) {
		return signal.Flat
	}
	out := signal.Flat
	switch {
	case diff > 0 && c.last < 0:
		out = signal.Long
	case diff < 0 && c.last > 0:
		out = signal.Short
	}
	if diff != 0 {
		c.last = diff
	}
	return out
}

// hold repeats the last nonzero direction.
type hold struct{ last signal.Direction }

func (h *hold) step(d signal.Direction) signal.Direction {
	if d != signal.Flat {
		h.last = d
	}
	return h.last
}

// minBars is ready once it has counted need bars.
type minBars struct{ need, seen int }

func (m *minBars) Warmup() int { return m.need }
func (m *minBars) Ready() bool { return m.seen >= m.need }

func onClose(update func(float64) float64) func(signal.Bar) float64 {
	return func(b signal.Bar) float64 { return update(b.Close) }
}

func onMedian(update func(float64) float64) func(signal.Bar) float64 {
	return func(b signal.Bar) float64 { return update(b.Median()) }
}

func gate(ok bool) signal.Direction {
	if ok {
		return signal.Long
	}
	return signal.Flat
}

// Baseline is the trend line that price must cross to open a trade. Its signal is the
// crossover impulse of close against the line; TooFar reports whether close sits more than
// one ATR from the line.
type Baseline struct {
	*derived
	atr    *filter.ATR
	line   float64
	tooFar bool
}

// TooFar reports whether the latest close was more than one ATR away from the line.
func (b *Baseline) TooFar() bool { return b.Ready() && b.tooFar }

// Line returns the latest baseline value.
func (b *Baseline) Line() float64 { return b.line }

// ATR returns the latest ATR used for the distance check.
func (b *Baseline) ATR() float64 { return b.atr.Value() }

// NewBaseline builds the baseline selected by spec with an ATR of atrPeriod bars.
func NewBaseline(spec Spec, atrPeriod int) (*Baseline, error) {
	if err := Validate(signal.RoleBaseline, spec); err != nil {
		return nil, err
	}
	p := &params{role: signal.RoleBaseline, spec: spec}

	var (
		line func(signal.Bar) float64
		dep  filter.Filter
	)
	switch spec.key() {
	case "kijun":
		f := filter.NewKijun(p.int(0))
		line, dep = f.Update, f
	case "ma":
		kind, period := p.name(0), p.int(1)
		if p.err != nil {
			return nil, p.err
		}
		f, err := filter.NewMA(kind, period)
		if err != nil {
			return nil, p.wrap(err)
		}
		line, dep = onClose(f.Update), f
	case "itrend":
		f := filter.NewITrend(p.int(0))
		line, dep = onClose(f.Update), f
	case "mama", "fama":
		f := filter.NewMAMA(p.int(0), p.int(1))
		fama := spec.key() == "fama"
		line = func(b signal.Bar) float64 {
			f.Update(b)
			if fama {
				return f.FAMA
			}
			return f.MAMA
		}
		dep = f
	case "laguerre":
		f := filter.NewLaguerre(p.int(0))
		line, dep = onMedian(f.Update), f
	case "alaguerre":
		f := filter.NewAdaptiveLaguerre(p.int(0))
		line, dep = onMedian(f.Update), f
	case "butter":
		period, poles := p.int(0), p.int(1)
		if p.err != nil {
			return nil, p.err
		}
		f, err := filter.NewButterworth(period, poles)
		if err != nil {
			return nil, p.wrap(err)
		}
		line, dep = onMedian(f.Update), f
	case "supersmoother":
		f := filter.NewSuperSmoother(p.int(0))
		line, dep = onClose(f.Update), f
	}
	if p.err != nil {
		return nil, p.err
	}

	bl := &Baseline{atr: filter.NewATR(atrPeriod)}
	var cross crossover
	bl.derived = newDerived(func(b signal.Bar) signal.Direction {
		bl.line = line(b)
		atr := bl.atr.Update(b)
		bl.tooFar = math.Abs(b.Close-bl.line) > atr
		return cross.step(b.Close - bl.line)
	}, dep, bl.atr)
	return bl, nil
}

// New builds the confirmation, volume or exit signal selected by spec.
func New(role signal.Role, spec Spec) (Signal, error) {
	if role == signal.RoleBaseline {
		return NewBaseline(spec, 0)
	}
	if err := Validate(role, spec); err != nil {
		return nil, err
	}
	p := &params{role: role, spec: spec}
	s, err := build(p)
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	return s, nil
}

func build(p *params) (Signal, error) {
	switch p.spec.key() {
	case "itrend":
		f := filter.NewITrend(p.int(0))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b.Close)
			return signal.Compare(f.Trigger, f.Value())
		}, f), nil

	case "cybercycle":
		f := filter.NewCyberCycle(p.int(0))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b.Close)
			return signal.Compare(f.Trigger, f.Value())
		}, f), nil

	case "adaptivecybercycle":
		f := filter.NewAdaptiveCyberCycle(p.int(0), p.int(1))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b.Close)
			return signal.Compare(f.Signal, f.Trigger)
		}, f), nil

	case "ssl":
		f := filter.NewSSL(p.int(0))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			return signal.Compare(f.Up, f.Down)
		}, f), nil

	case "aroon":
		f := filter.NewAroon(p.int(0))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			return signal.Compare(f.Up, f.Down)
		}, f), nil

	case "ttf":
		f := filter.NewTTF(p.int(0))
		var up, down crossover
		return newDerived(func(b signal.Bar) signal.Direction {
			v := f.Update(b)
			var out signal.Direction
			if up.step(v+100) == signal.Long {
				out++
			}
			if down.step(v-100) == signal.Short {
				out--
			}
			return out
		}, f), nil

	case "tdfi":
		f := filter.NewTDFI(p.int(0))
		th := p.num(1)
		return newDerived(func(b signal.Bar) signal.Direction {
			v := f.Update(b.Close)
			switch {
			case v > th:
				return signal.Long
			case v < -th:
				return signal.Short
			}
			return signal.Flat
		}, f), nil

	case "cmf":
		f := filter.NewCMF(p.int(0))
		return newDerived(func(b signal.Bar) signal.Direction {
			return signal.Sign(f.Update(b))
		}, f), nil

	case "ash":
		period, smoothing, mode, factor := p.int(0), p.int(1), p.int(2), p.num(3)
		movav, smoothav, point := p.name(4), p.name(5), p.num(6)
		if p.err != nil {
			return nil, p.err
		}
		f, err := filter.NewASH(period, smoothing, mode, factor, movav, smoothav, point)
		if err != nil {
			return nil, p.wrap(err)
		}
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b.Close)
			return signal.Compare(f.Bulls, f.Bears)
		}, f), nil

	case "roof":
		f := filter.NewRoofing(p.int(0), p.int(1), p.int(2))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b.Close)
			return signal.Sign(f.IRoof)
		}, f), nil

	case "mama":
		f := filter.NewMAMA(p.int(0), p.int(1))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			return signal.Compare(f.MAMA, f.FAMA)
		}, f), nil

	case "dosc":
		f := filter.NewDecycler(p.int(0))
		return newDerived(func(b signal.Bar) signal.Direction {
			return signal.Sign(f.Update(b.Close))
		}, f), nil

	case "idosc":
		f := filter.NewIDecycler(p.int(0), p.int(1))
		return newDerived(func(b signal.Bar) signal.Direction {
			return signal.Sign(f.Update(b.Close))
		}, f), nil

	case "schaff":
		f := filter.NewSchaff(p.int(0), p.int(1), p.int(2), p.num(3))
		var up, down crossover
		var held hold
		return newDerived(func(b signal.Bar) signal.Direction {
			v := f.Update(b.Close)
			var raw signal.Direction
			if up.step(v-25) == signal.Long {
				raw++
			}
			if down.step(v-75) == signal.Short {
				raw--
			}
			return held.step(raw)
		}, f), nil

	case "kvo":
		f := filter.NewKVO(p.int(0), p.int(1), p.int(2))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			return signal.Compare(f.KVO, f.Signal)
		}, f), nil

	case "cvi":
		f := filter.NewChaikinVolatility(p.int(0), p.int(1))
		return newDerived(func(b signal.Bar) signal.Direction {
			return gate(f.Update(b) > 0)
		}, f), nil

	case "wae":
		f := filter.NewWAE(p.num(0), p.int(1), p.int(2), p.int(3), p.num(4), p.num(5))
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			var out signal.Direction
			if f.Up > f.Explosion && f.Up > f.DeadZone && f.Explosion > f.DeadZone {
				out++
			}
			if f.Down > f.Explosion && f.Down > f.DeadZone && f.Explosion > f.DeadZone {
				out--
			}
			return out
		}, f), nil

	case "squeeze":
		period, mult, periodKC, multKC := p.int(0), p.num(1), p.int(2), p.num(3)
		movav := p.name(4)
		if p.err != nil {
			return nil, p.err
		}
		f, err := filter.NewSqueeze(period, mult, periodKC, multKC, movav)
		if err != nil {
			return nil, p.wrap(err)
		}
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			if f.Squeezed == 0 {
				return signal.Flat
			}
			return signal.Sign(f.Hist)
		}, f), nil

	case "damiani":
		f := filter.NewDamiani(p.int(0), p.int(1), p.int(2), p.int(3), p.num(4), p.num(5) != 0)
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			return gate(f.Volatility > f.Threshold)
		}, f), nil

	case "nvol":
		f := filter.NewNormalizedVolume(p.int(0))
		return newDerived(func(b signal.Bar) signal.Direction {
			return gate(f.Update(b) > 100)
		}, f), nil

	case "heikenashi":
		n := max(p.int(0), 1)
		f := filter.NewHeikinAshi()
		recent := series.New[signal.Direction](n)
		count := &minBars{need: n}
		return newDerived(func(b signal.Bar) signal.Direction {
			f.Update(b)
			count.seen++
			recent.Append(f.Signal)
			if !recent.Ready(-(n - 1)) {
				return signal.Flat
			}
			for _, d := range recent.Last(n) {
				if d != f.Signal {
					return signal.Flat
				}
			}
			return f.Signal
		}, f, count), nil
	}
	return nil, &ConfigError{Role: p.role, Name: p.spec.Name, Reason: "no derivation for this indicator"}
}
