package filter

import (
	"fmt"
	"math"

	"nnfx-go/internal/series"
)

// ITrend is Ehlers' instantaneous trendline with a two-bar-ahead trigger.
type ITrend struct {
	warm
	alpha   float64
	price   *series.Series[float64]
	trend   *series.Series[float64]
	Trigger float64
}

// NewITrend builds an instantaneous trendline (default period 20).
func NewITrend(period int) *ITrend {
	period = orDefault(period, 20)
	return &ITrend{
		warm:  newWarm(period),
		alpha: 2 / float64(1+period),
		price: history(3),
		trend: history(3),
	}
}

// Update consumes x and returns the trend value.
func (f *ITrend) Update(x float64) float64 {
	f.tick()
	f.price.Append(x)
	p0, p1, p2 := ago(f.price, 0), ago(f.price, -1), ago(f.price, -2)

	var it float64
	if f.seeding() {
		it = (p0 + 2*p1 + p2) / 4
	} else {
		a := f.alpha
		it1, it2 := ago(f.trend, 0), ago(f.trend, -1)
		it = (a-a*a/4)*p0 + (a*a/2)*p1 - (a-3*a*a/4)*p2 +
			2*(1-a)*it1 - (1-a)*(1-a)*it2
	}
	f.trend.Append(it)
	f.Trigger = 2*it - ago(f.trend, -2)
	return it
}

// Value returns the latest trend value.
func (f *ITrend) Value() float64 { return ago(f.trend, 0) }

// CyberCycle isolates the cycle component: a four-tap smoother followed by a two-pole
// high-pass. Trigger is the cycle delayed by one bar.
type CyberCycle struct {
	warm
	alpha   float64
	price   *series.Series[float64]
	smooth  *series.Series[float64]
	cycle   *series.Series[float64]
	Trigger float64
}

// NewCyberCycle builds a cyber cycle (default period 30).
func NewCyberCycle(period int) *CyberCycle {
	period = orDefault(period, 30)
	return &CyberCycle{
		warm:   newWarm(period),
		alpha:  2 / (1 + float64(period)),
		price:  history(4),
		smooth: history(3),
		cycle:  history(3),
	}
}

// Update consumes x and returns the cycle value.
func (f *CyberCycle) Update(x float64) float64 {
	f.tick()
	f.price.Append(x)
	p0, p1, p2, p3 := ago(f.price, 0), ago(f.price, -1), ago(f.price, -2), ago(f.price, -3)
	f.smooth.Append((p0 + 2*p1 + 2*p2 + p3) / 6)

	f.Trigger = ago(f.cycle, 0)
	var c float64
	if f.seeding() {
		c = (p0 - 2*p1 + p2) / 4
	} else {
		a := f.alpha
		s0, s1, s2 := ago(f.smooth, 0), ago(f.smooth, -1), ago(f.smooth, -2)
		c = (1-0.5*a)*(1-0.5*a)*(s0-2*s1+s2) +
			2*(1-a)*ago(f.cycle, 0) - (1-a)*(1-a)*ago(f.cycle, -1)
	}
	f.cycle.Append(c)
	if f.seen == 1 {
		f.Trigger = c
	}
	return c
}

// Value returns the latest cycle value.
func (f *CyberCycle) Value() float64 { return ago(f.cycle, 0) }

// Smooth returns the four-tap smoothed input (unity DC gain).
func (f *CyberCycle) Smooth() float64 { return ago(f.smooth, 0) }

// AdaptiveCyberCycle adds an exponential signal line with its own lag; Trigger is the
// signal line delayed by one bar.
type AdaptiveCyberCycle struct {
	*CyberCycle
	alpha2  float64
	Signal  float64
	Trigger float64
}

// NewAdaptiveCyberCycle builds the adaptive variant (defaults 30, 9).
func NewAdaptiveCyberCycle(period, lag int) *AdaptiveCyberCycle {
	lag = orDefault(lag, 9)
	return &AdaptiveCyberCycle{CyberCycle: NewCyberCycle(period), alpha2: 1 / float64(lag+1)}
}

// Update consumes x and returns the signal line.
func (f *AdaptiveCyberCycle) Update(x float64) float64 {
	c := f.CyberCycle.Update(x)
	f.Trigger = f.Signal
	if f.seeding() {
		f.Signal = f.alpha2 * c
	} else {
		f.Signal = f.alpha2*c + (1-f.alpha2)*f.Signal
	}
	if f.seen == 1 {
		f.Trigger = f.Signal
	}
	return f.Signal
}

// SuperSmoother is Ehlers' two-pole super smoother.
type SuperSmoother struct {
	warm
	c1, c2, c3 float64
	input      *series.Series[float64]
	out        *series.Series[float64]
}

const superSmootherWarmup = 10

// NewSuperSmoother builds a super smoother (default period 10).
func NewSuperSmoother(period int) *SuperSmoother {
	p := float64(orDefault(period, 10))
	a1 := math.Exp(-1.414 * math.Pi / p)
	b1 := 2 * a1 * math.Cos(rad(1.414*180/p))
	c2, c3 := b1, -a1*a1
	return &SuperSmoother{
		warm:  newWarm(superSmootherWarmup),
		c1:    1 - c2 - c3,
		c2:    c2,
		c3:    c3,
		input: history(2),
		out:   history(2),
	}
}

// Update consumes x and returns the smoothed value.
func (f *SuperSmoother) Update(x float64) float64 {
	f.tick()
	f.input.Append(x)
	avg := (ago(f.input, 0) + ago(f.input, -1)) / 2
	v := avg
	if !f.seeding() {
		v = f.c1*avg + f.c2*ago(f.out, 0) + f.c3*ago(f.out, -1)
	}
	f.out.Append(v)
	return v
}

// Value returns the latest output.
func (f *SuperSmoother) Value() float64 { return ago(f.out, 0) }

// HighPass is Ehlers' two-pole high-pass filter.
type HighPass struct {
	warm
	alpha float64
	input *series.Series[float64]
	out   *series.Series[float64]
}

const highPassWarmup = 10

// NewHighPass builds a high-pass filter (default period 48).
func NewHighPass(period int) *HighPass {
	p := float64(orDefault(period, 48))
	angle := rad(0.707 * 360 / p)
	return &HighPass{
		warm:  newWarm(highPassWarmup),
		alpha: (math.Cos(angle) + math.Sin(angle) - 1) / math.Cos(angle),
		input: history(3),
		out:   history(2),
	}
}

// Update consumes x and returns the high-passed value.
func (f *HighPass) Update(x float64) float64 {
	f.tick()
	f.input.Append(x)
	a := f.alpha
	v := (1 - a/2) * (1 - a/2) * (ago(f.input, 0) - 2*ago(f.input, -1) + ago(f.input, -2))
	if !f.seeding() {
		v += 2*(1-a)*ago(f.out, 0) - (1-a)*(1-a)*ago(f.out, -1)
	}
	v = finite(v)
	f.out.Append(v)
	return v
}

// Value returns the latest output.
func (f *HighPass) Value() float64 { return ago(f.out, 0) }

// Butterworth is a 2- or 3-pole Butterworth low-pass over median price.
type Butterworth struct {
	warm
	poles          int
	c1, c2, c3, c4 float64
	price          *series.Series[float64]
	out            *series.Series[float64]
}

const butterworthWarmup = 10

// NewButterworth builds the filter; poles must be 2 or 3.
func NewButterworth(period, poles int) (*Butterworth, error) {
	p := float64(orDefault(period, 48))
	f := &Butterworth{warm: newWarm(butterworthWarmup), poles: poles, price: history(4), out: history(3)}
	switch poles {
	case 2:
		a1 := math.Exp(-1.414 * math.Pi / p)
		b1 := 2 * a1 * math.Cos(rad(1.414*180/p))
		f.c2 = b1
		f.c3 = -a1 * a1
		f.c1 = (1 - b1 + a1*a1) / 4
	case 3:
		a1 := math.Exp(-math.Pi / p)
		b1 := 2 * a1 * math.Cos(rad(1.738*180/p))
		c1 := a1 * a1
		f.c2 = b1 + c1
		f.c3 = -(c1 + b1*c1)
		f.c4 = c1 * c1
		f.c1 = (1 - b1 + c1) * (1 - c1) / 8
	default:
		return nil, fmt.Errorf("butterworth poles must be 2 or 3, got %d", poles)
	}
	return f, nil
}

// Update consumes x (median price in the registry) and returns the filtered value.
func (f *Butterworth) Update(x float64) float64 {
	f.tick()
	f.price.Append(x)
	p := func(i int) float64 { return ago(f.price, -i) }
	o := func(i int) float64 { return ago(f.out, 1-i) }

	v := x
	if !f.seeding() {
		switch f.poles {
		case 2:
			v = f.c1*(p(0)+2*p(1)+p(2)) + f.c2*o(1) + f.c3*o(2)
		case 3:
			v = f.c1*(p(0)+3*p(1)+3*p(2)+p(3)) + f.c2*o(1) + f.c3*o(2) + f.c4*o(3)
		}
	}
	f.out.Append(v)
	return v
}

// Value returns the latest output.
func (f *Butterworth) Value() float64 { return ago(f.out, 0) }
