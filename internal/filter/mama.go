package filter

import (
	"math"

	"nnfx-go/internal/series"
	"nnfx-go/internal/signal"
)

// MAMA is the MESA adaptive moving average with its following FAMA line. A recursive
// Hilbert transform of the smoothed median price yields the in-phase and quadrature
// components; the phase rate of change sets the EMA factor between the slow and fast limits.
type MAMA struct {
	warm
	fastLimit, slowLimit float64

	price, smooth, detrender *series.Series[float64]
	i1, q1, i2, q2           *series.Series[float64]
	re, im, period, phase    *series.Series[float64]

	MAMA, FAMA float64
}

const mamaWarmup = 40

// NewMAMA builds the filter from fast and slow periods (defaults 20, 50); the limits are
// 2/(fast+1) and 2/(slow+1).
func NewMAMA(fast, slow int) *MAMA {
	fast = orDefault(fast, 20)
	slow = orDefault(slow, 50)
	h := func() *series.Series[float64] { return history(7) }
	return &MAMA{
		warm:      newWarm(mamaWarmup),
		fastLimit: 2 / float64(fast+1),
		slowLimit: 2 / float64(slow+1),
		price:     h(), smooth: h(), detrender: h(),
		i1: h(), q1: h(), i2: h(), q2: h(),
		re: h(), im: h(), period: h(), phase: h(),
	}
}

func hilbert(s *series.Series[float64], adj float64) float64 {
	const a, b = 0.0962, 0.5769
	return (a*ago(s, 0) + b*ago(s, -2) - b*ago(s, -4) - a*ago(s, -6)) * adj
}

// prev returns the latest value of s, or fallback when s is empty.
func prev(s *series.Series[float64], fallback float64) float64 {
	if s.Len() == 0 {
		return fallback
	}
	return ago(s, 0)
}

// Update consumes one bar.
func (f *MAMA) Update(b signal.Bar) {
	f.tick()
	p := b.Median()
	f.price.Append(p)

	prevPeriod := prev(f.period, 0)
	adj := 0.075*prevPeriod + 0.54

	f.smooth.Append((4*ago(f.price, 0) + 3*ago(f.price, -1) + 2*ago(f.price, -2) + ago(f.price, -3)) / 10)
	f.detrender.Append(hilbert(f.smooth, adj))

	q1 := hilbert(f.detrender, adj)
	i1 := ago(f.detrender, -3)
	f.q1.Append(q1)
	f.i1.Append(i1)

	jI := hilbert(f.i1, adj)
	jQ := hilbert(f.q1, adj)

	i2 := i1 - jQ
	q2 := q1 + jI
	i2 = 0.2*i2 + 0.8*prev(f.i2, i2)
	q2 = 0.2*q2 + 0.8*prev(f.q2, q2)
	i2Prev, q2Prev := prev(f.i2, i2), prev(f.q2, q2)
	f.i2.Append(i2)
	f.q2.Append(q2)

	re := i2*i2Prev + q2*q2Prev
	im := i2*q2Prev - q2*i2Prev
	re = 0.2*re + 0.8*prev(f.re, re)
	im = 0.2*im + 0.8*prev(f.im, im)
	f.re.Append(re)
	f.im.Append(im)

	per := prevPeriod
	if im != 0 && re != 0 {
		per = finite(360 / deg(math.Atan(im/re)))
	}
	per = math.Min(per, 1.5*prevPeriod)
	per = math.Max(per, 0.67*prevPeriod)
	per = math.Min(math.Max(per, 6), 50)
	per = 0.2*per + 0.8*prevPeriod
	f.period.Append(per)

	prevPhase := prev(f.phase, 0)
	ph := prevPhase
	if i1 != 0 {
		ph = deg(math.Atan(q1 / i1))
	}
	f.phase.Append(ph)

	if f.seeding() {
		f.MAMA, f.FAMA = p, p
		return
	}
	dphi := math.Max(prevPhase-ph, 1)
	alpha := math.Min(math.Max(f.fastLimit/dphi, f.slowLimit), f.fastLimit)
	f.MAMA = alpha*p + (1-alpha)*f.MAMA
	f.FAMA = 0.5*alpha*f.MAMA + (1-0.5*alpha)*f.FAMA
}
