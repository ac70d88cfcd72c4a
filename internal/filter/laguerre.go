package filter

import (
	"math"
	"slices"

	"nnfx-go/internal/series"
)

// laguerreStages is the four-element cascade shared by the fixed and adaptive filters.
type laguerreStages struct {
	l0, l1, l2, l3 float64
}

func (s *laguerreStages) step(alpha, x float64) {
	g := 1 - alpha
	l0 := alpha*x + g*s.l0
	l1 := -g*l0 + s.l0 + g*s.l1
	l2 := -g*l1 + s.l1 + g*s.l2
	l3 := -g*l2 + s.l2 + g*s.l3
	s.l0, s.l1, s.l2, s.l3 = l0, l1, l2, l3
}

func (s *laguerreStages) seed(price *series.Series[float64]) {
	s.l0, s.l1, s.l2, s.l3 = ago(price, 0), ago(price, -1), ago(price, -2), ago(price, -3)
}

func (s *laguerreStages) output() float64 {
	return (s.l0 + 2*s.l1 + 2*s.l2 + s.l3) / 6
}

// Laguerre is Ehlers' Laguerre filter with a fixed damping factor 2/(period+1).
type Laguerre struct {
	warm
	alpha  float64
	price  *series.Series[float64]
	stages laguerreStages
	value  float64
}

const laguerreWarmup = 30

// NewLaguerre builds the filter (default period 48).
func NewLaguerre(period int) *Laguerre {
	period = orDefault(period, 48)
	return &Laguerre{
		warm:  newWarm(laguerreWarmup),
		alpha: 2 / float64(period+1),
		price: history(4),
	}
}

// Update consumes x (median price in the registry).
func (f *Laguerre) Update(x float64) float64 {
	f.tick()
	f.price.Append(x)
	if f.seeding() {
		f.stages.seed(f.price)
	} else {
		f.stages.step(f.alpha, x)
	}
	f.value = f.stages.output()
	return f.value
}

// Value returns the latest output.
func (f *Laguerre) Value() float64 { return f.value }

// AdaptiveLaguerre recomputes its damping factor every bar as the median of the
// normalised distance between price and the filter over the last length bars.
// A flat distance window keeps the previous factor.
type AdaptiveLaguerre struct {
	warm
	length int
	alpha  float64
	price  *series.Series[float64]
	out    *series.Series[float64]
	stages laguerreStages
}

const adaptiveLaguerreWarmup = 60

// NewAdaptiveLaguerre builds the filter (default length 20).
func NewAdaptiveLaguerre(length int) *AdaptiveLaguerre {
	length = orDefault(length, 20)
	return &AdaptiveLaguerre{
		warm:   newWarm(max(adaptiveLaguerreWarmup, length+2)),
		length: length,
		alpha:  2 / float64(length+1),
		price:  history(max(length, 4)),
		out:    history(length),
	}
}

// Update consumes x (median price in the registry).
func (f *AdaptiveLaguerre) Update(x float64) float64 {
	f.tick()
	f.price.Append(x)
	if f.seeding() {
		f.stages.seed(f.price)
		f.out.Append(x)
		return x
	}

	diff := make([]float64, f.length)
	for i := range diff {
		diff[i] = math.Abs(ago(f.price, -i) - ago(f.out, -i))
	}
	hh, ll := slices.Max(diff), slices.Min(diff)
	if hh-ll != 0 {
		for i := range diff {
			diff[i] = (diff[i] - ll) / (hh - ll)
		}
		f.alpha = median(diff)
	}

	f.stages.step(f.alpha, x)
	v := f.stages.output()
	f.out.Append(v)
	return v
}

// Value returns the latest output.
func (f *AdaptiveLaguerre) Value() float64 { return ago(f.out, 0) }

func median(values []float64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
