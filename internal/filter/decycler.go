package filter

import (
	"math"

	"nnfx-go/internal/series"
)

// IFisher rescales its input into [-scaling, scaling] over a rolling high/low window,
// smooths it, and applies the inverse Fisher transform (e^{2x}-1)/(e^{2x}+1).
type IFisher struct {
	warm
	period  int
	scaling float64
	input   *series.Series[float64]
	smooth  *SMA
	value   float64
}

// Inverse Fisher defaults.
const (
	IFisherPeriod  = 20
	IFisherScaling = 5.0
)

// NewIFisher builds the transform (defaults 20, 5.0, 5).
func NewIFisher(period int, scaling float64, smoothing int) *IFisher {
	period = orDefault(period, IFisherPeriod)
	if scaling <= 0 {
		scaling = IFisherScaling
	}
	return &IFisher{
		warm:    newWarm(period),
		period:  period,
		scaling: scaling,
		input:   history(period),
		smooth:  NewSMA(orDefault(smoothing, 5)),
	}
}

// Update consumes x and returns the transformed value in (-1, 1).
func (f *IFisher) Update(x float64) float64 {
	f.tick()
	f.input.Append(x)
	hi, lo := highest(f.input, f.period), lowest(f.input, f.period)
	scaled := 2*f.scaling*safeDiv(x-lo, hi-lo) - f.scaling
	if hi == lo {
		scaled = 0
	}
	s := f.smooth.Update(scaled)
	// tanh(s) == (e^{2s}-1)/(e^{2s}+1) without overflow for large s.
	f.value = math.Tanh(s)
	return f.value
}

// Value returns the latest output.
func (f *IFisher) Value() float64 { return f.value }

// Roofing chains a high-pass into a super smoother, with an inverse Fisher view of the result.
type Roofing struct {
	hp     *HighPass
	ss     *SuperSmoother
	fisher *IFisher
	Roof   float64
	IRoof  float64
}

// NewRoofing builds the roofing filter (defaults 48, 10, 2).
func NewRoofing(hpPeriod, ssPeriod, smooth int) *Roofing {
	return &Roofing{
		hp:     NewHighPass(hpPeriod),
		ss:     NewSuperSmoother(ssPeriod),
		fisher: NewIFisher(IFisherPeriod, IFisherScaling, orDefault(smooth, 2)),
	}
}

// Update consumes x.
func (f *Roofing) Update(x float64) {
	f.Roof = f.ss.Update(f.hp.Update(x))
	f.IRoof = f.fisher.Update(f.Roof)
}

// Warmup implements Filter.
func (f *Roofing) Warmup() int {
	return max(f.hp.Warmup(), f.ss.Warmup(), f.fisher.Warmup())
}

// Ready implements Filter.
func (f *Roofing) Ready() bool { return f.hp.Ready() && f.ss.Ready() && f.fisher.Ready() }

// Decycler is the decycler oscillator: price minus its high-pass (the decycle), high-passed
// again over twice the period.
type Decycler struct {
	warm
	hp, osc *HighPass
	Decycle float64
	Osc     float64
}

const decyclerWarmup = 20

// NewDecycler builds the oscillator (default period 48).
func NewDecycler(hpPeriod int) *Decycler {
	hpPeriod = orDefault(hpPeriod, 48)
	return &Decycler{
		warm: newWarm(decyclerWarmup),
		hp:   NewHighPass(hpPeriod),
		osc:  NewHighPass(2 * hpPeriod),
	}
}

// Update consumes x and returns the oscillator.
func (f *Decycler) Update(x float64) float64 {
	f.tick()
	f.Decycle = x - f.hp.Update(x)
	osc := f.osc.Update(f.Decycle)
	if f.seeding() {
		osc = 0
	}
	f.Osc = osc
	return f.Osc
}

// IDecycler is the inverse Fisher transform of the decycler oscillator.
type IDecycler struct {
	osc    *Decycler
	fisher *IFisher
	value  float64
}

// NewIDecycler builds the transform (defaults 48, 2).
func NewIDecycler(hpPeriod, smooth int) *IDecycler {
	return &IDecycler{
		osc:    NewDecycler(hpPeriod),
		fisher: NewIFisher(IFisherPeriod, IFisherScaling, orDefault(smooth, 2)),
	}
}

// Update consumes x.
func (f *IDecycler) Update(x float64) float64 {
	f.value = f.fisher.Update(f.osc.Update(x))
	return f.value
}

// Value returns the latest output.
func (f *IDecycler) Value() float64 { return f.value }

// Warmup implements Filter.
func (f *IDecycler) Warmup() int { return max(f.osc.Warmup(), f.fisher.Warmup()) }

// Ready implements Filter.
func (f *IDecycler) Ready() bool { return f.osc.Ready() && f.fisher.Ready() }
