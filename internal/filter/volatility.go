package filter

import (
	"math"

	"nnfx-go/internal/series"
	"nnfx-go/internal/signal"
)

// ATR is the average true range, Wilder-smoothed.
type ATR struct {
	warm
	smma      *EMA
	prevClose float64
	value     float64
}

// NewATR builds an ATR (default period 14). The first bar's true range is high-low.
func NewATR(period int) *ATR {
	period = orDefault(period, 14)
	return &ATR{warm: newWarm(period + 1), smma: NewSMMA(period)}
}

// Update consumes one bar.
func (a *ATR) Update(b signal.Bar) float64 {
	tr := b.High - b.Low
	if a.seen > 0 {
		tr = math.Max(b.High, a.prevClose) - math.Min(b.Low, a.prevClose)
	}
	a.tick()
	a.prevClose = b.Close
	a.value = a.smma.Update(tr)
	return a.value
}

// Value returns the latest ATR.
func (a *ATR) Value() float64 { return a.value }

// StdDev is the population standard deviation over a rolling window.
type StdDev struct {
	warm
	period int
	window *series.Series[float64]
	value  float64
}

// NewStdDev builds a rolling standard deviation (default period 20).
func NewStdDev(period int) *StdDev {
	period = orDefault(period, 20)
	return &StdDev{warm: newWarm(period), period: period, window: history(period)}
}

// Update consumes x.
func (s *StdDev) Update(x float64) float64 {
	s.tick()
	s.window.Append(x)
	n := s.window.Len()
	mean := sum(s.window, n) / float64(n)
	var acc float64
	for i := 0; i < n; i++ {
		d := ago(s.window, -i) - mean
		acc += d * d
	}
	s.value = math.Sqrt(acc / float64(n))
	return s.value
}

// Value returns the latest deviation.
func (s *StdDev) Value() float64 { return s.value }

// Bollinger bands: SMA mid line ± dev standard deviations.
type Bollinger struct {
	mid      *SMA
	std      *StdDev
	dev      float64
	Top, Bot float64
}

// NewBollinger builds bands (defaults 20, 2.0).
func NewBollinger(period int, dev float64) *Bollinger {
	if dev <= 0 {
		dev = 2
	}
	return &Bollinger{mid: NewSMA(period), std: NewStdDev(period), dev: dev}
}

// Update consumes x.
func (b *Bollinger) Update(x float64) {
	mid := b.mid.Update(x)
	sd := b.std.Update(x)
	b.Top = mid + b.dev*sd
	b.Bot = mid - b.dev*sd
}

// Warmup implements Filter.
func (b *Bollinger) Warmup() int { return b.mid.Warmup() }

// Ready implements Filter.
func (b *Bollinger) Ready() bool { return b.mid.Ready() }

// MACD is EMA(fast) - EMA(slow).
type MACD struct {
	fast, slow *EMA
	value      float64
}

// NewMACD builds the MACD line (defaults 12, 26).
func NewMACD(fast, slow int) *MACD {
	return &MACD{fast: NewEMA(orDefault(fast, 12)), slow: NewEMA(orDefault(slow, 26))}
}

// Update consumes x.
func (m *MACD) Update(x float64) float64 {
	m.value = m.fast.Update(x) - m.slow.Update(x)
	return m.value
}

// Value returns the latest MACD.
func (m *MACD) Value() float64 { return m.value }

// Warmup implements Filter.
func (m *MACD) Warmup() int { return max(m.fast.Warmup(), m.slow.Warmup()) }

// Ready implements Filter.
func (m *MACD) Ready() bool { return m.fast.Ready() && m.slow.Ready() }

// ChaikinVolatility is the rate of change of an EMA of the high-low range, in percent.
type ChaikinVolatility struct {
	warm
	ema   *EMA
	roc   int
	hist  *series.Series[float64]
	value float64
}

// NewChaikinVolatility builds the index (defaults 10, 10).
func NewChaikinVolatility(emaPeriod, rocPeriod int) *ChaikinVolatility {
	emaPeriod = orDefault(emaPeriod, 10)
	rocPeriod = orDefault(rocPeriod, 10)
	return &ChaikinVolatility{
		warm: newWarm(emaPeriod + rocPeriod),
		ema:  NewEMA(emaPeriod),
		roc:  rocPeriod,
		hist: history(rocPeriod + 1),
	}
}

// Update consumes one bar.
func (c *ChaikinVolatility) Update(b signal.Bar) float64 {
	c.tick()
	c.hist.Append(c.ema.Update(b.High - b.Low))
	if c.seeding() {
		c.value = 0
		return c.value
	}
	past := ago(c.hist, -c.roc)
	c.value = 100 * safeDiv(ago(c.hist, 0)-past, past)
	return c.value
}

// Value returns the latest index value.
func (c *ChaikinVolatility) Value() float64 { return c.value }

// NormalizedVolume is volume as a percentage of its moving average.
type NormalizedVolume struct {
	ma    *SMA
	value float64
}

// NewNormalizedVolume builds the ratio (default period 5).
func NewNormalizedVolume(period int) *NormalizedVolume {
	return &NormalizedVolume{ma: NewSMA(orDefault(period, 5))}
}

// Update consumes one bar.
func (n *NormalizedVolume) Update(b signal.Bar) float64 {
	avg := n.ma.Update(b.Volume)
	n.value = 100 * safeDiv(b.Volume, avg)
	return n.value
}

// Value returns the latest ratio.
func (n *NormalizedVolume) Value() float64 { return n.value }

// Warmup implements Filter.
func (n *NormalizedVolume) Warmup() int { return n.ma.Warmup() }

// Ready implements Filter.
func (n *NormalizedVolume) Ready() bool { return n.ma.Ready() }

// Damiani is the Damiani volatmeter: a fast/slow ATR ratio (optionally lag-suppressed)
// compared against a threshold derived from fast/slow standard deviations.
type Damiani struct {
	warm
	atrFast, atrSlow *ATR
	stdFast, stdSlow *StdDev
	thresh           float64
	lagSuppress      bool
	v                *series.Series[float64]
	Volatility       float64
	Threshold        float64
}

const damianiSeed = 0.005

// NewDamiani builds the volatmeter (defaults 13, 20, 40, 100, 1.4).
func NewDamiani(atrFast, stdFast, atrSlow, stdSlow int, thresh float64, lagSuppress bool) *Damiani {
	atrFast = orDefault(atrFast, 13)
	stdFast = orDefault(stdFast, 20)
	atrSlow = orDefault(atrSlow, 40)
	stdSlow = orDefault(stdSlow, 100)
	if thresh <= 0 {
		thresh = 1.4
	}
	return &Damiani{
		warm:        newWarm(max(atrSlow+1, stdSlow)),
		atrFast:     NewATR(atrFast),
		atrSlow:     NewATR(atrSlow),
		stdFast:     NewStdDev(stdFast),
		stdSlow:     NewStdDev(stdSlow),
		thresh:      thresh,
		lagSuppress: lagSuppress,
		v:           history(3),
	}
}

// Update consumes one bar.
func (d *Damiani) Update(b signal.Bar) {
	d.tick()
	af := d.atrFast.Update(b)
	as := d.atrSlow.Update(b)
	sf := d.stdFast.Update(b.Close)
	ss := d.stdSlow.Update(b.Close)

	if d.seeding() {
		d.Volatility = damianiSeed
		d.Threshold = d.thresh
		d.v.Append(d.Volatility)
		return
	}
	vol := safeDiv(af, as)
	if d.lagSuppress {
		vol += 0.5 * (ago(d.v, 0) - ago(d.v, -2))
	}
	d.v.Append(vol)
	d.Volatility = vol
	d.Threshold = d.thresh - safeDiv(sf, ss)
}
