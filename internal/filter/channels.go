package filter

import (
	"math"

	"nnfx-go/internal/series"
	"nnfx-go/internal/signal"
)

// SSL is the SSL channel built from smoothed highs and lows. Up and Down swap whenever the
// close is above the smoothed high.
type SSL struct {
	high, low *EMA
	Up, Down  float64
}

// NewSSL builds the channel (default period 30).
func NewSSL(period int) *SSL {
	period = orDefault(period, 30)
	return &SSL{high: NewSMMA(period), low: NewSMMA(period)}
}

// Update consumes one bar.
func (f *SSL) Update(b signal.Bar) {
	hi := f.high.Update(b.High)
	lo := f.low.Update(b.Low)
	if b.Close > hi {
		f.Up, f.Down = hi, lo
		return
	}
	f.Up, f.Down = lo, hi
}

// Warmup implements Filter.
func (f *SSL) Warmup() int { return f.high.Warmup() }

// Ready implements Filter.
func (f *SSL) Ready() bool { return f.high.Ready() }

// Squeeze compares Bollinger bands with a Keltner channel. Squeezed is 0 while the bands sit
// inside the channel and 1 once they break out; Hist is the end-point linear regression of
// close against the channel midline.
type Squeeze struct {
	warm
	periodKC int
	multKC   float64
	bands    *Bollinger
	ma       Smoother
	atr      *ATR
	rangeMA  Smoother
	high     *series.Series[float64]
	low      *series.Series[float64]
	y        *series.Series[float64]

	Squeezed float64
	Hist     float64
}

// NewSqueeze builds the indicator (defaults 10, 2.0, 10, 1.5, sma).
func NewSqueeze(period int, mult float64, periodKC int, multKC float64, movav string) (*Squeeze, error) {
	periodKC = orDefault(periodKC, 10)
	if multKC <= 0 {
		multKC = 1.5
	}
	if movav == "" {
		movav = KindSMA
	}
	ma, err := NewMA(movav, periodKC)
	if err != nil {
		return nil, err
	}
	rangeMA, _ := NewMA(movav, periodKC)
	return &Squeeze{
		warm:     newWarm(2 * periodKC),
		periodKC: periodKC,
		multKC:   multKC,
		bands:    NewBollinger(orDefault(period, 10), mult),
		ma:       ma,
		atr:      NewATR(periodKC),
		rangeMA:  rangeMA,
		high:     history(periodKC),
		low:      history(periodKC),
		y:        history(periodKC),
	}, nil
}

// Update consumes one bar.
func (f *Squeeze) Update(b signal.Bar) {
	f.tick()
	f.bands.Update(b.Close)
	mid := f.ma.Update(b.Close)
	width := f.rangeMA.Update(f.atr.Update(b)) * f.multKC
	f.high.Append(b.High)
	f.low.Append(b.Low)

	f.Squeezed = 1
	if f.bands.Bot > mid-width && f.bands.Top < mid+width {
		f.Squeezed = 0
	}

	if f.seeding() {
		f.y.Append(0)
		f.Hist = 0
		return
	}
	donchian := (highest(f.high, f.periodKC) + lowest(f.low, f.periodKC)) / 2
	f.y.Append(b.Close - (donchian+mid)/2)
	f.Hist = linregEnd(f.y.Last(f.periodKC))
}

// linregEnd fits a least-squares line to values (most recent first) and returns its value
// at the most recent point.
func linregEnd(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}
	var sx, sy, sxx, sxy float64
	for i, v := range values {
		x := float64(n - 1 - i)
		sx += x
		sy += v
		sxx += x * x
		sxy += x * v
	}
	fn := float64(n)
	den := fn*sxx - sx*sx
	slope := safeDiv(fn*sxy-sx*sy, den)
	intercept := (sy - slope*sx) / fn
	return intercept + slope*float64(n-1)
}

// Kijun is the Ichimoku base line: the midpoint of the highest high and lowest low.
type Kijun struct {
	warm
	period    int
	high, low *series.Series[float64]
	value     float64
}

// NewKijun builds the line (default period 26).
func NewKijun(period int) *Kijun {
	period = orDefault(period, 26)
	return &Kijun{warm: newWarm(period), period: period, high: history(period), low: history(period)}
}

// Update consumes one bar.
func (f *Kijun) Update(b signal.Bar) float64 {
	f.tick()
	f.high.Append(b.High)
	f.low.Append(b.Low)
	f.value = (highest(f.high, f.period) + lowest(f.low, f.period)) / 2
	return f.value
}

// Value returns the latest line value.
func (f *Kijun) Value() float64 { return f.value }

// Aroon measures, in percent, how recently the period high and low were set.
type Aroon struct {
	warm
	period    int
	high, low *series.Series[float64]
	Up, Down  float64
}

// NewAroon builds the indicator (default period 14). It looks at period+1 bars.
func NewAroon(period int) *Aroon {
	period = orDefault(period, 14)
	return &Aroon{
		warm:   newWarm(period + 1),
		period: period,
		high:   history(period + 1),
		low:    history(period + 1),
	}
}

// Update consumes one bar.
func (f *Aroon) Update(b signal.Bar) {
	f.tick()
	f.high.Append(b.High)
	f.low.Append(b.Low)
	hiAgo, loAgo := 0, 0
	hi, lo := b.High, b.Low
	for i := 1; i < f.high.Len(); i++ {
		if v := ago(f.high, -i); v > hi {
			hi, hiAgo = v, i
		}
		if v := ago(f.low, -i); v < lo {
			lo, loAgo = v, i
		}
	}
	p := float64(f.period)
	f.Up = 100 * (p - float64(hiAgo)) / p
	f.Down = 100 * (p - float64(loAgo)) / p
}

// HeikinAshi tracks smoothed candles. Signal is +1 for a bullish candle and -1 otherwise.
type HeikinAshi struct {
	seen                   int
	Open, High, Low, Close float64
	Signal                 signal.Direction
}

// NewHeikinAshi builds the candle tracker.
func NewHeikinAshi() *HeikinAshi { return &HeikinAshi{} }

// Update consumes one bar.
func (f *HeikinAshi) Update(b signal.Bar) {
	haClose := (b.Open + b.High + b.Low + b.Close) / 4
	haOpen := (b.Open + b.Close) / 2
	if f.seen > 0 {
		haOpen = (f.Open + f.Close) / 2
	}
	f.seen++
	f.Open, f.Close = haOpen, haClose
	f.High = math.Max(b.High, math.Max(haOpen, haClose))
	f.Low = math.Min(b.Low, math.Min(haOpen, haClose))
	f.Signal = signal.Long
	if haClose < haOpen {
		f.Signal = signal.Short
	}
}

// Warmup implements Filter.
func (f *HeikinAshi) Warmup() int { return 2 }

// Ready implements Filter.
func (f *HeikinAshi) Ready() bool { return f.seen >= 2 }
