package filter

import (
	"math"

	"nnfx-go/internal/series"
	"nnfx-go/internal/signal"
)

// Schaff is the Schaff trend cycle: a MACD stochastically rescaled twice over a rolling
// window, each pass smoothed by factor. Output lives in [0, 100].
type Schaff struct {
	warm
	macd        *MACD
	cycle       int
	factor      float64
	macdHist    *series.Series[float64]
	pf          *series.Series[float64]
	f1, f2, stc float64
}

const schaffSeed = 50.0

// NewSchaff builds the cycle (defaults 23, 50, 10, 0.5).
func NewSchaff(fast, slow, cycle int, factor float64) *Schaff {
	slow = orDefault(slow, 50)
	cycle = orDefault(cycle, 10)
	if factor <= 0 || factor > 1 {
		factor = 0.5
	}
	return &Schaff{
		warm:     newWarm(slow),
		macd:     NewMACD(orDefault(fast, 23), slow),
		cycle:    cycle,
		factor:   factor,
		macdHist: history(cycle),
		pf:       history(cycle),
		f1:       schaffSeed,
		f2:       schaffSeed,
		stc:      schaffSeed,
	}
}

// Update consumes x and returns the trend cycle.
func (f *Schaff) Update(x float64) float64 {
	f.tick()
	m := f.macd.Update(x)
	f.macdHist.Append(m)
	if f.seeding() {
		f.pf.Append(schaffSeed)
		return f.stc
	}

	hi, lo := highest(f.macdHist, f.cycle), lowest(f.macdHist, f.cycle)
	if hi-lo > 0 {
		f.f1 = 100 * (m - lo) / (hi - lo)
	}
	pf := ago(f.pf, 0) + f.factor*(f.f1-ago(f.pf, 0))
	f.pf.Append(pf)

	hi, lo = highest(f.pf, f.cycle), lowest(f.pf, f.cycle)
	if hi-lo > 0 {
		f.f2 = 100 * (pf - lo) / (hi - lo)
	}
	f.stc += f.factor * (f.f2 - f.stc)
	return f.stc
}

// Value returns the latest trend cycle.
func (f *Schaff) Value() float64 { return f.stc }

// TTF is the trend trigger factor: buy power versus sell power between the latest period
// bars and the period bars before them.
type TTF struct {
	warm
	period    int
	high, low *series.Series[float64]
	value     float64
}

// NewTTF builds the factor (default period 20).
func NewTTF(period int) *TTF {
	period = orDefault(period, 20)
	return &TTF{
		warm:   newWarm(2*period + 1),
		period: period,
		high:   history(2*period + 1),
		low:    history(2*period + 1),
	}
}

// Update consumes one bar.
func (f *TTF) Update(b signal.Bar) float64 {
	f.tick()
	f.high.Append(b.High)
	f.low.Append(b.Low)
	if f.seeding() {
		f.value = 0
		return f.value
	}
	n := f.period
	hi, _ := rangeAt(f.high, 0, n)
	_, lo := rangeAt(f.low, 0, n)
	lagHi, _ := rangeAt(f.high, -(n + 1), n)
	_, lagLo := rangeAt(f.low, -(n + 1), n)

	buyPower := hi - lagLo
	sellPower := lagHi - lo
	f.value = 100 * safeDiv(buyPower-sellPower, 0.5*(buyPower+sellPower))
	return f.value
}

// Value returns the latest factor.
func (f *TTF) Value() float64 { return f.value }

// TDFI is the trend direction and force index, normalised by its largest absolute value
// over the last 3*period bars.
type TDFI struct {
	warm
	period     int
	mma, smma  *EMA
	prevMMA    float64
	prevSMMA   float64
	tdf        *series.Series[float64]
	Normalized float64
}

// tdfiScale keeps forex-sized price moves away from float underflow once cubed.
const tdfiScale = 1000

// NewTDFI builds the index (default period 13).
func NewTDFI(period int) *TDFI {
	period = orDefault(period, 13)
	return &TDFI{
		warm:   newWarm(3 * period),
		period: period,
		mma:    NewEMA(period),
		smma:   NewEMA(period),
		tdf:    history(3 * period),
	}
}

// Update consumes x and returns the normalised index.
func (f *TDFI) Update(x float64) float64 {
	f.tick()
	mma := f.mma.Update(x * tdfiScale)
	smma := f.smma.Update(mma)
	if f.seen == 1 {
		f.prevMMA, f.prevSMMA = mma, smma
	}
	impetMMA := mma - f.prevMMA
	impetSMMA := smma - f.prevSMMA
	f.prevMMA, f.prevSMMA = mma, smma

	avg := (impetMMA + impetSMMA) / 2
	tdf := finite(math.Abs(mma-smma) * avg * avg * avg)
	f.tdf.Append(tdf)
	if f.seeding() {
		f.Normalized = 0
		return 0
	}
	var peak float64
	for i := 0; i < f.tdf.Len(); i++ {
		peak = math.Max(peak, math.Abs(ago(f.tdf, -i)))
	}
	f.Normalized = safeDiv(tdf, peak)
	return f.Normalized
}

// WAE is the Waddah Attar explosion: MACD momentum split into up/down trend bars,
// compared against Bollinger width (explosion) and an ATR dead zone.
type WAE struct {
	sensitivity float64
	deadMult    float64
	macd        *MACD
	prevMACD    float64
	bands       *Bollinger
	atr         *ATR
	seen        int

	Up, Down  float64
	Explosion float64
	DeadZone  float64
}

const waeATRPeriod = 50

// NewWAE builds the indicator (defaults 150, 20, 40, 20, 2.0, 3.7).
func NewWAE(sensitivity float64, fast, slow, channel int, mult, dead float64) *WAE {
	if sensitivity <= 0 {
		sensitivity = 150
	}
	if dead <= 0 {
		dead = 3.7
	}
	return &WAE{
		sensitivity: sensitivity,
		deadMult:    dead,
		macd:        NewMACD(orDefault(fast, 20), orDefault(slow, 40)),
		bands:       NewBollinger(orDefault(channel, 20), mult),
		atr:         NewATR(waeATRPeriod),
	}
}

// Update consumes one bar.
func (f *WAE) Update(b signal.Bar) {
	f.seen++
	m := f.macd.Update(b.Close)
	if f.seen == 1 {
		f.prevMACD = m
	}
	t1 := (m - f.prevMACD) * f.sensitivity
	f.prevMACD = m

	f.bands.Update(b.Close)
	f.Explosion = f.bands.Top - f.bands.Bot
	f.Up = math.Max(t1, 0)
	f.Down = math.Max(-t1, 0)
	f.DeadZone = f.atr.Update(b) * f.deadMult
}

// Warmup implements Filter.
func (f *WAE) Warmup() int {
	return max(f.macd.Warmup()+1, f.bands.Warmup(), f.atr.Warmup())
}

// Ready implements Filter.
func (f *WAE) Ready() bool { return f.seen >= f.Warmup() }

// ASH modes.
const (
	ASHModeRSI   = 0
	ASHModeStoch = 1
)

// ASH is the absolute strength histogram: bull and bear pressure averaged then smoothed.
type ASH struct {
	mode      int
	rsiFactor float64
	pointSize float64
	period    int
	prices    *series.Series[float64]
	avBulls   Smoother
	avBears   Smoother
	smBulls   Smoother
	smBears   Smoother
	Bulls     float64
	Bears     float64
}

// NewASH builds the histogram. movav names the averaging kind; smoothav defaults to movav
// when empty; pointSize <= 0 disables point scaling.
func NewASH(period, smoothing, mode int, rsiFactor float64, movav, smoothav string, pointSize float64) (*ASH, error) {
	period = orDefault(period, 9)
	smoothing = orDefault(smoothing, 2)
	if movav == "" {
		movav = KindWMA
	}
	if smoothav == "" {
		smoothav = movav
	}
	if rsiFactor <= 0 {
		rsiFactor = 0.5
	}
	f := &ASH{mode: mode, rsiFactor: rsiFactor, pointSize: pointSize, period: period, prices: history(period)}
	var err error
	if f.avBulls, err = NewMA(movav, period); err != nil {
		return nil, err
	}
	f.avBears, _ = NewMA(movav, period)
	if f.smBulls, err = NewMA(smoothav, smoothing); err != nil {
		return nil, err
	}
	f.smBears, _ = NewMA(smoothav, smoothing)
	return f, nil
}

// Update consumes x.
func (f *ASH) Update(x float64) {
	var bulls, bears float64
	if f.mode == ASHModeStoch {
		f.prices.Append(x)
		bulls = x - lowest(f.prices, f.period)
		bears = highest(f.prices, f.period) - x
	} else {
		delta := 0.0
		if f.prices.Len() > 0 {
			delta = x - ago(f.prices, 0)
		}
		f.prices.Append(x)
		half := f.rsiFactor * math.Abs(delta)
		bulls = half + delta
		bears = half - delta
	}
	sb := f.smBulls.Update(f.avBulls.Update(bulls))
	sr := f.smBears.Update(f.avBears.Update(bears))
	if f.pointSize > 0 {
		sb /= f.pointSize
		sr /= f.pointSize
	}
	f.Bulls, f.Bears = sb, sr
}

// Warmup implements Filter.
func (f *ASH) Warmup() int { return f.avBulls.Warmup() + f.smBulls.Warmup() }

// Ready implements Filter.
func (f *ASH) Ready() bool {
	return f.avBulls.Ready() && f.smBulls.Ready() && f.prices.Seen() >= f.Warmup()
}

// CMF is Chaikin money flow: accumulation/distribution volume over total volume.
type CMF struct {
	warm
	period int
	ad     *series.Series[float64]
	vol    *series.Series[float64]
	value  float64
}

// NewCMF builds the flow (default period 20).
func NewCMF(period int) *CMF {
	period = orDefault(period, 20)
	return &CMF{warm: newWarm(period), period: period, ad: history(period), vol: history(period)}
}

// Update consumes one bar.
func (f *CMF) Update(b signal.Bar) float64 {
	f.tick()
	ad := 0.0
	if b.High != b.Low {
		ad = ((2*b.Close - b.Low - b.High) / (b.High - b.Low)) * b.Volume
	}
	f.ad.Append(ad)
	f.vol.Append(b.Volume)
	f.value = safeDiv(sum(f.ad, f.period), sum(f.vol, f.period))
	return f.value
}

// Value returns the latest flow.
func (f *CMF) Value() float64 { return f.value }

// KVO is the Klinger volume oscillator with its EMA signal line.
type KVO struct {
	fast, slow *EMA
	signal     *EMA
	prevHLC3   float64
	seen       int
	KVO        float64
	Signal     float64
}

// NewKVO builds the oscillator (defaults 34, 55, 13).
func NewKVO(fast, slow, signalPeriod int) *KVO {
	return &KVO{
		fast:   NewEMA(orDefault(fast, 34)),
		slow:   NewEMA(orDefault(slow, 55)),
		signal: NewEMA(orDefault(signalPeriod, 13)),
	}
}

// Update consumes one bar.
func (f *KVO) Update(b signal.Bar) {
	f.seen++
	hlc3 := (b.High + b.Low + b.Close) / 3
	sv := b.Volume
	if f.seen > 1 && hlc3 < f.prevHLC3 {
		sv = -b.Volume
	}
	f.prevHLC3 = hlc3
	f.KVO = f.fast.Update(sv) - f.slow.Update(sv)
	f.Signal = f.signal.Update(f.KVO)
}

// Warmup implements Filter.
func (f *KVO) Warmup() int {
	return max(f.fast.Warmup(), f.slow.Warmup()) + f.signal.Warmup() - 1
}

// Ready implements Filter.
func (f *KVO) Ready() bool { return f.seen >= f.Warmup() }
