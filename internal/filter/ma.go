package filter

import (
	"fmt"
	"math"
	"strings"

	"nnfx-go/internal/series"
)

// Smoother is a moving average over a scalar stream.
type Smoother interface {
	Filter
	Update(x float64) float64
	Value() float64
}

// MA kinds accepted by NewMA.
const (
	KindSMA  = "sma"
	KindEMA  = "ema"
	KindSMMA = "smma"
	KindWMA  = "wma"
	KindDEMA = "dema"
	KindHMA  = "hma"
)

// NewMA builds a moving average by kind name.
func NewMA(kind string, period int) (Smoother, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindSMA:
		return NewSMA(period), nil
	case KindEMA:
		return NewEMA(period), nil
	case KindSMMA, "rma", "wilder":
		return NewSMMA(period), nil
	case KindWMA:
		return NewWMA(period), nil
	case KindDEMA:
		return NewDEMA(period), nil
	case KindHMA:
		return NewHMA(period), nil
	default:
		return nil, fmt.Errorf("unknown moving average %q", kind)
	}
}

// SMA is the simple moving average. During warm-up it averages the values seen so far.
type SMA struct {
	warm
	period int
	window *series.Series[float64]
	value  float64
}

// NewSMA builds a simple moving average (default period 10).
func NewSMA(period int) *SMA {
	period = orDefault(period, 10)
	return &SMA{warm: newWarm(period), period: period, window: history(period)}
}

// Update consumes x and returns the average.
func (m *SMA) Update(x float64) float64 {
	m.tick()
	m.window.Append(x)
	m.value = sum(m.window, m.period) / float64(m.window.Len())
	return m.value
}

// Value returns the latest average.
func (m *SMA) Value() float64 { return m.value }

// EMA is an exponential moving average with smoothing factor alpha, seeded by the SMA of
// its first period inputs.
type EMA struct {
	warm
	alpha float64
	total float64
	value float64
}

// NewEMA uses alpha = 2/(period+1) (default period 10).
func NewEMA(period int) *EMA {
	period = orDefault(period, 10)
	return &EMA{warm: newWarm(period), alpha: 2 / float64(period+1)}
}

// NewSMMA is Wilder's smoothing, alpha = 1/period.
func NewSMMA(period int) *EMA {
	period = orDefault(period, 10)
	return &EMA{warm: newWarm(period), alpha: 1 / float64(period)}
}

// Update consumes x and returns the average.
func (m *EMA) Update(x float64) float64 {
	m.tick()
	if m.seen <= m.need {
		m.total += x
		m.value = m.total / float64(m.seen)
		return m.value
	}
	m.value = m.alpha*x + (1-m.alpha)*m.value
	return m.value
}

// Value returns the latest average.
func (m *EMA) Value() float64 { return m.value }

// WMA is the linearly weighted moving average; the latest value carries weight period.
type WMA struct {
	warm
	period int
	window *series.Series[float64]
	value  float64
}

// NewWMA builds a weighted moving average (default period 10).
func NewWMA(period int) *WMA {
	period = orDefault(period, 10)
	return &WMA{warm: newWarm(period), period: period, window: history(period)}
}

// Update consumes x and returns the average.
func (m *WMA) Update(x float64) float64 {
	m.tick()
	m.window.Append(x)
	n := m.window.Len()
	var num, den float64
	for i := 0; i < n; i++ {
		w := float64(n - i)
		num += w * ago(m.window, -i)
		den += w
	}
	m.value = num / den
	return m.value
}

// Value returns the latest average.
func (m *WMA) Value() float64 { return m.value }

// DEMA is 2*EMA - EMA(EMA).
type DEMA struct {
	first, second *EMA
	value         float64
}

// NewDEMA builds a double exponential moving average.
func NewDEMA(period int) *DEMA {
	return &DEMA{first: NewEMA(period), second: NewEMA(period)}
}

// Update consumes x and returns the average.
func (m *DEMA) Update(x float64) float64 {
	e1 := m.first.Update(x)
	e2 := m.second.Update(e1)
	m.value = 2*e1 - e2
	return m.value
}

// Value returns the latest average.
func (m *DEMA) Value() float64 { return m.value }

// Warmup implements Filter.
func (m *DEMA) Warmup() int { return 2*m.first.Warmup() - 1 }

// Ready implements Filter.
func (m *DEMA) Ready() bool { return m.first.seen >= m.Warmup() }

// HMA is the Hull moving average: WMA(2*WMA(n/2) - WMA(n), sqrt(n)).
type HMA struct {
	half, full, hull *WMA
	value            float64
}

// NewHMA builds a Hull moving average.
func NewHMA(period int) *HMA {
	period = orDefault(period, 10)
	half := period / 2
	if half < 1 {
		half = 1
	}
	return &HMA{
		half: NewWMA(half),
		full: NewWMA(period),
		hull: NewWMA(int(math.Round(math.Sqrt(float64(period))))),
	}
}

// Update consumes x and returns the average.
func (m *HMA) Update(x float64) float64 {
	raw := 2*m.half.Update(x) - m.full.Update(x)
	m.value = m.hull.Update(raw)
	return m.value
}

// Value returns the latest average.
func (m *HMA) Value() float64 { return m.value }

// Warmup implements Filter.
func (m *HMA) Warmup() int { return m.full.Warmup() + m.hull.Warmup() - 1 }

// Ready implements Filter.
func (m *HMA) Ready() bool { return m.full.Ready() && m.hull.seen >= m.Warmup() }
