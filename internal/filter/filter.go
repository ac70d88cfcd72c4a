// Package filter implements the streaming recursive filters and oscillators used to build
// trade signals. Every filter consumes one bar (or one value) per call, keeps its own
// recursion memory, and reports Ready once its full formula is in effect. Before that it
// emits a seed approximation so downstream recursions never start from undefined state.
package filter

import (
	"math"

	"nnfx-go/internal/series"
	"nnfx-go/internal/signal"
)

// Filter is the contract shared by every member of the library.
type Filter interface {
	// Warmup is the number of bars after which Ready becomes true.
	Warmup() int
	// Ready reports whether the full recursive formula produced the latest output.
	Ready() bool
}

// Source extracts the filter input from a bar.
type Source func(signal.Bar) float64

// Close selects the closing price.
func Close(b signal.Bar) float64 { return b.Close }

// Median selects (high+low)/2.
func Median(b signal.Bar) float64 { return b.Median() }

// warm counts bars and answers the warm-up questions for the embedding filter.
type warm struct {
	need int
	seen int
}

func newWarm(need int) warm {
	if need < 1 {
		need = 1
	}
	return warm{need: need}
}

func (w *warm) tick() { w.seen++ }

// seeding is true while the current bar is still inside warm-up.
func (w *warm) seeding() bool { return w.seen < w.need }

// Warmup implements Filter.
func (w *warm) Warmup() int { return w.need }

// Ready implements Filter.
func (w *warm) Ready() bool { return w.seen >= w.need }

func history(capacity int) *series.Series[float64] { return series.New[float64](capacity) }

// ago reads offset from s, substituting the oldest value while history is short.
func ago(s *series.Series[float64], offset int) float64 { return s.AtOrOldest(offset) }

func highest(s *series.Series[float64], n int) float64 {
	out := ago(s, 0)
	for i := 1; i < n && i < s.Len(); i++ {
		out = math.Max(out, ago(s, -i))
	}
	return out
}

func lowest(s *series.Series[float64], n int) float64 {
	out := ago(s, 0)
	for i := 1; i < n && i < s.Len(); i++ {
		out = math.Min(out, ago(s, -i))
	}
	return out
}

// rangeAt is highest/lowest over n values ending at offset from.
func rangeAt(s *series.Series[float64], from, n int) (hi, lo float64) {
	hi, lo = ago(s, from), ago(s, from)
	for i := 1; i < n; i++ {
		v := ago(s, from-i)
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	return hi, lo
}

func sum(s *series.Series[float64], n int) float64 {
	var out float64
	for i := 0; i < n && i < s.Len(); i++ {
		out += ago(s, -i)
	}
	return out
}

// safeDiv returns 0 instead of NaN or Inf.
func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

func deg(rad float64) float64 { return rad * 180 / math.Pi }

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
