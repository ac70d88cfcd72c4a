package exchange

import (
	"cmp"
	"context"
	"slices"

	"nnfx-go/internal/signal"
)

// Stepper groups per-symbol bars into timesteps. A timestep is released once every
// tracked symbol has reported that close time, or earlier when a newer close time
// arrives, in which case the stragglers are dropped from it.
type Stepper struct {
	symbols []string
	pending map[int64][]signal.Bar
	last    int64
}

// NewStepper tracks the given symbols.
func NewStepper(symbols []string) *Stepper {
	return &Stepper{symbols: slices.Clone(symbols), pending: make(map[int64][]signal.Bar)}
}

// Add records b and returns any timesteps it completes, oldest first. Bars at or
// before an already released close time are ignored.
func (s *Stepper) Add(b signal.Bar) [][]signal.Bar {
	if b.Ts <= s.last || !slices.Contains(s.symbols, b.Symbol) {
		return nil
	}
	bars := s.pending[b.Ts]
	if i := slices.IndexFunc(bars, func(x signal.Bar) bool { return x.Symbol == b.Symbol }); i >= 0 {
		bars[i] = b
	} else {
		bars = append(bars, b)
	}
	s.pending[b.Ts] = bars

	var ready []int64
	for ts, group := range s.pending {
		if ts < b.Ts || len(group) == len(s.symbols) {
			ready = append(ready, ts)
		}
	}
	return s.release(ready)
}

func (s *Stepper) release(ready []int64) [][]signal.Bar {
	slices.Sort(ready)
	out := make([][]signal.Bar, 0, len(ready))
	for _, ts := range ready {
		group := s.pending[ts]
		delete(s.pending, ts)
		slices.SortFunc(group, func(a, b signal.Bar) int { return cmp.Compare(a.Symbol, b.Symbol) })
		out = append(out, group)
		s.last = ts
	}
	return out
}

// Flush releases every pending timestep, oldest first.
func (s *Stepper) Flush() [][]signal.Bar {
	if len(s.pending) == 0 {
		return nil
	}
	ready := make([]int64, 0, len(s.pending))
	for ts := range s.pending {
		ready = append(ready, ts)
	}
	return s.release(ready)
}

// Run reads bars from in and writes complete timesteps to out until in closes or ctx ends.
func (s *Stepper) Run(ctx context.Context, in <-chan signal.Bar, out chan<- []signal.Bar) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-in:
			if !ok {
				return nil
			}
			for _, step := range s.Add(b) {
				select {
				case out <- step:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
