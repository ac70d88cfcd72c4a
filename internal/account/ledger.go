package account

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"nnfx-go/internal/execution"
)

// Metric names a scalar performance measure.
type Metric string

const (
	NormalizedReturn Metric = "rnorm"
	SQN              Metric = "sqn"
	MaxDrawdown      Metric = "drawdown"
)

// ParseMetric accepts the metric names and a few aliases.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rnorm", "return", "normalized_return":
		return NormalizedReturn, nil
	case "sqn":
		return SQN, nil
	case "drawdown", "max_drawdown", "dd":
		return MaxDrawdown, nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Summary aggregates closed trades.
type Summary struct {
	Trades int
	Wins   int
	NetPnL float64
	// NormalizedReturn is the net result as a percentage of starting cash.
	NormalizedReturn float64
	// SQN is sqrt(n) * mean(pnl) / stddev(pnl); 0 with fewer than two trades or no spread.
	SQN float64
	// MaxDrawdown is the largest peak-to-trough equity fall, in percent of the peak.
	MaxDrawdown float64
}

// Value returns the summary field named by m.
func (s Summary) Value(m Metric) (float64, error) {
	switch m {
	case NormalizedReturn:
		return s.NormalizedReturn, nil
	case SQN:
		return s.SQN, nil
	case MaxDrawdown:
		return s.MaxDrawdown, nil
	}
	return 0, fmt.Errorf("unknown metric %q", m)
}

// Ledger stores closed trades in memory.
type Ledger struct {
	mu           sync.Mutex
	startingCash float64
	trades       []execution.TradeClosed
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(startingCash float64, capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{startingCash: startingCash, trades: make([]execution.TradeClosed, 0, capacity)}
}

// Record appends a closed trade.
func (l *Ledger) Record(tc execution.TradeClosed) {
	l.mu.Lock()
	l.trades = append(l.trades, tc)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded trades.
func (l *Ledger) Snapshot() []execution.TradeClosed {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]execution.TradeClosed, len(l.trades))
	copy(out, l.trades)
	return out
}

// Summary computes the performance measures over every recorded trade.
func (l *Ledger) Summary() Summary {
	trades := l.Snapshot()
	var s Summary
	s.Trades = len(trades)

	equity, peak := l.startingCash, l.startingCash
	for _, tc := range trades {
		s.NetPnL += tc.RealizedPnL
		if tc.RealizedPnL > 0 {
			s.Wins++
		}
		equity += tc.RealizedPnL
		peak = math.Max(peak, equity)
		if peak > 0 {
			s.MaxDrawdown = math.Max(s.MaxDrawdown, 100*(peak-equity)/peak)
		}
	}
	if l.startingCash > 0 {
		s.NormalizedReturn = 100 * s.NetPnL / l.startingCash
	}

	if s.Trades >= 2 {
		mean := s.NetPnL / float64(s.Trades)
		var acc float64
		for _, tc := range trades {
			d := tc.RealizedPnL - mean
			acc += d * d
		}
		if std := math.Sqrt(acc / float64(s.Trades)); std > 0 {
			s.SQN = math.Sqrt(float64(s.Trades)) * mean / std
		}
	}
	return s
}
