// Package account mirrors the positions and equity reported by the execution venue. The
// trading core reads it; only venue reports change it.
package account

import (
	"math"
	"sync"

	"nnfx-go/internal/execution"
	"nnfx-go/internal/signal"
)

const epsilon = 1e-9

// Account tracks reported per-symbol positions and equity (starting cash plus realized PnL).
type Account struct {
	mu           sync.Mutex
	startingCash float64
	realizedPnL  float64
	positions    map[string]float64
	ledger       *Ledger
}

// Snapshot is a copy of the account state.
type Snapshot struct {
	StartingCash float64
	RealizedPnL  float64
	Equity       float64
	Positions    map[string]float64
}

// NewAccount constructs an account with starting cash and an empty trade ledger.
func NewAccount(startingCash float64) *Account {
	return &Account{
		startingCash: startingCash,
		positions:    make(map[string]float64),
		ledger:       NewLedger(startingCash, 0),
	}
}

// StartingCash returns the initial bankroll.
func (a *Account) StartingCash() float64 { return a.startingCash }

// Ledger returns the closed-trade ledger.
func (a *Account) Ledger() *Ledger { return a.ledger }

// SetPosition records the venue's signed position for symbol: positive long, negative short.
func (a *Account) SetPosition(symbol string, units float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if math.Abs(units) <= epsilon {
		delete(a.positions, symbol)
		return
	}
	a.positions[symbol] = units
}

// Units returns the signed position for symbol.
func (a *Account) Units(symbol string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol]
}

// Position returns the direction of the position held in symbol.
func (a *Account) Position(symbol string) signal.Direction {
	return signal.Sign(a.Units(symbol))
}

// TradeClosed books a realized result.
func (a *Account) TradeClosed(tc execution.TradeClosed) {
	a.mu.Lock()
	a.realizedPnL += tc.RealizedPnL
	a.mu.Unlock()
	a.ledger.Record(tc)
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

// Equity is starting cash plus realized PnL.
func (a *Account) Equity() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.startingCash + a.realizedPnL
}

// Snapshot returns a copy of balances and positions.
func (a *Account) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	positions := make(map[string]float64, len(a.positions))
	for sym, units := range a.positions {
		positions[sym] = units
	}
	return Snapshot{
		StartingCash: a.startingCash,
		RealizedPnL:  a.realizedPnL,
		Equity:       a.startingCash + a.realizedPnL,
		Positions:    positions,
	}
}
