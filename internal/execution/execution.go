// Package execution turns trade decisions into order intents for an external execution
// venue and tracks the live bracket orders per instrument from the notifications it reports.
package execution

import (
	"errors"

	"nnfx-go/internal/metrics"
	"nnfx-go/internal/signal"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Side enumerates order directions.
type Side string

const (
	// Buy indicates a long order.
	Buy Side = "BUY"
	// Sell indicates a short order.
	Sell Side = "SELL"
)

// SideOf maps a trade direction to the order side that opens it.
func SideOf(d signal.Direction) Side {
	if d == signal.Short {
		return Sell
	}
	return Buy
}

// Opposite returns the side that unwinds s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType is the execution style requested from the venue.
type OrderType string

const (
	Market    OrderType = "market"
	Stop      OrderType = "stop"
	Limit     OrderType = "limit"
	StopTrail OrderType = "stop_trail"
	// Close flattens whatever position the venue holds for the instrument.
	Close OrderType = "close"
	// Cancel withdraws the live order named by TargetRef.
	Cancel OrderType = "cancel"
)

// Role is the part an order plays in a bracket.
type Role string

const (
	RoleEntry      Role = "entry"
	RoleStopLoss   Role = "stop_loss"
	RoleTakeProfit Role = "take_profit"
	RoleTrailing   Role = "trailing"
	RoleExit       Role = "exit"
)

// Intent is an order request handed to the execution collaborator.
type Intent struct {
	Ref         string          `json:"ref"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Size        decimal.Decimal `json:"size"`
	Type        OrderType       `json:"type"`
	Price       float64         `json:"price,omitempty"`
	TrailAmount float64         `json:"trail_amount,omitempty"`
	Role        Role            `json:"role"`
	ParentRef   string          `json:"parent_ref,omitempty"`
	TargetRef   string          `json:"target_ref,omitempty"`
	Ts          int64           `json:"ts"`
}

// Status is an order state reported by the venue.
type Status string

const (
	Accepted  Status = "accepted"
	Completed Status = "completed"
	Canceled  Status = "canceled"
	Rejected  Status = "rejected"
)

// Terminal reports whether the order is no longer live.
func (s Status) Terminal() bool {
	return s == Completed || s == Canceled || s == Rejected
}

// Notification is an order status update from the venue.
type Notification struct {
	Ref    string  `json:"ref"`
	Status Status  `json:"status"`
	Size   float64 `json:"size"`
	Price  float64 `json:"price"`
}

// TradeClosed reports the realized result of a finished trade.
type TradeClosed struct {
	Symbol      string  `json:"symbol"`
	RealizedPnL float64 `json:"realized_pnl"`
	Ts          int64   `json:"ts"`
}

// Sink receives intents.
type Sink interface {
	Submit(Intent) error
}

// Fanout submits every intent to each sink in turn and joins their errors.
type Fanout []Sink

// Submit implements Sink.
func (f Fanout) Submit(in Intent) error {
	var errs []error
	for _, s := range f {
		if err := s.Submit(in); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Executor is a logging sink that counts intents.
type Executor struct{ log zerolog.Logger }

// NewExecutor wraps a zerolog logger.
func NewExecutor(log zerolog.Logger) *Executor { return &Executor{log: log} }

// Submit logs the intent; the venue connection lives outside this process.
func (executor *Executor) Submit(in Intent) error {
	metrics.IntentsTotal.WithLabelValues(in.Symbol, string(in.Type), string(in.Role)).Inc()
	ev := executor.log.Info().
		Str("sym", in.Symbol).
		Str("ref", in.Ref).
		Str("side", string(in.Side)).
		Str("type", string(in.Type)).
		Str("role", string(in.Role)).
		Str("size", in.Size.String())
	if in.Price != 0 {
		ev = ev.Float64("px", in.Price)
	}
	if in.TrailAmount != 0 {
		ev = ev.Float64("trail", in.TrailAmount)
	}
	if in.ParentRef != "" {
		ev = ev.Str("parent", in.ParentRef)
	}
	if in.TargetRef != "" {
		ev = ev.Str("target", in.TargetRef)
	}
	ev.Msg("submit intent")
	return nil
}
