package execution

import (
	"fmt"
	"slices"
	"sync"

	"nnfx-go/internal/metrics"
	"nnfx-go/internal/signal"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Book holds the live bracket orders of one instrument. Tracker lists stop-loss refs in
// placement order; a cancel of its last entry means the take-profit filled.
type Book struct {
	StopLoss   []Intent
	TakeProfit []Intent
	Tracker    []string
	SLMultiple float64
}

// Live reports whether any bracket order is still working.
func (b Book) Live() bool { return len(b.StopLoss) > 0 || len(b.TakeProfit) > 0 }

func (b Book) clone() Book {
	return Book{
		StopLoss:   slices.Clone(b.StopLoss),
		TakeProfit: slices.Clone(b.TakeProfit),
		Tracker:    slices.Clone(b.Tracker),
		SLMultiple: b.SLMultiple,
	}
}

// Bracket describes an entry: a market order for 2*Half, a stop-loss for 2*Half at
// SLMultiple ATRs and a take-profit for Half at TPMultiple ATRs.
type Bracket struct {
	Symbol     string
	Direction  signal.Direction
	Half       decimal.Decimal
	Price      float64
	ATR        float64
	SLMultiple float64
	TPMultiple float64
	Ts         int64
}

// Manager emits bracket intents and keeps each instrument's Book in step with venue
// notifications. Books of different instruments never share state.
type Manager struct {
	mu     sync.Mutex
	log    zerolog.Logger
	sink   Sink
	newRef func() string
	books  map[string]*Book
	owner  map[string]string
}

// NewManager builds a manager submitting to sink.
func NewManager(sink Sink, log zerolog.Logger) *Manager {
	return &Manager{
		log:    log,
		sink:   sink,
		newRef: uuid.NewString,
		books:  make(map[string]*Book),
		owner:  make(map[string]string),
	}
}

// HasLive reports whether symbol still has working bracket orders.
func (m *Manager) HasLive(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[symbol]
	return b != nil && b.Live()
}

// Book returns a copy of symbol's book.
func (m *Manager) Book(symbol string) Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.books[symbol]; b != nil {
		return b.clone()
	}
	return Book{}
}

// Open records the stop-loss and take-profit, then submits the three bracket intents.
// When the sink fails part way, the legs not submitted are dropped from the book and the
// intents already submitted are returned with the error so the caller can cancel them.
func (m *Manager) Open(br Bracket) ([]Intent, error) {
	if br.Direction != signal.Long && br.Direction != signal.Short {
		return nil, fmt.Errorf("bracket %s: direction must be long or short", br.Symbol)
	}
	if !br.Half.IsPositive() {
		return nil, fmt.Errorf("bracket %s: size must be positive", br.Symbol)
	}
	if br.ATR <= 0 || br.Price <= 0 {
		return nil, fmt.Errorf("bracket %s: price and atr must be positive", br.Symbol)
	}

	side := SideOf(br.Direction)
	dir := float64(br.Direction)
	full := br.Half.Mul(decimal.NewFromInt(2))
	entry := Intent{
		Ref: m.newRef(), Symbol: br.Symbol, Side: side, Size: full,
		Type: Market, Role: RoleEntry, Ts: br.Ts,
	}
	stop := Intent{
		Ref: m.newRef(), Symbol: br.Symbol, Side: side.Opposite(), Size: full,
		Type: Stop, Price: br.Price - dir*br.SLMultiple*br.ATR,
		Role: RoleStopLoss, ParentRef: entry.Ref, Ts: br.Ts,
	}
	take := Intent{
		Ref: m.newRef(), Symbol: br.Symbol, Side: side.Opposite(), Size: br.Half,
		Type: Limit, Price: br.Price + dir*br.TPMultiple*br.ATR,
		Role: RoleTakeProfit, ParentRef: entry.Ref, Ts: br.Ts,
	}
	intents := []Intent{entry, stop, take}

	m.mu.Lock()
	b := m.book(br.Symbol)
	b.StopLoss = append(b.StopLoss, stop)
	b.TakeProfit = append(b.TakeProfit, take)
	b.Tracker = append(b.Tracker, stop.Ref)
	b.SLMultiple = br.SLMultiple
	m.owner[stop.Ref] = br.Symbol
	m.owner[take.Ref] = br.Symbol
	m.mu.Unlock()

	for i, in := range intents {
		if err := m.sink.Submit(in); err != nil {
			m.forget(br.Symbol, intents[i:])
			return intents[:i], fmt.Errorf("submit %s %s: %w", in.Role, in.Symbol, err)
		}
	}

	m.log.Info().Str("sym", br.Symbol).Str("dir", br.Direction.String()).
		Str("size", full.String()).Float64("sl", stop.Price).Float64("tp", take.Price).
		Msg("bracket opened")
	return intents, nil
}

// forget drops orders that never reached the venue from symbol's book.
func (m *Manager) forget(symbol string, orders []Intent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[symbol]
	if b == nil {
		return
	}
	drop := func(ref string) bool {
		return slices.ContainsFunc(orders, func(o Intent) bool { return o.Ref == ref })
	}
	b.StopLoss = slices.DeleteFunc(b.StopLoss, func(o Intent) bool { return drop(o.Ref) })
	b.TakeProfit = slices.DeleteFunc(b.TakeProfit, func(o Intent) bool { return drop(o.Ref) })
	b.Tracker = slices.DeleteFunc(b.Tracker, drop)
	for _, o := range orders {
		delete(m.owner, o.Ref)
	}
	if !b.Live() {
		delete(m.books, symbol)
	}
}

// Close cancels every live bracket order of symbol, flattens the position held in
// direction position, and clears the book.
func (m *Manager) Close(symbol string, position signal.Direction, ts int64) ([]Intent, error) {
	m.mu.Lock()
	var intents []Intent
	if b := m.books[symbol]; b != nil {
		for _, o := range append(slices.Clone(b.StopLoss), b.TakeProfit...) {
			intents = append(intents, Intent{
				Ref: m.newRef(), Symbol: symbol, Side: o.Side, Size: o.Size,
				Type: Cancel, Role: o.Role, TargetRef: o.Ref, Ts: ts,
			})
			delete(m.owner, o.Ref)
		}
		delete(m.books, symbol)
	}
	m.mu.Unlock()

	intents = append(intents, Intent{
		Ref: m.newRef(), Symbol: symbol, Side: SideOf(position).Opposite(),
		Type: Close, Role: RoleExit, Ts: ts,
	})
	for _, in := range intents {
		if err := m.sink.Submit(in); err != nil {
			return intents, fmt.Errorf("submit %s %s: %w", in.Type, symbol, err)
		}
	}
	m.log.Info().Str("sym", symbol).Str("position", position.String()).Int("cancels", len(intents)-1).Msg("position closed")
	return intents, nil
}

// Notify applies a venue order update. Updates for refs the manager does not track, and
// repeats of updates already applied, are no-ops. When the most recent stop-loss is
// canceled the take-profit has filled, and the remaining half is protected by a trailing
// stop trailing by SLMultiple times atr(symbol); that intent is returned.
func (m *Manager) Notify(n Notification, atr func(symbol string) float64) (*Intent, error) {
	m.mu.Lock()
	symbol, ok := m.owner[n.Ref]
	if !ok {
		m.mu.Unlock()
		metrics.NotificationsTotal.WithLabelValues(string(n.Status), "unknown").Inc()
		m.log.Debug().Str("ref", n.Ref).Str("status", string(n.Status)).Msg("notification for untracked order ignored")
		return nil, nil
	}
	if !n.Status.Terminal() {
		m.mu.Unlock()
		metrics.NotificationsTotal.WithLabelValues(string(n.Status), "live").Inc()
		return nil, nil
	}

	b := m.books[symbol]
	promote := n.Status == Canceled && len(b.Tracker) > 0 && b.Tracker[len(b.Tracker)-1] == n.Ref
	var stop Intent
	if i := slices.IndexFunc(b.StopLoss, func(o Intent) bool { return o.Ref == n.Ref }); i >= 0 {
		stop = b.StopLoss[i]
	}
	b.StopLoss = slices.DeleteFunc(b.StopLoss, func(o Intent) bool { return o.Ref == n.Ref })
	b.TakeProfit = slices.DeleteFunc(b.TakeProfit, func(o Intent) bool { return o.Ref == n.Ref })
	b.Tracker = slices.DeleteFunc(b.Tracker, func(ref string) bool { return ref == n.Ref })
	delete(m.owner, n.Ref)
	slMultiple := b.SLMultiple
	m.mu.Unlock()

	if !promote {
		metrics.NotificationsTotal.WithLabelValues(string(n.Status), "pruned").Inc()
		m.log.Debug().Str("sym", symbol).Str("ref", n.Ref).Str("status", string(n.Status)).Msg("order no longer live")
		return nil, nil
	}

	var distance float64
	if atr != nil {
		distance = slMultiple * atr(symbol)
	}
	trail := Intent{
		Ref: m.newRef(), Symbol: symbol, Side: stop.Side, Size: stop.Size.Div(decimal.NewFromInt(2)),
		Type: StopTrail, TrailAmount: distance, Role: RoleTrailing, ParentRef: stop.ParentRef,
	}
	if err := m.sink.Submit(trail); err != nil {
		return nil, fmt.Errorf("submit trailing stop %s: %w", symbol, err)
	}

	m.mu.Lock()
	b = m.book(symbol)
	b.StopLoss = append(b.StopLoss, trail)
	m.owner[trail.Ref] = symbol
	m.mu.Unlock()

	metrics.NotificationsTotal.WithLabelValues(string(n.Status), "promoted").Inc()
	m.log.Info().Str("sym", symbol).Str("size", trail.Size.String()).Float64("trail", distance).
		Msg("take profit hit, trailing stop placed")
	return &trail, nil
}

// book returns symbol's book, creating it. Callers hold m.mu.
func (m *Manager) book(symbol string) *Book {
	b := m.books[symbol]
	if b == nil {
		b = &Book{}
		m.books[symbol] = b
	}
	return b
}
