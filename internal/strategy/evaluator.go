package strategy

import (
	"context"
	"sync"
	"time"

	"forex-entry-bot/internal/indicators"
	"forex-entry-bot/internal/logging"
	"forex-entry-bot/internal/market"
	"forex-entry-bot/internal/orders"
)

// SnapshotProvider supplies a read-only, non-moving bar snapshot plus
// the current price for one evaluation cycle.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol, interval string, bars int) (*market.Series, float64, error)
}

// Decision is the record of one evaluation cycle handed to reporting.
type Decision struct {
	ID          string
	Symbol      string
	Side        market.Side
	Signal      SignalType
	EntryPrice  float64
	Score       int
	Strength    int
	Factors     string
	Rejection   RejectReason
	EvaluatedAt time.Time
}

// DecisionRecorder persists decisions for reporting. Recording is
// best-effort; failures never block the cycle.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, d Decision) error
}

// OrderStore persists placed orders and their status transitions.
// Like recording, storage is best-effort.
type OrderStore interface {
	SaveOrder(ctx context.Context, o orders.Order) error
	UpdateOrderStatus(ctx context.Context, clientOrderID, status string) error
}

// openOrder is the pending entry the evaluator is managing, with its
// trailing stop.
type openOrder struct {
	clientOrderID string
	side          market.Side
	entryPrice    float64
	placedAt      time.Time
	stop          float64
}

// Evaluator glues one strategy to the selector, the order gateway, and
// the decision log. It owns the per-cycle flow; the strategy itself
// stays pure.
type Evaluator struct {
	strategy  *ConfluenceEntryStrategy
	snapshots SnapshotProvider
	selector  *LimitPriceSelector
	gateway   orders.Gateway
	recorder  DecisionRecorder
	store     OrderStore
	log       *logging.Logger

	lookbackBars int
	quantity     float64

	exits         ExitRules
	atrPeriod     int
	atrMultiplier float64

	// mu serializes RunCycle: the scheduler and the API can trigger
	// cycles concurrently, and the new-bar gate plus the open-order
	// tracking must see one cycle at a time.
	mu          sync.Mutex
	lastBarOpen int64 // new-bar gate
	open        *openOrder
}

// NewEvaluator wires an evaluation pipeline. recorder may be nil.
func NewEvaluator(
	strategy *ConfluenceEntryStrategy,
	snapshots SnapshotProvider,
	selector *LimitPriceSelector,
	gateway orders.Gateway,
	recorder DecisionRecorder,
	log *logging.Logger,
	lookbackBars int,
	quantity float64,
) *Evaluator {
	if lookbackBars <= 0 {
		lookbackBars = 250
	}
	return &Evaluator{
		strategy:     strategy,
		snapshots:    snapshots,
		selector:     selector,
		gateway:      gateway,
		recorder:     recorder,
		log:          log.WithComponent("evaluator"),
		lookbackBars: lookbackBars,
		quantity:     quantity,
	}
}

// WithOrderStore attaches a persistence layer for placed orders.
func (e *Evaluator) WithOrderStore(store OrderStore) *Evaluator {
	e.store = store
	return e
}

// WithExits enables exit management for the order the evaluator placed:
// an ATR trailing stop plus the rule set's RSI and trend-EMA crosses.
func (e *Evaluator) WithExits(rules ExitRules, atrPeriod int, atrMultiplier float64) *Evaluator {
	e.exits = rules
	e.atrPeriod = atrPeriod
	e.atrMultiplier = atrMultiplier
	return e
}

// Strategy returns the wrapped strategy, for the API layer.
func (e *Evaluator) Strategy() *ConfluenceEntryStrategy { return e.strategy }

// Snapshot fetches a fresh snapshot via the provider, for the API layer.
func (e *Evaluator) Snapshot(ctx context.Context) (*market.Series, float64, error) {
	return e.snapshots.Snapshot(ctx, e.strategy.Symbol(), e.strategy.Interval(), e.lookbackBars)
}

// RunCycle executes one full evaluation: snapshot, new-bar gate,
// strategy evaluation, limit-price validation, and order placement.
// The returned decision is also handed to the recorder.
func (e *Evaluator) RunCycle(ctx context.Context) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	trace := logging.NewTraceID()
	log := e.log.WithTraceID(trace)

	snapshot, currentPrice, err := e.snapshots.Snapshot(ctx, e.strategy.Symbol(), e.strategy.Interval(), e.lookbackBars)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		ID:          trace,
		Symbol:      e.strategy.Symbol(),
		Signal:      SignalNone,
		EvaluatedAt: time.Now().UTC(),
	}

	// Evaluate once per bar, like the original tick handler.
	open := snapshot.LatestOpenTime()
	if open == e.lastBarOpen {
		return d, nil
	}
	e.lastBarOpen = open

	// An order under management blocks new entries; the cycle only
	// tightens its stop and checks the exit rules.
	if e.open != nil {
		e.manageOpenOrder(ctx, log, snapshot, currentPrice)
		e.record(ctx, d)
		return d, nil
	}

	signal, err := e.strategy.Evaluate(snapshot, currentPrice)
	if err != nil {
		return Decision{}, err
	}
	if signal.Type == SignalNone {
		e.record(ctx, d)
		return d, nil
	}

	d.Side = signal.Side
	d.Signal = signal.Type
	d.Score = signal.Score
	d.Strength = signal.Strength
	d.Factors = signal.Factors

	zones := e.strategy.Zones(snapshot, signal.Side, currentPrice)
	price, err := e.selector.Select(ctx, e.strategy.Symbol(), signal.Side, currentPrice, zones)
	if err != nil {
		d.Rejection = ReasonOf(err)
		log.Info("entry rejected", "symbol", d.Symbol, "side", signal.Side, "reason", err)
		e.record(ctx, d)
		return d, nil
	}
	d.EntryPrice = price

	order := orders.Order{
		ClientOrderID: orders.NewClientOrderID(e.strategy.Name()),
		Symbol:        e.strategy.Symbol(),
		Side:          signal.Side,
		Price:         price,
		Quantity:      e.quantity,
	}
	placed, err := e.gateway.PlaceLimit(ctx, order)
	if err != nil {
		log.Error("order placement failed", "symbol", d.Symbol, "error", err)
		d.Rejection = RejectGateway
		e.record(ctx, d)
		return d, nil
	}
	order.Status = placed.Status
	e.saveOrder(ctx, order)
	e.open = &openOrder{
		clientOrderID: order.ClientOrderID,
		side:          order.Side,
		entryPrice:    price,
		placedAt:      time.Now().UTC(),
	}

	log.Info("limit order submitted",
		"symbol", d.Symbol,
		"side", signal.Side,
		"price", price,
		"score", signal.Score,
		"factors", signal.Factors,
	)
	e.record(ctx, d)
	return d, nil
}

// manageOpenOrder runs the exit rules against the tracked order:
// tighten the ATR trailing stop, then cancel on a stop breach or on an
// RSI or trend-EMA cross. Called with e.mu held.
func (e *Evaluator) manageOpenOrder(ctx context.Context, log *logging.Logger, snapshot *market.Series, currentPrice float64) {
	pos := e.open

	if e.atrPeriod > 0 && e.atrMultiplier > 0 {
		atr := indicators.ATR(snapshot.Chronological(), e.atrPeriod)
		if stop, moved := TrailingStop(pos.side, currentPrice, atr, e.atrMultiplier, pos.stop); moved {
			pos.stop = stop
			log.Info("trailing stop tightened",
				"symbol", e.strategy.Symbol(),
				"side", pos.side,
				"stop", stop,
			)
		}
	}

	stopHit := pos.stop > 0 &&
		((pos.side == market.SideBuy && currentPrice <= pos.stop) ||
			(pos.side == market.SideSell && currentPrice >= pos.stop))

	if !stopHit && !e.exits.ShouldExit(snapshot, pos.side, pos.placedAt, time.Now().UTC()) {
		return
	}

	if err := e.gateway.Cancel(ctx, e.strategy.Symbol(), pos.clientOrderID); err != nil {
		log.Error("order cancel failed", "client_order_id", pos.clientOrderID, "error", err)
		return
	}
	e.markOrder(ctx, pos.clientOrderID, orders.StatusCancelled)
	log.Info("exit rule closed the open order",
		"symbol", e.strategy.Symbol(),
		"side", pos.side,
		"stop_hit", stopHit,
	)
	e.open = nil
}

func (e *Evaluator) saveOrder(ctx context.Context, o orders.Order) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveOrder(ctx, o); err != nil {
		e.log.Warn("order save failed", "client_order_id", o.ClientOrderID, "error", err)
	}
}

func (e *Evaluator) markOrder(ctx context.Context, clientOrderID, status string) {
	if e.store == nil {
		return
	}
	if err := e.store.UpdateOrderStatus(ctx, clientOrderID, status); err != nil {
		e.log.Warn("order status update failed", "client_order_id", clientOrderID, "error", err)
	}
}

func (e *Evaluator) record(ctx context.Context, d Decision) {
	if e.recorder == nil {
		return
	}
	if err := e.recorder.RecordDecision(ctx, d); err != nil {
		e.log.Warn("decision record failed", "error", err)
	}
}
