package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DryRunGateway satisfies Gateway without touching a broker. Orders are
// held in memory and every transition is logged, mirroring what the
// live gateway would emit.
type DryRunGateway struct {
	log zerolog.Logger

	mu     sync.Mutex
	orders map[string][]Order // symbol -> orders
}

// NewDryRunGateway creates an in-memory gateway logging through the
// given zerolog logger.
func NewDryRunGateway(log zerolog.Logger) *DryRunGateway {
	return &DryRunGateway{
		log:    log.With().Str("component", "dry_run_gateway").Logger(),
		orders: make(map[string][]Order),
	}
}

// PendingOrders returns the pending orders recorded for the symbol.
func (g *DryRunGateway) PendingOrders(_ context.Context, symbol string) ([]Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Order
	for _, o := range g.orders[symbol] {
		if o.Status == StatusPending {
			out = append(out, o)
		}
	}
	return out, nil
}

// PlaceLimit records the order as pending and logs the placement.
func (g *DryRunGateway) PlaceLimit(_ context.Context, order Order) (Order, error) {
	if order.Price <= 0 {
		return Order{}, fmt.Errorf("dry run gateway: invalid limit price %.5f", order.Price)
	}
	if order.ClientOrderID == "" {
		order.ClientOrderID = NewClientOrderID("dryrun")
	}
	order.Status = StatusPending
	order.CreatedAt = time.Now().UTC()

	g.mu.Lock()
	g.orders[order.Symbol] = append(g.orders[order.Symbol], order)
	g.mu.Unlock()

	g.log.Info().
		Str("symbol", order.Symbol).
		Str("side", string(order.Side)).
		Float64("price", order.Price).
		Float64("quantity", order.Quantity).
		Str("client_order_id", order.ClientOrderID).
		Msg("limit order placed (dry run)")

	return order, nil
}

// Cancel marks a pending order cancelled.
func (g *DryRunGateway) Cancel(_ context.Context, symbol, clientOrderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, o := range g.orders[symbol] {
		if o.ClientOrderID == clientOrderID && o.Status == StatusPending {
			g.orders[symbol][i].Status = StatusCancelled
			g.log.Info().
				Str("symbol", symbol).
				Str("client_order_id", clientOrderID).
				Msg("limit order cancelled (dry run)")
			return nil
		}
	}
	return fmt.Errorf("dry run gateway: no pending order %s for %s", clientOrderID, symbol)
}
