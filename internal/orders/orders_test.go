package orders

import (
	"context"
	"strings"
	"testing"

	"forex-entry-bot/internal/market"

	"github.com/rs/zerolog"
)

func TestClientOrderID(t *testing.T) {
	t.Run("carries the strategy tag lowercased", func(t *testing.T) {
		id := NewClientOrderID("ConfluenceEntry-EURUSD-1h")
		if got := StrategyFromClientOrderID(id); got != "confluenceentry-eurusd-1h" {
			t.Errorf("StrategyFromClientOrderID = %q, want the lowercased tag", got)
		}
	})

	t.Run("malformed ids recover nothing", func(t *testing.T) {
		if got := StrategyFromClientOrderID("not-a-generated-id"); got != "" {
			t.Errorf("StrategyFromClientOrderID = %q, want empty", got)
		}
	})

	t.Run("stays within the broker length cap", func(t *testing.T) {
		id := NewClientOrderID(strings.Repeat("x", 60))
		if len(id) > 36 {
			t.Errorf("len = %d, want <= 36", len(id))
		}
	})

	t.Run("ids are unique per call", func(t *testing.T) {
		a := NewClientOrderID("s")
		b := NewClientOrderID("s")
		if a == b {
			t.Error("two generated ids collided")
		}
	})
}

func TestHasPendingNear(t *testing.T) {
	pending := []Order{
		{Side: market.SideBuy, Price: 1.1000, Status: StatusPending},
		{Side: market.SideSell, Price: 1.1005, Status: StatusPending},
		{Side: market.SideBuy, Price: 1.2000, Status: StatusFilled},
	}

	t.Run("matches same side within tolerance inclusive", func(t *testing.T) {
		if !HasPendingNear(pending, market.SideBuy, 1.1010, 0.0010) {
			t.Error("boundary distance must match")
		}
	})

	t.Run("other side does not match", func(t *testing.T) {
		if HasPendingNear(pending, market.SideBuy, 1.1005, 0.0001) {
			t.Error("sell order matched a buy check")
		}
	})

	t.Run("non-pending orders are ignored", func(t *testing.T) {
		if HasPendingNear(pending, market.SideBuy, 1.2000, 0.0010) {
			t.Error("filled order counted as pending")
		}
	})
}

func TestDryRunGateway(t *testing.T) {
	ctx := context.Background()
	g := NewDryRunGateway(zerolog.Nop())

	t.Run("placed orders show up as pending", func(t *testing.T) {
		placed, err := g.PlaceLimit(ctx, Order{
			ClientOrderID: "test-1",
			Symbol:        "EURUSD",
			Side:          market.SideBuy,
			Price:         1.0980,
			Quantity:      1000,
		})
		if err != nil {
			t.Fatalf("PlaceLimit returned %v", err)
		}
		if placed.Status != StatusPending {
			t.Errorf("Status = %q, want %q", placed.Status, StatusPending)
		}

		pending, err := g.PendingOrders(ctx, "EURUSD")
		if err != nil {
			t.Fatalf("PendingOrders returned %v", err)
		}
		if len(pending) != 1 || pending[0].ClientOrderID != "test-1" {
			t.Errorf("pending = %+v, want the placed order", pending)
		}
	})

	t.Run("zero price is rejected", func(t *testing.T) {
		if _, err := g.PlaceLimit(ctx, Order{Symbol: "EURUSD", Side: market.SideBuy}); err == nil {
			t.Error("PlaceLimit accepted a zero price")
		}
	})

	t.Run("cancel removes the order from pending", func(t *testing.T) {
		if err := g.Cancel(ctx, "EURUSD", "test-1"); err != nil {
			t.Fatalf("Cancel returned %v", err)
		}
		pending, _ := g.PendingOrders(ctx, "EURUSD")
		if len(pending) != 0 {
			t.Errorf("pending = %+v, want none after cancel", pending)
		}
	})

	t.Run("cancelling an unknown order fails", func(t *testing.T) {
		if err := g.Cancel(ctx, "EURUSD", "missing"); err == nil {
			t.Error("Cancel of unknown order succeeded")
		}
	})
}
