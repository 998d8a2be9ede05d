package orders

import (
	"context"
	"math"
	"time"

	"forex-entry-bot/internal/market"
)

// Order statuses as the gateway reports them.
const (
	StatusPending   = "PENDING"
	StatusFilled    = "FILLED"
	StatusCancelled = "CANCELLED"
)

// Order is a limit order as seen by the gateway.
type Order struct {
	ClientOrderID string      `json:"client_order_id"`
	Symbol        string      `json:"symbol"`
	Side          market.Side `json:"side"`
	Price         float64     `json:"price"`
	Quantity      float64     `json:"quantity"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Gateway is the external order-placement collaborator. The entry
// engine only queries pending orders through it; placement happens
// after the limit-price selector has validated a price.
type Gateway interface {
	PendingOrders(ctx context.Context, symbol string) ([]Order, error)
	PlaceLimit(ctx context.Context, order Order) (Order, error)
	Cancel(ctx context.Context, symbol, clientOrderID string) error
}

// HasPendingNear reports whether any same-side pending order sits within
// tolerance of price. The selector uses it as its duplicate check.
func HasPendingNear(pending []Order, side market.Side, price, tolerance float64) bool {
	for _, o := range pending {
		if o.Side != side || o.Status != StatusPending {
			continue
		}
		if math.Abs(o.Price-price) <= tolerance {
			return true
		}
	}
	return false
}
