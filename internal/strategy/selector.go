package strategy

import (
	"context"
	"fmt"
	"math"

	"forex-entry-bot/internal/confluence"
	"forex-entry-bot/internal/market"
	"forex-entry-bot/internal/orders"
)

// RejectReason classifies why the selector refused a zone.
type RejectReason string

const (
	RejectNoZone    RejectReason = "no_zone"
	RejectInvalid   RejectReason = "directionally_invalid"
	RejectTooFar    RejectReason = "too_far"
	RejectDuplicate RejectReason = "duplicate_order"
	RejectGateway   RejectReason = "gateway_error"
)

// RejectionError is the typed rejection the selector returns instead of
// a price. Callers branch on Reason.
type RejectionError struct {
	Reason RejectReason
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// Reject builds a RejectionError.
func Reject(reason RejectReason, format string, args ...interface{}) error {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection reason from an error, or "" when the
// error is not a selector rejection.
func ReasonOf(err error) RejectReason {
	if re, ok := err.(*RejectionError); ok {
		return re.Reason
	}
	return ""
}

// LimitPriceSelector validates the zone engine's best price against
// distance and duplicate-order constraints before it is handed to the
// order gateway. It places no orders itself.
type LimitPriceSelector struct {
	gateway            orders.Gateway
	maxDistance        float64
	duplicateTolerance float64
}

// NewLimitPriceSelector creates a selector. maxDistance caps how far
// from the reference price an entry may sit; duplicateTolerance is the
// band within which an existing pending order counts as a duplicate.
func NewLimitPriceSelector(gateway orders.Gateway, maxDistance, duplicateTolerance float64) *LimitPriceSelector {
	return &LimitPriceSelector{
		gateway:            gateway,
		maxDistance:        maxDistance,
		duplicateTolerance: duplicateTolerance,
	}
}

// Select returns the validated limit price for the ranked zones, or a
// RejectionError naming why no price is actionable.
func (s *LimitPriceSelector) Select(ctx context.Context, symbol string, side market.Side, referencePrice float64, zones []confluence.Zone) (float64, error) {
	zone, ok := confluence.BestZone(zones)
	if !ok {
		return 0, Reject(RejectNoZone, "no confluence zone for %s %s", symbol, side)
	}
	if !zone.Valid {
		return 0, Reject(RejectInvalid, "zone at %.5f is invalid for %s", zone.Price, side)
	}
	if dist := math.Abs(zone.Price - referencePrice); dist > s.maxDistance {
		return 0, Reject(RejectTooFar, "zone at %.5f is %.5f from reference, cap %.5f", zone.Price, dist, s.maxDistance)
	}

	pending, err := s.gateway.PendingOrders(ctx, symbol)
	if err != nil {
		return 0, Reject(RejectGateway, "pending order query failed: %v", err)
	}
	if orders.HasPendingNear(pending, side, zone.Price, s.duplicateTolerance) {
		return 0, Reject(RejectDuplicate, "pending %s order within %.5f of %.5f", side, s.duplicateTolerance, zone.Price)
	}

	return zone.Price, nil
}
