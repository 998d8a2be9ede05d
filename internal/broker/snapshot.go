package broker

import (
	"context"
	"errors"
	"fmt"

	"forex-entry-bot/internal/cache"
	"forex-entry-bot/internal/market"
)

// SnapshotSource abstracts the REST reads the snapshot provider needs.
type SnapshotSource interface {
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Bar, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// TickSource supplies the most recent streamed price; 0 means no tick
// has arrived yet.
type TickSource interface {
	LastPrice() float64
}

// SnapshotProvider builds read-only bar snapshots for the evaluator,
// serving bar history from the cache when a fresh copy exists. The
// current price comes from the tick stream when one is attached and
// from a live REST read otherwise.
type SnapshotProvider struct {
	source SnapshotSource
	cache  *cache.BarCache
	ticks  TickSource
}

// NewSnapshotProvider wires a snapshot provider. barCache may be nil.
func NewSnapshotProvider(source SnapshotSource, barCache *cache.BarCache) *SnapshotProvider {
	return &SnapshotProvider{source: source, cache: barCache}
}

// WithTicks attaches a streaming price source.
func (p *SnapshotProvider) WithTicks(ticks TickSource) *SnapshotProvider {
	p.ticks = ticks
	return p
}

// Snapshot returns a series with the most recent bar at offset 0 plus
// the current price.
func (p *SnapshotProvider) Snapshot(ctx context.Context, symbol, interval string, bars int) (*market.Series, float64, error) {
	recent, err := p.cachedBars(ctx, symbol, interval, bars)
	if err != nil {
		return nil, 0, err
	}
	if len(recent) == 0 {
		return nil, 0, fmt.Errorf("no bars returned for %s %s", symbol, interval)
	}

	price, err := p.currentPrice(ctx, symbol)
	if err != nil {
		return nil, 0, err
	}
	return market.NewSeries(recent), price, nil
}

func (p *SnapshotProvider) currentPrice(ctx context.Context, symbol string) (float64, error) {
	if p.ticks != nil {
		if last := p.ticks.LastPrice(); last > 0 {
			return last, nil
		}
	}
	return p.source.GetCurrentPrice(ctx, symbol)
}

func (p *SnapshotProvider) cachedBars(ctx context.Context, symbol, interval string, bars int) ([]market.Bar, error) {
	if p.cache != nil {
		cached, err := p.cache.Get(ctx, symbol, interval)
		if err == nil && len(cached) >= bars {
			return cached[:bars], nil
		}
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			return nil, err
		}
	}

	chronological, err := p.source.GetCandles(ctx, symbol, interval, bars)
	if err != nil {
		return nil, err
	}

	// Reverse to most-recent-first, the order the engines index by.
	recent := make([]market.Bar, len(chronological))
	for i, b := range chronological {
		recent[len(chronological)-1-i] = b
	}

	if p.cache != nil {
		_ = p.cache.Set(ctx, symbol, interval, recent)
	}
	return recent, nil
}
