package indicators

import "forex-entry-bot/internal/market"

// SeriesProvider computes moving averages from a bar-series snapshot,
// satisfying market.MovingAverageProvider for the zone engine.
type SeriesProvider struct {
	closes []float64
}

// NewSeriesProvider snapshots the series' closes once; the provider
// then presents a non-moving view for the rest of the evaluation.
func NewSeriesProvider(s *market.Series) *SeriesProvider {
	return &SeriesProvider{closes: s.Closes()}
}

// EMA returns the exponential moving average for the period, or false
// when the snapshot is too short.
func (p *SeriesProvider) EMA(period int) (float64, bool) {
	if period <= 0 || len(p.closes) < period {
		return 0, false
	}
	return EMA(p.closes, period), true
}
