package strategy

import (
	"time"

	"forex-entry-bot/internal/indicators"
	"forex-entry-bot/internal/market"
)

// Position exit management, after the original expert advisor: an
// ATR-multiple trailing stop that only tightens, an RSI-cross exit, a
// trend-EMA cross exit, and a minimum holding duration that suppresses
// early exits.

// TrailingStop returns the new stop for an open position and whether it
// improves on the current one. A long stop trails below price, a short
// stop above; the stop never loosens.
func TrailingStop(side market.Side, price, atr, multiplier, currentStop float64) (float64, bool) {
	if atr <= 0 || multiplier <= 0 {
		return currentStop, false
	}
	if side == market.SideBuy {
		stop := price - multiplier*atr
		if stop > currentStop {
			return stop, true
		}
		return currentStop, false
	}
	stop := price + multiplier*atr
	if currentStop == 0 || stop < currentStop {
		return stop, true
	}
	return currentStop, false
}

// ExitRules gates position exits.
type ExitRules struct {
	RSIPeriod       int
	RSIExitLevel    float64 // exit a long when RSI crosses above this; shorts mirror at 100-level
	TrendExitPeriod int     // EMA period for the trend-cross exit; 0 disables it
	MinHold         time.Duration
}

// ShouldExit reports whether an exit condition fired and the position
// has been held at least MinHold. Both crosses are evaluated on the
// last two closes of the snapshot: the RSI leaving its band, or price
// crossing the trend-exit EMA against the position.
func (r ExitRules) ShouldExit(snapshot *market.Series, side market.Side, openedAt, now time.Time) bool {
	if now.Sub(openedAt) < r.MinHold {
		return false
	}
	closes := snapshot.Closes()
	if len(closes) < 2 {
		return false
	}
	if r.rsiExit(closes, side) {
		return true
	}
	return r.trendExit(closes, side)
}

func (r ExitRules) rsiExit(closes []float64, side market.Side) bool {
	rsiNow := indicators.RSI(closes, r.RSIPeriod)
	rsiPrev := indicators.RSI(closes[:len(closes)-1], r.RSIPeriod)

	if side == market.SideBuy {
		return rsiNow > r.RSIExitLevel && rsiPrev <= r.RSIExitLevel
	}
	mirror := 100 - r.RSIExitLevel
	return rsiNow < mirror && rsiPrev >= mirror
}

func (r ExitRules) trendExit(closes []float64, side market.Side) bool {
	if r.TrendExitPeriod <= 0 || len(closes) < r.TrendExitPeriod+1 {
		return false
	}
	emaNow := indicators.EMA(closes, r.TrendExitPeriod)
	emaPrev := indicators.EMA(closes[:len(closes)-1], r.TrendExitPeriod)
	closeNow := closes[len(closes)-1]
	closePrev := closes[len(closes)-2]

	if side == market.SideBuy {
		return closeNow < emaNow && closePrev >= emaPrev
	}
	return closeNow > emaNow && closePrev <= emaPrev
}
