package fibonacci

import (
	"math"

	"forex-entry-bot/internal/market"
)

// Standard retracement ratios, in the order levels are published.
var retraceRatios = [7]float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1.0}

// Extension ratios continue past the 100% level.
var extensionRatios = [3]float64{1.272, 1.618, 2.0}

// Level is one priced Fibonacci level.
type Level struct {
	Ratio float64 // 0.618 for the 61.8% level
	Price float64
	Label string // "61.8%"
}

// LevelSet holds the full ten-level ladder derived from one swing pair.
// Level000 and Level100 always equal the swing extremes, in an order
// determined by trend direction; Level500 is always the exact midpoint.
type LevelSet struct {
	SwingHigh  float64
	SwingLow   float64
	HighOffset int
	LowOffset  int
	Uptrend    bool

	Level000 float64
	Level236 float64
	Level382 float64
	Level500 float64
	Level618 float64
	Level786 float64
	Level100 float64

	Ext1272 float64
	Ext1618 float64
	Ext200  float64

	Valid bool
}

// Compute finds the nearest qualifying swing high and low within
// lookback bars and derives the level ladder. The set is valid only
// when both swing points were found; an invalid set still has zeroed
// levels and must not be consumed.
func (e *Engine) Compute(lookback int) LevelSet {
	high, okH := e.FindSwingHigh(lookback)
	low, okL := e.FindSwingLow(lookback)
	if !okH || !okL {
		return LevelSet{}
	}
	return NewLevelSet(high, low)
}

// NewLevelSet derives the ladder from an already located swing pair.
// The trend is up when the swing low is more recent than the swing
// high; retracements then interpolate downward from the high, with
// extensions continuing below the low. The downtrend branch mirrors
// this upward from the low.
func NewLevelSet(high, low SwingPoint) LevelSet {
	ls := LevelSet{
		SwingHigh:  high.Price,
		SwingLow:   low.Price,
		HighOffset: high.Offset,
		LowOffset:  low.Offset,
		Uptrend:    low.Offset < high.Offset,
		Valid:      true,
	}

	span := high.Price - low.Price

	at := func(r float64) float64 {
		if ls.Uptrend {
			return high.Price - span*r
		}
		return low.Price + span*r
	}

	ls.Level000 = at(0)
	ls.Level236 = at(0.236)
	ls.Level382 = at(0.382)
	ls.Level500 = at(0.5)
	ls.Level618 = at(0.618)
	ls.Level786 = at(0.786)
	ls.Level100 = at(1.0)
	ls.Ext1272 = at(1.272)
	ls.Ext1618 = at(1.618)
	ls.Ext200 = at(2.0)

	return ls
}

// Retracements returns the seven retracement levels in ratio order.
func (ls LevelSet) Retracements() []Level {
	prices := [7]float64{ls.Level000, ls.Level236, ls.Level382, ls.Level500, ls.Level618, ls.Level786, ls.Level100}
	out := make([]Level, 7)
	for i, r := range retraceRatios {
		out[i] = Level{Ratio: r, Price: prices[i], Label: ratioLabel(r)}
	}
	return out
}

// AllLevels returns retracements followed by extensions.
func (ls LevelSet) AllLevels() []Level {
	out := ls.Retracements()
	ext := [3]float64{ls.Ext1272, ls.Ext1618, ls.Ext200}
	for i, r := range extensionRatios {
		out = append(out, Level{Ratio: r, Price: ext[i], Label: ratioLabel(r)})
	}
	return out
}

// NearestLevel returns the retracement level closest to price on the
// valid side for the trade: a buy limit must sit at or below the
// reference price, a sell limit at or above it.
func (ls LevelSet) NearestLevel(price float64, side market.Side) (Level, bool) {
	if !ls.Valid {
		return Level{}, false
	}
	var best Level
	bestDist := math.MaxFloat64
	found := false
	for _, lv := range ls.Retracements() {
		if wrongSide(lv.Price, price, side) {
			continue
		}
		if d := math.Abs(lv.Price - price); d < bestDist {
			best, bestDist, found = lv, d, true
		}
	}
	return best, found
}

// preferredRatios is the fixed priority order for entry levels.
var preferredRatios = [4]float64{0.618, 0.5, 0.382, 0.786}

// PreferredLevel searches the priority ladder 61.8% -> 50% -> 38.2% ->
// 78.6%, each gated by trade direction and the maximum-distance cutoff,
// and falls back to the nearest valid level when none qualifies within
// range.
func (ls LevelSet) PreferredLevel(price float64, side market.Side, maxDistance float64) (Level, bool) {
	if !ls.Valid {
		return Level{}, false
	}
	levels := ls.Retracements()
	for _, want := range preferredRatios {
		for _, lv := range levels {
			if lv.Ratio != want {
				continue
			}
			if wrongSide(lv.Price, price, side) {
				continue
			}
			if math.Abs(lv.Price-price) <= maxDistance {
				return lv, true
			}
		}
	}
	return ls.NearestLevel(price, side)
}

// NearLevel reports whether price sits within tolerance of any of the
// ten levels and returns the closest one's label.
func (ls LevelSet) NearLevel(price, tolerance float64) (string, bool) {
	if !ls.Valid {
		return "", false
	}
	label := ""
	bestDist := math.MaxFloat64
	for _, lv := range ls.AllLevels() {
		if d := math.Abs(lv.Price - price); d <= tolerance && d < bestDist {
			label, bestDist = lv.Label, d
		}
	}
	return label, label != ""
}

func wrongSide(level, reference float64, side market.Side) bool {
	if side == market.SideBuy {
		return level > reference
	}
	return level < reference
}

func ratioLabel(r float64) string {
	switch r {
	case 0:
		return "0%"
	case 0.236:
		return "23.6%"
	case 0.382:
		return "38.2%"
	case 0.5:
		return "50%"
	case 0.618:
		return "61.8%"
	case 0.786:
		return "78.6%"
	case 1.0:
		return "100%"
	case 1.272:
		return "127.2%"
	case 1.618:
		return "161.8%"
	default:
		return "200%"
	}
}
