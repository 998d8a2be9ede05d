package candle

import "math"

// SequencePattern classifies relationships across consecutive candles.
type SequencePattern string

const (
	SequenceInsideBar        SequencePattern = "inside_bar"
	SequenceOutsideBar       SequencePattern = "outside_bar"
	SequenceBullishEngulfing SequencePattern = "bullish_engulfing"
	SequenceBearishEngulfing SequencePattern = "bearish_engulfing"
	SequenceBullishMomentum  SequencePattern = "bullish_momentum"
	SequenceBearishMomentum  SequencePattern = "bearish_momentum"
	SequenceDoubleTop        SequencePattern = "double_top"
	SequenceDoubleBottom     SequencePattern = "double_bottom"
)

// doubleTapPips is the default approximate-equality tolerance for
// double top/bottom detection, in pip-equivalents.
const doubleTapPips = 10.0

// AnalyzeSequence scans count candles starting at startOffset (the most
// recent bar of the window) and returns every multi-candle pattern the
// window contains. Two-candle relations compare the start bar against
// the one before it; momentum needs three bars; double tops and bottoms
// need at least five.
func (a *Analyzer) AnalyzeSequence(startOffset, count int) []SequencePattern {
	candles := a.window(startOffset, count)
	if len(candles) < 2 {
		return nil
	}

	var found []SequencePattern

	cur, prev := candles[0], candles[1]

	if cur.High <= prev.High && cur.Low >= prev.Low {
		found = append(found, SequenceInsideBar)
	}

	if cur.High > prev.High && cur.Low < prev.Low {
		switch {
		case cur.Bullish && prev.Bearish && cur.Close > prev.Open && cur.Open < prev.Close:
			found = append(found, SequenceBullishEngulfing)
		case cur.Bearish && prev.Bullish && cur.Close < prev.Open && cur.Open > prev.Close:
			found = append(found, SequenceBearishEngulfing)
		default:
			found = append(found, SequenceOutsideBar)
		}
	}

	if len(candles) >= 3 {
		c0, c1, c2 := candles[0], candles[1], candles[2]
		if c0.Bullish && c1.Bullish && c2.Bullish &&
			c0.Close > c1.Close && c1.Close > c2.Close {
			found = append(found, SequenceBullishMomentum)
		}
		if c0.Bearish && c1.Bearish && c2.Bearish &&
			c0.Close < c1.Close && c1.Close < c2.Close {
			found = append(found, SequenceBearishMomentum)
		}
	}

	if len(candles) >= 5 {
		tol := doubleTapPips * a.pipUnit
		if hasEqualPair(candles[:5], tol, func(c Candle) float64 { return c.High }) {
			found = append(found, SequenceDoubleTop)
		}
		if hasEqualPair(candles[:5], tol, func(c Candle) float64 { return c.Low }) {
			found = append(found, SequenceDoubleBottom)
		}
	}

	return found
}

// hasEqualPair runs the pairwise approximate-equality test over the
// window. The first matching pair wins; the scan is deterministic, not
// a search for the best pair.
func hasEqualPair(candles []Candle, tolerance float64, price func(Candle) float64) bool {
	for i := 0; i < len(candles); i++ {
		for j := i + 1; j < len(candles); j++ {
			if math.Abs(price(candles[i])-price(candles[j])) <= tolerance {
				return true
			}
		}
	}
	return false
}

// window collects up to count analyzed candles starting at startOffset,
// stopping early at the end of history.
func (a *Analyzer) window(startOffset, count int) []Candle {
	out := make([]Candle, 0, count)
	for i := 0; i < count; i++ {
		c, ok := a.Analyze(startOffset + i)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}
