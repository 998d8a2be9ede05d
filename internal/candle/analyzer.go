package candle

import (
	"math"

	"forex-entry-bot/internal/market"
)

// Pattern classifies a single candle. Classification is precedence
// ordered and mutually exclusive: the first matching rule wins.
type Pattern string

const (
	PatternHammer        Pattern = "hammer"
	PatternShootingStar  Pattern = "shooting_star"
	PatternPinBar        Pattern = "pin_bar"
	PatternDoji          Pattern = "doji"
	PatternStrongBullish Pattern = "strong_bullish"
	PatternStrongBearish Pattern = "strong_bearish"
	PatternBullish       Pattern = "bullish"
	PatternBearish       Pattern = "bearish"
	PatternFlat          Pattern = "flat"
)

// Rejection is the direction price was pushed back toward by a lone
// long wick: a long upper wick rejects higher prices (bearish), a long
// lower wick rejects lower prices (bullish).
type Rejection string

const (
	RejectionNone    Rejection = "none"
	RejectionBullish Rejection = "bullish"
	RejectionBearish Rejection = "bearish"
)

// wickRatioUnbounded stands in for the wick-to-body ratio of a
// zero-body candle, where the true ratio is unbounded.
const wickRatioUnbounded = 1000.0

// Candle is the geometric description of one bar. All sizes are
// non-negative and upperWick + lowerWick + bodySize == totalRange
// within floating tolerance.
type Candle struct {
	Offset int
	Open   float64
	High   float64
	Low    float64
	Close  float64

	BodySize   float64
	TotalRange float64
	UpperWick  float64
	LowerWick  float64

	BodyToRange      float64
	UpperWickToRange float64
	LowerWickToRange float64
	WickToBody       float64

	Bullish bool
	Bearish bool

	IsDoji        bool
	LongUpperWick bool
	LongLowerWick bool

	Pattern   Pattern
	Rejection Rejection
}

// Analyzer derives candle structure from a price-history snapshot. Pure
// function of its inputs and two thresholds; it keeps no state across
// calls.
type Analyzer struct {
	history market.History
	pipUnit float64

	minBodyFraction float64 // doji cutoff as fraction of range
	longWickRatio   float64 // wick-to-body multiple that makes a wick "long"
}

// NewAnalyzer creates an analyzer over the given history. Non-positive
// thresholds fall back to the defaults (0.10 body fraction, 2.0 wick
// multiple), and a non-positive pip unit falls back to 0.0001.
func NewAnalyzer(history market.History, pipUnit, minBodyFraction, longWickRatio float64) *Analyzer {
	if minBodyFraction <= 0 {
		minBodyFraction = 0.10
	}
	if longWickRatio <= 0 {
		longWickRatio = 2.0
	}
	if pipUnit <= 0 {
		pipUnit = 0.0001
	}
	return &Analyzer{
		history:         history,
		pipUnit:         pipUnit,
		minBodyFraction: minBodyFraction,
		longWickRatio:   longWickRatio,
	}
}

// Analyze builds the geometric description of the bar at the given
// offset. The second return is false when the offset is out of range.
func (a *Analyzer) Analyze(offset int) (Candle, bool) {
	bar, ok := a.history.Bar(offset)
	if !ok {
		return Candle{}, false
	}
	c := FromBar(bar, a.minBodyFraction, a.longWickRatio)
	c.Offset = offset
	return c, true
}

// FromBar classifies a single bar without going through a history
// provider. Analyze delegates here; tests and the sequence scanner use
// it directly.
func FromBar(bar market.Bar, minBodyFraction, longWickRatio float64) Candle {
	c := Candle{
		Open:  bar.Open,
		High:  bar.High,
		Low:   bar.Low,
		Close: bar.Close,
	}

	c.BodySize = math.Abs(bar.Close - bar.Open)
	c.TotalRange = bar.High - bar.Low
	c.Bullish = bar.Close > bar.Open
	c.Bearish = bar.Close < bar.Open

	// Wick assignment depends on direction: the body top is close for a
	// bullish candle and open for a bearish one.
	if c.Bullish {
		c.UpperWick = bar.High - bar.Close
		c.LowerWick = bar.Open - bar.Low
	} else {
		c.UpperWick = bar.High - bar.Open
		c.LowerWick = bar.Close - bar.Low
	}

	// Degenerate ranges force ratios to defined values rather than Inf.
	if c.TotalRange > 0 {
		c.BodyToRange = c.BodySize / c.TotalRange
		c.UpperWickToRange = c.UpperWick / c.TotalRange
		c.LowerWickToRange = c.LowerWick / c.TotalRange
	}
	if c.BodySize > 0 {
		c.WickToBody = math.Max(c.UpperWick, c.LowerWick) / c.BodySize
	} else {
		c.WickToBody = wickRatioUnbounded
	}

	c.IsDoji = c.BodyToRange < minBodyFraction
	c.LongUpperWick = c.BodySize > 0 && c.UpperWick > longWickRatio*c.BodySize
	c.LongLowerWick = c.BodySize > 0 && c.LowerWick > longWickRatio*c.BodySize

	switch {
	case c.LongUpperWick == c.LongLowerWick:
		c.Rejection = RejectionNone
	case c.LongUpperWick:
		c.Rejection = RejectionBearish
	default:
		c.Rejection = RejectionBullish
	}

	c.Pattern = classify(c)
	return c
}

// classify applies the precedence-ordered pattern rules. Only the first
// matching rule applies.
func classify(c Candle) Pattern {
	smallBody := c.BodyToRange < 0.30

	switch {
	case c.LongLowerWick && !c.LongUpperWick && smallBody && c.Bullish:
		return PatternHammer
	case c.LongUpperWick && !c.LongLowerWick && smallBody && c.Bearish:
		return PatternShootingStar
	case c.LongUpperWick != c.LongLowerWick && smallBody:
		return PatternPinBar
	case c.IsDoji:
		return PatternDoji
	case c.BodyToRange > 0.70 && c.Bullish:
		return PatternStrongBullish
	case c.BodyToRange > 0.70 && c.Bearish:
		return PatternStrongBearish
	case c.Bullish:
		return PatternBullish
	case c.Bearish:
		return PatternBearish
	default:
		return PatternFlat
	}
}

// ValidForEntry reports whether the candle structure supports entering
// in the requested direction. A long wick against the trade, a doji, or
// an opposing candle without a favorable rejection wick all disqualify
// the bar.
func (a *Analyzer) ValidForEntry(c Candle, side market.Side) bool {
	favorable := (side == market.SideBuy && c.Rejection == RejectionBullish) ||
		(side == market.SideSell && c.Rejection == RejectionBearish)

	if c.WickToBody > a.longWickRatio && !favorable {
		return false
	}
	if c.IsDoji {
		return false
	}
	if side == market.SideBuy && c.Bearish && !favorable {
		return false
	}
	if side == market.SideSell && c.Bullish && !favorable {
		return false
	}
	return true
}
