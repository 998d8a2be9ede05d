package candle

import (
	"math"
	"testing"

	"forex-entry-bot/internal/market"
)

func bar(open, high, low, close float64) market.Bar {
	return market.Bar{Open: open, High: high, Low: low, Close: close}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCandleGeometry(t *testing.T) {
	t.Run("bullish candle splits wicks around close and open", func(t *testing.T) {
		// open=1.1000, close=1.1010, high=1.1020, low=1.0990
		c := FromBar(bar(1.1000, 1.1020, 1.0990, 1.1010), 0.10, 2.0)

		if !almostEqual(c.BodySize, 0.0010) {
			t.Errorf("BodySize = %v, want 0.0010", c.BodySize)
		}
		if !almostEqual(c.UpperWick, 0.0010) {
			t.Errorf("UpperWick = %v, want 0.0010", c.UpperWick)
		}
		// open - low: the lower wick of a bullish bar hangs below the
		// open, so body + wicks cover the range exactly.
		if !almostEqual(c.LowerWick, 0.0010) {
			t.Errorf("LowerWick = %v, want 0.0010", c.LowerWick)
		}
		if !almostEqual(c.TotalRange, 0.0030) {
			t.Errorf("TotalRange = %v, want 0.0030", c.TotalRange)
		}
		if math.Abs(c.BodyToRange-1.0/3.0) > 1e-6 {
			t.Errorf("BodyToRange = %v, want ~0.33", c.BodyToRange)
		}
		if c.IsDoji {
			t.Error("candle with body/range 0.33 must not be a doji")
		}
	})

	t.Run("bearish candle measures wicks from open and close", func(t *testing.T) {
		c := FromBar(bar(1.1010, 1.1020, 1.0990, 1.1000), 0.10, 2.0)

		if !almostEqual(c.UpperWick, 0.0010) {
			t.Errorf("UpperWick = %v, want 0.0010", c.UpperWick)
		}
		if !almostEqual(c.LowerWick, 0.0010) {
			t.Errorf("LowerWick = %v, want 0.0010", c.LowerWick)
		}
		if !c.Bearish || c.Bullish {
			t.Error("close below open must classify bearish")
		}
	})

	t.Run("wicks and body always sum to the range", func(t *testing.T) {
		cases := []market.Bar{
			bar(1.1000, 1.1020, 1.0990, 1.1010),
			bar(1.1010, 1.1020, 1.0990, 1.1000),
			bar(1.1000, 1.1030, 1.0990, 1.1000),
		}
		for _, b := range cases {
			c := FromBar(b, 0.10, 2.0)
			sum := c.UpperWick + c.BodySize + c.LowerWick
			if !almostEqual(sum, c.TotalRange) {
				t.Errorf("wicks+body = %v, range = %v for %+v", sum, c.TotalRange, b)
			}
		}
	})

	t.Run("zero range yields zero ratios, not NaN", func(t *testing.T) {
		c := FromBar(bar(1.1000, 1.1000, 1.1000, 1.1000), 0.10, 2.0)
		if c.BodyToRange != 0 || c.UpperWickToRange != 0 || c.LowerWickToRange != 0 {
			t.Errorf("zero-range ratios = %v/%v/%v, want all 0",
				c.BodyToRange, c.UpperWickToRange, c.LowerWickToRange)
		}
	})

	t.Run("zero body reports the unbounded wick ratio", func(t *testing.T) {
		c := FromBar(bar(1.1000, 1.1020, 1.0990, 1.1000), 0.10, 2.0)
		if c.WickToBody != wickRatioUnbounded {
			t.Errorf("WickToBody = %v, want %v", c.WickToBody, wickRatioUnbounded)
		}
	})
}

func TestPatternClassification(t *testing.T) {
	t.Run("hammer needs a long lower wick on a small bullish body", func(t *testing.T) {
		// body 0.0002, lower wick 0.0010, upper wick 0.0001
		c := FromBar(bar(1.1000, 1.1003, 1.0990, 1.1002), 0.10, 2.0)
		if c.Pattern != PatternHammer {
			t.Errorf("Pattern = %v, want %v", c.Pattern, PatternHammer)
		}
		if c.Rejection != RejectionBullish {
			t.Errorf("Rejection = %v, want %v", c.Rejection, RejectionBullish)
		}
	})

	t.Run("shooting star mirrors the hammer", func(t *testing.T) {
		c := FromBar(bar(1.1002, 1.1012, 1.0999, 1.1000), 0.10, 2.0)
		if c.Pattern != PatternShootingStar {
			t.Errorf("Pattern = %v, want %v", c.Pattern, PatternShootingStar)
		}
		if c.Rejection != RejectionBearish {
			t.Errorf("Rejection = %v, want %v", c.Rejection, RejectionBearish)
		}
	})

	t.Run("hammer geometry on a bearish body falls through to pin bar", func(t *testing.T) {
		c := FromBar(bar(1.1002, 1.1003, 1.0990, 1.1000), 0.10, 2.0)
		if c.Pattern != PatternPinBar {
			t.Errorf("Pattern = %v, want %v", c.Pattern, PatternPinBar)
		}
	})

	t.Run("long wicks on both sides cancel into no rejection", func(t *testing.T) {
		c := FromBar(bar(1.1000, 1.1010, 1.0990, 1.1001), 0.10, 2.0)
		if c.Rejection != RejectionNone {
			t.Errorf("Rejection = %v, want %v", c.Rejection, RejectionNone)
		}
	})

	t.Run("full body classifies strong", func(t *testing.T) {
		c := FromBar(bar(1.1000, 1.1011, 1.0999, 1.1010), 0.10, 2.0)
		if c.Pattern != PatternStrongBullish {
			t.Errorf("Pattern = %v, want %v", c.Pattern, PatternStrongBullish)
		}
	})

	t.Run("tiny body classifies doji before plain direction", func(t *testing.T) {
		c := FromBar(bar(1.1000, 1.1006, 1.0994, 1.10005), 0.10, 2.0)
		if !c.IsDoji {
			t.Fatalf("expected doji, body/range = %v", c.BodyToRange)
		}
		if c.Pattern != PatternDoji {
			t.Errorf("Pattern = %v, want %v", c.Pattern, PatternDoji)
		}
	})

	t.Run("flat bar with no range", func(t *testing.T) {
		c := FromBar(bar(1.1, 1.1, 1.1, 1.1), 0.10, 2.0)
		if c.Pattern != PatternDoji {
			// body/range is 0, which is below the doji cutoff
			t.Errorf("Pattern = %v, want %v", c.Pattern, PatternDoji)
		}
	})
}

func TestValidForEntry(t *testing.T) {
	series := market.NewSeries([]market.Bar{bar(1.1000, 1.1020, 1.0990, 1.1010)})
	a := NewAnalyzer(series, 0.0001, 0.10, 2.0)

	t.Run("doji never validates", func(t *testing.T) {
		c := FromBar(bar(1.1000, 1.1006, 1.0994, 1.10005), 0.10, 2.0)
		if a.ValidForEntry(c, market.SideBuy) {
			t.Error("doji accepted for buy")
		}
		if a.ValidForEntry(c, market.SideSell) {
			t.Error("doji accepted for sell")
		}
	})

	t.Run("bullish rejection wick validates a buy", func(t *testing.T) {
		c := FromBar(bar(1.1000, 1.1003, 1.0990, 1.1002), 0.10, 2.0)
		if !a.ValidForEntry(c, market.SideBuy) {
			t.Error("hammer rejected for buy")
		}
	})

	t.Run("long wick against the trade invalidates", func(t *testing.T) {
		// Bearish rejection (long upper wick) on a buy candidate.
		c2 := FromBar(bar(1.1000, 1.1010, 1.0998, 1.1002), 0.10, 2.0)
		if c2.Rejection != RejectionBearish {
			t.Fatalf("setup: Rejection = %v, want bearish", c2.Rejection)
		}
		if a.ValidForEntry(c2, market.SideBuy) {
			t.Error("bearish rejection accepted for buy")
		}
		if !a.ValidForEntry(c2, market.SideSell) {
			t.Error("bearish rejection is favorable for sell and must pass")
		}
	})

	t.Run("opposing close without favorable wick invalidates", func(t *testing.T) {
		c := FromBar(bar(1.1010, 1.1011, 1.0999, 1.1000), 0.10, 2.0)
		if c.Rejection == RejectionBullish {
			t.Fatal("setup: candle must not carry a bullish rejection")
		}
		if a.ValidForEntry(c, market.SideBuy) {
			t.Error("bearish candle accepted for buy without a favorable wick")
		}
	})
}
