package fibonacci

import (
	"math"
	"testing"

	"forex-entry-bot/internal/market"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewLevelSet(t *testing.T) {
	t.Run("uptrend interpolates down from the swing high", func(t *testing.T) {
		// swingHigh 1.2000 at offset 20, swingLow 1.1900 at offset 5
		ls := NewLevelSet(
			SwingPoint{Offset: 20, Price: 1.2000, Kind: SwingHigh},
			SwingPoint{Offset: 5, Price: 1.1900, Kind: SwingLow},
		)

		if !ls.Uptrend {
			t.Fatal("low more recent than high must mean uptrend")
		}
		if !almostEqual(ls.Level618, 1.2000-0.0100*0.618) {
			t.Errorf("Level618 = %v, want 1.19382", ls.Level618)
		}
		if !almostEqual(ls.Level000, 1.2000) || !almostEqual(ls.Level100, 1.1900) {
			t.Errorf("anchors = %v/%v, want 1.2000/1.1900", ls.Level000, ls.Level100)
		}
	})

	t.Run("downtrend mirrors up from the swing low", func(t *testing.T) {
		ls := NewLevelSet(
			SwingPoint{Offset: 5, Price: 1.2000, Kind: SwingHigh},
			SwingPoint{Offset: 20, Price: 1.1900, Kind: SwingLow},
		)

		if ls.Uptrend {
			t.Fatal("high more recent than low must mean downtrend")
		}
		if !almostEqual(ls.Level000, 1.1900) || !almostEqual(ls.Level100, 1.2000) {
			t.Errorf("anchors = %v/%v, want 1.1900/1.2000", ls.Level000, ls.Level100)
		}
		if !almostEqual(ls.Level618, 1.1900+0.0100*0.618) {
			t.Errorf("Level618 = %v, want 1.19618", ls.Level618)
		}
	})

	t.Run("midpoint level is trend independent", func(t *testing.T) {
		up := NewLevelSet(SwingPoint{Offset: 20, Price: 1.2000}, SwingPoint{Offset: 5, Price: 1.1900})
		down := NewLevelSet(SwingPoint{Offset: 5, Price: 1.2000}, SwingPoint{Offset: 20, Price: 1.1900})
		if !almostEqual(up.Level500, 1.1950) || !almostEqual(down.Level500, 1.1950) {
			t.Errorf("Level500 = %v/%v, want 1.1950 for both", up.Level500, down.Level500)
		}
	})

	t.Run("extensions continue past the full retracement", func(t *testing.T) {
		ls := NewLevelSet(SwingPoint{Offset: 20, Price: 1.2000}, SwingPoint{Offset: 5, Price: 1.1900})
		if !almostEqual(ls.Ext1272, 1.2000-0.0100*1.272) {
			t.Errorf("Ext1272 = %v, want 1.18728", ls.Ext1272)
		}
		if got := len(ls.AllLevels()); got != 10 {
			t.Errorf("AllLevels() returned %d levels, want 10", got)
		}
	})
}

func TestLevelSelection(t *testing.T) {
	ls := NewLevelSet(
		SwingPoint{Offset: 20, Price: 1.2000, Kind: SwingHigh},
		SwingPoint{Offset: 5, Price: 1.1900, Kind: SwingLow},
	)

	t.Run("nearest level for a buy must sit at or below price", func(t *testing.T) {
		// Just above the 50% level; the 38.2% level is nearer but above.
		lv, ok := ls.NearestLevel(1.19520, market.SideBuy)
		if !ok {
			t.Fatal("expected a level")
		}
		if !almostEqual(lv.Price, ls.Level500) {
			t.Errorf("NearestLevel = %v (%s), want Level500 %v", lv.Price, lv.Label, ls.Level500)
		}
	})

	t.Run("preferred ladder picks 61.8 first when in range", func(t *testing.T) {
		lv, ok := ls.PreferredLevel(1.1950, market.SideBuy, 0.0020)
		if !ok {
			t.Fatal("expected a level")
		}
		if lv.Ratio != 0.618 {
			t.Errorf("PreferredLevel ratio = %v, want 0.618", lv.Ratio)
		}
	})

	t.Run("distance gate falls through the ladder", func(t *testing.T) {
		// 61.8 is 0.00118 away from 1.1950, outside a 0.0010 cap; 50%
		// sits exactly at the price.
		lv, ok := ls.PreferredLevel(1.1950, market.SideBuy, 0.0010)
		if !ok {
			t.Fatal("expected a level")
		}
		if lv.Ratio != 0.5 {
			t.Errorf("PreferredLevel ratio = %v, want 0.5", lv.Ratio)
		}
	})

	t.Run("invalid set yields nothing", func(t *testing.T) {
		var empty LevelSet
		if _, ok := empty.NearestLevel(1.1950, market.SideBuy); ok {
			t.Error("invalid set returned a level")
		}
		if _, ok := empty.PreferredLevel(1.1950, market.SideBuy, 1); ok {
			t.Error("invalid set returned a preferred level")
		}
	})

	t.Run("near-level lookup respects tolerance", func(t *testing.T) {
		label, ok := ls.NearLevel(ls.Level618+0.0001, 0.0002)
		if !ok || label != "61.8%" {
			t.Errorf("NearLevel = %q/%v, want 61.8%% within tolerance", label, ok)
		}
		if _, ok := ls.NearLevel(ls.Level618+0.0005, 0.0002); ok {
			t.Error("NearLevel matched outside tolerance")
		}
	})
}

func TestSwingDetection(t *testing.T) {
	flat := func(n int, price float64) []market.Bar {
		out := make([]market.Bar, n)
		for i := range out {
			out[i] = market.Bar{Open: price, High: price + 0.0005, Low: price - 0.0005, Close: price}
		}
		return out
	}

	t.Run("finds the nearest confirmed swing high", func(t *testing.T) {
		bars := flat(20, 1.1000)
		bars[7].High = 1.1100 // peak with 2 quieter bars each side
		engine := NewEngine(market.NewSeries(bars), 2, 2)

		sp, ok := engine.FindSwingHigh(20)
		if !ok {
			t.Fatal("expected a swing high")
		}
		if sp.Offset != 7 || !almostEqual(sp.Price, 1.1100) {
			t.Errorf("swing = offset %d price %v, want offset 7 price 1.1100", sp.Offset, sp.Price)
		}
	})

	t.Run("tie on the older side disqualifies the bar", func(t *testing.T) {
		bars := flat(20, 1.1000)
		bars[7].High = 1.1100
		bars[8].High = 1.1100 // equal high in the older window
		engine := NewEngine(market.NewSeries(bars), 2, 2)

		sp, ok := engine.FindSwingHigh(20)
		if !ok {
			t.Fatal("expected a swing high")
		}
		if sp.Offset == 7 {
			t.Error("bar 7 qualified despite an equal high on its older side")
		}
		// Bar 8 has a tie on its more-recent side, which is allowed.
		if sp.Offset != 8 {
			t.Errorf("swing offset = %d, want 8", sp.Offset)
		}
	})

	t.Run("tie on the recent side is allowed", func(t *testing.T) {
		bars := flat(20, 1.1000)
		bars[6].High = 1.1100 // equal high in bar 7's recent window
		bars[7].High = 1.1100
		engine := NewEngine(market.NewSeries(bars), 2, 2)

		sp, ok := engine.FindSwingHigh(20)
		if !ok {
			t.Fatal("expected a swing high")
		}
		if sp.Offset != 7 {
			t.Errorf("swing offset = %d, want 7", sp.Offset)
		}
	})

	t.Run("no swing without a full confirmation window", func(t *testing.T) {
		bars := flat(6, 1.1000)
		bars[3].High = 1.1100
		engine := NewEngine(market.NewSeries(bars), 3, 3)
		if _, ok := engine.FindSwingHigh(6); ok {
			t.Error("swing confirmed without room for both windows")
		}
	})

	t.Run("swing low mirrors the rule", func(t *testing.T) {
		bars := flat(20, 1.1000)
		bars[5].Low = 1.0900
		engine := NewEngine(market.NewSeries(bars), 2, 2)

		sp, ok := engine.FindSwingLow(20)
		if !ok {
			t.Fatal("expected a swing low")
		}
		if sp.Offset != 5 || !almostEqual(sp.Price, 1.0900) {
			t.Errorf("swing = offset %d price %v, want offset 5 price 1.0900", sp.Offset, sp.Price)
		}
	})

	t.Run("compute flags the set invalid when a swing is missing", func(t *testing.T) {
		// Monotonic highs produce no confirmed swing high.
		bars := make([]market.Bar, 20)
		for i := range bars {
			p := 1.1000 + float64(i)*0.0010
			bars[i] = market.Bar{Open: p, High: p + 0.0005, Low: p - 0.0005, Close: p}
		}
		engine := NewEngine(market.NewSeries(bars), 2, 2)
		if ls := engine.Compute(20); ls.Valid {
			t.Error("level set valid despite missing swing")
		}
	})
}
