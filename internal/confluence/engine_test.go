package confluence

import (
	"math"
	"testing"

	"forex-entry-bot/internal/candle"
	"forex-entry-bot/internal/market"
)

const pip = 0.0001

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreBoundaries(t *testing.T) {
	t.Run("key level match is inclusive at exactly the tolerance", func(t *testing.T) {
		// Candidate exactly 10 pips from resistance, tolerance 10
		// pips. 1.1025 sits mid-grid so no round factor interferes.
		in := Inputs{Resistance: []float64{1.1035}, PipUnit: pip}
		p := Params{
			Side:               market.SideSell,
			ReferencePrice:     1.1000,
			ProximityTolerance: 10 * pip,
		}
		z := score(Candidate{Price: 1.1025}, in, p)
		if !z.AtResistance {
			t.Error("boundary distance must count as a key-level match")
		}
		if z.Score != 1 {
			t.Errorf("Score = %d, want 1", z.Score)
		}
	})

	t.Run("resistance wins over support when both match", func(t *testing.T) {
		in := Inputs{
			Resistance: []float64{1.1025},
			Support:    []float64{1.1026},
			PipUnit:    pip,
		}
		p := Params{Side: market.SideSell, ReferencePrice: 1.1000, ProximityTolerance: 10 * pip}
		z := score(Candidate{Price: 1.1025}, in, p)
		if !z.AtResistance || z.AtSupport {
			t.Errorf("tags = resistance %v support %v, want resistance only", z.AtResistance, z.AtSupport)
		}
		if z.Score != 1 {
			t.Errorf("Score = %d, want a single key-level factor", z.Score)
		}
	})

	t.Run("round number classifies only the largest tier", func(t *testing.T) {
		in := Inputs{PipUnit: pip}
		p := Params{Side: market.SideSell, ReferencePrice: 1.0000, ProximityTolerance: 2 * pip}

		// 1.0500 is a multiple of the 500, 100, and 50 pip grids.
		z := score(Candidate{Price: 1.0500}, in, p)
		if z.Score != 1 {
			t.Fatalf("Score = %d, want exactly one round-number factor", z.Score)
		}
		if z.Factors[0].Label != "round 500" {
			t.Errorf("Label = %q, want round 500", z.Factors[0].Label)
		}

		// 1.0050 hits the 50 grid only.
		z = score(Candidate{Price: 1.0050}, in, p)
		if z.Score != 1 || z.Factors[0].Label != "round 50" {
			t.Errorf("got %v, want a single round 50 factor", z.Factors)
		}
	})

	t.Run("rejection wick matches within the five-bar window", func(t *testing.T) {
		hammer := candle.FromBar(market.Bar{Open: 1.0988, High: 1.0991, Low: 1.0975, Close: 1.0990}, 0.10, 2.0)
		if hammer.Rejection != candle.RejectionBullish {
			t.Fatalf("setup: rejection = %v, want bullish", hammer.Rejection)
		}

		in := Inputs{Candles: []candle.Candle{hammer}, PipUnit: pip}
		p := Params{Side: market.SideBuy, ReferencePrice: 1.0990, ProximityTolerance: 5 * pip}

		z := score(Candidate{Price: 1.0977}, in, p)
		if z.Score != 1 || z.Factors[0].Kind != FactorRejection {
			t.Errorf("got %v, want a rejection factor near the wick low", z.Factors)
		}

		// Same wick is invisible to a sell candidate.
		p.Side = market.SideSell
		z = score(Candidate{Price: 1.0977}, in, p)
		if z.Score != 0 {
			t.Errorf("Score = %d, bullish wick must not count for a sell", z.Score)
		}
	})
}

func TestMerge(t *testing.T) {
	t.Run("two close zones merge to the pairwise mean with summed score", func(t *testing.T) {
		zones := []Zone{
			{Price: 1.1050, Score: 2, Factors: []Factor{{Kind: FactorKeyLevel}, {Kind: FactorFibonacci}}},
			{Price: 1.1052, Score: 1, Factors: []Factor{{Kind: FactorRoundNumber}}},
		}
		out := merge(zones, 0.0005, 1.1000)

		if len(out) != 1 {
			t.Fatalf("len = %d, want 1", len(out))
		}
		if !almostEqual(out[0].Price, 1.1051) {
			t.Errorf("Price = %v, want 1.1051", out[0].Price)
		}
		if out[0].Score != 3 {
			t.Errorf("Score = %d, want 3", out[0].Score)
		}
		if len(out[0].Factors) != 3 {
			t.Errorf("Factors = %d, want 3", len(out[0].Factors))
		}
		if !almostEqual(out[0].Distance, 0.0051) {
			t.Errorf("Distance = %v, want 0.0051", out[0].Distance)
		}
	})

	t.Run("single pass, not transitive closure", func(t *testing.T) {
		// B merges into A, moving the survivor to 1.10015. C would
		// have merged with B pairwise, but against the moved survivor
		// it is 0.00045 away and stays separate.
		zones := []Zone{
			{Price: 1.1000, Score: 1},
			{Price: 1.1003, Score: 1},
			{Price: 1.1006, Score: 1},
		}
		out := merge(zones, 0.0004, 1.0900)
		if len(out) != 2 {
			t.Fatalf("len = %d, want 2 (chain must not close transitively)", len(out))
		}
		if !almostEqual(out[0].Price, 1.10015) {
			t.Errorf("survivor price = %v, want 1.10015", out[0].Price)
		}
	})

	t.Run("directional tags survive merging", func(t *testing.T) {
		zones := []Zone{
			{Price: 1.1050, Score: 1, AtResistance: true},
			{Price: 1.1052, Score: 1},
		}
		out := merge(zones, 0.0005, 1.1000)
		if len(out) != 1 || !out[0].AtResistance {
			t.Errorf("merged zone lost its resistance tag: %+v", out)
		}
	})
}

func TestFindZones(t *testing.T) {
	baseParams := func() Params {
		return Params{
			Side:               market.SideBuy,
			ReferencePrice:     1.1000,
			MaxDistance:        50 * pip,
			ProximityTolerance: 10 * pip,
			MinScore:           1,
		}
	}

	t.Run("candidates above reference are dropped for a buy", func(t *testing.T) {
		in := Inputs{Support: []float64{1.1020}, PipUnit: pip}
		zones := FindZones(in, baseParams())
		for _, z := range zones {
			if z.Price > 1.1000 {
				t.Errorf("buy zone above reference: %v", z.Price)
			}
		}
	})

	t.Run("min score filters weak zones", func(t *testing.T) {
		in := Inputs{Support: []float64{1.0975}, PipUnit: pip}
		p := baseParams()
		p.MinScore = 3
		if zones := FindZones(in, p); len(zones) != 0 {
			t.Errorf("zones = %v, want none below the score floor", zones)
		}
	})

	t.Run("zones rank by score then proximity", func(t *testing.T) {
		// Support at 1.0975 also sits on the 1.0950/1.1000 round grid?
		// Keep factors controlled: one support near a round number and
		// one lone support farther out.
		in := Inputs{
			Support: []float64{1.0951, 1.0920},
			PipUnit: pip,
		}
		p := baseParams()
		p.ProximityTolerance = 2 * pip

		zones := FindZones(in, p)
		if len(zones) < 2 {
			t.Fatalf("zones = %d, want at least 2", len(zones))
		}
		for i := 1; i < len(zones); i++ {
			prev, cur := zones[i-1], zones[i]
			if cur.Score > prev.Score {
				t.Errorf("rank %d score %d above rank %d score %d", i, cur.Score, i-1, prev.Score)
			}
			if cur.Score == prev.Score && cur.Distance < prev.Distance {
				t.Errorf("equal scores must rank by distance: %v then %v", prev.Distance, cur.Distance)
			}
		}
	})

	t.Run("max zones truncates after ranking", func(t *testing.T) {
		in := Inputs{
			Support: []float64{1.0990, 1.0970, 1.0955, 1.0920},
			PipUnit: pip,
		}
		p := baseParams()
		p.ProximityTolerance = 2 * pip
		p.MergeTolerance = 1 * pip
		p.MaxZones = 2

		if zones := FindZones(in, p); len(zones) > 2 {
			t.Errorf("zones = %d, want at most 2", len(zones))
		}
	})

	t.Run("buying into resistance is invalid but still listed", func(t *testing.T) {
		in := Inputs{Resistance: []float64{1.0980}, PipUnit: pip}
		p := baseParams()
		p.ProximityTolerance = 2 * pip

		zones := FindZones(in, p)
		var at *Zone
		for i := range zones {
			if zones[i].AtResistance {
				at = &zones[i]
				break
			}
		}
		if at == nil {
			t.Fatal("expected a zone tagged at resistance")
		}
		if at.Valid {
			t.Error("buy zone at resistance must be invalid")
		}
	})

	t.Run("selling into support is invalid", func(t *testing.T) {
		in := Inputs{Support: []float64{1.1020}, PipUnit: pip}
		p := baseParams()
		p.Side = market.SideSell
		p.ProximityTolerance = 2 * pip

		zones := FindZones(in, p)
		var at *Zone
		for i := range zones {
			if zones[i].AtSupport {
				at = &zones[i]
				break
			}
		}
		if at == nil {
			t.Fatal("expected a zone tagged at support")
		}
		if at.Valid {
			t.Error("sell zone at support must be invalid")
		}
	})

	t.Run("best limit price is zero when nothing qualifies", func(t *testing.T) {
		if p := BestLimitPrice(nil); p != 0 {
			t.Errorf("BestLimitPrice(nil) = %v, want 0", p)
		}
	})
}

func TestStrengthScore(t *testing.T) {
	z := Zone{Factors: []Factor{
		{Kind: FactorKeyLevel, Label: "key support"},
		{Kind: FactorFibonacci, Label: "fib 61.8%"},
		{Kind: FactorRoundNumber, Label: "round 500"},
		{Kind: FactorMovingAverage, Label: "EMA 50"},
		{Kind: FactorRejection, Label: "rejection wick"},
	}}
	// key +3, fib 61.8 +3, round 500 +2, MA +2, rejection +1
	if got := z.StrengthScore(); got != 11 {
		t.Errorf("StrengthScore = %d, want 11", got)
	}

	weak := Zone{Factors: []Factor{
		{Kind: FactorFibonacci, Label: "fib 38.2%"},
		{Kind: FactorRoundNumber, Label: "round 50"},
	}}
	// non-61.8 fib +2, minor round +1
	if got := weak.StrengthScore(); got != 3 {
		t.Errorf("StrengthScore = %d, want 3", got)
	}
}
