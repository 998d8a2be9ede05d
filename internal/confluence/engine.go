package confluence

import (
	"fmt"
	"math"
	"sort"

	"forex-entry-bot/internal/candle"
	"forex-entry-bot/internal/fibonacci"
	"forex-entry-bot/internal/market"
)

// rejectionLookback is the fixed number of recent candles scanned for
// rejection wicks.
const rejectionLookback = 5

// Round-number tiers in pip-equivalents, largest first so a price at a
// 500-pip boundary reports only the major tier.
var roundTiers = [3]int{500, 100, 50}

// MovingAverage is one externally supplied moving-average reading.
type MovingAverage struct {
	Period int
	Value  float64
}

// Inputs carries everything the zone engine reads for one evaluation.
// All of it is passed explicitly; the engine keeps no fields that act
// as hidden inputs between calls.
type Inputs struct {
	Fib            fibonacci.LevelSet
	Resistance     []float64
	Support        []float64
	MovingAverages []MovingAverage
	// Candles are analyzed recent candles ordered by offset; only the
	// first rejectionLookback entries are consulted.
	Candles []candle.Candle
	PipUnit float64
}

// Params are the per-call tuning knobs.
type Params struct {
	Side               market.Side
	ReferencePrice     float64
	MaxDistance        float64
	ProximityTolerance float64
	// MergeTolerance defaults to half the proximity tolerance when zero.
	MergeTolerance float64
	MinScore       int
	// MaxZones defaults to 3 when zero.
	MaxZones int
}

// FindZones generates price candidates from every factor source, scores
// each against the five categories, merges near-identical zones in a
// single left-to-right pass, and returns them ranked by score (ties
// broken by distance from the reference price).
func FindZones(in Inputs, p Params) []Zone {
	if p.MaxZones <= 0 {
		p.MaxZones = 3
	}
	if p.MergeTolerance <= 0 {
		p.MergeTolerance = p.ProximityTolerance / 2
	}

	var zones []Zone
	for _, c := range candidates(in, p) {
		if wrongSide(c.Price, p.ReferencePrice, p.Side) {
			continue
		}
		z := score(c, in, p)
		if z.Score < p.MinScore {
			continue
		}
		zones = append(zones, z)
	}

	zones = merge(zones, p.MergeTolerance, p.ReferencePrice)

	for i := range zones {
		zones[i].Valid = directionallyValid(zones[i], p.Side)
	}

	sort.SliceStable(zones, func(i, j int) bool {
		if zones[i].Score != zones[j].Score {
			return zones[i].Score > zones[j].Score
		}
		return zones[i].Distance < zones[j].Distance
	})

	if len(zones) > p.MaxZones {
		zones = zones[:p.MaxZones]
	}
	return zones
}

// BestZone returns the top-ranked zone. Absence is reported by the bool,
// matching a zero score.
func BestZone(zones []Zone) (Zone, bool) {
	if len(zones) == 0 || zones[0].Score == 0 {
		return Zone{}, false
	}
	return zones[0], true
}

// BestLimitPrice returns the top-ranked zone's price, or 0 when there is
// no zone.
func BestLimitPrice(zones []Zone) float64 {
	z, ok := BestZone(zones)
	if !ok {
		return 0
	}
	return z.Price
}

// candidates returns the union of all factor-source prices: the seven
// retracement levels, externally supplied key levels, moving-average
// readings, and round numbers inside the distance window.
func candidates(in Inputs, p Params) []Candidate {
	var out []Candidate

	if in.Fib.Valid {
		for _, lv := range in.Fib.Retracements() {
			out = append(out, Candidate{Price: lv.Price, Origin: FactorFibonacci})
		}
	}
	for _, r := range in.Resistance {
		out = append(out, Candidate{Price: r, Origin: FactorKeyLevel})
	}
	for _, s := range in.Support {
		out = append(out, Candidate{Price: s, Origin: FactorKeyLevel})
	}
	for _, ma := range in.MovingAverages {
		out = append(out, Candidate{Price: ma.Value, Origin: FactorMovingAverage})
	}
	out = append(out, roundNumbers(in.PipUnit, p.ReferencePrice, p.MaxDistance)...)

	return out
}

// roundNumbers lists every multiple of the 50-pip grid inside
// [reference-maxDistance, reference+maxDistance]. Coarser tiers are
// subsets of the finest grid, so one pass covers all three.
func roundNumbers(pipUnit, reference, maxDistance float64) []Candidate {
	if pipUnit <= 0 || maxDistance <= 0 {
		return nil
	}
	step := 50 * pipUnit
	lo := reference - maxDistance
	hi := reference + maxDistance

	var out []Candidate
	for v := math.Ceil(lo/step) * step; v <= hi+step/1e6; v += step {
		out = append(out, Candidate{Price: v, Origin: FactorRoundNumber})
	}
	return out
}

// score tests one candidate independently against the five factor
// categories within the proximity tolerance (inclusive boundaries).
func score(c Candidate, in Inputs, p Params) Zone {
	z := Zone{
		Price:    c.Price,
		Distance: math.Abs(c.Price - p.ReferencePrice),
		Valid:    true,
	}
	tol := p.ProximityTolerance

	// (i) key level: resistance list first, tag on first match.
	matched := false
	for _, r := range in.Resistance {
		if math.Abs(c.Price-r) <= tol {
			z.Factors = append(z.Factors, Factor{Kind: FactorKeyLevel, Label: "key resistance"})
			z.AtResistance = true
			matched = true
			break
		}
	}
	if !matched {
		for _, s := range in.Support {
			if math.Abs(c.Price-s) <= tol {
				z.Factors = append(z.Factors, Factor{Kind: FactorKeyLevel, Label: "key support"})
				z.AtSupport = true
				break
			}
		}
	}

	// (ii) nearest Fibonacci retracement level.
	if in.Fib.Valid {
		bestDist := math.MaxFloat64
		bestLabel := ""
		for _, lv := range in.Fib.Retracements() {
			if d := math.Abs(c.Price - lv.Price); d <= tol && d < bestDist {
				bestDist, bestLabel = d, lv.Label
			}
		}
		if bestLabel != "" {
			z.Factors = append(z.Factors, Factor{Kind: FactorFibonacci, Label: "fib " + bestLabel})
		}
	}

	// (iii) round-number tier, classified at the largest qualifying tier.
	for _, tier := range roundTiers {
		step := float64(tier) * in.PipUnit
		if step <= 0 {
			continue
		}
		nearest := math.Round(c.Price/step) * step
		if math.Abs(c.Price-nearest) <= tol {
			z.Factors = append(z.Factors, Factor{
				Kind:  FactorRoundNumber,
				Label: fmt.Sprintf("round %d", tier),
			})
			break
		}
	}

	// (iv) nearest moving average.
	bestDist := math.MaxFloat64
	bestPeriod := 0
	for _, ma := range in.MovingAverages {
		if d := math.Abs(c.Price - ma.Value); d <= tol && d < bestDist {
			bestDist, bestPeriod = d, ma.Period
		}
	}
	if bestPeriod > 0 {
		z.Factors = append(z.Factors, Factor{
			Kind:  FactorMovingAverage,
			Label: fmt.Sprintf("EMA %d", bestPeriod),
		})
	}

	// (v) recent rejection wick against the opposite side.
	limit := rejectionLookback
	if len(in.Candles) < limit {
		limit = len(in.Candles)
	}
	for i := 0; i < limit; i++ {
		cd := in.Candles[i]
		if p.Side == market.SideBuy && cd.Rejection == candle.RejectionBullish &&
			math.Abs(cd.Low-c.Price) <= tol {
			z.Factors = append(z.Factors, Factor{Kind: FactorRejection, Label: "rejection wick"})
			break
		}
		if p.Side == market.SideSell && cd.Rejection == candle.RejectionBearish &&
			math.Abs(cd.High-c.Price) <= tol {
			z.Factors = append(z.Factors, Factor{Kind: FactorRejection, Label: "rejection wick"})
			break
		}
	}

	z.Score = len(z.Factors)
	return z
}

// merge combines zones whose prices sit within tolerance of each other
// in a single left-to-right pass over generation order. A later zone
// merges into the earliest surviving zone in range: scores sum, factor
// tags concatenate, and the survivor's price moves to the pairwise mean
// before later comparisons. Deliberately not a transitive closure;
// three mutually close zones can merge differently depending on input
// order.
func merge(zones []Zone, tolerance, reference float64) []Zone {
	out := make([]Zone, 0, len(zones))
	for _, z := range zones {
		merged := false
		for i := range out {
			if math.Abs(out[i].Price-z.Price) <= tolerance {
				out[i].Price = (out[i].Price + z.Price) / 2
				out[i].Score += z.Score
				out[i].Factors = append(out[i].Factors, z.Factors...)
				out[i].AtResistance = out[i].AtResistance || z.AtResistance
				out[i].AtSupport = out[i].AtSupport || z.AtSupport
				out[i].Distance = math.Abs(out[i].Price - reference)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, z)
		}
	}
	return out
}

// directionallyValid rejects buying into resistance and selling into
// support, independent of score.
func directionallyValid(z Zone, side market.Side) bool {
	if side == market.SideBuy && z.AtResistance {
		return false
	}
	if side == market.SideSell && z.AtSupport {
		return false
	}
	return true
}

func wrongSide(price, reference float64, side market.Side) bool {
	if side == market.SideBuy {
		return price > reference
	}
	return price < reference
}
