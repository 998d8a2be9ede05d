package confluence

import "strings"

// FactorKind is one of the five independent factor categories a price
// candidate can score against. A candidate scores at most once per
// category.
type FactorKind string

const (
	FactorKeyLevel      FactorKind = "key_level"
	FactorFibonacci     FactorKind = "fibonacci"
	FactorRoundNumber   FactorKind = "round_number"
	FactorMovingAverage FactorKind = "moving_average"
	FactorRejection     FactorKind = "rejection"
)

// Factor is a typed tag describing one matched category. Tags are the
// internal representation; text is rendered only at presentation
// boundaries.
type Factor struct {
	Kind  FactorKind
	Label string
}

// Candidate is a price plus the category it originated from. Candidates
// are generated fresh each evaluation and never outlive it.
type Candidate struct {
	Price  float64
	Origin FactorKind
}

// Zone is a scored confluence of factors around one representative
// price. Score counts distinct factor categories (0-5); a merged zone's
// score is the sum of its constituents'.
type Zone struct {
	Price    float64
	Score    int
	Factors  []Factor
	Distance float64

	AtResistance bool
	AtSupport    bool

	// Valid is false when the zone's directional tags contradict the
	// requested trade side, independent of score.
	Valid bool
}

// FactorSummary renders the ordered factor tags as a human-readable
// string for reports and API payloads.
func (z Zone) FactorSummary() string {
	parts := make([]string, len(z.Factors))
	for i, f := range z.Factors {
		parts[i] = f.Label
	}
	return strings.Join(parts, " + ")
}

// StrengthScore is a secondary, informational weighting for external
// consumers: key level +3, 61.8% fib +3 (other fib levels +2), major
// round number +2 (other tiers +1), moving average +2, rejection +1.
// It never affects ranking.
func (z Zone) StrengthScore() int {
	total := 0
	for _, f := range z.Factors {
		switch f.Kind {
		case FactorKeyLevel:
			total += 3
		case FactorFibonacci:
			if strings.Contains(f.Label, "61.8") {
				total += 3
			} else {
				total += 2
			}
		case FactorRoundNumber:
			if strings.Contains(f.Label, "500") {
				total += 2
			} else {
				total++
			}
		case FactorMovingAverage:
			total += 2
		case FactorRejection:
			total++
		}
	}
	return total
}
