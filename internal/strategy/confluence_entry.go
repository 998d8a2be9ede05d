package strategy

import (
	"fmt"
	"time"

	"forex-entry-bot/internal/candle"
	"forex-entry-bot/internal/confluence"
	"forex-entry-bot/internal/fibonacci"
	"forex-entry-bot/internal/indicators"
	"forex-entry-bot/internal/market"
)

// Config holds the confluence entry strategy's tuning. Values are fixed
// configuration, not learned; zero values fall back to the defaults
// noted per field.
type Config struct {
	Symbol   string
	Interval string

	// Instrument precision in decimal digits, used to derive the pip
	// unit for tolerances expressed in pips.
	PrecisionDigits int

	SwingWindowLeft  int // default 5
	SwingWindowRight int // default 5
	SwingLookback    int // default 100

	MinBodyFraction float64 // default 0.10
	LongWickRatio   float64 // default 2.0

	ProximityTolerancePips float64 // default 15
	MaxDistancePips        float64 // default 50
	MinZoneScore           int     // default 2
	MaxZones               int     // default 3

	// Trend/momentum gate, after the original expert advisor.
	TrendEMAPeriod int     // default 20
	RSIPeriod      int     // default 8
	RSILowerLevel  float64 // default 40
	RSIUpperLevel  float64 // default 60
}

func (c Config) withDefaults() Config {
	if c.SwingWindowLeft <= 0 {
		c.SwingWindowLeft = 5
	}
	if c.SwingWindowRight <= 0 {
		c.SwingWindowRight = 5
	}
	if c.SwingLookback <= 0 {
		c.SwingLookback = 100
	}
	if c.MinBodyFraction <= 0 {
		c.MinBodyFraction = 0.10
	}
	if c.LongWickRatio <= 0 {
		c.LongWickRatio = 2.0
	}
	if c.ProximityTolerancePips <= 0 {
		c.ProximityTolerancePips = 15
	}
	if c.MaxDistancePips <= 0 {
		c.MaxDistancePips = 50
	}
	if c.MinZoneScore <= 0 {
		c.MinZoneScore = 2
	}
	if c.MaxZones <= 0 {
		c.MaxZones = 3
	}
	if c.TrendEMAPeriod <= 0 {
		c.TrendEMAPeriod = 20
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 8
	}
	if c.RSILowerLevel <= 0 {
		c.RSILowerLevel = 40
	}
	if c.RSIUpperLevel <= 0 {
		c.RSIUpperLevel = 60
	}
	return c
}

// zone engine moving-average periods.
var emaPeriods = [3]int{20, 50, 200}

// ConfluenceEntryStrategy picks limit entry prices where independent
// technical factors coincide. One Evaluate call is one complete cycle:
// trend gate, candle structure check, swing/fib derivation, zone
// scoring, best-price selection. Nothing carries over to the next call.
type ConfluenceEntryStrategy struct {
	cfg       Config
	pipUnit   float64
	keyLevels market.KeyLevelProvider
}

// NewConfluenceEntryStrategy builds the strategy. keyLevels supplies
// the externally maintained support/resistance lists per evaluation;
// they are passed into the zone engine explicitly, never stored.
func NewConfluenceEntryStrategy(cfg Config, keyLevels market.KeyLevelProvider) *ConfluenceEntryStrategy {
	cfg = cfg.withDefaults()
	return &ConfluenceEntryStrategy{
		cfg:       cfg,
		pipUnit:   market.PipUnit(cfg.PrecisionDigits),
		keyLevels: keyLevels,
	}
}

func (s *ConfluenceEntryStrategy) Name() string {
	return fmt.Sprintf("ConfluenceEntry-%s-%s", s.cfg.Symbol, s.cfg.Interval)
}

func (s *ConfluenceEntryStrategy) Symbol() string { return s.cfg.Symbol }

func (s *ConfluenceEntryStrategy) Interval() string { return s.cfg.Interval }

// PipUnit exposes the derived pip-equivalent unit.
func (s *ConfluenceEntryStrategy) PipUnit() float64 { return s.pipUnit }

// Evaluate runs one evaluation cycle over the snapshot.
func (s *ConfluenceEntryStrategy) Evaluate(snapshot *market.Series, currentPrice float64) (*Signal, error) {
	none := &Signal{Type: SignalNone, Symbol: s.cfg.Symbol, Timestamp: time.Now()}

	if snapshot.Len() < s.cfg.TrendEMAPeriod+2 {
		return none, nil
	}

	side, ok := s.trendGate(snapshot)
	if !ok {
		return none, nil
	}

	analyzer := candle.NewAnalyzer(snapshot, s.pipUnit, s.cfg.MinBodyFraction, s.cfg.LongWickRatio)
	latest, ok := analyzer.Analyze(0)
	if !ok {
		return none, nil
	}
	if !analyzer.ValidForEntry(latest, side) {
		return none, nil
	}

	zones := s.findZones(snapshot, analyzer, side, currentPrice)
	zone, ok := confluence.BestZone(zones)
	if !ok || !zone.Valid {
		return none, nil
	}

	sigType := SignalBuy
	if side == market.SideSell {
		sigType = SignalSell
	}
	return &Signal{
		Type:       sigType,
		Symbol:     s.cfg.Symbol,
		Side:       side,
		EntryPrice: zone.Price,
		Score:      zone.Score,
		Strength:   zone.StrengthScore(),
		Factors:    zone.FactorSummary(),
		Reason: fmt.Sprintf("confluence of %d factors at %.5f (%s)",
			zone.Score, zone.Price, zone.FactorSummary()),
		Timestamp: time.Now(),
	}, nil
}

// Zones exposes the ranked zone list for diagnostics and the API layer,
// using the same pipeline Evaluate runs.
func (s *ConfluenceEntryStrategy) Zones(snapshot *market.Series, side market.Side, currentPrice float64) []confluence.Zone {
	analyzer := candle.NewAnalyzer(snapshot, s.pipUnit, s.cfg.MinBodyFraction, s.cfg.LongWickRatio)
	return s.findZones(snapshot, analyzer, side, currentPrice)
}

// FibLevels exposes the current level set for diagnostics.
func (s *ConfluenceEntryStrategy) FibLevels(snapshot *market.Series) fibonacci.LevelSet {
	engine := fibonacci.NewEngine(snapshot, s.cfg.SwingWindowLeft, s.cfg.SwingWindowRight)
	return engine.Compute(s.cfg.SwingLookback)
}

// trendGate applies the EMA-slope plus RSI-cross entry filter: a buy
// needs a rising trend EMA with RSI crossing up through the lower band,
// a sell the mirror image.
func (s *ConfluenceEntryStrategy) trendGate(snapshot *market.Series) (market.Side, bool) {
	closes := snapshot.Closes()
	if len(closes) < 2 {
		return "", false
	}

	emaNow := indicators.EMA(closes, s.cfg.TrendEMAPeriod)
	emaPrev := indicators.EMA(closes[:len(closes)-1], s.cfg.TrendEMAPeriod)
	rsiNow := indicators.RSI(closes, s.cfg.RSIPeriod)
	rsiPrev := indicators.RSI(closes[:len(closes)-1], s.cfg.RSIPeriod)

	if emaNow > emaPrev && rsiNow > s.cfg.RSILowerLevel && rsiPrev <= s.cfg.RSILowerLevel {
		return market.SideBuy, true
	}
	if emaNow < emaPrev && rsiNow < s.cfg.RSIUpperLevel && rsiPrev >= s.cfg.RSIUpperLevel {
		return market.SideSell, true
	}
	return "", false
}

func (s *ConfluenceEntryStrategy) findZones(snapshot *market.Series, analyzer *candle.Analyzer, side market.Side, currentPrice float64) []confluence.Zone {
	fibEngine := fibonacci.NewEngine(snapshot, s.cfg.SwingWindowLeft, s.cfg.SwingWindowRight)
	levels := fibEngine.Compute(s.cfg.SwingLookback)

	var resistance, support []float64
	if s.keyLevels != nil {
		if r, sp, err := s.keyLevels.KeyLevels(s.cfg.Symbol); err == nil {
			resistance, support = r, sp
		}
	}

	maProvider := indicators.NewSeriesProvider(snapshot)
	var mas []confluence.MovingAverage
	for _, period := range emaPeriods {
		if v, ok := maProvider.EMA(period); ok {
			mas = append(mas, confluence.MovingAverage{Period: period, Value: v})
		}
	}

	recent := make([]candle.Candle, 0, 5)
	for i := 0; i < 5; i++ {
		c, ok := analyzer.Analyze(i)
		if !ok {
			break
		}
		recent = append(recent, c)
	}

	return confluence.FindZones(
		confluence.Inputs{
			Fib:            levels,
			Resistance:     resistance,
			Support:        support,
			MovingAverages: mas,
			Candles:        recent,
			PipUnit:        s.pipUnit,
		},
		confluence.Params{
			Side:               side,
			ReferencePrice:     currentPrice,
			MaxDistance:        s.cfg.MaxDistancePips * s.pipUnit,
			ProximityTolerance: s.cfg.ProximityTolerancePips * s.pipUnit,
			MinScore:           s.cfg.MinZoneScore,
			MaxZones:           s.cfg.MaxZones,
		},
	)
}
