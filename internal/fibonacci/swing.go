package fibonacci

import "forex-entry-bot/internal/market"

// SwingKind distinguishes swing highs from swing lows.
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a confirmed local extremum. Offset 0 is the most recent
// closed bar. Absence is reported by the bool return of the finders,
// never by a magic price.
type SwingPoint struct {
	Offset int
	Price  float64
	Kind   SwingKind
}

// Engine scans a bounded window of history for swing points and derives
// Fibonacci levels from them. It holds no state across evaluations.
type Engine struct {
	history market.History
	left    int // confirmation window on the more-recent side
	right   int // confirmation window on the older side
}

// NewEngine creates a swing/fib engine. Non-positive window sizes fall
// back to the default of 5 bars per side.
func NewEngine(history market.History, left, right int) *Engine {
	if left <= 0 {
		left = 5
	}
	if right <= 0 {
		right = 5
	}
	return &Engine{history: history, left: left, right: right}
}

// FindSwingHigh returns the nearest qualifying swing high within
// lookback bars. A bar qualifies when its high is >= every high in the
// left (more recent) window and strictly greater than every high in the
// right (older) window. The comparison is deliberately asymmetric;
// changing it changes which swing is selected in symmetric markets.
func (e *Engine) FindSwingHigh(lookback int) (SwingPoint, bool) {
	offset, price, ok := e.scan(lookback, func(b market.Bar) float64 { return b.High }, true)
	if !ok {
		return SwingPoint{}, false
	}
	return SwingPoint{Offset: offset, Price: price, Kind: SwingHigh}, true
}

// FindSwingLow is the symmetric rule for swing lows: <= on the more
// recent side, strictly less on the older side.
func (e *Engine) FindSwingLow(lookback int) (SwingPoint, bool) {
	offset, price, ok := e.scan(lookback, func(b market.Bar) float64 { return b.Low }, false)
	if !ok {
		return SwingPoint{}, false
	}
	return SwingPoint{Offset: offset, Price: price, Kind: SwingLow}, true
}

// scan walks outward from the nearest bar that has a full confirmation
// window on both sides and returns the first qualifying extremum.
func (e *Engine) scan(lookback int, price func(market.Bar) float64, high bool) (int, float64, bool) {
	limit := lookback
	if n := e.history.Len(); limit > n {
		limit = n
	}

	for i := e.left; i+e.right < limit; i++ {
		bar, ok := e.history.Bar(i)
		if !ok {
			break
		}
		p := price(bar)

		qualifies := true
		// More recent side: ties allowed.
		for j := i - e.left; j < i && qualifies; j++ {
			nb, ok := e.history.Bar(j)
			if !ok {
				qualifies = false
				break
			}
			v := price(nb)
			if (high && v > p) || (!high && v < p) {
				qualifies = false
			}
		}
		// Older side: strict.
		for j := i + 1; j <= i+e.right && qualifies; j++ {
			ob, ok := e.history.Bar(j)
			if !ok {
				qualifies = false
				break
			}
			v := price(ob)
			if (high && v >= p) || (!high && v <= p) {
				qualifies = false
			}
		}

		if qualifies {
			return i, p, true
		}
	}
	return 0, 0, false
}
