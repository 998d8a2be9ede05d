package market

import "time"

// Bar represents one closed OHLC bar.
type Bar struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	CloseTime int64   `json:"closeTime"`
}

// Opened returns the bar open time as a time.Time.
func (b Bar) Opened() time.Time {
	return time.Unix(b.OpenTime/1000, 0)
}

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports whether the bar closed below its open.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Side is the requested trade direction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other trade side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// History provides read-only OHLC access by bar offset. Offset 0 is the
// most recent closed bar; larger offsets are older bars. Implementations
// must present a non-moving view for the duration of one evaluation.
type History interface {
	// Bar returns the bar at the given offset, or false when the offset
	// is out of range.
	Bar(offset int) (Bar, bool)
	// Len returns the number of bars available.
	Len() int
}

// MovingAverageProvider supplies the current value of an exponential
// moving average for a given period.
type MovingAverageProvider interface {
	EMA(period int) (float64, bool)
}

// KeyLevelProvider supplies externally maintained resistance and support
// prices for a symbol. Neither list is required to be ordered or unique.
type KeyLevelProvider interface {
	KeyLevels(symbol string) (resistance, support []float64, err error)
}

// PipUnit derives the pip-equivalent unit from the instrument's quoted
// precision: 2-3 significant decimal digits map to 0.01, anything else
// to 0.0001.
func PipUnit(digits int) float64 {
	if digits == 2 || digits == 3 {
		return 0.01
	}
	return 0.0001
}
