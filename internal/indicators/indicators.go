package indicators

import "forex-entry-bot/internal/market"

// SMA returns the simple moving average of the last period closes.
// Returns 0 when there is not enough data.
func SMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average of the last close, seeded
// with an SMA over the first period values.
func EMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	ema := SMA(closes[:period], period)
	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		ema = closes[i]*k + ema*(1-k)
	}
	return ema
}

// EMASeries returns the EMA value at every index from period-1 onward;
// earlier indexes are 0. The strategy reads the last two entries to
// judge slope.
func EMASeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}
	ema := SMA(closes[:period], period)
	out[period-1] = ema
	k := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		ema = closes[i]*k + ema*(1-k)
		out[i] = ema
	}
	return out
}

// RSI returns the relative strength index over the last period changes.
// Returns the neutral value 50 when there is not enough data, 100 when
// there were no losses.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}
	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR returns the average true range over the last period bars
// (chronological order). Returns 0 when there is not enough data.
func ATR(bars []market.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		tr := bars[i].High - bars[i].Low
		if hc := abs(bars[i].High - bars[i-1].Close); hc > tr {
			tr = hc
		}
		if lc := abs(bars[i].Low - bars[i-1].Close); lc > tr {
			tr = lc
		}
		sum += tr
	}
	return sum / float64(period)
}

// MACDResult holds the MACD line, signal line, and histogram.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the fast/slow EMA difference with a signal EMA over the
// MACD line history.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(closes) < slow+signal {
		return MACDResult{}
	}
	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)

	line := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		line = append(line, fastSeries[i]-slowSeries[i])
	}
	macd := line[len(line)-1]
	sig := EMA(line, signal)
	return MACDResult{MACD: macd, Signal: sig, Histogram: macd - sig}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
