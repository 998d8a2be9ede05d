package indicators

import (
	"math"
	"testing"

	"forex-entry-bot/internal/market"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if got := SMA(closes, 3); got != 4 {
		t.Errorf("SMA = %v, want 4", got)
	}
	if got := SMA(closes, 6); got != 0 {
		t.Errorf("SMA with short input = %v, want 0", got)
	}
	if got := SMA(closes, 0); got != 0 {
		t.Errorf("SMA with zero period = %v, want 0", got)
	}
}

func TestEMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}

	t.Run("seeded with the SMA of the first period", func(t *testing.T) {
		// period 3: seed = 2, k = 0.5
		// after 4: 4*0.5 + 2*0.5 = 3; after 5: 5*0.5 + 3*0.5 = 4
		if got := EMA(closes, 3); got != 4 {
			t.Errorf("EMA = %v, want 4", got)
		}
	})

	t.Run("series exposes the same final value", func(t *testing.T) {
		series := EMASeries(closes, 3)
		if series[len(series)-1] != EMA(closes, 3) {
			t.Errorf("EMASeries last = %v, EMA = %v", series[len(series)-1], EMA(closes, 3))
		}
		if series[0] != 0 || series[1] != 0 {
			t.Error("EMASeries must be zero before the seed index")
		}
	})

	t.Run("constant input converges to the constant", func(t *testing.T) {
		flat := []float64{2, 2, 2, 2, 2, 2}
		if got := EMA(flat, 3); got != 2 {
			t.Errorf("EMA = %v, want 2", got)
		}
	})
}

func TestRSI(t *testing.T) {
	t.Run("neutral when data is short", func(t *testing.T) {
		if got := RSI([]float64{1, 2}, 5); got != 50 {
			t.Errorf("RSI = %v, want neutral 50", got)
		}
	})

	t.Run("pure gains read 100", func(t *testing.T) {
		if got := RSI([]float64{1, 2, 3, 4, 5}, 3); got != 100 {
			t.Errorf("RSI = %v, want 100", got)
		}
	})

	t.Run("balanced gains and losses read 50", func(t *testing.T) {
		closes := []float64{1.0, 1.1, 1.0, 1.1, 1.0}
		if got := RSI(closes, 4); math.Abs(got-50) > 1e-9 {
			t.Errorf("RSI = %v, want 50", got)
		}
	})
}

func TestATR(t *testing.T) {
	bars := []market.Bar{
		{High: 1.1010, Low: 1.0990, Close: 1.1000},
		{High: 1.1020, Low: 1.1000, Close: 1.1010},
		{High: 1.1030, Low: 1.1010, Close: 1.1020},
	}

	t.Run("contiguous bars use the bar range", func(t *testing.T) {
		if got := ATR(bars, 2); math.Abs(got-0.0020) > 1e-9 {
			t.Errorf("ATR = %v, want 0.0020", got)
		}
	})

	t.Run("gaps widen the true range", func(t *testing.T) {
		gapped := []market.Bar{
			{High: 1.1010, Low: 1.0990, Close: 1.1000},
			{High: 1.1060, Low: 1.1045, Close: 1.1050}, // gap above prior close
		}
		// TR = max(0.0015, |1.1060-1.1000|, |1.1045-1.1000|) = 0.0060
		if got := ATR(gapped, 1); math.Abs(got-0.0060) > 1e-9 {
			t.Errorf("ATR = %v, want 0.0060", got)
		}
	})

	t.Run("insufficient data reads zero", func(t *testing.T) {
		if got := ATR(bars, 3); got != 0 {
			t.Errorf("ATR = %v, want 0", got)
		}
	})
}

func TestMACD(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 1.1000 + float64(i)*0.0010
	}

	r := MACD(closes, 5, 10, 3)
	if r.MACD <= 0 {
		t.Errorf("MACD = %v, want positive in a steady uptrend", r.MACD)
	}
	if math.Abs(r.Histogram-(r.MACD-r.Signal)) > 1e-12 {
		t.Errorf("Histogram = %v, want MACD-Signal = %v", r.Histogram, r.MACD-r.Signal)
	}

	if r := MACD(closes[:5], 5, 10, 3); r != (MACDResult{}) {
		t.Errorf("short input MACD = %+v, want zero value", r)
	}
}
