package broker

import (
	"context"
	"errors"
	"testing"

	"forex-entry-bot/internal/market"
)

type stubSource struct {
	bars    []market.Bar
	price   float64
	err     error
	fetches int
}

func (s *stubSource) GetCandles(_ context.Context, _, _ string, _ int) ([]market.Bar, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func (s *stubSource) GetCurrentPrice(_ context.Context, _ string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.price, nil
}

func TestSnapshotProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("reverses broker order to most recent first", func(t *testing.T) {
		source := &stubSource{
			bars: []market.Bar{
				{OpenTime: 1, Close: 1.10},
				{OpenTime: 2, Close: 1.11},
				{OpenTime: 3, Close: 1.12},
			},
			price: 1.1250,
		}
		p := NewSnapshotProvider(source, nil)

		series, price, err := p.Snapshot(ctx, "EURUSD", "1h", 3)
		if err != nil {
			t.Fatalf("Snapshot returned %v", err)
		}
		if price != 1.1250 {
			t.Errorf("price = %v, want 1.1250", price)
		}
		latest, ok := series.Bar(0)
		if !ok || latest.OpenTime != 3 {
			t.Errorf("Bar(0) = %+v %v, want the newest bar", latest, ok)
		}
	})

	t.Run("empty history is an error", func(t *testing.T) {
		p := NewSnapshotProvider(&stubSource{price: 1.1}, nil)
		if _, _, err := p.Snapshot(ctx, "EURUSD", "1h", 3); err == nil {
			t.Error("Snapshot accepted an empty history")
		}
	})

	t.Run("source failures propagate", func(t *testing.T) {
		p := NewSnapshotProvider(&stubSource{err: errors.New("down")}, nil)
		if _, _, err := p.Snapshot(ctx, "EURUSD", "1h", 3); err == nil {
			t.Error("Snapshot swallowed the source error")
		}
	})

	t.Run("streamed tick price is preferred over the rest read", func(t *testing.T) {
		source := &stubSource{
			bars:  []market.Bar{{OpenTime: 1, Close: 1.10}},
			price: 1.1250,
		}
		p := NewSnapshotProvider(source, nil).WithTicks(stubTicks(1.1300))

		_, price, err := p.Snapshot(ctx, "EURUSD", "1h", 1)
		if err != nil {
			t.Fatalf("Snapshot returned %v", err)
		}
		if price != 1.1300 {
			t.Errorf("price = %v, want the streamed 1.1300", price)
		}
	})

	t.Run("quiet stream falls back to the rest price", func(t *testing.T) {
		source := &stubSource{
			bars:  []market.Bar{{OpenTime: 1, Close: 1.10}},
			price: 1.1250,
		}
		p := NewSnapshotProvider(source, nil).WithTicks(stubTicks(0))

		_, price, err := p.Snapshot(ctx, "EURUSD", "1h", 1)
		if err != nil {
			t.Fatalf("Snapshot returned %v", err)
		}
		if price != 1.1250 {
			t.Errorf("price = %v, want the rest-read 1.1250", price)
		}
	})
}

type stubTicks float64

func (s stubTicks) LastPrice() float64 { return float64(s) }
