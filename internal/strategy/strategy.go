package strategy

import (
	"time"

	"forex-entry-bot/internal/market"
)

// Strategy defines the interface for trading strategies.
type Strategy interface {
	// Name returns the strategy name.
	Name() string

	// Evaluate runs one cycle over a read-only snapshot and reports
	// whether conditions are met for order placement.
	Evaluate(snapshot *market.Series, currentPrice float64) (*Signal, error)

	// Symbol returns the symbol this strategy trades.
	Symbol() string

	// Interval returns the bar interval the strategy evaluates on.
	Interval() string
}

// Signal represents a trading signal.
type Signal struct {
	Type       SignalType
	Symbol     string
	Side       market.Side
	EntryPrice float64
	StopLoss   float64
	Score      int
	Strength   int
	Factors    string
	Reason     string
	Timestamp  time.Time
}

type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalNone SignalType = "NONE"
)
