package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

type MarginType string

const (
	MarginIsolated MarginType = "ISOLATED"
	MarginCrossed  MarginType = "CROSSED"
)

// PositionSnapshot is the live position as fetched from the exchange right
// before a decision. The signed Amount is the single source of truth for
// direction: positive = long, negative = short, zero = flat.
type PositionSnapshot struct {
	Symbol           string
	Amount           decimal.Decimal // signed
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	UnrealizedProfit decimal.Decimal
	LiquidationPrice decimal.Decimal
	Leverage         int
	MarginType       MarginType
	PositionSide     string // BOTH / LONG / SHORT
	FetchedAt        time.Time
}

func (p PositionSnapshot) IsLong() bool  { return p.Amount.IsPositive() }
func (p PositionSnapshot) IsShort() bool { return p.Amount.IsNegative() }
func (p PositionSnapshot) IsFlat() bool  { return p.Amount.IsZero() }

// Magnitude is the unsigned size of the position.
func (p PositionSnapshot) Magnitude() decimal.Decimal { return p.Amount.Abs() }

// Direction returns the order side that grows this position.
// Only meaningful for non-flat positions.
func (p PositionSnapshot) Direction() Side {
	if p.IsShort() {
		return SideSell
	}
	return SideBuy
}
