package models

import "github.com/shopspring/decimal"

// ResolvedAction is the concrete exchange action the resolver picked.
type ResolvedAction string

const (
	ResolvedOpen     ResolvedAction = "OPEN"
	ResolvedIncrease ResolvedAction = "INCREASE"
	ResolvedDecrease ResolvedAction = "DECREASE"
	ResolvedClose    ResolvedAction = "CLOSE"
	ResolvedFlip     ResolvedAction = "FLIP"
)

// OrderIntent is one order the trading service will submit.
// ClosePosition means the exchange's close-entire-position flag: no quantity
// is sent, avoiding rounding residue on full closes.
type OrderIntent struct {
	Action        ResolvedAction
	Side          Side
	Quantity      decimal.Decimal // unsigned; zero when ClosePosition
	ReduceOnly    bool
	ClosePosition bool
	OrderType     OrderType
	Price         decimal.Decimal
}

// Plan is the resolver's output: the overall action plus 1..2 ordered legs.
// A FLIP always carries exactly two legs, close first, open second, and the
// legs must be executed strictly in order.
type Plan struct {
	Action ResolvedAction
	Legs   []OrderIntent
}
