package models

import "github.com/shopspring/decimal"

// Action is an explicit instruction from the alerting platform.
type Action string

const (
	ActionOpen     Action = "open"
	ActionIncrease Action = "increase"
	ActionDecrease Action = "decrease"
	ActionClose    Action = "close"
)

// Direction is the raw buy/sell token of a directional (strategy-style)
// signal. Distinct from Side: it is the source's hint, not the exchange-facing
// order side.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// Signal is the normalized inbound instruction, built once per webhook call
// by the intake layer and immutable afterwards.
type Signal struct {
	Symbol    string
	Direction Direction
	Quantity  decimal.Decimal // unsigned magnitude
	OrderType OrderType
	Price     decimal.Decimal // required iff OrderType == LIMIT
}
