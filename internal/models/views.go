package models

import "github.com/shopspring/decimal"

// Normalized read-surface shapes, independent of the exchange's field naming.
// Decimal fields marshal as quoted strings, same as the exchange wire format.

type PositionView struct {
	Symbol           string          `json:"symbol"`
	PositionSide     string          `json:"position_side"`
	PositionAmt      decimal.Decimal `json:"position_amt"`
	EntryPrice       decimal.Decimal `json:"entry_price"`
	MarkPrice        decimal.Decimal `json:"mark_price"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	Leverage         int             `json:"leverage"`
	MarginType       string          `json:"margin_type"`
	LiquidationPrice decimal.Decimal `json:"liquidation_price"`
}

type BalanceView struct {
	Asset              string          `json:"asset"`
	Balance            decimal.Decimal `json:"balance"`
	AvailableBalance   decimal.Decimal `json:"available_balance"`
	CrossWalletBalance decimal.Decimal `json:"cross_wallet_balance"`
	CrossUnPnl         decimal.Decimal `json:"cross_un_pnl"`
	UpdateTime         int64           `json:"update_time,omitempty"`
}

type OrderView struct {
	OrderID       int64           `json:"order_id"`
	ClientOrderID string          `json:"client_order_id,omitempty"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	ExecutedQty   decimal.Decimal `json:"executed_qty"`
	AvgPrice      decimal.Decimal `json:"avg_price"`
	TimeInForce   string          `json:"time_in_force,omitempty"`
	PositionSide  string          `json:"position_side,omitempty"`
	ReduceOnly    bool            `json:"reduce_only"`
	ClosePosition bool            `json:"close_position"`
	UpdateTime    int64           `json:"update_time,omitempty"`
}
