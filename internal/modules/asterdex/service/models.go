package service

import (
	"strings"
	"time"

	"aster_bot/internal/apperr"
	"aster_bot/internal/models"

	"github.com/shopspring/decimal"
)

// Wire shapes of the AsterDEX futures REST API. Numeric fields arrive as
// strings and are parsed at the translation boundary, not before.

type PositionRisk struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	LiquidationPrice string `json:"liquidationPrice"`
	Leverage         string `json:"leverage"`
	MarginType       string `json:"marginType"`
	PositionSide     string `json:"positionSide"`
	IsolatedMargin   string `json:"isolatedMargin"`
	Notional         string `json:"notional"`
	UpdateTime       int64  `json:"updateTime"`
}

type Order struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	OrigQty       string `json:"origQty"`
	Price         string `json:"price"`
	ExecutedQty   string `json:"executedQty"`
	AvgPrice      string `json:"avgPrice"`
	TimeInForce   string `json:"timeInForce"`
	PositionSide  string `json:"positionSide"`
	ReduceOnly    bool   `json:"reduceOnly"`
	ClosePosition bool   `json:"closePosition"`
	UpdateTime    int64  `json:"updateTime"`
}

type Balance struct {
	Asset              string `json:"asset"`
	Balance            string `json:"balance"`
	CrossWalletBalance string `json:"crossWalletBalance"`
	CrossUnPnl         string `json:"crossUnPnl"`
	AvailableBalance   string `json:"availableBalance"`
	MaxWithdrawAmount  string `json:"maxWithdrawAmount"`
	MarginAvailable    bool   `json:"marginAvailable"`
	UpdateTime         int64  `json:"updateTime"`
}

type Account struct {
	TotalWalletBalance    string         `json:"totalWalletBalance"`
	TotalUnrealizedProfit string         `json:"totalUnrealizedProfit"`
	TotalMarginBalance    string         `json:"totalMarginBalance"`
	AvailableBalance      string         `json:"availableBalance"`
	MaxWithdrawAmount     string         `json:"maxWithdrawAmount"`
	Assets                []Balance      `json:"assets"`
	Positions             []PositionRisk `json:"positions"`
	UpdateTime            int64          `json:"updateTime"`
}

type LeverageResult struct {
	Symbol           string `json:"symbol"`
	Leverage         int    `json:"leverage"`
	MaxNotionalValue string `json:"maxNotionalValue"`
}

type MarginTypeResult struct {
	Code int64  `json:"code"`
	Msg  string `json:"msg"`
}

type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Time   int64  `json:"time"`
}

type ExchangeInfo struct {
	Timezone   string `json:"timezone"`
	ServerTime int64  `json:"serverTime"`
	Symbols    []struct {
		Symbol            string `json:"symbol"`
		Status            string `json:"status"`
		PricePrecision    int    `json:"pricePrecision"`
		QuantityPrecision int    `json:"quantityPrecision"`
	} `json:"symbols"`
}

// Snapshot translates the wire position into the normalized domain value.
func (p PositionRisk) Snapshot() (models.PositionSnapshot, error) {
	amt, err := decimal.NewFromString(p.PositionAmt)
	if err != nil {
		return models.PositionSnapshot{}, apperr.Wrap(err, apperr.KindInternal, "parse positionAmt")
	}

	snap := models.PositionSnapshot{
		Symbol:           p.Symbol,
		Amount:           amt,
		EntryPrice:       parseDecimal(p.EntryPrice),
		MarkPrice:        parseDecimal(p.MarkPrice),
		UnrealizedProfit: parseDecimal(p.UnRealizedProfit),
		LiquidationPrice: parseDecimal(p.LiquidationPrice),
		Leverage:         parseInt(p.Leverage),
		MarginType:       normalizeMarginType(p.MarginType),
		PositionSide:     p.PositionSide,
		FetchedAt:        time.Now(),
	}
	return snap, nil
}

func (o Order) View() models.OrderView {
	return models.OrderView{
		OrderID:       o.OrderID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		Type:          o.Type,
		Status:        o.Status,
		Quantity:      parseDecimal(o.OrigQty),
		Price:         parseDecimal(o.Price),
		ExecutedQty:   parseDecimal(o.ExecutedQty),
		AvgPrice:      parseDecimal(o.AvgPrice),
		TimeInForce:   o.TimeInForce,
		PositionSide:  o.PositionSide,
		ReduceOnly:    o.ReduceOnly,
		ClosePosition: o.ClosePosition,
		UpdateTime:    o.UpdateTime,
	}
}

func (b Balance) View() models.BalanceView {
	return models.BalanceView{
		Asset:              b.Asset,
		Balance:            parseDecimal(b.Balance),
		AvailableBalance:   parseDecimal(b.AvailableBalance),
		CrossWalletBalance: parseDecimal(b.CrossWalletBalance),
		CrossUnPnl:         parseDecimal(b.CrossUnPnl),
		UpdateTime:         b.UpdateTime,
	}
}

// parseDecimal is for informational fields where a malformed value should
// degrade to zero rather than fail the whole read.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt(s string) int {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return int(d.IntPart())
}

func normalizeMarginType(s string) models.MarginType {
	if strings.EqualFold(s, "isolated") {
		return models.MarginIsolated
	}
	return models.MarginCrossed
}
