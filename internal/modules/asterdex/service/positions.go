package service

import (
	"context"
	"net/http"
)

// PositionRisk fetches current positions. GET /fapi/v3/positionRisk.
// Always hits the exchange: the decision path must never see a cached
// position.
func (c *Client) PositionRisk(ctx context.Context, symbol string) ([]PositionRisk, error) {
	params := Params{}
	if symbol != "" {
		params["symbol"] = symbol
	}
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/positionRisk", params, true)
	if err != nil {
		return nil, err
	}
	return decodeInto[[]PositionRisk](raw)
}

// ChangeLeverage sets leverage for a symbol. POST /fapi/v3/leverage.
func (c *Client) ChangeLeverage(ctx context.Context, symbol string, leverage int) (LeverageResult, error) {
	raw, err := c.request(ctx, http.MethodPost, "/fapi/v3/leverage", Params{
		"symbol":   symbol,
		"leverage": leverage,
	}, true)
	if err != nil {
		return LeverageResult{}, err
	}
	return decodeInto[LeverageResult](raw)
}

// ChangeMarginType switches ISOLATED/CROSSED. POST /fapi/v3/marginType.
// The exchange rejects this while a position is open; that rejection is
// surfaced as-is.
func (c *Client) ChangeMarginType(ctx context.Context, symbol, marginType string) error {
	_, err := c.request(ctx, http.MethodPost, "/fapi/v3/marginType", Params{
		"symbol":     symbol,
		"marginType": marginType,
	}, true)
	return err
}
