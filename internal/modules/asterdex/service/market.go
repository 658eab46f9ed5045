package service

import (
	"context"
	"net/http"
)

// Public market-data endpoints, no signing.

// Ping checks connectivity. GET /fapi/v3/ping.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.request(ctx, http.MethodGet, "/fapi/v3/ping", Params{}, false)
	return err
}

// GetExchangeInfo fetches trading rules and symbol metadata.
func (c *Client) GetExchangeInfo(ctx context.Context) (ExchangeInfo, error) {
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/exchangeInfo", Params{}, false)
	if err != nil {
		return ExchangeInfo{}, err
	}
	return decodeInto[ExchangeInfo](raw)
}

// GetTickerPrice returns the latest price for one symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (TickerPrice, error) {
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/ticker/price", Params{
		"symbol": symbol,
	}, false)
	if err != nil {
		return TickerPrice{}, err
	}
	return decodeInto[TickerPrice](raw)
}
