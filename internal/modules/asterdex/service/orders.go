package service

import (
	"context"
	"net/http"
)

// CreateOrder submits a new order. POST /fapi/v3/order.
// Params carry symbol, side, type, quantity/closePosition, reduceOnly,
// price+timeInForce for limit orders, positionSide, newClientOrderId.
func (c *Client) CreateOrder(ctx context.Context, params Params) (Order, error) {
	raw, err := c.request(ctx, http.MethodPost, "/fapi/v3/order", params, true)
	if err != nil {
		return Order{}, err
	}
	return decodeInto[Order](raw)
}

// CancelOrder cancels an active order. DELETE /fapi/v3/order.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (Order, error) {
	raw, err := c.request(ctx, http.MethodDelete, "/fapi/v3/order", Params{
		"symbol":  symbol,
		"orderId": orderID,
	}, true)
	if err != nil {
		return Order{}, err
	}
	return decodeInto[Order](raw)
}

// GetOrder queries one order's status. GET /fapi/v3/order.
func (c *Client) GetOrder(ctx context.Context, symbol string, orderID int64) (Order, error) {
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/order", Params{
		"symbol":  symbol,
		"orderId": orderID,
	}, true)
	if err != nil {
		return Order{}, err
	}
	return decodeInto[Order](raw)
}

// OpenOrders lists all open orders, optionally filtered by symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	params := Params{}
	if symbol != "" {
		params["symbol"] = symbol
	}
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/openOrders", params, true)
	if err != nil {
		return nil, err
	}
	return decodeInto[[]Order](raw)
}

// AllOrders lists orders in any state for a symbol. Zero start/end are
// omitted; limit defaults to 50 when non-positive.
func (c *Client) AllOrders(ctx context.Context, symbol string, startTime, endTime int64, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}
	params := Params{
		"symbol": symbol,
		"limit":  limit,
	}
	if startTime > 0 {
		params["startTime"] = startTime
	}
	if endTime > 0 {
		params["endTime"] = endTime
	}
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/allOrders", params, true)
	if err != nil {
		return nil, err
	}
	return decodeInto[[]Order](raw)
}
