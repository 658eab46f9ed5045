package service

import (
	"context"
	"net/http"
)

// AccountBalance fetches per-asset balances. GET /fapi/v3/balance.
func (c *Client) AccountBalance(ctx context.Context) ([]Balance, error) {
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/balance", Params{}, true)
	if err != nil {
		return nil, err
	}
	return decodeInto[[]Balance](raw)
}

// AccountInfo fetches the full account state. GET /fapi/v3/account.
func (c *Client) AccountInfo(ctx context.Context) (Account, error) {
	raw, err := c.request(ctx, http.MethodGet, "/fapi/v3/account", Params{}, true)
	if err != nil {
		return Account{}, err
	}
	return decodeInto[Account](raw)
}
