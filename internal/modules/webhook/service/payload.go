package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"aster_bot/internal/apperr"
	"aster_bot/internal/models"
)

// actionPayload is the explicit-action webhook body. Side is only meaningful
// for open; quantity is ignored for close.
type actionPayload struct {
	Action        string          `json:"action"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	OrderType     string          `json:"order_type"`
	WebhookSecret string          `json:"webhook_secret"`
}

func (p actionPayload) action() (models.Action, error) {
	a := models.Action(strings.ToLower(p.Action))
	switch a {
	case models.ActionOpen, models.ActionIncrease, models.ActionDecrease, models.ActionClose:
		return a, nil
	}
	return "", apperr.New(apperr.KindValidation,
		"action must be one of open, increase, decrease, close, got %q", p.Action)
}

func (p actionPayload) orderType() models.OrderType {
	if strings.EqualFold(p.OrderType, string(models.OrderTypeLimit)) {
		return models.OrderTypeLimit
	}
	return models.OrderTypeMarket
}

// strategyPayload is the directional strategy-alert body as the charting
// platform emits it. Contracts is the trade quantity; position_size is the
// strategy's own idea of the resulting position and is informational only,
// the live exchange position decides what actually happens.
type strategyPayload struct {
	OrderAction   string          `json:"order_action"`
	Symbol        string          `json:"symbol"`
	Contracts     decimal.Decimal `json:"contracts"`
	PositionSize  decimal.Decimal `json:"position_size"`
	Price         decimal.Decimal `json:"price"`
	OrderType     string          `json:"order_type"`
	WebhookSecret string          `json:"webhook_secret"`
}

// signal converts the strategy body into the typed signal the resolver
// consumes. Shape errors surface here, before any exchange call.
func (p strategyPayload) signal() (models.Signal, error) {
	dir := models.Direction(strings.ToLower(p.OrderAction))
	if dir != models.DirectionBuy && dir != models.DirectionSell {
		return models.Signal{}, apperr.New(apperr.KindValidation,
			"order_action must be buy or sell, got %q", p.OrderAction)
	}
	if p.Symbol == "" {
		return models.Signal{}, apperr.New(apperr.KindValidation, "symbol is required")
	}
	if !p.Contracts.IsPositive() {
		return models.Signal{}, apperr.New(apperr.KindValidation,
			"contracts must be positive, got %s", p.Contracts)
	}

	orderType := models.OrderTypeMarket
	if strings.EqualFold(p.OrderType, string(models.OrderTypeLimit)) {
		orderType = models.OrderTypeLimit
	}

	return models.Signal{
		Symbol:    strings.ToUpper(p.Symbol),
		Direction: dir,
		Quantity:  p.Contracts,
		OrderType: orderType,
		Price:     p.Price,
	}, nil
}

type leveragePayload struct {
	Leverage int `json:"leverage"`
}

type marginTypePayload struct {
	MarginType string `json:"margin_type"`
}
