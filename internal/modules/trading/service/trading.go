package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"aster_bot/internal/apperr"
	"aster_bot/internal/models"
	asterdex "aster_bot/internal/modules/asterdex/service"
	"aster_bot/internal/modules/metrics"
	"aster_bot/pkg/logger"
	"aster_bot/pkg/tracing"
)

// Notifier pushes human-readable execution notices. Implementations must be
// safe to call on a nil receiver.
type Notifier interface {
	Sendf(format string, args ...any)
}

// Recorder journals executed decisions. Must never fail the decision path.
type Recorder interface {
	Record(ctx context.Context, rec Execution)
}

// Execution is one journaled decision outcome.
type Execution struct {
	Source   string // webhook endpoint or api
	Symbol   string
	Action   models.ResolvedAction
	Side     models.Side
	Quantity decimal.Decimal
	OrderIDs []int64
	Outcome  string // FILLED_FULL / FILLED_PARTIAL / REJECTED
	ErrKind  string
	Detail   string
}

const (
	outcomeFull     = "FILLED_FULL"
	outcomePartial  = "FILLED_PARTIAL"
	outcomeRejected = "REJECTED"
)

// Result is what a trading call hands back to the transport layer.
// Orders holds the acknowledged legs in submission order. Partial is set when
// the close leg of a flip went through but the re-open leg was rejected: the
// account is flat, not reversed, and OpenLegError says why.
type Result struct {
	Action       models.ResolvedAction
	Orders       []models.OrderView
	Position     *models.PositionView
	Partial      bool
	OpenLegError error
}

// Trading executes signals and explicit position actions against the
// exchange. Every execution re-fetches the live position first: the resolver
// decides off exchange state, never off a local mirror.
type Trading struct {
	client    *asterdex.Client
	positions *Positions
	notifier  Notifier
	recorder  Recorder
}

func NewTrading(client *asterdex.Client, positions *Positions, notifier Notifier, recorder Recorder) *Trading {
	return &Trading{client: client, positions: positions, notifier: notifier, recorder: recorder}
}

// ExecuteSignal resolves a directional signal against the live position and
// submits the resulting legs strictly in order.
func (t *Trading) ExecuteSignal(ctx context.Context, source string, sig models.Signal) (*Result, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "trading.ExecuteSignal")
	defer span.Finish()

	sig.Symbol = strings.ToUpper(sig.Symbol)
	if sig.OrderType == "" {
		sig.OrderType = models.OrderTypeMarket
	}

	pos, err := t.positions.snapshot(ctx, sig.Symbol)
	if err != nil {
		t.record(ctx, source, sig.Symbol, "", "", sig.Quantity, nil, outcomeRejected, err)
		return nil, err
	}

	plan, err := Resolve(pos, sig)
	if err != nil {
		t.record(ctx, source, sig.Symbol, "", "", sig.Quantity, nil, outcomeRejected, err)
		return nil, err
	}

	logger.Info("signal resolved: %s %s %s -> %s (position %s)",
		sig.Symbol, sig.Direction, sig.Quantity, plan.Action, pos.Amount)

	res := &Result{Action: plan.Action}
	var orderIDs []int64
	for i, leg := range plan.Legs {
		order, err := t.submit(ctx, sig.Symbol, leg)
		if err != nil {
			if plan.Action == models.ResolvedFlip && i == 1 {
				// close leg landed, re-open did not: surface partial success
				res.Partial = true
				res.OpenLegError = err
				t.notify("FLIP %s: closed previous position, re-open failed: %v", sig.Symbol, err)
				t.record(ctx, source, sig.Symbol, plan.Action, leg.Side, sig.Quantity, orderIDs, outcomePartial, err)
				res.Position = t.refresh(ctx, sig.Symbol)
				return res, nil
			}
			t.record(ctx, source, sig.Symbol, plan.Action, leg.Side, sig.Quantity, orderIDs, outcomeRejected, err)
			return nil, err
		}
		orderIDs = append(orderIDs, order.OrderID)
		res.Orders = append(res.Orders, order)
	}

	side := plan.Legs[len(plan.Legs)-1].Side
	t.notify("%s %s %s %s", plan.Action, side, sig.Quantity, sig.Symbol)
	t.record(ctx, source, sig.Symbol, plan.Action, side, sig.Quantity, orderIDs, outcomeFull, nil)
	res.Position = t.refresh(ctx, sig.Symbol)
	return res, nil
}

// OpenParams is an explicit open/increase instruction from the action-style
// webhook payload.
type OpenParams struct {
	Symbol    string
	Side      models.Side
	Quantity  decimal.Decimal
	OrderType models.OrderType
	Price     decimal.Decimal
}

// Open submits a plain opening order on the given side. No position lookup:
// an explicit open stacks onto whatever is already there.
func (t *Trading) Open(ctx context.Context, source string, p OpenParams) (*Result, error) {
	p.Symbol = strings.ToUpper(p.Symbol)
	if p.OrderType == "" {
		p.OrderType = models.OrderTypeMarket
	}
	if err := validateOpen(p); err != nil {
		return nil, err
	}
	return t.single(ctx, source, p.Symbol, models.OrderIntent{
		Action:    models.ResolvedOpen,
		Side:      p.Side,
		Quantity:  p.Quantity,
		OrderType: p.OrderType,
		Price:     p.Price,
	})
}

// Increase adds to an existing position in its current direction.
func (t *Trading) Increase(ctx context.Context, source, symbol string, quantity decimal.Decimal) (*Result, error) {
	symbol = strings.ToUpper(symbol)
	if !quantity.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "quantity must be positive, got %s", quantity)
	}
	pos, err := t.mustPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return t.single(ctx, source, symbol, models.OrderIntent{
		Action:    models.ResolvedIncrease,
		Side:      pos.Direction(),
		Quantity:  quantity,
		OrderType: models.OrderTypeMarket,
	})
}

// Decrease shrinks an existing position by quantity. A quantity larger than
// the open size is rejected before any order reaches the exchange.
func (t *Trading) Decrease(ctx context.Context, source, symbol string, quantity decimal.Decimal) (*Result, error) {
	symbol = strings.ToUpper(symbol)
	if !quantity.IsPositive() {
		return nil, apperr.New(apperr.KindValidation, "quantity must be positive, got %s", quantity)
	}
	pos, err := t.mustPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if quantity.GreaterThan(pos.Magnitude()) {
		return nil, apperr.New(apperr.KindValidation,
			"decrease quantity %s exceeds position size %s", quantity, pos.Magnitude())
	}
	return t.single(ctx, source, symbol, models.OrderIntent{
		Action:     models.ResolvedDecrease,
		Side:       pos.Direction().Opposite(),
		Quantity:   quantity,
		ReduceOnly: true,
		OrderType:  models.OrderTypeMarket,
	})
}

// Close flattens the position entirely using the close-entire-position flag.
func (t *Trading) Close(ctx context.Context, source, symbol string) (*Result, error) {
	symbol = strings.ToUpper(symbol)
	pos, err := t.mustPosition(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return t.single(ctx, source, symbol, closeLeg(pos.Direction().Opposite()))
}

func (t *Trading) single(ctx context.Context, source, symbol string, leg models.OrderIntent) (*Result, error) {
	order, err := t.submit(ctx, symbol, leg)
	if err != nil {
		t.record(ctx, source, symbol, leg.Action, leg.Side, leg.Quantity, nil, outcomeRejected, err)
		return nil, err
	}
	t.notify("%s %s %s %s", leg.Action, leg.Side, leg.Quantity, symbol)
	t.record(ctx, source, symbol, leg.Action, leg.Side, leg.Quantity, []int64{order.OrderID}, outcomeFull, nil)
	return &Result{
		Action:   leg.Action,
		Orders:   []models.OrderView{order},
		Position: t.refresh(ctx, symbol),
	}, nil
}

func (t *Trading) submit(ctx context.Context, symbol string, leg models.OrderIntent) (models.OrderView, error) {
	params := asterdex.Params{
		"symbol":           symbol,
		"side":             string(leg.Side),
		"type":             string(leg.OrderType),
		"newClientOrderId": "tvb-" + uuid.NewString(),
	}
	if leg.ClosePosition {
		params["closePosition"] = true
	} else {
		params["quantity"] = leg.Quantity.String()
		if leg.ReduceOnly {
			params["reduceOnly"] = true
		}
	}
	if leg.OrderType == models.OrderTypeLimit {
		params["price"] = leg.Price.String()
		params["timeInForce"] = "GTC"
	}

	order, err := t.client.CreateOrder(ctx, params)
	if err != nil {
		return models.OrderView{}, err
	}
	metrics.Orders.WithLabelValues(string(leg.Action), string(leg.Side)).Inc()
	logger.Info("order placed: %s id=%d %s %s status=%s", symbol, order.OrderID, leg.Side, leg.OrderType, order.Status)
	return order.View(), nil
}

func (t *Trading) mustPosition(ctx context.Context, symbol string) (models.PositionSnapshot, error) {
	pos, err := t.positions.snapshot(ctx, symbol)
	if err != nil {
		return models.PositionSnapshot{}, err
	}
	if pos.IsFlat() {
		return models.PositionSnapshot{}, apperr.New(apperr.KindNotFound, "no open position for %s", symbol)
	}
	return pos, nil
}

// refresh re-reads the position after execution for the caller's response.
// Best effort: the orders already went through, a read failure is not fatal.
func (t *Trading) refresh(ctx context.Context, symbol string) *models.PositionView {
	view, err := t.positions.Get(ctx, symbol)
	if err != nil {
		if !apperr.IsKind(err, apperr.KindNotFound) {
			logger.Error("position refresh failed for %s: %v", symbol, err)
		}
		return nil
	}
	return view
}

func (t *Trading) notify(format string, args ...any) {
	if t.notifier != nil {
		t.notifier.Sendf(format, args...)
	}
}

func (t *Trading) record(ctx context.Context, source, symbol string, action models.ResolvedAction, side models.Side, qty decimal.Decimal, orderIDs []int64, outcome string, execErr error) {
	if t.recorder == nil {
		return
	}
	rec := Execution{
		Source:   source,
		Symbol:   symbol,
		Action:   action,
		Side:     side,
		Quantity: qty,
		OrderIDs: orderIDs,
		Outcome:  outcome,
	}
	if execErr != nil {
		rec.ErrKind = string(apperr.KindOf(execErr))
		rec.Detail = execErr.Error()
	}
	t.recorder.Record(ctx, rec)
}

func validateOpen(p OpenParams) error {
	if p.Symbol == "" {
		return apperr.New(apperr.KindValidation, "symbol is required")
	}
	if p.Side != models.SideBuy && p.Side != models.SideSell {
		return apperr.New(apperr.KindValidation, "side must be BUY or SELL, got %q", p.Side)
	}
	if !p.Quantity.IsPositive() {
		return apperr.New(apperr.KindValidation, "quantity must be positive, got %s", p.Quantity)
	}
	if p.OrderType != models.OrderTypeMarket && p.OrderType != models.OrderTypeLimit {
		return apperr.New(apperr.KindValidation, "order type must be MARKET or LIMIT, got %q", p.OrderType)
	}
	if p.OrderType == models.OrderTypeLimit && !p.Price.IsPositive() {
		return apperr.New(apperr.KindValidation, "price is required for LIMIT orders")
	}
	return nil
}
