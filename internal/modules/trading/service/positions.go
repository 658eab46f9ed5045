package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"aster_bot/internal/apperr"
	"aster_bot/internal/models"
	asterdex "aster_bot/internal/modules/asterdex/service"
)

// PriceSource serves the last streamed mark price for a symbol.
// Safe to call on a nil receiver.
type PriceSource interface {
	MarkPrice(symbol string) (decimal.Decimal, bool)
}

// Positions reads and configures positions. Read methods overlay the
// streamed mark price when one is available, it is fresher than the REST
// snapshot.
type Positions struct {
	client *asterdex.Client
	prices PriceSource
}

func NewPositions(client *asterdex.Client, prices PriceSource) *Positions {
	return &Positions{client: client, prices: prices}
}

// List returns every non-zero position on the account.
func (p *Positions) List(ctx context.Context) ([]models.PositionView, error) {
	risks, err := p.client.PositionRisk(ctx, "")
	if err != nil {
		return nil, err
	}
	views := make([]models.PositionView, 0, len(risks))
	for _, r := range risks {
		snap, err := r.Snapshot()
		if err != nil || snap.IsFlat() {
			continue
		}
		views = append(views, p.view(snap))
	}
	return views, nil
}

// Get returns the position for symbol, or NOT_FOUND when flat.
func (p *Positions) Get(ctx context.Context, symbol string) (*models.PositionView, error) {
	snap, err := p.snapshot(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if snap.IsFlat() {
		return nil, apperr.New(apperr.KindNotFound, "no open position for %s", symbol)
	}
	view := p.view(snap)
	return &view, nil
}

// UpdateLeverage sets the leverage for symbol, 1..125.
func (p *Positions) UpdateLeverage(ctx context.Context, symbol string, leverage int) (asterdex.LeverageResult, error) {
	symbol = strings.ToUpper(symbol)
	if leverage < 1 || leverage > 125 {
		return asterdex.LeverageResult{}, apperr.New(apperr.KindValidation,
			"leverage must be between 1 and 125, got %d", leverage)
	}
	return p.client.ChangeLeverage(ctx, symbol, leverage)
}

// UpdateMarginType switches the margin mode for symbol.
func (p *Positions) UpdateMarginType(ctx context.Context, symbol, marginType string) error {
	symbol = strings.ToUpper(symbol)
	mt := models.MarginType(strings.ToUpper(marginType))
	if mt != models.MarginIsolated && mt != models.MarginCrossed {
		return apperr.New(apperr.KindValidation,
			"margin type must be ISOLATED or CROSSED, got %q", marginType)
	}
	return p.client.ChangeMarginType(ctx, symbol, string(mt))
}

// snapshot fetches the live position for symbol. A flat snapshot with the
// symbol filled in is returned when the exchange reports nothing open.
func (p *Positions) snapshot(ctx context.Context, symbol string) (models.PositionSnapshot, error) {
	symbol = strings.ToUpper(symbol)
	risks, err := p.client.PositionRisk(ctx, symbol)
	if err != nil {
		return models.PositionSnapshot{}, err
	}
	for _, r := range risks {
		if !strings.EqualFold(r.Symbol, symbol) {
			continue
		}
		snap, err := r.Snapshot()
		if err != nil {
			return models.PositionSnapshot{}, err
		}
		if !snap.IsFlat() {
			return snap, nil
		}
	}
	return models.PositionSnapshot{Symbol: symbol, FetchedAt: time.Now()}, nil
}

func (p *Positions) view(snap models.PositionSnapshot) models.PositionView {
	mark := snap.MarkPrice
	if p.prices != nil {
		if live, ok := p.prices.MarkPrice(snap.Symbol); ok {
			mark = live
		}
	}
	return models.PositionView{
		Symbol:           snap.Symbol,
		PositionSide:     snap.PositionSide,
		PositionAmt:      snap.Amount,
		EntryPrice:       snap.EntryPrice,
		MarkPrice:        mark,
		UnrealizedProfit: snap.UnrealizedProfit,
		Leverage:         snap.Leverage,
		MarginType:       string(snap.MarginType),
		LiquidationPrice: snap.LiquidationPrice,
	}
}
