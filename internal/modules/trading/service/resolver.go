package service

import (
	"aster_bot/internal/apperr"
	"aster_bot/internal/models"
)

// Resolve turns a directional signal plus the caller's current position into
// an ordered plan of exchange orders. Pure function over its inputs: the same
// (position, signal) pair always yields the same plan.
//
//	flat  + buy            -> OPEN long
//	flat  + sell           -> OPEN short
//	long  + buy            -> INCREASE
//	short + sell           -> INCREASE
//	long  + sell, q <  |p| -> DECREASE (reduce-only)
//	long  + sell, q == |p| -> CLOSE (close-entire-position flag)
//	long  + sell, q >  |p| -> FLIP: CLOSE then OPEN short for q-|p|
//	short + buy            -> mirror of the three rows above
func Resolve(pos models.PositionSnapshot, sig models.Signal) (models.Plan, error) {
	if err := validateSignal(sig); err != nil {
		return models.Plan{}, err
	}

	side := models.SideBuy
	if sig.Direction == models.DirectionSell {
		side = models.SideSell
	}

	// flat: plain open in the signal's direction
	if pos.IsFlat() {
		return models.Plan{
			Action: models.ResolvedOpen,
			Legs:   []models.OrderIntent{openLeg(models.ResolvedOpen, side, sig)},
		}, nil
	}

	// same direction as the position: add to it
	if side == pos.Direction() {
		return models.Plan{
			Action: models.ResolvedIncrease,
			Legs:   []models.OrderIntent{openLeg(models.ResolvedIncrease, side, sig)},
		}, nil
	}

	// opposite direction: reduce, close or flip depending on magnitude
	mag := pos.Magnitude()
	switch sig.Quantity.Cmp(mag) {
	case -1:
		return models.Plan{
			Action: models.ResolvedDecrease,
			Legs: []models.OrderIntent{{
				Action:     models.ResolvedDecrease,
				Side:       side,
				Quantity:   sig.Quantity,
				ReduceOnly: true,
				OrderType:  sig.OrderType,
				Price:      sig.Price,
			}},
		}, nil
	case 0:
		return models.Plan{
			Action: models.ResolvedClose,
			Legs:   []models.OrderIntent{closeLeg(side)},
		}, nil
	default:
		remainder := sig.Quantity.Sub(mag)
		open := models.OrderIntent{
			Action:    models.ResolvedOpen,
			Side:      side,
			Quantity:  remainder,
			OrderType: sig.OrderType,
			Price:     sig.Price,
		}
		return models.Plan{
			Action: models.ResolvedFlip,
			Legs:   []models.OrderIntent{closeLeg(side), open},
		}, nil
	}
}

func validateSignal(sig models.Signal) error {
	if sig.Symbol == "" {
		return apperr.New(apperr.KindValidation, "symbol is required")
	}
	if sig.Direction != models.DirectionBuy && sig.Direction != models.DirectionSell {
		return apperr.New(apperr.KindValidation, "direction must be buy or sell, got %q", sig.Direction)
	}
	if !sig.Quantity.IsPositive() {
		return apperr.New(apperr.KindValidation, "quantity must be positive, got %s", sig.Quantity)
	}
	if sig.OrderType == models.OrderTypeLimit && !sig.Price.IsPositive() {
		return apperr.New(apperr.KindValidation, "price is required for LIMIT orders")
	}
	return nil
}

func openLeg(action models.ResolvedAction, side models.Side, sig models.Signal) models.OrderIntent {
	return models.OrderIntent{
		Action:    action,
		Side:      side,
		Quantity:  sig.Quantity,
		OrderType: sig.OrderType,
		Price:     sig.Price,
	}
}

// closeLeg always goes out as a market close-entire-position order: a
// quantity-matched reduce order can leave rounding residue behind.
func closeLeg(side models.Side) models.OrderIntent {
	return models.OrderIntent{
		Action:        models.ResolvedClose,
		Side:          side,
		ReduceOnly:    true,
		ClosePosition: true,
		OrderType:     models.OrderTypeMarket,
	}
}
