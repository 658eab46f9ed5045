package service

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"aster_bot/internal/apperr"
	"aster_bot/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func position(amt string) models.PositionSnapshot {
	return models.PositionSnapshot{Symbol: "BTCUSDT", Amount: dec(amt)}
}

func signal(dir models.Direction, qty string) models.Signal {
	return models.Signal{
		Symbol:    "BTCUSDT",
		Direction: dir,
		Quantity:  dec(qty),
		OrderType: models.OrderTypeMarket,
	}
}

func TestResolveDecisionTable(t *testing.T) {
	tests := []struct {
		name       string
		posAmt     string
		dir        models.Direction
		qty        string
		wantAction models.ResolvedAction
		wantLegs   int
	}{
		{"flat buy opens long", "0", models.DirectionBuy, "1", models.ResolvedOpen, 1},
		{"flat sell opens short", "0", models.DirectionSell, "1", models.ResolvedOpen, 1},
		{"long buy increases", "2", models.DirectionBuy, "1", models.ResolvedIncrease, 1},
		{"short sell increases", "-2", models.DirectionSell, "1", models.ResolvedIncrease, 1},
		{"long sell below size decreases", "2", models.DirectionSell, "1", models.ResolvedDecrease, 1},
		{"long sell exact size closes", "2", models.DirectionSell, "2", models.ResolvedClose, 1},
		{"long sell above size flips", "2", models.DirectionSell, "3", models.ResolvedFlip, 2},
		{"short buy below size decreases", "-2", models.DirectionBuy, "1", models.ResolvedDecrease, 1},
		{"short buy exact size closes", "-2", models.DirectionBuy, "2", models.ResolvedClose, 1},
		{"short buy above size flips", "-2", models.DirectionBuy, "5", models.ResolvedFlip, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Resolve(position(tt.posAmt), signal(tt.dir, tt.qty))
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if plan.Action != tt.wantAction {
				t.Fatalf("action = %s, want %s", plan.Action, tt.wantAction)
			}
			if len(plan.Legs) != tt.wantLegs {
				t.Fatalf("legs = %d, want %d", len(plan.Legs), tt.wantLegs)
			}
		})
	}
}

func TestResolveOpenSides(t *testing.T) {
	plan, err := Resolve(position("0"), signal(models.DirectionBuy, "1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if plan.Legs[0].Side != models.SideBuy {
		t.Fatalf("flat buy side = %s, want BUY", plan.Legs[0].Side)
	}

	plan, err = Resolve(position("0"), signal(models.DirectionSell, "1"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if plan.Legs[0].Side != models.SideSell {
		t.Fatalf("flat sell side = %s, want SELL", plan.Legs[0].Side)
	}
}

func TestResolveDecreaseIsReduceOnly(t *testing.T) {
	plan, err := Resolve(position("2"), signal(models.DirectionSell, "0.5"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	leg := plan.Legs[0]
	if !leg.ReduceOnly {
		t.Fatal("decrease leg must be reduce-only")
	}
	if leg.ClosePosition {
		t.Fatal("decrease leg must not use the close-position flag")
	}
	if !leg.Quantity.Equal(dec("0.5")) {
		t.Fatalf("quantity = %s, want 0.5", leg.Quantity)
	}
}

func TestResolveCloseUsesClosePositionFlag(t *testing.T) {
	plan, err := Resolve(position("-1.5"), signal(models.DirectionBuy, "1.5"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	leg := plan.Legs[0]
	if !leg.ClosePosition {
		t.Fatal("exact close must set the close-position flag")
	}
	if !leg.Quantity.IsZero() {
		t.Fatalf("close leg carries quantity %s, want none", leg.Quantity)
	}
	if leg.Side != models.SideBuy {
		t.Fatalf("close side = %s, want BUY against a short", leg.Side)
	}
	if leg.OrderType != models.OrderTypeMarket {
		t.Fatalf("close must be a market order, got %s", leg.OrderType)
	}
}

func TestResolveFlipLegOrderAndRemainder(t *testing.T) {
	plan, err := Resolve(position("2"), signal(models.DirectionSell, "5"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan.Legs) != 2 {
		t.Fatalf("flip legs = %d, want 2", len(plan.Legs))
	}

	closeL, openL := plan.Legs[0], plan.Legs[1]
	if closeL.Action != models.ResolvedClose || !closeL.ClosePosition {
		t.Fatalf("first flip leg must close the position, got %+v", closeL)
	}
	if openL.Action != models.ResolvedOpen {
		t.Fatalf("second flip leg must open, got %+v", openL)
	}
	if openL.Side != models.SideSell || closeL.Side != models.SideSell {
		t.Fatal("both flip legs sell when flipping long to short")
	}
	if !openL.Quantity.Equal(dec("3")) {
		t.Fatalf("re-open quantity = %s, want 3 (signal 5 minus position 2)", openL.Quantity)
	}
}

func TestResolveLimitPricePropagates(t *testing.T) {
	sig := signal(models.DirectionBuy, "1")
	sig.OrderType = models.OrderTypeLimit
	sig.Price = dec("42000")

	plan, err := Resolve(position("0"), sig)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	leg := plan.Legs[0]
	if leg.OrderType != models.OrderTypeLimit || !leg.Price.Equal(dec("42000")) {
		t.Fatalf("limit order type/price not propagated: %+v", leg)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	pos := position("-3")
	sig := signal(models.DirectionBuy, "7")

	first, err := Resolve(pos, sig)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := Resolve(pos, sig)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs produced different plans:\n%+v\n%+v", first, second)
	}
}

func TestResolveValidation(t *testing.T) {
	tests := []struct {
		name string
		sig  models.Signal
	}{
		{"zero quantity", models.Signal{Symbol: "BTCUSDT", Direction: models.DirectionBuy, OrderType: models.OrderTypeMarket}},
		{"negative quantity", models.Signal{Symbol: "BTCUSDT", Direction: models.DirectionBuy, Quantity: dec("-1"), OrderType: models.OrderTypeMarket}},
		{"missing symbol", models.Signal{Direction: models.DirectionBuy, Quantity: dec("1"), OrderType: models.OrderTypeMarket}},
		{"bad direction", models.Signal{Symbol: "BTCUSDT", Direction: "hold", Quantity: dec("1"), OrderType: models.OrderTypeMarket}},
		{"limit without price", models.Signal{Symbol: "BTCUSDT", Direction: models.DirectionBuy, Quantity: dec("1"), OrderType: models.OrderTypeLimit}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(position("0"), tt.sig)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("kind = %v, want validation", apperr.KindOf(err))
			}
		})
	}
}
