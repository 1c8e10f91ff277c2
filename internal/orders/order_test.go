package orders

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/pkg/types"
)

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	qty := types.MustQuantity(decimal.NewFromInt(100), 0)
	inst := types.NewInstrumentID("AAPL", "NASDAQ")
	o, err := New("O-1", inst, "TRADER-1", "STRAT-1", types.Buy, types.OrderTypeMarket, qty, nil, nil, types.TimeInForceGTC, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

// S5 — illegal transition: applying OrderAccepted directly on an
// INITIALIZED order must fail and leave the order unchanged.
func TestIllegalTransitionLeavesOrderUnchanged(t *testing.T) {
	t.Parallel()

	o := newTestOrder(t)
	err := o.Apply(types.NewOrderAccepted(o.ClientOrderID, "V-1", "ACC-1", 1))

	var illegal *IllegalTransition
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalTransition, got %v", err)
	}
	if o.Status != types.OrderStatusInitialized {
		t.Errorf("status = %s, want unchanged INITIALIZED", o.Status)
	}
}

func TestFillAppliesWeightedAveragePrice(t *testing.T) {
	t.Parallel()

	o := newTestOrder(t)
	if err := o.Apply(types.NewOrderSubmitted(o.ClientOrderID, "ACC-1", 1)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := o.Apply(types.NewOrderAccepted(o.ClientOrderID, "V-1", "ACC-1", 2)); err != nil {
		t.Fatalf("accept: %v", err)
	}

	qty1 := types.MustQuantity(decimal.NewFromInt(50), 0)
	px1 := types.NewPrice(decimal.NewFromInt(100), 2)
	fill1 := types.NewOrderFilled(o.ClientOrderID, "V-1", "T-1", "", types.Buy, qty1, px1, types.NewMoney(decimal.Zero, types.USD), 3)
	if err := o.Apply(fill1); err != nil {
		t.Fatalf("fill1: %v", err)
	}
	if o.Status != types.OrderStatusPartiallyFilled {
		t.Errorf("status after partial fill = %s", o.Status)
	}

	qty2 := types.MustQuantity(decimal.NewFromInt(50), 0)
	px2 := types.NewPrice(decimal.NewFromInt(110), 2)
	fill2 := types.NewOrderFilled(o.ClientOrderID, "V-1", "T-2", "", types.Buy, qty2, px2, types.NewMoney(decimal.Zero, types.USD), 4)
	if err := o.Apply(fill2); err != nil {
		t.Fatalf("fill2: %v", err)
	}

	if o.Status != types.OrderStatusFilled {
		t.Errorf("status after full fill = %s, want FILLED", o.Status)
	}
	wantAvg := decimal.NewFromInt(105)
	if !o.AvgPx.Decimal().Equal(wantAvg) {
		t.Errorf("avg_px = %s, want %s", o.AvgPx.Decimal(), wantAvg)
	}
	if !o.LeavesQty.IsZero() {
		t.Errorf("leaves_qty = %s, want 0", o.LeavesQty)
	}
}

func TestFilledPlusLeavesEqualsQuantity(t *testing.T) {
	t.Parallel()

	o := newTestOrder(t)
	_ = o.Apply(types.NewOrderSubmitted(o.ClientOrderID, "ACC-1", 1))
	_ = o.Apply(types.NewOrderAccepted(o.ClientOrderID, "V-1", "ACC-1", 2))

	qty := types.MustQuantity(decimal.NewFromInt(30), 0)
	px := types.NewPrice(decimal.NewFromInt(100), 2)
	fill := types.NewOrderFilled(o.ClientOrderID, "V-1", "T-1", "", types.Buy, qty, px, types.NewMoney(decimal.Zero, types.USD), 3)
	if err := o.Apply(fill); err != nil {
		t.Fatalf("fill: %v", err)
	}

	sum := o.FilledQty.Decimal().Add(o.LeavesQty.Decimal())
	if !sum.Equal(o.Quantity.Decimal()) {
		t.Errorf("filled_qty + leaves_qty = %s, want %s", sum, o.Quantity.Decimal())
	}
}
