package exchange

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/pkg/types"
)

func mustOrder(t *testing.T, side types.OrderSide, orderType types.OrderType, price, trigger *types.Price) *orders.Order {
	t.Helper()
	qty := types.MustQuantity(decimal.NewFromInt(10), 0)
	inst := types.NewInstrumentID("AAPL", "NASDAQ")
	o, err := orders.New("O-1", inst, "TRADER-1", "STRAT-1", side, orderType, qty, price, trigger, types.TimeInForceGTC, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func p(n int64) types.Price { return types.NewPrice(decimal.NewFromInt(n), 0) }

func bar(o, h, l, c int64) types.Bar {
	return types.Bar{Open: p(o), High: p(h), Low: p(l), Close: p(c), TsEvent: 1}
}

// Limit BUY at limit=L, bar (O=L-1, ...) with L <= limit fills at min(limit, O).
func TestLimitBuyFillsAtMinLimitOpen(t *testing.T) {
	t.Parallel()
	limit := p(100)
	o := mustOrder(t, types.Buy, types.OrderTypeLimit, &limit, nil)
	b := bar(99, 101, 98, 100)

	fillPx, ok := fillPrice(o, b)
	if !ok {
		t.Fatal("expected fill")
	}
	want := p(99) // min(100, 99)
	if !fillPx.Equals(want) {
		t.Errorf("fill price = %s, want %s", fillPx, want)
	}
}

// Stop BUY at trigger T with gap open O > T fills at O, not T.
func TestStopBuyGapFillsAtOpen(t *testing.T) {
	t.Parallel()
	trigger := p(100)
	o := mustOrder(t, types.Buy, types.OrderTypeStopMarket, nil, &trigger)
	b := bar(105, 106, 104, 105)

	fillPx, ok := fillPrice(o, b)
	if !ok {
		t.Fatal("expected fill")
	}
	want := p(105) // max(100, 105)
	if !fillPx.Equals(want) {
		t.Errorf("fill price = %s, want %s", fillPx, want)
	}
}

func TestMarketOrderAlwaysFillsAtOpen(t *testing.T) {
	t.Parallel()
	o := mustOrder(t, types.Sell, types.OrderTypeMarket, nil, nil)
	b := bar(50, 55, 49, 52)

	fillPx, ok := fillPrice(o, b)
	if !ok {
		t.Fatal("expected fill")
	}
	if !fillPx.Equals(p(50)) {
		t.Errorf("fill price = %s, want bar open 50", fillPx)
	}
}

func TestLimitSellDoesNotFillWhenHighBelowLimit(t *testing.T) {
	t.Parallel()
	limit := p(100)
	o := mustOrder(t, types.Sell, types.OrderTypeLimit, &limit, nil)
	b := bar(90, 95, 89, 92)

	if _, ok := fillPrice(o, b); ok {
		t.Error("expected no fill: bar high never reached limit")
	}
}

func TestStopLimitBuyRequiresBothPredicates(t *testing.T) {
	t.Parallel()
	trigger, limit := p(100), p(102)
	o := mustOrder(t, types.Buy, types.OrderTypeStopLimit, &limit, &trigger)

	// High reaches trigger but low exceeds the limit constraint: no fill.
	notFilled := bar(103, 104, 103, 104)
	if _, ok := fillPrice(o, notFilled); ok {
		t.Error("expected no fill: low above limit constraint")
	}

	filled := bar(99, 103, 98, 101)
	fillPx, ok := fillPrice(o, filled)
	if !ok {
		t.Fatal("expected fill")
	}
	want := minPrice(limit, maxPrice(trigger, p(99)))
	if !fillPx.Equals(want) {
		t.Errorf("fill price = %s, want %s", fillPx, want)
	}
}
