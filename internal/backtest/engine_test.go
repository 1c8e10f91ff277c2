package backtest

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/instrument"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/internal/strategy"
	"github.com/duskquant/backtrace/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func px(n int64) types.Price { return types.NewPrice(decimal.NewFromInt(n), 2) }

func mkBar(barType types.BarType, o, h, l, c int64, ts int64) types.Bar {
	return types.Bar{BarType: barType, Open: px(o), High: px(h), Low: px(l), Close: px(c), TsEvent: ts}
}

// buyOnceStrategy submits one BUY market order on its first bar, then holds
// — the scenario from spec.md §8 S1.
type buyOnceStrategy struct {
	*strategy.Base
	strategy.NoopHandlers

	instrumentID types.InstrumentID
	quantity     types.Quantity
	submitted    bool
}

func newBuyOnceStrategy(base *strategy.Base, instrumentID types.InstrumentID, quantity types.Quantity) *buyOnceStrategy {
	s := &buyOnceStrategy{Base: base, instrumentID: instrumentID, quantity: quantity}
	s.Register(s)
	return s
}

func (s *buyOnceStrategy) OnBar(bar types.Bar) {
	if s.submitted {
		return
	}
	o, err := s.Orders.Market(s.instrumentID, types.Buy, s.quantity, types.TimeInForceGTC, bar.TsEvent)
	if err != nil {
		return
	}
	if err := s.SubmitOrder(o); err == nil {
		s.submitted = true
	}
}

// TestS1BuyAndHold mirrors spec.md §8 scenario S1: a market order submitted
// on bar 1 must fill at bar 2's open (the next-bar-open determinism
// contract of spec.md §4.2), never bar 1's own open or close.
func TestS1BuyAndHold(t *testing.T) {
	t.Parallel()

	instrumentID := types.NewInstrumentID("XYZ", "SIM")
	e := New(types.USD, testLogger())
	e.AddVenue("SIM", types.OMSNetting, types.AccountTypeCash, decimal.Zero, types.NewMoneyFromFloat(100000, types.USD))
	inst := instrument.NewEquity(instrumentID, types.USD, 2, decimal.Zero) // zero commission, per S1
	e.AddInstrument(inst)

	factory := orders.NewFactory("TRADER-1", "S1")
	base := strategy.NewBase("S1", e.Clock, e.Cache, e.Portfolio, e.Bus, factory, e.Exec, e.Data, testLogger())
	qty := inst.MakeQuantity(100)
	s := newBuyOnceStrategy(base, instrumentID, qty)

	barType := types.BarType{InstrumentID: instrumentID, Spec: types.BarSpecification{Step: 1, Aggregation: types.AggregationDay, PriceType: types.PriceTypeLast}}
	s.SubscribeBars(barType, s.OnBar)
	e.AddStrategy(s)

	bars := []types.Bar{
		mkBar(barType, 100, 101, 99, 100, 1),    // bar 1: strategy submits here; order rests
		mkBar(barType, 101, 103, 100, 102, 2),   // bar 2: order fills at open=101
		mkBar(barType, 101, 103, 101, 102, 3),
	}
	for _, b := range bars {
		e.AddData(types.NewBarData(b))
	}

	result, err := e.Run(nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.TotalFills != 1 {
		t.Fatalf("expected exactly one fill, got %d", result.TotalFills)
	}

	restingOrders := e.Cache.OrdersForInstrument(instrumentID)
	if len(restingOrders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(restingOrders))
	}
	o := restingOrders[0]
	if o.Status != types.OrderStatusFilled {
		t.Fatalf("expected order FILLED, got %s", o.Status)
	}
	// The order rests during bar 1 (submitted from bar 1's own OnBar, after
	// the exchange has already matched bar 1) and must fill at bar 2's open,
	// not bar 1's open/close nor bar 2's close.
	wantFillPx := px(101)
	if !o.AvgPx.Equals(wantFillPx) {
		t.Errorf("avg_px = %s, want bar 2 open %s", o.AvgPx, wantFillPx)
	}

	positions := e.Cache.PositionsForInstrument(instrumentID)
	if len(positions) != 1 {
		t.Fatalf("expected exactly one position, got %d", len(positions))
	}
	if positions[0].Side != types.PositionLong {
		t.Errorf("expected LONG position, got %s", positions[0].Side)
	}
	if !positions[0].AvgPxOpen.Equals(wantFillPx) {
		t.Errorf("avg_px_open = %s, want %s", positions[0].AvgPxOpen, wantFillPx)
	}

	if result.TotalOrders != 1 || result.TotalPositions != 1 {
		t.Errorf("result totals = %+v", result)
	}
}

// TestS6RiskDenial mirrors spec.md §8 scenario S6: an order whose quantity
// precision differs from the instrument's size precision is denied before
// ever reaching the venue.
func TestS6RiskDenial(t *testing.T) {
	t.Parallel()

	instrumentID := types.NewInstrumentID("XYZ", "SIM")
	e := New(types.USD, testLogger())
	e.AddVenue("SIM", types.OMSNetting, types.AccountTypeCash, decimal.Zero, types.NewMoneyFromFloat(100000, types.USD))
	inst := instrument.NewEquity(instrumentID, types.USD, 2, decimal.NewFromFloat(0.001))
	e.AddInstrument(inst)

	factory := orders.NewFactory("TRADER-1", "S6")
	// A quantity at precision 1 when the instrument requires precision 0.
	badQty := types.MustQuantity(decimal.NewFromFloat(10.5), 1)
	o, err := factory.Market(instrumentID, types.Buy, badQty, types.TimeInForceGTC, 1)
	if err != nil {
		t.Fatalf("factory.Market: %v", err)
	}

	if err := e.Exec.SubmitOrder(o, 1); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	if o.Status != types.OrderStatusDenied {
		t.Fatalf("expected order DENIED, got %s", o.Status)
	}
	if len(e.Cache.PositionsForInstrument(instrumentID)) != 0 {
		t.Error("expected no position created on a denied order")
	}
}

// TestRunWithNoStrategiesReturnsZeroedReport covers the UsageError-adjacent
// contract of spec.md §7: a run with no registered strategies is allowed
// and returns a zeroed report, not an error.
func TestRunWithNoStrategiesReturnsZeroedReport(t *testing.T) {
	t.Parallel()

	instrumentID := types.NewInstrumentID("XYZ", "SIM")
	e := New(types.USD, testLogger())
	e.AddVenue("SIM", types.OMSNetting, types.AccountTypeCash, decimal.Zero, types.NewMoneyFromFloat(100000, types.USD))
	e.AddInstrument(instrument.NewEquity(instrumentID, types.USD, 2, decimal.Zero))

	barType := types.BarType{InstrumentID: instrumentID, Spec: types.BarSpecification{Step: 1, Aggregation: types.AggregationDay, PriceType: types.PriceTypeLast}}
	e.AddData(types.NewBarData(mkBar(barType, 100, 101, 99, 100, 1)))

	result, err := e.Run(nil, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.TotalOrders != 0 || result.TotalFills != 0 {
		t.Errorf("expected a zeroed report, got %+v", result)
	}

	if _, err := e.GetResult(); err != nil {
		t.Errorf("GetResult after Run: %v", err)
	}
}

// TestGetResultBeforeRunErrors covers the UsageError contract of spec.md §7.
func TestGetResultBeforeRunErrors(t *testing.T) {
	t.Parallel()
	e := New(types.USD, testLogger())
	if _, err := e.GetResult(); err == nil {
		t.Fatal("expected an error calling GetResult before Run")
	}
}
