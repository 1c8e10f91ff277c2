package examples

import (
	"log/slog"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/account"
	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/internal/clock"
	"github.com/duskquant/backtrace/internal/data"
	"github.com/duskquant/backtrace/internal/exchange"
	"github.com/duskquant/backtrace/internal/execution"
	"github.com/duskquant/backtrace/internal/instrument"
	"github.com/duskquant/backtrace/internal/msgbus"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/internal/portfolio"
	"github.com/duskquant/backtrace/internal/risk"
	"github.com/duskquant/backtrace/internal/strategy"
	"github.com/duskquant/backtrace/pkg/types"
)

type testRig struct {
	cache *cache.Cache
	port  *portfolio.Portfolio
	bus   *msgbus.Bus
	clk   *clock.TestClock
	exec  *execution.Engine
	data  *data.Engine
	exch  *exchange.Exchange
	inst  instrument.Instrument
}

func newRig(t *testing.T, instrumentID types.InstrumentID) *testRig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	c := cache.New()
	p := portfolio.New(c)
	bus := msgbus.New()
	clk := clock.NewTestClock()
	r := risk.New(c, p, logger)
	execEngine := execution.New(c, r, bus, logger)
	de := data.New(bus, logger)

	inst := instrument.NewEquity(instrumentID, types.USD, 2, decimal.NewFromFloat(0.001))
	c.AddInstrument(inst)

	acc := account.New("ACC-1", types.AccountTypeCash, decimal.Zero, types.NewMoneyFromFloat(100000, types.USD))
	c.AddAccount(acc)

	var x *exchange.Exchange
	x = exchange.New(instrumentID.Venue, types.OMSNetting, acc, c, logger, func(o *orders.Order, e types.Event) {
		_ = execEngine.ProcessEvent(o, e, x.OMSType())
	})
	execEngine.RegisterVenue(instrumentID.Venue, x)

	return &testRig{cache: c, port: p, bus: bus, clk: clk, exec: execEngine, data: de, exch: x, inst: inst}
}

func (r *testRig) feedBar(bar types.Bar) {
	r.exch.ProcessBar(bar)
	r.data.ProcessBar(bar)
}

func TestBuyAndHoldBuysOnceAndHolds(t *testing.T) {
	t.Parallel()
	instrumentID := types.NewInstrumentID("AAPL", "NASDAQ")
	rig := newRig(t, instrumentID)

	factory := orders.NewFactory("TRADER-1", "BuyAndHold")
	base := strategy.NewBase("BuyAndHold", rig.clk, rig.cache, rig.port, rig.bus, factory, rig.exec, rig.data, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewBuyAndHoldStrategy(base, BuyAndHoldConfig{InstrumentID: instrumentID, TradeSize: 10})

	barType := types.BarType{InstrumentID: instrumentID, Spec: types.BarSpecification{Step: 1, Aggregation: types.AggregationMinute, PriceType: types.PriceTypeLast}}
	s.SubscribeBars(barType, s.OnBar)

	mkBar := func(o, h, l, c int64, ts int64) types.Bar {
		px := func(n int64) types.Price { return types.NewPrice(decimal.NewFromInt(n), 2) }
		return types.Bar{BarType: barType, Open: px(o), High: px(h), Low: px(l), Close: px(c), TsEvent: ts}
	}

	rig.feedBar(mkBar(100, 105, 99, 102, 1))
	rig.feedBar(mkBar(103, 106, 101, 104, 2))
	rig.feedBar(mkBar(104, 108, 103, 107, 3))

	positions := rig.cache.PositionsForInstrument(instrumentID)
	if len(positions) != 1 {
		t.Fatalf("expected exactly one position opened, got %d", len(positions))
	}
	if positions[0].Side != types.PositionLong {
		t.Errorf("expected long position, got %s", positions[0].Side)
	}

	orderCount := 0
	for range rig.cache.OrdersForInstrument(instrumentID) {
		orderCount++
	}
	if orderCount != 1 {
		t.Errorf("expected exactly one order submitted (buy-and-hold), got %d", orderCount)
	}
}
