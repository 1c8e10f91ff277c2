package orders

import (
	"fmt"
	"sync/atomic"

	"github.com/duskquant/backtrace/pkg/types"
)

// Factory mints uniquely-identified orders for one strategy, using a
// monotonically increasing counter scoped to the strategy id
// ("O-{strategy_id}-{n}") per spec.md §6.
type Factory struct {
	traderID   types.TraderID
	strategyID types.StrategyID
	seq        atomic.Int64
}

func NewFactory(traderID types.TraderID, strategyID types.StrategyID) *Factory {
	return &Factory{traderID: traderID, strategyID: strategyID}
}

func (f *Factory) nextID() types.ClientOrderID {
	n := f.seq.Add(1)
	return types.ClientOrderID(fmt.Sprintf("O-%s-%d", f.strategyID, n))
}

// Market builds a MARKET order.
func (f *Factory) Market(instrumentID types.InstrumentID, side types.OrderSide, quantity types.Quantity, tif types.TimeInForce, ts int64) (*Order, error) {
	return New(f.nextID(), instrumentID, f.traderID, f.strategyID, side, types.OrderTypeMarket, quantity, nil, nil, tif, ts)
}

// Limit builds a LIMIT order.
func (f *Factory) Limit(instrumentID types.InstrumentID, side types.OrderSide, quantity types.Quantity, price types.Price, tif types.TimeInForce, ts int64) (*Order, error) {
	return New(f.nextID(), instrumentID, f.traderID, f.strategyID, side, types.OrderTypeLimit, quantity, &price, nil, tif, ts)
}

// StopMarket builds a STOP_MARKET order.
func (f *Factory) StopMarket(instrumentID types.InstrumentID, side types.OrderSide, quantity types.Quantity, trigger types.Price, tif types.TimeInForce, ts int64) (*Order, error) {
	return New(f.nextID(), instrumentID, f.traderID, f.strategyID, side, types.OrderTypeStopMarket, quantity, nil, &trigger, tif, ts)
}

// StopLimit builds a STOP_LIMIT order.
func (f *Factory) StopLimit(instrumentID types.InstrumentID, side types.OrderSide, quantity types.Quantity, price, trigger types.Price, tif types.TimeInForce, ts int64) (*Order, error) {
	return New(f.nextID(), instrumentID, f.traderID, f.strategyID, side, types.OrderTypeStopLimit, quantity, &price, &trigger, tif, ts)
}
