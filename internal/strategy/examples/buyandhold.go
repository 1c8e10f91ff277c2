// Package examples provides reference strategies exercising the strategy
// base: a one-shot buy-and-hold and a two-EMA crossover.
package examples

import (
	"github.com/duskquant/backtrace/internal/strategy"
	"github.com/duskquant/backtrace/pkg/types"
)

// BuyAndHoldConfig configures BuyAndHoldStrategy.
type BuyAndHoldConfig struct {
	InstrumentID types.InstrumentID
	TradeSize    float64
}

// BuyAndHoldStrategy buys a fixed size on the first bar and holds.
type BuyAndHoldStrategy struct {
	*strategy.Base
	strategy.NoopHandlers

	cfg    BuyAndHoldConfig
	bought bool
}

func NewBuyAndHoldStrategy(base *strategy.Base, cfg BuyAndHoldConfig) *BuyAndHoldStrategy {
	s := &BuyAndHoldStrategy{Base: base, cfg: cfg}
	s.Register(s)
	return s
}

func (s *BuyAndHoldStrategy) OnBar(bar types.Bar) {
	if s.bought {
		return
	}
	inst, ok := s.Cache.Instrument(s.cfg.InstrumentID)
	if !ok {
		return
	}
	qty := inst.MakeQuantity(s.cfg.TradeSize)
	o, err := s.Orders.Market(s.cfg.InstrumentID, types.Buy, qty, types.TimeInForceGTC, bar.TsEvent)
	if err != nil {
		s.Log.Warn("buy_and_hold: order construction failed", "error", err)
		return
	}
	if err := s.SubmitOrder(o); err != nil {
		s.Log.Warn("buy_and_hold: submit failed", "error", err)
		return
	}
	s.bought = true
}
