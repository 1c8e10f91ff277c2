package examples

import (
	"github.com/duskquant/backtrace/internal/strategy"
	"github.com/duskquant/backtrace/pkg/types"
)

// EMACrossConfig configures EMACrossStrategy.
type EMACrossConfig struct {
	InstrumentID types.InstrumentID
	BarType      types.BarType
	FastPeriod   int
	SlowPeriod   int
	TradeSize    float64
}

// EMACrossStrategy goes long when the fast EMA crosses above the slow EMA,
// and short on the reverse cross, closing any opposing position first.
type EMACrossStrategy struct {
	*strategy.Base
	strategy.NoopHandlers

	cfg     EMACrossConfig
	fastEMA *strategy.ExponentialMovingAverage
	slowEMA *strategy.ExponentialMovingAverage
}

func NewEMACrossStrategy(base *strategy.Base, cfg EMACrossConfig) *EMACrossStrategy {
	s := &EMACrossStrategy{
		Base:    base,
		cfg:     cfg,
		fastEMA: strategy.NewExponentialMovingAverage(cfg.FastPeriod),
		slowEMA: strategy.NewExponentialMovingAverage(cfg.SlowPeriod),
	}
	s.RegisterIndicatorForBars(cfg.BarType, s.fastEMA.HandleBar)
	s.RegisterIndicatorForBars(cfg.BarType, s.slowEMA.HandleBar)
	s.Register(s)
	return s
}

func (s *EMACrossStrategy) OnBar(bar types.Bar) {
	if !s.slowEMA.Initialized {
		return
	}
	inst, ok := s.Cache.Instrument(s.cfg.InstrumentID)
	if !ok {
		return
	}

	isFlat := s.Portfolio.IsNetFlat(s.cfg.InstrumentID)
	isLong := s.Portfolio.IsNetLong(s.cfg.InstrumentID)
	isShort := s.Portfolio.IsNetShort(s.cfg.InstrumentID)
	qty := inst.MakeQuantity(s.cfg.TradeSize)

	switch {
	case s.fastEMA.Value > s.slowEMA.Value:
		if isFlat || isShort {
			if isShort {
				s.CloseAllPositions()
			}
			s.submit(types.Buy, qty, bar.TsEvent)
		}
	case s.fastEMA.Value < s.slowEMA.Value:
		if isFlat || isLong {
			if isLong {
				s.CloseAllPositions()
			}
			s.submit(types.Sell, qty, bar.TsEvent)
		}
	}
}

func (s *EMACrossStrategy) submit(side types.OrderSide, qty types.Quantity, ts int64) {
	o, err := s.Orders.Market(s.cfg.InstrumentID, side, qty, types.TimeInForceGTC, ts)
	if err != nil {
		s.Log.Warn("ema_cross: order construction failed", "error", err)
		return
	}
	if err := s.SubmitOrder(o); err != nil {
		s.Log.Warn("ema_cross: submit failed", "error", err)
	}
}

func (s *EMACrossStrategy) OnStop() {
	s.CloseAllPositions()
}
