// Package strategy provides the base type every trading strategy embeds:
// injected collaborators (clock, cache, portfolio, bus, order factory,
// execution engine, data engine), lifecycle and event dispatch, and command
// helpers (submit/cancel/modify, close_position(_all)).
package strategy

import (
	"log/slog"

	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/internal/clock"
	"github.com/duskquant/backtrace/internal/data"
	"github.com/duskquant/backtrace/internal/execution"
	"github.com/duskquant/backtrace/internal/msgbus"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/internal/portfolio"
	"github.com/duskquant/backtrace/internal/position"
	"github.com/duskquant/backtrace/pkg/types"
)

// Handlers is the set of callbacks a concrete strategy implements. A
// concrete strategy embeds NoopHandlers for empty defaults so it only
// overrides what it needs, matching the reference implementation's
// pass-by-default methods.
type Handlers interface {
	OnStart()
	OnStop()
	OnReset()

	OnBar(types.Bar)
	OnQuoteTick(types.QuoteTick)
	OnTradeTick(types.TradeTick)

	OnOrderInitialized(types.Event)
	OnOrderSubmitted(types.Event)
	OnOrderAccepted(types.Event)
	OnOrderRejected(types.Event)
	OnOrderDenied(types.Event)
	OnOrderFilled(types.Event)
	OnOrderCanceled(types.Event)

	OnPositionOpened(types.Event)
	OnPositionChanged(types.Event)
	OnPositionClosed(types.Event)
}

// NoopHandlers implements Handlers with empty bodies. Embed it in a
// concrete strategy and override only the callbacks needed.
type NoopHandlers struct{}

func (NoopHandlers) OnStart()                            {}
func (NoopHandlers) OnStop()                             {}
func (NoopHandlers) OnReset()                            {}
func (NoopHandlers) OnBar(types.Bar)                     {}
func (NoopHandlers) OnQuoteTick(types.QuoteTick)         {}
func (NoopHandlers) OnTradeTick(types.TradeTick)         {}
func (NoopHandlers) OnOrderInitialized(types.Event)      {}
func (NoopHandlers) OnOrderSubmitted(types.Event)        {}
func (NoopHandlers) OnOrderAccepted(types.Event)         {}
func (NoopHandlers) OnOrderRejected(types.Event)         {}
func (NoopHandlers) OnOrderDenied(types.Event)           {}
func (NoopHandlers) OnOrderFilled(types.Event)           {}
func (NoopHandlers) OnOrderCanceled(types.Event)         {}
func (NoopHandlers) OnPositionOpened(types.Event)        {}
func (NoopHandlers) OnPositionChanged(types.Event)       {}
func (NoopHandlers) OnPositionClosed(types.Event)        {}

// Base is the collaborator bundle injected into every strategy, plus the
// command helpers and internal event dispatch. Concrete strategies embed
// *Base and a Handlers implementation.
type Base struct {
	ID types.StrategyID

	Clock     clock.Clock
	Cache     *cache.Cache
	Portfolio *portfolio.Portfolio
	Bus       *msgbus.Bus
	Orders    *orders.Factory
	Exec      *execution.Engine
	Data      *data.Engine
	Log       *slog.Logger

	indicators map[string][]func(types.Bar)
}

// NewBase constructs a strategy's collaborator bundle. Call Register once
// the concrete strategy (which implements Handlers) exists, mirroring the
// reference implementation's construct-then-register lifecycle.
func NewBase(id types.StrategyID, c clock.Clock, ca *cache.Cache, p *portfolio.Portfolio, bus *msgbus.Bus, of *orders.Factory, exec *execution.Engine, de *data.Engine, logger *slog.Logger) *Base {
	return &Base{
		ID:         id,
		Clock:      c,
		Cache:      ca,
		Portfolio:  p,
		Bus:        bus,
		Orders:     of,
		Exec:       exec,
		Data:       de,
		Log:        logger.With("component", "strategy", "strategy_id", id),
		indicators: make(map[string][]func(types.Bar)),
	}
}

// Register subscribes handlers's order/position dispatch to this strategy's
// event topics. Must be called once, after the concrete strategy embedding
// Base is fully constructed.
func (b *Base) Register(handlers Handlers) {
	b.Bus.SubscribeEvents(msgbus.OrderEventsTopic(string(b.ID)), func(e types.Event) { b.handleOrderEvent(e, handlers) })
	b.Bus.SubscribeEvents(msgbus.PositionEventsTopic(string(b.ID)), func(e types.Event) { b.handlePositionEvent(e, handlers) })
}

// handleOrderEvent dispatches to the matching Handlers callback. Unlike the
// reference implementation, OrderInitialized IS dispatched here for
// symmetry with every other order event (DESIGN.md Open Question 2).
func (b *Base) handleOrderEvent(e types.Event, h Handlers) {
	switch e.Kind {
	case types.EventOrderInitialized:
		h.OnOrderInitialized(e)
	case types.EventOrderSubmitted:
		h.OnOrderSubmitted(e)
	case types.EventOrderAccepted:
		h.OnOrderAccepted(e)
	case types.EventOrderRejected:
		h.OnOrderRejected(e)
	case types.EventOrderDenied:
		h.OnOrderDenied(e)
	case types.EventOrderFilled:
		h.OnOrderFilled(e)
	case types.EventOrderCanceled:
		h.OnOrderCanceled(e)
	}
}

func (b *Base) handlePositionEvent(e types.Event, h Handlers) {
	switch e.Kind {
	case types.EventPositionOpened:
		h.OnPositionOpened(e)
	case types.EventPositionChanged:
		h.OnPositionChanged(e)
	case types.EventPositionClosed:
		h.OnPositionClosed(e)
	}
}

// SubscribeBars registers for a bar type's data feed and feeds any indicator
// registered via RegisterIndicatorForBars ahead of the strategy's own OnBar.
func (b *Base) SubscribeBars(barType types.BarType, onBar func(types.Bar)) {
	b.Data.SubscribeBars(barType, func(md types.MarketData) {
		for _, ind := range b.indicators[barType.String()] {
			ind(md.Bar)
		}
		onBar(md.Bar)
	})
}

// SubscribeQuoteTicks registers for an instrument's quote feed.
func (b *Base) SubscribeQuoteTicks(instrumentID types.InstrumentID, onQuote func(types.QuoteTick)) {
	b.Data.SubscribeQuotes(instrumentID, func(md types.MarketData) { onQuote(md.Quote) })
}

// SubscribeTradeTicks registers for an instrument's trade feed.
func (b *Base) SubscribeTradeTicks(instrumentID types.InstrumentID, onTrade func(types.TradeTick)) {
	b.Data.SubscribeTrades(instrumentID, func(md types.MarketData) { onTrade(md.Trade) })
}

// RegisterIndicatorForBars wires a bar-driven indicator recurrence ahead of
// the strategy's own OnBar dispatch for that bar type.
func (b *Base) RegisterIndicatorForBars(barType types.BarType, indicator func(types.Bar)) {
	key := barType.String()
	b.indicators[key] = append(b.indicators[key], indicator)
}

// SubmitOrder runs the order through risk and routes it to its venue.
func (b *Base) SubmitOrder(o *orders.Order) error {
	return b.Exec.SubmitOrder(o, b.Clock.TimestampNs())
}

// CancelOrder routes a cancel to the order's venue.
func (b *Base) CancelOrder(o *orders.Order) error {
	return b.Exec.CancelOrder(o)
}

// ModifyOrder routes a quantity/price update to the order's venue.
func (b *Base) ModifyOrder(o *orders.Order, quantity types.Quantity, price, triggerPrice *types.Price) error {
	return b.Exec.ModifyOrder(o, quantity, price, triggerPrice, b.Clock.TimestampNs())
}

// CancelAllOrders cancels every open order this strategy holds for an instrument.
func (b *Base) CancelAllOrders(instrumentID types.InstrumentID) {
	for _, o := range b.Cache.OrdersForInstrument(instrumentID) {
		if o.StrategyID == b.ID && o.IsOpen() {
			_ = b.CancelOrder(o)
		}
	}
}

// ClosePosition submits a market order sized to flatten an open position.
func (b *Base) ClosePosition(p *position.Position) error {
	if p == nil || p.IsClosed() {
		return nil
	}
	side := types.Sell
	if p.Side == types.PositionShort {
		side = types.Buy
	}
	o, err := b.Orders.Market(p.InstrumentID, side, p.Quantity, types.TimeInForceGTC, b.Clock.TimestampNs())
	if err != nil {
		return err
	}
	return b.SubmitOrder(o)
}

// CloseAllPositions flattens every open position this strategy holds.
func (b *Base) CloseAllPositions() {
	for _, p := range b.Cache.PositionsForStrategy(b.ID) {
		if !p.IsClosed() {
			_ = b.ClosePosition(p)
		}
	}
}
