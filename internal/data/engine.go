// Package data implements the data engine: a subscription registry that
// republishes bars, quotes, and trades onto the message bus for strategies
// to consume.
package data

import (
	"log/slog"

	"github.com/duskquant/backtrace/internal/msgbus"
	"github.com/duskquant/backtrace/pkg/types"
)

// Engine tracks which bar types / instruments strategies have subscribed to
// and republishes incoming market data through the bus under the canonical
// topic names.
type Engine struct {
	bus *msgbus.Bus
	log *slog.Logger
}

func New(bus *msgbus.Bus, logger *slog.Logger) *Engine {
	return &Engine{bus: bus, log: logger.With("component", "data")}
}

// SubscribeBars registers a strategy handler for a bar type.
func (e *Engine) SubscribeBars(barType types.BarType, handler msgbus.DataHandler) {
	e.bus.SubscribeData(msgbus.BarTopic(barType.String()), handler)
}

// SubscribeQuotes registers a strategy handler for an instrument's quotes.
func (e *Engine) SubscribeQuotes(instrumentID types.InstrumentID, handler msgbus.DataHandler) {
	e.bus.SubscribeData(msgbus.QuoteTopic(instrumentID.String()), handler)
}

// SubscribeTrades registers a strategy handler for an instrument's trades.
func (e *Engine) SubscribeTrades(instrumentID types.InstrumentID, handler msgbus.DataHandler) {
	e.bus.SubscribeData(msgbus.TradeTopic(instrumentID.String()), handler)
}

// ProcessBar publishes a bar to every subscriber of its bar type. Called by
// the backtest driver strictly after the exchange has matched resting
// orders against the same bar (spec.md §4.2).
func (e *Engine) ProcessBar(bar types.Bar) {
	e.bus.PublishData(msgbus.BarTopic(bar.BarType.String()), types.NewBarData(bar))
}

// ProcessQuote publishes a quote tick to its instrument's subscribers.
func (e *Engine) ProcessQuote(q types.QuoteTick) {
	e.bus.PublishData(msgbus.QuoteTopic(q.InstrumentID.String()), types.NewQuoteData(q))
}

// ProcessTrade publishes a trade tick to its instrument's subscribers.
func (e *Engine) ProcessTrade(tr types.TradeTick) {
	e.bus.PublishData(msgbus.TradeTopic(tr.InstrumentID.String()), types.NewTradeData(tr))
}
