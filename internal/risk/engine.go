// Package risk implements the pre-trade risk engine: a synchronous,
// ordered rule chain that gates every order before it reaches a venue.
package risk

import (
	"fmt"
	"log/slog"

	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/internal/portfolio"
	"github.com/duskquant/backtrace/pkg/types"
)

// Engine validates orders against instrument limits and the venue's trading
// state before execution. Rules run in the fixed order from spec.md §4.4;
// the first failure denies the order.
type Engine struct {
	cache     *cache.Cache
	portfolio *portfolio.Portfolio
	logger    *slog.Logger

	tradingState map[types.Venue]types.TradingState
}

func New(c *cache.Cache, p *portfolio.Portfolio, logger *slog.Logger) *Engine {
	return &Engine{
		cache:        c,
		portfolio:    p,
		logger:       logger.With("component", "risk"),
		tradingState: make(map[types.Venue]types.TradingState),
	}
}

// SetTradingState changes the gate for a venue; defaults to ACTIVE if never set.
func (e *Engine) SetTradingState(venue types.Venue, state types.TradingState) {
	e.tradingState[venue] = state
}

func (e *Engine) stateFor(venue types.Venue) types.TradingState {
	if s, ok := e.tradingState[venue]; ok {
		return s
	}
	return types.TradingStateActive
}

// Validate runs the ordered rule chain against o. A non-empty reason string
// denotes a denial; an empty reason means the order passed every rule.
func (e *Engine) Validate(o *orders.Order) string {
	venue := o.InstrumentID.Venue

	// Rule 1: trading state gate.
	state := e.stateFor(venue)
	if state == types.TradingStateHalted {
		e.logger.Warn("order denied: trading halted", "client_order_id", o.ClientOrderID)
		return "trading halted"
	}

	// Rule 2: instrument must be registered.
	inst, ok := e.cache.Instrument(o.InstrumentID)
	if !ok {
		e.logger.Warn("order denied: unknown instrument", "instrument_id", o.InstrumentID)
		return fmt.Sprintf("unknown instrument %s", o.InstrumentID)
	}

	// Rule 3 & 4: quantity precision and bounds.
	if err := inst.ValidateQuantity(o.Quantity); err != nil {
		e.logger.Warn("order denied: quantity check failed", "reason", err)
		return err.Error()
	}

	// Rule 5: price precision and positivity, if the order carries a price.
	if o.Price != nil {
		if err := inst.ValidatePrice(*o.Price); err != nil {
			e.logger.Warn("order denied: price check failed", "reason", err)
			return err.Error()
		}
	}

	// Rule 6: REDUCING state only allows orders that strictly reduce net position.
	if state == types.TradingStateReducing {
		net := e.portfolio.NetPosition(o.InstrumentID)
		switch o.Side {
		case types.Buy:
			if !net.IsNegative() {
				return "trading state REDUCING: BUY only allowed to reduce a short position"
			}
		case types.Sell:
			if !net.IsPositive() {
				return "trading state REDUCING: SELL only allowed to reduce a long position"
			}
		}
	}

	return ""
}
