// Package execution implements the execution engine: command routing
// (submit/cancel/modify) to the registered venue for an instrument, and
// inbound venue-event dispatch back into the order and position flow.
package execution

import (
	"fmt"
	"log/slog"

	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/internal/msgbus"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/internal/position"
	"github.com/duskquant/backtrace/internal/risk"
	"github.com/duskquant/backtrace/pkg/types"
)

// Venue is the subset of the simulated exchange the execution engine drives.
type Venue interface {
	OMSType() types.OMSType
	AccountID() types.AccountID
	SubmitOrder(o *orders.Order)
	CancelOrder(o *orders.Order)
	ModifyOrder(o *orders.Order, quantity types.Quantity, price *types.Price, triggerPrice *types.Price, ts int64) error
}

// Engine routes order commands to venues and folds venue events back into
// the cache and position flow.
type Engine struct {
	cache *cache.Cache
	risk  *risk.Engine
	bus   *msgbus.Bus
	log   *slog.Logger

	venues map[types.Venue]Venue

	// hedgingFallbackToNetting: when true (the default, matching the
	// reference implementation), a HEDGING venue's fill event with no
	// PositionID falls back to that venue's single implicit netting
	// position rather than erroring. See DESIGN.md Open Question 1.
	hedgingFallbackToNetting bool
}

func New(c *cache.Cache, r *risk.Engine, bus *msgbus.Bus, logger *slog.Logger) *Engine {
	return &Engine{
		cache:                    c,
		risk:                     r,
		bus:                      bus,
		log:                      logger.With("component", "execution"),
		venues:                   make(map[types.Venue]Venue),
		hedgingFallbackToNetting: true,
	}
}

// RegisterVenue binds a simulated exchange to the venue name it serves.
func (e *Engine) RegisterVenue(venue types.Venue, v Venue) {
	e.venues[venue] = v
}

// SubmitOrder runs risk validation; on denial it records OrderDenied and
// publishes without ever reaching the venue. Otherwise it records
// OrderSubmitted, persists the order to the cache, and routes it.
func (e *Engine) SubmitOrder(o *orders.Order, ts int64) error {
	if reason := e.risk.Validate(o); reason != "" {
		if err := o.Apply(types.NewOrderDenied(o.ClientOrderID, reason, ts)); err != nil {
			return err
		}
		e.cache.AddOrder(o)
		e.bus.PublishEvent(msgbus.OrderEventsTopic(string(o.StrategyID)), o.Events[len(o.Events)-1])
		return nil
	}

	venue, ok := e.venues[o.InstrumentID.Venue]
	if !ok {
		return fmt.Errorf("execution: no venue registered for %s", o.InstrumentID.Venue)
	}

	if err := o.Apply(types.NewOrderSubmitted(o.ClientOrderID, venue.AccountID(), ts)); err != nil {
		return err
	}
	e.cache.AddOrder(o)
	e.bus.PublishEvent(msgbus.OrderEventsTopic(string(o.StrategyID)), o.Events[len(o.Events)-1])

	venue.SubmitOrder(o)
	return nil
}

// CancelOrder routes a cancel request to the order's venue.
func (e *Engine) CancelOrder(o *orders.Order) error {
	venue, ok := e.venues[o.InstrumentID.Venue]
	if !ok {
		return fmt.Errorf("execution: no venue registered for %s", o.InstrumentID.Venue)
	}
	venue.CancelOrder(o)
	return nil
}

// ModifyOrder routes a quantity/price modification to the order's venue.
func (e *Engine) ModifyOrder(o *orders.Order, quantity types.Quantity, price, triggerPrice *types.Price, ts int64) error {
	venue, ok := e.venues[o.InstrumentID.Venue]
	if !ok {
		return fmt.Errorf("execution: no venue registered for %s", o.InstrumentID.Venue)
	}
	return venue.ModifyOrder(o, quantity, price, triggerPrice, ts)
}

// ProcessEvent dispatches an inbound venue event: applies it to the order,
// publishes it, and — for fills — folds it into the position flow per the
// venue's OMS policy.
func (e *Engine) ProcessEvent(o *orders.Order, event types.Event, oms types.OMSType) error {
	if err := o.Apply(event); err != nil {
		return err
	}
	e.bus.PublishEvent(msgbus.OrderEventsTopic(string(o.StrategyID)), event)

	if event.Kind != types.EventOrderFilled {
		return nil
	}
	return e.applyFillToPosition(o, event, oms)
}

func (e *Engine) applyFillToPosition(o *orders.Order, event types.Event, oms types.OMSType) error {
	pos := e.resolvePosition(o, event, oms)
	opened := pos == nil

	var p *position.Position
	if opened {
		venue, ok := e.venues[o.InstrumentID.Venue]
		if !ok {
			return fmt.Errorf("execution: no venue registered for %s", o.InstrumentID.Venue)
		}
		id := event.PositionID
		if id == "" {
			id = types.PositionID(fmt.Sprintf("POS-%s-%d", o.InstrumentID, len(e.cache.PositionsForInstrument(o.InstrumentID))+1))
		}
		inst, _ := e.cache.Instrument(o.InstrumentID)
		p = position.New(id, o.InstrumentID, o.StrategyID, o.TraderID, venue.AccountID(), inst.QuoteCurrency, inst.SizePrecision)
	} else {
		p = pos
	}

	wasClosed := p.IsClosed()
	p.ApplyFill(event)

	if opened {
		e.cache.AddPosition(p)
		e.bus.PublishEvent(msgbus.PositionEventsTopic(string(o.StrategyID)),
			types.NewPositionOpened(p.ID, p.InstrumentID, p.StrategyID, p.Side, p.Quantity, p.AvgPxOpen, event.TsEvent))
	} else if p.IsClosed() && !wasClosed {
		e.bus.PublishEvent(msgbus.PositionEventsTopic(string(o.StrategyID)),
			types.NewPositionClosed(p.ID, p.InstrumentID, p.StrategyID, p.AvgPxClose, p.RealizedPnL, event.TsEvent))
	} else {
		e.bus.PublishEvent(msgbus.PositionEventsTopic(string(o.StrategyID)),
			types.NewPositionChanged(p.ID, p.InstrumentID, p.StrategyID, p.Side, p.Quantity, p.AvgPxOpen, p.RealizedPnL, p.UnrealizedPnL(event.LastPx), event.TsEvent))
	}
	return nil
}

// resolvePosition implements §4.3's hedging/netting dispatch: a fill
// carrying a PositionID targets that position (hedging); otherwise it
// targets (or opens) the instrument's single netting position. A HEDGING
// venue with no PositionID on the fill falls back to netting behavior
// when hedgingFallbackToNetting is set (DESIGN.md Open Question 1).
func (e *Engine) resolvePosition(o *orders.Order, event types.Event, oms types.OMSType) *position.Position {
	if event.PositionID != "" {
		if p, ok := e.cache.Position(event.PositionID); ok {
			return p
		}
		return nil
	}
	if oms == types.OMSHedging && !e.hedgingFallbackToNetting {
		return nil
	}
	if p, ok := e.cache.OpenPositionForInstrument(o.InstrumentID); ok {
		return p
	}
	return nil
}
