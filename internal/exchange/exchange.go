// Package exchange implements the simulated matching engine: resting-order
// bookkeeping, per-bar fill-price determination from OHLC, commission
// accrual, and account cash adjustment. Every simulated fill is taker.
package exchange

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/internal/account"
	"github.com/duskquant/backtrace/internal/cache"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/pkg/types"
)

// FillPublisher receives venue events produced during matching, handing
// them to the execution engine's ProcessEvent.
type FillPublisher func(o *orders.Order, event types.Event)

// Exchange simulates one venue: one OMS policy, one account, one resting
// order book, matched bar by bar.
type Exchange struct {
	venue   types.Venue
	oms     types.OMSType
	account *account.Account
	cache   *cache.Cache
	log     *slog.Logger
	publish FillPublisher

	// resting holds orders accepted but not yet matched, in insertion order.
	// New market orders are queued here and only become eligible for
	// matching on the *next* ProcessBar call — this is the single most
	// important determinism contract in the system (spec.md §4.2). Kept as
	// an insertion-ordered slice (not a map) so ProcessBar's match order —
	// and thus the event-publication and netting/flip sequencing it drives
	// — is repeatable run to run (spec.md §5, §8).
	resting []*orders.Order
	venueOrderSeq int
}

func New(venue types.Venue, oms types.OMSType, acc *account.Account, c *cache.Cache, logger *slog.Logger, publish FillPublisher) *Exchange {
	return &Exchange{
		venue:   venue,
		oms:     oms,
		account: acc,
		cache:   c,
		log:     logger.With("component", "exchange", "venue", venue),
		publish: publish,
	}
}

// findResting returns the resting order with the given ClientOrderID, if any.
func (x *Exchange) findResting(id types.ClientOrderID) (*orders.Order, bool) {
	for _, o := range x.resting {
		if o.ClientOrderID == id {
			return o, true
		}
	}
	return nil, false
}

// removeResting drops the resting order with the given ClientOrderID,
// preserving the relative order of the remaining entries.
func (x *Exchange) removeResting(id types.ClientOrderID) {
	for i, o := range x.resting {
		if o.ClientOrderID == id {
			x.resting = append(x.resting[:i], x.resting[i+1:]...)
			return
		}
	}
}

func (x *Exchange) OMSType() types.OMSType      { return x.oms }
func (x *Exchange) AccountID() types.AccountID  { return x.account.ID }

// SubmitOrder accepts the order (emitting OrderAccepted) and rests it for
// matching on a future bar.
func (x *Exchange) SubmitOrder(o *orders.Order) {
	x.venueOrderSeq++
	venueOrderID := types.VenueOrderID(fmt.Sprintf("V-%s-%d", x.venue, x.venueOrderSeq))
	event := types.NewOrderAccepted(o.ClientOrderID, venueOrderID, x.account.ID, o.TsLast)
	x.publish(o, event)
	if o.IsOpen() {
		x.resting = append(x.resting, o)
	}
}

// CancelOrder removes a resting order and emits OrderCanceled.
func (x *Exchange) CancelOrder(o *orders.Order) {
	x.removeResting(o.ClientOrderID)
	x.publish(o, types.NewOrderCanceled(o.ClientOrderID, o.TsLast))
}

// ModifyOrder emits OrderUpdated for a resting order's quantity/price/trigger.
func (x *Exchange) ModifyOrder(o *orders.Order, quantity types.Quantity, price, triggerPrice *types.Price, ts int64) error {
	if _, ok := x.findResting(o.ClientOrderID); !ok {
		return fmt.Errorf("exchange: order %s is not resting", o.ClientOrderID)
	}
	var px, trig types.Price
	hasPx, hasTrig := price != nil, triggerPrice != nil
	if hasPx {
		px = *price
	}
	if hasTrig {
		trig = *triggerPrice
	}
	x.publish(o, types.NewOrderUpdated(o.ClientOrderID, quantity, px, hasPx, trig, hasTrig, ts))
	return nil
}

// ProcessBar matches every resting order for bar.BarType.InstrumentID
// against the bar's OHLC, in the fixed rule order of spec.md §4.2, and
// removes orders that filled or closed. It must be called before the data
// engine publishes the bar to strategies (spec.md §4.2 "Processing order
// per bar").
func (x *Exchange) ProcessBar(bar types.Bar) {
	instrumentID := bar.BarType.InstrumentID
	inst, ok := x.cache.Instrument(instrumentID)
	if !ok {
		return
	}

	// Snapshot before matching: removeResting below mutates x.resting's
	// backing array in place, which would otherwise corrupt an in-progress
	// range over the same array.
	candidates := make([]*orders.Order, len(x.resting))
	copy(candidates, x.resting)
	for _, o := range candidates {
		if !o.InstrumentID.Equals(instrumentID) {
			continue
		}
		fillPx, ok := fillPrice(o, bar)
		if !ok {
			continue
		}
		fillPx = types.NewPrice(fillPx.Decimal(), inst.PricePrecision)
		x.fill(o, fillPx, bar.TsEvent)
		if o.IsClosed() {
			x.removeResting(o.ClientOrderID)
		}
	}
}

// fillPrice implements the fill-price rule table of spec.md §4.2. The bool
// return reports whether the order's predicate is satisfied on this bar.
// MARKET orders always fill (having rested past submission) at the bar's
// open.
func fillPrice(o *orders.Order, bar types.Bar) (types.Price, bool) {
	O, H, L := bar.Open, bar.High, bar.Low

	switch o.OrderType {
	case types.OrderTypeMarket:
		return O, true

	case types.OrderTypeLimit:
		limit := *o.Price
		if o.Side == types.Buy {
			if L.LessOrEqual(limit) {
				return minPrice(limit, O), true
			}
			return types.Price{}, false
		}
		if H.GreaterOrEqual(limit) {
			return maxPrice(limit, O), true
		}
		return types.Price{}, false

	case types.OrderTypeStopMarket:
		trigger := *o.TriggerPrice
		if o.Side == types.Buy {
			if H.GreaterOrEqual(trigger) {
				return maxPrice(trigger, O), true
			}
			return types.Price{}, false
		}
		if L.LessOrEqual(trigger) {
			return minPrice(trigger, O), true
		}
		return types.Price{}, false

	case types.OrderTypeStopLimit:
		trigger, limit := *o.TriggerPrice, *o.Price
		if o.Side == types.Buy {
			if H.GreaterOrEqual(trigger) && L.LessOrEqual(limit) {
				return minPrice(limit, maxPrice(trigger, O)), true
			}
			return types.Price{}, false
		}
		if L.LessOrEqual(trigger) && H.GreaterOrEqual(limit) {
			return maxPrice(limit, minPrice(trigger, O)), true
		}
		return types.Price{}, false
	}
	return types.Price{}, false
}

func minPrice(a, b types.Price) types.Price {
	if a.LessOrEqual(b) {
		return a
	}
	return b
}

func maxPrice(a, b types.Price) types.Price {
	if a.GreaterOrEqual(b) {
		return a
	}
	return b
}

// fill computes the remaining-quantity fill (the matching engine never
// splits a fill), applies commission, and adjusts the account's free
// balance, then publishes OrderFilled.
func (x *Exchange) fill(o *orders.Order, fillPx types.Price, ts int64) {
	inst, _ := x.cache.Instrument(o.InstrumentID)
	leaves := o.LeavesQty

	notional := leaves.Decimal().Mul(fillPx.Decimal())
	commissionAmt := notional.Mul(inst.TakerFee)
	commission := types.NewMoney(commissionAmt, inst.QuoteCurrency)

	var delta decimal.Decimal
	if o.Side == types.Buy {
		delta = notional.Add(commissionAmt).Neg()
	} else {
		delta = notional.Sub(commissionAmt)
	}
	if err := x.account.AdjustFree(types.NewMoney(delta, inst.QuoteCurrency), ts); err != nil {
		x.log.Warn("account adjustment failed", "error", err)
	}
	x.account.AccrueCommission(commission)

	tradeID := types.TradeID(fmt.Sprintf("T-%s-%d", o.ClientOrderID, len(o.Events)))
	event := types.NewOrderFilled(o.ClientOrderID, o.VenueOrderID, tradeID, "", o.Side, leaves, fillPx, commission, ts)
	x.publish(o, event)
}
