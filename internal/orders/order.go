// Package orders implements the order entity and its state machine: a
// single fixed transition graph applied uniformly regardless of order
// variant, plus fill/update application per the weighted-average-price
// formulas.
package orders

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/duskquant/backtrace/pkg/types"
)

// IllegalTransition is returned when an event targets a status unreachable
// from the order's current status. It is a programming error: the engine
// does not silently discard it.
type IllegalTransition struct {
	From types.OrderStatus
	To   types.OrderStatus
}

func (e *IllegalTransition) Error() string {
	return fmt.Sprintf("illegal order transition: %s -> %s", e.From, e.To)
}

// allowed is the transition graph from spec.md §4.1.
var allowed = map[types.OrderStatus]map[types.OrderStatus]bool{
	types.OrderStatusInitialized: set(types.OrderStatusDenied, types.OrderStatusSubmitted),
	types.OrderStatusSubmitted:   set(types.OrderStatusAccepted, types.OrderStatusRejected, types.OrderStatusCanceled),
	types.OrderStatusAccepted: set(
		types.OrderStatusCanceled, types.OrderStatusExpired, types.OrderStatusTriggered,
		types.OrderStatusPendingUpdate, types.OrderStatusPendingCancel,
		types.OrderStatusPartiallyFilled, types.OrderStatusFilled,
	),
	types.OrderStatusTriggered: set(
		types.OrderStatusCanceled, types.OrderStatusExpired,
		types.OrderStatusPendingUpdate, types.OrderStatusPendingCancel,
		types.OrderStatusPartiallyFilled, types.OrderStatusFilled,
	),
	types.OrderStatusPendingUpdate: set(
		types.OrderStatusAccepted, types.OrderStatusCanceled, types.OrderStatusExpired,
		types.OrderStatusTriggered, types.OrderStatusPartiallyFilled, types.OrderStatusFilled,
	),
	types.OrderStatusPendingCancel: set(
		types.OrderStatusCanceled, types.OrderStatusAccepted,
		types.OrderStatusPartiallyFilled, types.OrderStatusFilled,
	),
	types.OrderStatusPartiallyFilled: set(
		types.OrderStatusCanceled, types.OrderStatusExpired,
		types.OrderStatusPendingUpdate, types.OrderStatusPendingCancel,
		types.OrderStatusPartiallyFilled, types.OrderStatusFilled,
	),
	// Terminal states: DENIED, REJECTED, CANCELED, EXPIRED, FILLED — no entry.
}

func set(states ...types.OrderStatus) map[types.OrderStatus]bool {
	m := make(map[types.OrderStatus]bool, len(states))
	for _, s := range states {
		m[s] = true
	}
	return m
}

// CanTransition reports whether `to` is reachable from `from`.
func CanTransition(from, to types.OrderStatus) bool {
	targets, ok := allowed[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Order is a single record carrying order_type plus the optional fields
// relevant to that variant, validated at construction — a sum type with
// per-variant payloads approximated without a type hierarchy, per the
// design note against open-ended inheritance.
type Order struct {
	ClientOrderID types.ClientOrderID
	VenueOrderID  types.VenueOrderID
	InstrumentID  types.InstrumentID
	TraderID      types.TraderID
	StrategyID    types.StrategyID
	Side          types.OrderSide
	OrderType     types.OrderType
	TimeInForce   types.TimeInForce

	Quantity   types.Quantity
	FilledQty  types.Quantity
	LeavesQty  types.Quantity
	AvgPx      types.Price

	Price        *types.Price // LIMIT, STOP_LIMIT
	TriggerPrice *types.Price // STOP_MARKET, STOP_LIMIT

	Status types.OrderStatus
	Events []types.Event

	TsInit int64
	TsLast int64
}

var (
	// ErrRequiresPrice is returned constructing a LIMIT/STOP_LIMIT order with no price.
	ErrRequiresPrice = errors.New("order type requires a price")
	// ErrRequiresTrigger is returned constructing a STOP order with no trigger price.
	ErrRequiresTrigger = errors.New("order type requires a trigger price")
)

// New constructs an order in INITIALIZED status and records the
// OrderInitialized event. Variant-specific required fields are validated
// here rather than via subclassing.
func New(clientOrderID types.ClientOrderID, instrumentID types.InstrumentID, traderID types.TraderID, strategyID types.StrategyID, side types.OrderSide, orderType types.OrderType, quantity types.Quantity, price, triggerPrice *types.Price, tif types.TimeInForce, ts int64) (*Order, error) {
	switch orderType {
	case types.OrderTypeLimit, types.OrderTypeStopLimit:
		if price == nil {
			return nil, ErrRequiresPrice
		}
	}
	switch orderType {
	case types.OrderTypeStopMarket, types.OrderTypeStopLimit:
		if triggerPrice == nil {
			return nil, ErrRequiresTrigger
		}
	}

	o := &Order{
		ClientOrderID: clientOrderID,
		InstrumentID:  instrumentID,
		TraderID:      traderID,
		StrategyID:    strategyID,
		Side:          side,
		OrderType:     orderType,
		TimeInForce:   tif,
		Quantity:      quantity,
		FilledQty:     types.MustQuantity(decimal.Zero, quantity.Precision()),
		LeavesQty:     quantity,
		AvgPx:         types.NewPrice(decimal.Zero, 0),
		Price:         price,
		TriggerPrice:  triggerPrice,
		Status:        types.OrderStatusInitialized,
		TsInit:        ts,
		TsLast:        ts,
	}
	o.record(types.NewOrderInitialized(clientOrderID, strategyID, instrumentID, ts))
	return o, nil
}

func (o *Order) record(e types.Event) {
	o.Events = append(o.Events, e)
	if e.TsEvent > o.TsLast {
		o.TsLast = e.TsEvent
	}
}

// IsOpen reports whether the order is still working at a venue.
func (o *Order) IsOpen() bool { return o.Status.IsOpen() }

// IsClosed reports whether the order has reached a terminal status.
func (o *Order) IsClosed() bool { return o.Status.IsClosed() }

func (o *Order) transition(to types.OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return &IllegalTransition{From: o.Status, To: to}
	}
	o.Status = to
	return nil
}

// Apply dispatches an event to the transition and field-mutation logic for
// its Kind, enforcing the state machine. On IllegalTransition the order is
// left unchanged.
func (o *Order) Apply(e types.Event) error {
	switch e.Kind {
	case types.EventOrderDenied:
		if err := o.transition(types.OrderStatusDenied); err != nil {
			return err
		}
	case types.EventOrderSubmitted:
		if err := o.transition(types.OrderStatusSubmitted); err != nil {
			return err
		}
	case types.EventOrderAccepted:
		if err := o.transition(types.OrderStatusAccepted); err != nil {
			return err
		}
		if e.VenueOrderID != "" {
			o.VenueOrderID = e.VenueOrderID
		}
	case types.EventOrderRejected:
		if err := o.transition(types.OrderStatusRejected); err != nil {
			return err
		}
	case types.EventOrderCanceled:
		if err := o.transition(types.OrderStatusCanceled); err != nil {
			return err
		}
	case types.EventOrderExpired:
		if err := o.transition(types.OrderStatusExpired); err != nil {
			return err
		}
	case types.EventOrderTriggered:
		if err := o.transition(types.OrderStatusTriggered); err != nil {
			return err
		}
	case types.EventOrderPendingUpdate:
		if err := o.transition(types.OrderStatusPendingUpdate); err != nil {
			return err
		}
	case types.EventOrderPendingCancel:
		if err := o.transition(types.OrderStatusPendingCancel); err != nil {
			return err
		}
	case types.EventOrderUpdated:
		if err := o.applyUpdate(e); err != nil {
			return err
		}
	case types.EventOrderFilled:
		if err := o.applyFill(e); err != nil {
			return err
		}
	default:
		return fmt.Errorf("order cannot apply event kind %s", e.Kind)
	}
	o.record(e)
	return nil
}

// applyFill implements spec.md §4.1 "Fill application".
func (o *Order) applyFill(e types.Event) error {
	newFilled := o.FilledQty.Add(e.LastQty)

	weighted := o.AvgPx.Decimal().Mul(o.FilledQty.Decimal()).Add(e.LastPx.Decimal().Mul(e.LastQty.Decimal()))
	avgPx := o.AvgPx
	if !newFilled.IsZero() {
		avgPx = types.NewPrice(weighted.Div(newFilled.Decimal()), e.LastPx.Precision())
	}

	leaves, err := o.Quantity.Sub(newFilled)
	if err != nil {
		return fmt.Errorf("fill exceeds order quantity: %w", err)
	}

	target := types.OrderStatusPartiallyFilled
	if leaves.IsZero() {
		target = types.OrderStatusFilled
	}
	if err := o.transition(target); err != nil {
		return err
	}

	o.FilledQty = newFilled
	o.LeavesQty = leaves
	o.AvgPx = avgPx
	if e.VenueOrderID != "" {
		o.VenueOrderID = e.VenueOrderID
	}
	return nil
}

// applyUpdate implements spec.md §4.1 "Update application".
func (o *Order) applyUpdate(e types.Event) error {
	leaves, err := e.Quantity.Sub(o.FilledQty)
	if err != nil {
		return fmt.Errorf("updated quantity below filled quantity: %w", err)
	}
	if err := o.transition(types.OrderStatusAccepted); err != nil {
		return err
	}
	o.Quantity = e.Quantity
	o.LeavesQty = leaves
	if e.HasPrice {
		p := e.Price
		o.Price = &p
	}
	if e.HasTrigger {
		t := e.TriggerPrice
		o.TriggerPrice = &t
	}
	return nil
}
