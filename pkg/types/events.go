package types

import "github.com/google/uuid"

// EventKind tags the variant carried by an Event. Go has no sum types; the
// idiomatic approximation used throughout this package is one discriminated
// struct plus a switch over EventKind at each consumer — see Order.Apply and
// the strategy base's event dispatch.
type EventKind string

const (
	EventOrderInitialized  EventKind = "ORDER_INITIALIZED"
	EventOrderDenied       EventKind = "ORDER_DENIED"
	EventOrderSubmitted    EventKind = "ORDER_SUBMITTED"
	EventOrderAccepted     EventKind = "ORDER_ACCEPTED"
	EventOrderRejected     EventKind = "ORDER_REJECTED"
	EventOrderCanceled     EventKind = "ORDER_CANCELED"
	EventOrderExpired      EventKind = "ORDER_EXPIRED"
	EventOrderTriggered    EventKind = "ORDER_TRIGGERED"
	EventOrderPendingUpdate EventKind = "ORDER_PENDING_UPDATE"
	EventOrderPendingCancel EventKind = "ORDER_PENDING_CANCEL"
	EventOrderUpdated      EventKind = "ORDER_UPDATED"
	EventOrderFilled       EventKind = "ORDER_FILLED"

	EventPositionOpened  EventKind = "POSITION_OPENED"
	EventPositionChanged EventKind = "POSITION_CHANGED"
	EventPositionClosed  EventKind = "POSITION_CLOSED"

	EventAccountState EventKind = "ACCOUNT_STATE"
)

// Event is a closed tagged union over every order/position/account
// transition. Only the fields relevant to Kind are populated; consumers
// switch on Kind, never on field presence.
type Event struct {
	EventID string
	Kind    EventKind
	TsEvent int64
	TsInit  int64

	// Order-event fields.
	ClientOrderID ClientOrderID
	VenueOrderID  VenueOrderID
	StrategyID    StrategyID
	InstrumentID  InstrumentID
	AccountID     AccountID
	Reason        string // OrderDenied / OrderRejected

	// OrderFilled / OrderUpdated fields.
	TradeID      TradeID
	PositionID   PositionID
	Side         OrderSide
	LastQty      Quantity
	LastPx       Price
	Commission   Money
	Quantity     Quantity
	Price        Price
	TriggerPrice Price
	HasPrice     bool
	HasTrigger   bool

	// Position-event fields.
	PositionSide  PositionSide
	SignedQty     Quantity // unsigned magnitude; sign carried by PositionSide
	AvgPxOpen     Price
	AvgPxClose    Price
	RealizedPnL   Money
	UnrealizedPnL Money

	// AccountState fields.
	Balances []AccountBalance
	Reported bool
}

// NewEventID generates a fresh random event identifier.
func NewEventID() string {
	return uuid.NewString()
}

func newEvent(kind EventKind, tsEvent, tsInit int64) Event {
	return Event{EventID: NewEventID(), Kind: kind, TsEvent: tsEvent, TsInit: tsInit}
}

// NewOrderInitialized builds the event emitted at order construction.
func NewOrderInitialized(clientOrderID ClientOrderID, strategyID StrategyID, instrumentID InstrumentID, ts int64) Event {
	e := newEvent(EventOrderInitialized, ts, ts)
	e.ClientOrderID, e.StrategyID, e.InstrumentID = clientOrderID, strategyID, instrumentID
	return e
}

// NewOrderDenied builds a risk-denial event.
func NewOrderDenied(clientOrderID ClientOrderID, reason string, ts int64) Event {
	e := newEvent(EventOrderDenied, ts, ts)
	e.ClientOrderID, e.Reason = clientOrderID, reason
	return e
}

// NewOrderSubmitted builds the event emitted when an order is sent to risk/venue.
func NewOrderSubmitted(clientOrderID ClientOrderID, accountID AccountID, ts int64) Event {
	e := newEvent(EventOrderSubmitted, ts, ts)
	e.ClientOrderID, e.AccountID = clientOrderID, accountID
	return e
}

// NewOrderAccepted builds the event emitted when the venue accepts an order.
func NewOrderAccepted(clientOrderID ClientOrderID, venueOrderID VenueOrderID, accountID AccountID, ts int64) Event {
	e := newEvent(EventOrderAccepted, ts, ts)
	e.ClientOrderID, e.VenueOrderID, e.AccountID = clientOrderID, venueOrderID, accountID
	return e
}

// NewOrderRejected builds the event emitted when the venue rejects an order.
func NewOrderRejected(clientOrderID ClientOrderID, reason string, ts int64) Event {
	e := newEvent(EventOrderRejected, ts, ts)
	e.ClientOrderID, e.Reason = clientOrderID, reason
	return e
}

// NewOrderCanceled builds the event emitted when an order is canceled.
func NewOrderCanceled(clientOrderID ClientOrderID, ts int64) Event {
	e := newEvent(EventOrderCanceled, ts, ts)
	e.ClientOrderID = clientOrderID
	return e
}

// NewOrderExpired builds the event emitted when an order's time-in-force lapses.
func NewOrderExpired(clientOrderID ClientOrderID, ts int64) Event {
	e := newEvent(EventOrderExpired, ts, ts)
	e.ClientOrderID = clientOrderID
	return e
}

// NewOrderTriggered builds the event emitted when a stop order's trigger condition fires.
func NewOrderTriggered(clientOrderID ClientOrderID, ts int64) Event {
	e := newEvent(EventOrderTriggered, ts, ts)
	e.ClientOrderID = clientOrderID
	return e
}

// NewOrderFilled builds the event emitted on a matched trade.
func NewOrderFilled(clientOrderID ClientOrderID, venueOrderID VenueOrderID, tradeID TradeID, positionID PositionID, side OrderSide, lastQty Quantity, lastPx Price, commission Money, ts int64) Event {
	e := newEvent(EventOrderFilled, ts, ts)
	e.ClientOrderID, e.VenueOrderID, e.TradeID, e.PositionID = clientOrderID, venueOrderID, tradeID, positionID
	e.Side, e.LastQty, e.LastPx, e.Commission = side, lastQty, lastPx, commission
	return e
}

// NewOrderUpdated builds the event emitted when an order's quantity/price changes.
func NewOrderUpdated(clientOrderID ClientOrderID, quantity Quantity, price Price, hasPrice bool, triggerPrice Price, hasTrigger bool, ts int64) Event {
	e := newEvent(EventOrderUpdated, ts, ts)
	e.ClientOrderID, e.Quantity = clientOrderID, quantity
	e.Price, e.HasPrice = price, hasPrice
	e.TriggerPrice, e.HasTrigger = triggerPrice, hasTrigger
	return e
}

// NewPositionOpened builds the event emitted when a position is created.
func NewPositionOpened(positionID PositionID, instrumentID InstrumentID, strategyID StrategyID, side PositionSide, qty Quantity, avgPxOpen Price, ts int64) Event {
	e := newEvent(EventPositionOpened, ts, ts)
	e.PositionID, e.InstrumentID, e.StrategyID = positionID, instrumentID, strategyID
	e.PositionSide, e.SignedQty, e.AvgPxOpen = side, qty, avgPxOpen
	return e
}

// NewPositionChanged builds the event emitted on a non-terminal position mutation.
func NewPositionChanged(positionID PositionID, instrumentID InstrumentID, strategyID StrategyID, side PositionSide, qty Quantity, avgPxOpen Price, realizedPnL, unrealizedPnL Money, ts int64) Event {
	e := newEvent(EventPositionChanged, ts, ts)
	e.PositionID, e.InstrumentID, e.StrategyID = positionID, instrumentID, strategyID
	e.PositionSide, e.SignedQty, e.AvgPxOpen = side, qty, avgPxOpen
	e.RealizedPnL, e.UnrealizedPnL = realizedPnL, unrealizedPnL
	return e
}

// NewPositionClosed builds the event emitted when a position returns to flat.
func NewPositionClosed(positionID PositionID, instrumentID InstrumentID, strategyID StrategyID, avgPxClose Price, realizedPnL Money, ts int64) Event {
	e := newEvent(EventPositionClosed, ts, ts)
	e.PositionID, e.InstrumentID, e.StrategyID = positionID, instrumentID, strategyID
	e.PositionSide, e.AvgPxClose, e.RealizedPnL = PositionFlat, avgPxClose, realizedPnL
	return e
}

// NewAccountState builds an account balance-mutation event.
func NewAccountState(accountID AccountID, balances []AccountBalance, reported bool, ts int64) Event {
	e := newEvent(EventAccountState, ts, ts)
	e.AccountID, e.Balances, e.Reported = accountID, balances, reported
	return e
}
