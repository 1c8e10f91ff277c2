// Package cache is the engine's indexed in-memory store: primary lookup by
// identifier, secondary indices by instrument/strategy/venue for orders and
// positions. There is no eviction; the cache's lifetime is one backtest run.
package cache

import (
	"sync"

	"github.com/duskquant/backtrace/internal/account"
	"github.com/duskquant/backtrace/internal/instrument"
	"github.com/duskquant/backtrace/internal/orders"
	"github.com/duskquant/backtrace/internal/position"
	"github.com/duskquant/backtrace/pkg/types"
)

// Cache is mutated only from within the driver's current callback frame
// (spec.md §5), so a plain mutex — rather than fine-grained per-index
// locking — is sufficient and matches the teacher's shared-map idiom.
type Cache struct {
	mu sync.RWMutex

	orders      map[types.ClientOrderID]*orders.Order
	positions   map[types.PositionID]*position.Position
	instruments map[types.InstrumentID]instrument.Instrument
	accounts    map[types.AccountID]*account.Account

	ordersByInstrument    map[types.InstrumentID][]types.ClientOrderID
	ordersByStrategy      map[types.StrategyID][]types.ClientOrderID
	ordersByVenue         map[types.Venue][]types.ClientOrderID
	positionsByInstrument map[types.InstrumentID][]types.PositionID
	positionsByStrategy   map[types.StrategyID][]types.PositionID
	positionsByVenue      map[types.Venue][]types.PositionID
}

func New() *Cache {
	return &Cache{
		orders:                make(map[types.ClientOrderID]*orders.Order),
		positions:             make(map[types.PositionID]*position.Position),
		instruments:           make(map[types.InstrumentID]instrument.Instrument),
		accounts:              make(map[types.AccountID]*account.Account),
		ordersByInstrument:    make(map[types.InstrumentID][]types.ClientOrderID),
		ordersByStrategy:      make(map[types.StrategyID][]types.ClientOrderID),
		ordersByVenue:         make(map[types.Venue][]types.ClientOrderID),
		positionsByInstrument: make(map[types.InstrumentID][]types.PositionID),
		positionsByStrategy:   make(map[types.StrategyID][]types.PositionID),
		positionsByVenue:      make(map[types.Venue][]types.PositionID),
	}
}

// AddInstrument registers an instrument for risk/matching lookups.
func (c *Cache) AddInstrument(inst instrument.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instruments[inst.ID] = inst
}

func (c *Cache) Instrument(id types.InstrumentID) (instrument.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.instruments[id]
	return inst, ok
}

// AddAccount registers an account for a venue.
func (c *Cache) AddAccount(acc *account.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[acc.ID] = acc
}

func (c *Cache) Account(id types.AccountID) (*account.Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[id]
	return a, ok
}

// AddOrder indexes a new order by id, instrument, strategy, and venue.
func (c *Cache) AddOrder(o *orders.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ClientOrderID] = o
	c.ordersByInstrument[o.InstrumentID] = append(c.ordersByInstrument[o.InstrumentID], o.ClientOrderID)
	c.ordersByStrategy[o.StrategyID] = append(c.ordersByStrategy[o.StrategyID], o.ClientOrderID)
	c.ordersByVenue[o.InstrumentID.Venue] = append(c.ordersByVenue[o.InstrumentID.Venue], o.ClientOrderID)
}

func (c *Cache) Order(id types.ClientOrderID) (*orders.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

func (c *Cache) OrdersForInstrument(id types.InstrumentID) []*orders.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveOrders(c.ordersByInstrument[id])
}

func (c *Cache) OrdersForStrategy(id types.StrategyID) []*orders.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveOrders(c.ordersByStrategy[id])
}

func (c *Cache) OrdersForVenue(v types.Venue) []*orders.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolveOrders(c.ordersByVenue[v])
}

func (c *Cache) resolveOrders(ids []types.ClientOrderID) []*orders.Order {
	out := make([]*orders.Order, 0, len(ids))
	for _, id := range ids {
		if o, ok := c.orders[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// AllOrders returns every order the cache has seen, for report aggregation.
func (c *Cache) AllOrders() []*orders.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*orders.Order, 0, len(c.orders))
	for _, o := range c.orders {
		out = append(out, o)
	}
	return out
}

// AddPosition indexes a new position by id, instrument, strategy, and venue.
func (c *Cache) AddPosition(p *position.Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[p.ID] = p
	c.positionsByInstrument[p.InstrumentID] = append(c.positionsByInstrument[p.InstrumentID], p.ID)
	c.positionsByStrategy[p.StrategyID] = append(c.positionsByStrategy[p.StrategyID], p.ID)
	c.positionsByVenue[p.InstrumentID.Venue] = append(c.positionsByVenue[p.InstrumentID.Venue], p.ID)
}

func (c *Cache) Position(id types.PositionID) (*position.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	return p, ok
}

// OpenPositionForInstrument returns the single open (non-flat) position for
// an instrument under netting OMS, if any.
func (c *Cache) OpenPositionForInstrument(id types.InstrumentID) (*position.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, pid := range c.positionsByInstrument[id] {
		if p, ok := c.positions[pid]; ok && !p.IsClosed() {
			return p, true
		}
	}
	return nil, false
}

func (c *Cache) PositionsForInstrument(id types.InstrumentID) []*position.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolvePositions(c.positionsByInstrument[id])
}

func (c *Cache) PositionsForStrategy(id types.StrategyID) []*position.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolvePositions(c.positionsByStrategy[id])
}

func (c *Cache) PositionsForVenue(v types.Venue) []*position.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resolvePositions(c.positionsByVenue[v])
}

func (c *Cache) resolvePositions(ids []types.PositionID) []*position.Position {
	out := make([]*position.Position, 0, len(ids))
	for _, id := range ids {
		if p, ok := c.positions[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// AllPositions returns every position the cache has seen, for report aggregation.
func (c *Cache) AllPositions() []*position.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*position.Position, 0, len(c.positions))
	for _, p := range c.positions {
		out = append(out, p)
	}
	return out
}
