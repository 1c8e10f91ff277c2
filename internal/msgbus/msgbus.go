// Package msgbus is the engine's synchronous in-process message bus: topic
// pub/sub for events and market data, plus point-to-point endpoints. Per
// spec.md §9's design note against a single "any" payload on the hot path,
// handlers are typed per concern (events vs. market data) rather than
// generic interface{} callbacks.
package msgbus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/duskquant/backtrace/pkg/types"
)

// EventHandler receives a published domain event.
type EventHandler func(types.Event)

// DataHandler receives a published market-data record.
type DataHandler func(types.MarketData)

// Bus is a thin map of topic to subscriber list. Handlers execute inline in
// publisher order; publish is synchronous, so a strategy handler runs
// before control returns to the publisher (spec.md §5).
type Bus struct {
	mu sync.Mutex

	eventSubs map[string][]EventHandler
	dataSubs  map[string][]DataHandler
	endpoints map[string]EventHandler
}

func New() *Bus {
	return &Bus{
		eventSubs: make(map[string][]EventHandler),
		dataSubs:  make(map[string][]DataHandler),
		endpoints: make(map[string]EventHandler),
	}
}

// SubscribeEvents registers handler for topic, deduplicating by function
// identity so repeated subscriptions are no-ops.
func (b *Bus) SubscribeEvents(topic string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := handlerKey(handler)
	for _, h := range b.eventSubs[topic] {
		if handlerKey(h) == key {
			return
		}
	}
	b.eventSubs[topic] = append(b.eventSubs[topic], handler)
}

// SubscribeData registers handler for topic, deduplicated the same way.
func (b *Bus) SubscribeData(topic string, handler DataHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := handlerKey(handler)
	for _, h := range b.dataSubs[topic] {
		if handlerKey(h) == key {
			return
		}
	}
	b.dataSubs[topic] = append(b.dataSubs[topic], handler)
}

// UnsubscribeEvents removes every registration of handler on topic.
func (b *Bus) UnsubscribeEvents(topic string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := handlerKey(handler)
	kept := b.eventSubs[topic][:0]
	for _, h := range b.eventSubs[topic] {
		if handlerKey(h) != key {
			kept = append(kept, h)
		}
	}
	b.eventSubs[topic] = kept
}

// PublishEvent delivers msg to every subscriber of topic, in subscription
// order, inline on the caller's goroutine.
func (b *Bus) PublishEvent(topic string, msg types.Event) {
	b.mu.Lock()
	handlers := append([]EventHandler(nil), b.eventSubs[topic]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

// PublishData delivers msg to every subscriber of topic, in subscription
// order, inline on the caller's goroutine.
func (b *Bus) PublishData(topic string, msg types.MarketData) {
	b.mu.Lock()
	handlers := append([]DataHandler(nil), b.dataSubs[topic]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

// Register installs a point-to-point endpoint. Registering twice under the
// same name replaces the previous handler.
func (b *Bus) Register(name string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[name] = handler
}

// Send delivers msg to the named endpoint, returning an error if none is registered.
func (b *Bus) Send(name string, msg types.Event) error {
	b.mu.Lock()
	handler, ok := b.endpoints[name]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("msgbus: no endpoint registered for %q", name)
	}
	handler(msg)
	return nil
}

func handlerKey(h interface{}) uintptr {
	return reflect.ValueOf(h).Pointer()
}

// Topic helpers — build the canonical topic strings used throughout the
// engine (spec.md §4.6).
func BarTopic(barType string) string            { return "data.bars." + barType }
func QuoteTopic(instrumentID string) string      { return "data.quotes." + instrumentID }
func TradeTopic(instrumentID string) string      { return "data.trades." + instrumentID }
func OrderEventsTopic(strategyID string) string  { return "events.order." + strategyID }
func PositionEventsTopic(strategyID string) string { return "events.position." + strategyID }
