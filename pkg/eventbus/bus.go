// Package eventbus provides a synchronous, typed publish/subscribe dispatcher.
//
// Delivery runs every subscriber of an event's kind, in subscription order,
// before Publish returns. A subscriber that panics is logged and skipped so
// the remaining subscribers still receive the event. No ordering is promised
// across different kinds.
package eventbus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind names an event type.
type Kind string

// Event is implemented by every payload carried on the bus.
type Event interface {
	Kind() Kind
}

type subscriber struct {
	id uint64
	fn func(Event)
}

// Bus dispatches events to subscribers registered per kind.
type Bus struct {
	logger *zap.Logger

	mu     sync.Mutex
	nextID uint64
	byKind map[Kind][]subscriber
	all    []subscriber
}

// Subscription is returned from Subscribe and can be used to stop delivery.
type Subscription struct {
	bus  *Bus
	kind Kind
	id   uint64
	all  bool
}

// New creates an empty bus.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger: logger,
		byKind: make(map[Kind][]subscriber),
	}
}

// Subscribe registers fn for events of the same kind as T. The kind is read
// from the zero value of T, so T must report a constant kind.
func Subscribe[T Event](b *Bus, fn func(T)) Subscription {
	var zero T
	kind := zero.Kind()
	return b.subscribe(kind, func(ev Event) {
		typed, ok := ev.(T)
		if !ok {
			b.logger.Warn("event payload does not match subscriber type",
				zap.String("op", "eventbus.Subscribe"),
				zap.String("kind", string(kind)),
				zap.String("payload", fmt.Sprintf("%T", ev)),
			)
			return
		}
		fn(typed)
	})
}

// SubscribeKind registers an untyped subscriber for one kind.
func (b *Bus) SubscribeKind(kind Kind, fn func(Event)) Subscription {
	return b.subscribe(kind, fn)
}

// SubscribeAll registers fn for every event. Catch-all subscribers run after
// the kind-specific ones.
func (b *Bus) SubscribeAll(fn func(Event)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.all = append(b.all, subscriber{id: b.nextID, fn: fn})
	return Subscription{bus: b, id: b.nextID, all: true}
}

func (b *Bus) subscribe(kind Kind, fn func(Event)) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.byKind[kind] = append(b.byKind[kind], subscriber{id: b.nextID, fn: fn})
	return Subscription{bus: b, kind: kind, id: b.nextID}
}

// Unsubscribe stops delivery to the subscription. It is safe to call more
// than once.
func (s Subscription) Unsubscribe() {
	if s.bus == nil {
		return
	}
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.all {
		b.all = remove(b.all, s.id)
		return
	}
	b.byKind[s.kind] = remove(b.byKind[s.kind], s.id)
}

func remove(subs []subscriber, id uint64) []subscriber {
	out := subs[:0:0]
	for _, sub := range subs {
		if sub.id != id {
			out = append(out, sub)
		}
	}
	return out
}

// Publish delivers ev synchronously. Subscriptions added during delivery do
// not receive the in-flight event.
func (b *Bus) Publish(ev Event) {
	if ev == nil {
		return
	}
	kind := ev.Kind()

	b.mu.Lock()
	targets := make([]subscriber, 0, len(b.byKind[kind])+len(b.all))
	targets = append(targets, b.byKind[kind]...)
	targets = append(targets, b.all...)
	b.mu.Unlock()

	for _, sub := range targets {
		b.deliver(kind, sub, ev)
	}
}

func (b *Bus) deliver(kind Kind, sub subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				zap.String("op", "eventbus.Publish"),
				zap.String("kind", string(kind)),
				zap.Any("panic", r),
			)
		}
	}()
	sub.fn(ev)
}

// Subscribers reports how many subscribers are registered for kind.
func (b *Bus) Subscribers(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byKind[kind])
}
