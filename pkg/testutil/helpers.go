// Package testutil provides common utility functions for testing.
package testutil

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/iwvelando/boom-bust/internal/economy"
	"github.com/iwvelando/boom-bust/pkg/eventbus"
)

// Logger returns a logger that writes through t.Log at debug level.
func Logger(t testing.TB) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel))
}

// FindTrip finds the n-th trip (1-based) taken in phase.
// Returns nil if there is no such trip.
func FindTrip(trips []economy.TripResult, phase string, n int) *economy.TripResult {
	seen := 0
	for i := range trips {
		if trips[i].Phase != phase {
			continue
		}
		seen++
		if seen == n {
			return &trips[i]
		}
	}
	return nil
}

// Recorder captures every event published on a bus.
type Recorder struct {
	Events []eventbus.Event
}

// Record subscribes a new recorder to every event on bus.
func Record(bus *eventbus.Bus) *Recorder {
	r := &Recorder{}
	bus.SubscribeAll(func(ev eventbus.Event) { r.Events = append(r.Events, ev) })
	return r
}

// Count reports how many recorded events have the given kind.
func (r *Recorder) Count(kind eventbus.Kind) int {
	n := 0
	for _, ev := range r.Events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

// Kinds lists the recorded kinds in order.
func (r *Recorder) Kinds() []eventbus.Kind {
	kinds := make([]eventbus.Kind, len(r.Events))
	for i, ev := range r.Events {
		kinds[i] = ev.Kind()
	}
	return kinds
}

// Reset forgets every recorded event.
func (r *Recorder) Reset() {
	r.Events = nil
}
