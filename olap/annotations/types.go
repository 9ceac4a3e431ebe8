// Package annotations records what the compiler did while building a
// program: which tables were planned, which rules were emitted, and any
// warnings worth surfacing to the request author.
package annotations

import (
	"sync"
	"time"
)

// Event names, grouped by area
const (
	// Compile lifecycle
	CompileInvoked  = "compile/invoked"
	CompileComplete = "compile/completed"

	// Planning
	DependenciesBuilt = "schema/dependencies.built"
	TablesResolved    = "plan/tables.resolved"

	// Rule generation
	RuleEmitted = "rule/emitted"
	TableBuilt  = "worklist/table.built"

	// Warnings
	WarningDimensionUnbound = "warning/dimension.unbound"

	// Errors
	ErrorCompile = "error/compile"
)

// Event is a single annotation recorded during compilation
type Event struct {
	Name    string
	Start   time.Time
	End     time.Time
	Latency time.Duration
	Data    map[string]interface{}
}

// Handler processes events as they occur
type Handler func(event Event)

// Collector accumulates events. A nil handler disables collection.
type Collector struct {
	enabled bool
	handler Handler
	events  []Event
	mu      sync.Mutex
}

// NewCollector creates a collector that forwards each event to handler
func NewCollector(handler Handler) *Collector {
	return &Collector{
		enabled: handler != nil,
		handler: handler,
		events:  make([]Event, 0, 16),
	}
}

// Enabled reports whether events are being recorded
func (c *Collector) Enabled() bool {
	return c != nil && c.enabled
}

// Add records an event and passes it to the handler
func (c *Collector) Add(event Event) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Handler runs outside the lock so it may call back into the collector
	c.handler(event)
}

// AddTiming records an event that started at start and ends now
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	if !c.Enabled() {
		return
	}
	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns a copy of all collected events
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Named returns the collected events with the given name
func (c *Collector) Named(name string) []Event {
	var out []Event
	for _, e := range c.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears collected events, keeping the handler
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
