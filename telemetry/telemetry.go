// Package telemetry provides hierarchical timing collection for program
// runs. It tracks operation durations in a tree so a run can be broken down
// into parsing, rows, statements and schedule builds.
//
// Collectors and the current parent timer travel through context, so
// instrumented code never changes signature:
//
//	collector := telemetry.NewTimingCollector()
//	ctx := telemetry.WithCollector(context.Background(), collector)
//
//	timer := telemetry.StartTimer(ctx, "program.run")
//	ctx = telemetry.WithTimer(ctx, timer)
//	// ... nested StartTimer calls become children of timer ...
//	timer.End()
//
//	collector.Report(os.Stderr)
package telemetry

import (
	"context"
	"io"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey int

const (
	collectorKey contextKey = iota
	timerKey
)

// Collector is the main interface for collecting telemetry data.
type Collector interface {
	// Start begins timing a top-level operation and returns a Timer.
	// The timer should be ended with End() when the operation completes.
	Start(name string) Timer

	// Report outputs the collected telemetry to a writer.
	Report(w io.Writer)
}

// Timer tracks a single operation's timing.
// Timers support hierarchical nesting via Child().
type Timer interface {
	// End stops the timer and records the duration.
	End()

	// Child creates a nested timer under this timer.
	Child(name string) Timer
}

// WithCollector adds a collector to a context.
// The collector can be retrieved later with FromContext.
func WithCollector(ctx context.Context, collector Collector) context.Context {
	return context.WithValue(ctx, collectorKey, collector)
}

// FromContext extracts the collector from context.
// If no collector is present, returns a collector that does nothing.
func FromContext(ctx context.Context) Collector {
	if collector, ok := ctx.Value(collectorKey).(Collector); ok {
		return collector
	}
	return discard{}
}

// WithTimer makes timer the parent of timers started from the returned
// context.
func WithTimer(ctx context.Context, timer Timer) context.Context {
	return context.WithValue(ctx, timerKey, timer)
}

// StartTimer starts a timer nested under the context's current timer, or a
// top-level timer on the context's collector when there is none.
func StartTimer(ctx context.Context, name string) Timer {
	if parent, ok := ctx.Value(timerKey).(Timer); ok {
		return parent.Child(name)
	}
	return FromContext(ctx).Start(name)
}

// discard is both the collector and the timer used when telemetry is off.
type discard struct{}

func (discard) Start(string) Timer { return discard{} }
func (discard) Report(io.Writer)   {}
func (discard) End()               {}
func (discard) Child(string) Timer { return discard{} }
