package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunEnd     EventType = "run_end"
	EventCycleStart EventType = "cycle_start"
	EventCycleEnd   EventType = "cycle_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// RunEvent marks the beginning or the end of a run.
type RunEvent struct {
	EventBase
	Settings Settings `json:"settings"`
	States   int      `json:"states"`

	// Duration and Err are only set on EventRunEnd.
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// CycleEvent marks the beginning or the end of a cycle.
type CycleEvent struct {
	EventBase
	Cycle int `json:"cycle"`

	// Mass is the total mass injected into the states (cycle start)
	// or counted in them (cycle end).
	Mass float64 `json:"mass"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously on the simulation goroutine.
type LifecycleHooks struct {
	OnRunStart   func(context.Context, *RunEvent)
	OnRunEnd     func(context.Context, *RunEvent)
	OnCycleStart func(context.Context, *CycleEvent)
	OnCycleEnd   func(context.Context, *CycleEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnRunStart:   chain(h.OnRunStart, other.OnRunStart),
		OnRunEnd:     chain(h.OnRunEnd, other.OnRunEnd),
		OnCycleStart: chain(h.OnCycleStart, other.OnCycleStart),
		OnCycleEnd:   chain(h.OnCycleEnd, other.OnCycleEnd),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
