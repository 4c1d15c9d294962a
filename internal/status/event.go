package status

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

// parsedEvent is a timed provider event normalized to UTC for comparison.
type parsedEvent struct {
	start time.Time
	end   time.Time
}

// parseEvent extracts the start and end instants from a provider event.
// All-day events carry only Date (no DateTime) and report ok=false, as do
// events with missing or malformed timestamps; the aggregator skips them
// silently rather than failing the whole calendar.
func parseEvent(ev *calendar.Event) (parsedEvent, bool) {
	if ev == nil || ev.Start == nil || ev.End == nil {
		return parsedEvent{}, false
	}
	if ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return parsedEvent{}, false
	}

	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return parsedEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return parsedEvent{}, false
	}

	return parsedEvent{start: start.UTC(), end: end.UTC()}, true
}

// classify determines the status this event contributes at the fixed instant
// now, and the instant at which that contribution next changes. A zero
// transition time means the event produces no future transition. The cases
// are evaluated in strict priority order; the first match wins.
func (e parsedEvent) classify(now time.Time, pending, prepare time.Duration, hasPrepare bool) (Status, time.Time) {
	prepareActive := hasPrepare && prepare > pending

	switch {
	// Ongoing: start <= now < end. The nanosecond nudge past the end makes
	// the next evaluation observe the event as over instead of re-resolving
	// the boundary instant as still busy.
	case !e.start.After(now) && now.Before(e.end):
		return Busy, e.end.Add(time.Nanosecond)

	// Inside the short pre-window: start-pending <= now < start.
	case !e.start.Add(-pending).After(now) && now.Before(e.start):
		return Pending, e.start

	// Inside the long pre-window but before the short one.
	case prepareActive && !e.start.Add(-prepare).After(now) && now.Before(e.start.Add(-pending)):
		return Prepare, e.start.Add(-pending)

	// Future event, waiting for the prepare window to open.
	case prepareActive && now.Before(e.start):
		return Free, e.start.Add(-prepare)

	// Future event, waiting for the pending window to open.
	case now.Before(e.start):
		return Free, e.start.Add(-pending)
	}

	// Entirely in the past: no future transition from this event.
	return Free, time.Time{}
}
