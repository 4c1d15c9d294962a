package status

import (
	"time"

	"google.golang.org/api/calendar/v3"
)

const (
	// DefaultPendingWindow is used when a calendar does not configure one.
	DefaultPendingWindow = 15 * time.Minute
	// DefaultPrepareWindow is used when a calendar enables PREPARE without
	// configuring a window length.
	DefaultPrepareWindow = 60 * time.Minute
)

// Resolved is the outcome of resolving one calendar at a point in time.
type Resolved struct {
	Status Status
	// NextChange is the earliest strictly-future instant at which the
	// calendar's status could change. Zero when no transition is scheduled.
	NextChange time.Time
}

// ResolveCalendar scans every event on one calendar and returns the highest
// priority status plus the earliest strictly-future transition across all of
// them. Every event is considered, without early exit: a later, lower
// priority event can still own the soonest transition. Invalid and all-day
// events contribute nothing.
func ResolveCalendar(events []*calendar.Event, cfg CalendarConfig, now time.Time) Resolved {
	pending := cfg.Pending
	if pending == 0 {
		pending = DefaultPendingWindow
	}
	prepare := cfg.Prepare
	if prepare == 0 {
		prepare = DefaultPrepareWindow
	}
	_, hasPrepare := cfg.Styles[Prepare]

	out := Resolved{Status: Free}
	for _, raw := range events {
		ev, ok := parseEvent(raw)
		if !ok {
			continue
		}

		st, transition := ev.classify(now, pending, prepare, hasPrepare)

		// Strict > keeps the status already held on ties.
		if st.Priority() > out.Status.Priority() {
			out.Status = st
		}

		// Past transitions are stale; only strictly-future ones qualify.
		if !transition.IsZero() && transition.After(now) {
			if out.NextChange.IsZero() || transition.Before(out.NextChange) {
				out.NextChange = transition
			}
		}
	}

	return out
}
