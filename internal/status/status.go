// Package status resolves the availability of tracked calendars: it
// classifies individual provider events against the current time, aggregates
// them into a per-calendar status, and memoizes the result until the next
// expected transition.
package status

import "time"

// Status is the resolved availability state of a calendar.
type Status string

const (
	Free    Status = "FREE"
	Prepare Status = "PREPARE"
	Pending Status = "PENDING"
	Busy    Status = "BUSY"
	Error   Status = "ERROR"
)

// Priority orders statuses for aggregation: BUSY beats PENDING beats PREPARE
// beats FREE. ERROR sits outside the ordering and never competes; it is only
// a display fallback.
func (s Status) Priority() int {
	switch s {
	case Busy:
		return 3
	case Pending:
		return 2
	case Prepare:
		return 1
	case Free:
		return 0
	default:
		return -1
	}
}

// Style is how one status renders on the dashboard.
type Style struct {
	Class string
	Text  string
}

// CalendarConfig carries the per-calendar settings the resolver needs.
type CalendarConfig struct {
	// ID identifies the calendar within this process (cache key, JSON id).
	ID string
	// ProviderID is the calendar identifier at the provider (e.g. "primary"
	// or a group calendar address).
	ProviderID string
	// Name is the human-readable label shown on the dashboard.
	Name string

	// Pending is the short lookahead window before an event's start during
	// which the calendar reads PENDING. Zero means DefaultPendingWindow.
	Pending time.Duration
	// Prepare is the longer, optional lookahead window preceding the pending
	// window. It only takes effect when the calendar's Styles map contains
	// the PREPARE status and the window is strictly longer than Pending.
	// Zero means DefaultPrepareWindow.
	Prepare time.Duration

	// Styles maps each status to its display class and text. Presence of the
	// PREPARE key is what enables the prepare window.
	Styles map[Status]Style
}

// CalendarStatus is one calendar's entry in a resolved snapshot.
type CalendarStatus struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       Status `json:"status"`
	DisplayClass string `json:"css_class"`
	DisplayText  string `json:"display_text"`
}
