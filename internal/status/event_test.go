package status

import (
	"testing"
	"time"

	"google.golang.org/api/calendar/v3"
)

func timedEvent(start, end time.Time) *calendar.Event {
	return &calendar.Event{
		Start: &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:   &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
}

func allDayEvent(day string) *calendar.Event {
	return &calendar.Event{
		Start: &calendar.EventDateTime{Date: day},
		End:   &calendar.EventDateTime{Date: day},
	}
}

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name   string
		event  *calendar.Event
		wantOK bool
	}{
		{
			name:   "timed event",
			event:  timedEvent(time.Now(), time.Now().Add(time.Hour)),
			wantOK: true,
		},
		{
			name:   "all-day event",
			event:  allDayEvent("2026-03-14"),
			wantOK: false,
		},
		{
			name:   "nil event",
			event:  nil,
			wantOK: false,
		},
		{
			name:   "missing start",
			event:  &calendar.Event{End: &calendar.EventDateTime{DateTime: "2026-03-14T12:00:00Z"}},
			wantOK: false,
		},
		{
			name: "malformed timestamp",
			event: &calendar.Event{
				Start: &calendar.EventDateTime{DateTime: "not-a-time"},
				End:   &calendar.EventDateTime{DateTime: "2026-03-14T12:00:00Z"},
			},
			wantOK: false,
		},
		{
			name: "end missing dateTime",
			event: &calendar.Event{
				Start: &calendar.EventDateTime{DateTime: "2026-03-14T12:00:00Z"},
				End:   &calendar.EventDateTime{Date: "2026-03-14"},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseEvent(tt.event)
			if ok != tt.wantOK {
				t.Errorf("parseEvent() ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestParseEvent_NormalizesToUTC(t *testing.T) {
	ev := &calendar.Event{
		Start: &calendar.EventDateTime{DateTime: "2026-03-14T13:00:00+01:00"},
		End:   &calendar.EventDateTime{DateTime: "2026-03-14T14:00:00+01:00"},
	}

	parsed, ok := parseEvent(ev)
	if !ok {
		t.Fatal("parseEvent() ok = false, want true")
	}

	wantStart := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if !parsed.start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", parsed.start, wantStart)
	}
	if parsed.start.Location() != time.UTC {
		t.Errorf("start location = %v, want UTC", parsed.start.Location())
	}
}

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	pending := 15 * time.Minute
	prepare := 60 * time.Minute

	tests := []struct {
		name           string
		start, end     time.Time
		hasPrepare     bool
		wantStatus     Status
		wantTransition time.Time
	}{
		{
			name:           "ongoing event is busy",
			start:          now.Add(-30 * time.Minute),
			end:            now.Add(30 * time.Minute),
			wantStatus:     Busy,
			wantTransition: now.Add(30 * time.Minute).Add(time.Nanosecond),
		},
		{
			name:           "event starting exactly now is busy",
			start:          now,
			end:            now.Add(time.Hour),
			wantStatus:     Busy,
			wantTransition: now.Add(time.Hour).Add(time.Nanosecond),
		},
		{
			name:           "event ending exactly now is over",
			start:          now.Add(-time.Hour),
			end:            now,
			wantStatus:     Free,
			wantTransition: time.Time{},
		},
		{
			name:           "inside pending window",
			start:          now.Add(10 * time.Minute),
			end:            now.Add(time.Hour),
			wantStatus:     Pending,
			wantTransition: now.Add(10 * time.Minute),
		},
		{
			name:           "pending window opens exactly now",
			start:          now.Add(15 * time.Minute),
			end:            now.Add(time.Hour),
			wantStatus:     Pending,
			wantTransition: now.Add(15 * time.Minute),
		},
		{
			name:           "inside prepare window",
			start:          now.Add(45 * time.Minute),
			end:            now.Add(2 * time.Hour),
			hasPrepare:     true,
			wantStatus:     Prepare,
			wantTransition: now.Add(30 * time.Minute),
		},
		{
			name:           "future event waiting for prepare window",
			start:          now.Add(2 * time.Hour),
			end:            now.Add(3 * time.Hour),
			hasPrepare:     true,
			wantStatus:     Free,
			wantTransition: now.Add(time.Hour),
		},
		{
			name:           "future event waiting for pending window",
			start:          now.Add(45 * time.Minute),
			end:            now.Add(2 * time.Hour),
			wantStatus:     Free,
			wantTransition: now.Add(30 * time.Minute),
		},
		{
			name:           "past event has no transition",
			start:          now.Add(-2 * time.Hour),
			end:            now.Add(-time.Hour),
			wantStatus:     Free,
			wantTransition: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := parsedEvent{start: tt.start, end: tt.end}
			st, transition := ev.classify(now, pending, prepare, tt.hasPrepare)

			if st != tt.wantStatus {
				t.Errorf("status = %s, want %s", st, tt.wantStatus)
			}
			if !transition.Equal(tt.wantTransition) {
				t.Errorf("transition = %v, want %v", transition, tt.wantTransition)
			}
		})
	}
}

// A prepare window that is not strictly longer than the pending window must
// behave as if PREPARE were disabled.
func TestClassify_PrepareNotLongerThanPending(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	ev := parsedEvent{start: now.Add(45 * time.Minute), end: now.Add(2 * time.Hour)}

	st, transition := ev.classify(now, 15*time.Minute, 15*time.Minute, true)

	if st != Free {
		t.Errorf("status = %s, want %s", st, Free)
	}
	if want := now.Add(30 * time.Minute); !transition.Equal(want) {
		t.Errorf("transition = %v, want %v", transition, want)
	}
}
