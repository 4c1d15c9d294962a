// Package gcaltest provides a fake Google Calendar API server for testing
// the event-fetch path without credentials or network access. It implements
// the read-only subset of the Events API the status engine consumes: listing
// with time filters, start-time ordering, and pagination.
package gcaltest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Server is a fake Google Calendar API server.
type Server struct {
	*httptest.Server
	mu       sync.RWMutex
	events   map[string][]*calendar.Event // calendarID -> events
	nextID   int
	failNext int // HTTP status to fail the next list request with; 0 means none
	pageSize int // page size when the request carries no maxResults; 0 means unpaged
}

// NewServer starts a fake Google Calendar API server. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		events: make(map[string][]*calendar.Event),
		nextID: 1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRequest)

	s.Server = httptest.NewServer(mux)
	return s
}

// AddTimedEvent registers a timed event with RFC3339 start/end instants.
func (s *Server) AddTimedEvent(calendarID, summary string, start, end time.Time) *calendar.Event {
	return s.AddEvent(calendarID, &calendar.Event{
		Summary: summary,
		Start:   &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:     &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	})
}

// AddAllDayEvent registers an all-day event (date only, no dateTime).
func (s *Server) AddAllDayEvent(calendarID, summary, day string) *calendar.Event {
	return s.AddEvent(calendarID, &calendar.Event{
		Summary: summary,
		Start:   &calendar.EventDateTime{Date: day},
		End:     &calendar.EventDateTime{Date: day},
	})
}

// AddEvent registers a pre-built event, assigning an ID if absent.
func (s *Server) AddEvent(calendarID string, event *calendar.Event) *calendar.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.Id == "" {
		event.Id = fmt.Sprintf("event%d", s.nextID)
		s.nextID++
	}
	event.Status = "confirmed"

	s.events[calendarID] = append(s.events[calendarID], event)
	return event
}

// Reset clears all events from the server.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]*calendar.Event)
	s.nextID = 1
}

// FailNext makes the next list request fail with the given HTTP status.
func (s *Server) FailNext(statusCode int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = statusCode
}

// SetPageSize forces list responses to page at n items even when the request
// carries no maxResults, so clients' pagination loops can be exercised.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// handleRequest routes GET /calendar/v3/calendars/{calendarId}/events.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	idx := strings.Index(path, "/calendars/")
	if idx == -1 {
		http.Error(w, "unsupported endpoint", http.StatusNotFound)
		return
	}

	parts := strings.Split(strings.Trim(path[idx+len("/calendars/"):], "/"), "/")
	if len(parts) != 2 || parts[1] != "events" {
		http.Error(w, "unsupported resource", http.StatusNotImplemented)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.listEvents(w, r, parts[0])
}

// listEvents handles GET /calendars/{calendarId}/events with timeMin/timeMax
// filtering, startTime ordering, and index-based page tokens.
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, calendarID string) {
	s.mu.Lock()
	if s.failNext != 0 {
		code := s.failNext
		s.failNext = 0
		s.mu.Unlock()
		http.Error(w, "injected failure", code)
		return
	}
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := r.URL.Query()
	timeMin := parseFilterTime(query.Get("timeMin"))
	timeMax := parseFilterTime(query.Get("timeMax"))
	maxResults := query.Get("maxResults")
	pageToken := query.Get("pageToken")

	var events []*calendar.Event
	for _, evt := range s.events[calendarID] {
		// All-day events carry no dateTime and pass the instant filters
		// unfiltered, like the real API's date handling at this granularity.
		start, timed := eventStartTime(evt)
		if timed {
			if !timeMin.IsZero() && start.Before(timeMin) {
				continue
			}
			if !timeMax.IsZero() && start.After(timeMax) {
				continue
			}
		}
		events = append(events, evt)
	}

	if query.Get("orderBy") == "startTime" && query.Get("singleEvents") == "true" {
		sort.Slice(events, func(i, j int) bool {
			ti, iok := eventStartTime(events[i])
			tj, jok := eventStartTime(events[j])
			if iok && jok {
				return ti.Before(tj)
			}
			return eventStartKey(events[i]) < eventStartKey(events[j])
		})
	}

	startIdx := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "%d", &startIdx)
	}
	pageSize := len(events)
	if s.pageSize > 0 {
		pageSize = s.pageSize
	}
	if maxResults != "" {
		fmt.Sscanf(maxResults, "%d", &pageSize)
	}

	endIdx := startIdx + pageSize
	if endIdx > len(events) {
		endIdx = len(events)
	}

	resp := &calendar.Events{
		Kind:    "calendar#events",
		Summary: calendarID,
		Items:   events[startIdx:endIdx],
	}
	if endIdx < len(events) {
		resp.NextPageToken = fmt.Sprintf("%d", endIdx)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// eventStartTime reports the start instant of a timed event. Comparing
// parsed instants keeps filtering and ordering correct across mixed UTC
// offsets, where the RFC3339 strings do not sort lexically.
func eventStartTime(evt *calendar.Event) (time.Time, bool) {
	if evt.Start == nil || evt.Start.DateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, evt.Start.DateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseFilterTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func eventStartKey(evt *calendar.Event) string {
	if evt.Start == nil {
		return ""
	}
	if evt.Start.DateTime != "" {
		return evt.Start.DateTime
	}
	return evt.Start.Date
}
