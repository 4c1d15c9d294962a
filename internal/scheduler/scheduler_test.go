package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/drewfead/statusboard/internal/status"
)

type stubSource struct {
	mu       sync.Mutex
	calls    int
	statuses []status.CalendarStatus
	next     time.Time
}

func (s *stubSource) GetStatus(_ context.Context, _ bool) ([]status.CalendarStatus, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.statuses, s.next
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingSubscriber struct {
	mu        sync.Mutex
	snapshots [][]status.CalendarStatus
}

func (r *recordingSubscriber) Publish(statuses []status.CalendarStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, statuses)
}

func (r *recordingSubscriber) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestNextWake(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	s := New(&stubSource{}, Options{
		MinInterval:  time.Minute,
		PollInterval: 5 * time.Minute,
		MaxInterval:  time.Hour,
	})
	s.now = func() time.Time { return now }

	tests := []struct {
		name       string
		nextChange time.Time
		want       time.Duration
	}{
		{
			name:       "no horizon uses poll interval",
			nextChange: time.Time{},
			want:       5 * time.Minute,
		},
		{
			name:       "horizon within bounds",
			nextChange: now.Add(10 * time.Minute),
			want:       10 * time.Minute,
		},
		{
			name:       "imminent horizon floors at min interval",
			nextChange: now.Add(5 * time.Second),
			want:       time.Minute,
		},
		{
			name:       "past horizon floors at min interval",
			nextChange: now.Add(-time.Minute),
			want:       time.Minute,
		},
		{
			name:       "far horizon caps at max interval",
			nextChange: now.Add(48 * time.Hour),
			want:       time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.NextWake(tt.nextChange); got != tt.want {
				t.Errorf("NextWake(%v) = %v, want %v", tt.nextChange, got, tt.want)
			}
		})
	}
}

func TestWake_Idempotent(t *testing.T) {
	s := New(&stubSource{}, Options{})

	// A second Wake while one is pending must not block and must not queue.
	s.Wake()
	s.Wake()
	s.Wake()

	select {
	case <-s.wake:
	default:
		t.Fatal("expected one pending wake signal")
	}

	select {
	case <-s.wake:
		t.Fatal("wake signals queued; want single-slot semantics")
	default:
	}
}

func TestRun_WakeTriggersImmediateReevaluation(t *testing.T) {
	source := &stubSource{
		statuses: []status.CalendarStatus{{ID: "primary", Status: status.Free}},
		// Far-future horizon: without a wake the loop would sleep for the
		// full max interval.
		next: time.Now().Add(24 * time.Hour),
	}
	sub := &recordingSubscriber{}

	s := New(source, Options{
		MinInterval:  time.Hour,
		PollInterval: time.Hour,
		MaxInterval:  time.Hour,
	})
	s.Subscribe(sub)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Wait for the initial evaluation.
	deadline := time.Now().Add(2 * time.Second)
	for source.callCount() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for initial evaluation")
		}
		time.Sleep(time.Millisecond)
	}

	s.Wake()

	for source.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for wake-triggered evaluation")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}

	if sub.count() < 2 {
		t.Errorf("subscriber received %d snapshots, want at least 2", sub.count())
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	s := New(&stubSource{next: time.Now().Add(time.Hour)}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
