// Package scheduler runs the background loop that re-evaluates calendar
// status at the right moments: it sleeps until the cache's validity horizon,
// supports being woken early by a manual refresh signal, and pushes every
// snapshot to its subscribers.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/drewfead/statusboard/internal/status"
)

const (
	// DefaultMinInterval floors the sleep so a transition in the immediate
	// past (or very near future) cannot spin the loop.
	DefaultMinInterval = time.Minute
	// DefaultPollInterval applies when no transition horizon is known.
	DefaultPollInterval = 5 * time.Minute
	// DefaultMaxInterval caps the sleep so the loop periodically re-checks
	// even when a far-future horizon was cached.
	DefaultMaxInterval = time.Hour
)

// Source produces status snapshots on demand. *status.Manager satisfies it.
type Source interface {
	GetStatus(ctx context.Context, forceFetch bool) ([]status.CalendarStatus, time.Time)
}

// Subscriber receives every snapshot the scheduler produces.
type Subscriber interface {
	Publish(statuses []status.CalendarStatus)
}

// Options tunes a Scheduler. Zero values fall back to defaults.
type Options struct {
	MinInterval  time.Duration
	PollInterval time.Duration
	MaxInterval  time.Duration
	Logger       *slog.Logger
}

// Scheduler drives periodic status re-evaluation. It holds no lock of its
// own over cache state; the Source owns its locking internally, so the
// scheduler only ever blocks on its own timed wait.
type Scheduler struct {
	source Source
	logger *slog.Logger

	min  time.Duration
	poll time.Duration
	max  time.Duration

	now func() time.Time

	// wake is a single-slot signal: setting it while already set is a no-op,
	// so rapid manual refreshes collapse into one early wake.
	wake chan struct{}

	mu   sync.Mutex
	subs []Subscriber
}

// New creates a Scheduler over the given snapshot source.
func New(source Source, opts Options) *Scheduler {
	if opts.MinInterval == 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxInterval == 0 {
		opts.MaxInterval = DefaultMaxInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Scheduler{
		source: source,
		logger: opts.Logger,
		min:    opts.MinInterval,
		poll:   opts.PollInterval,
		max:    opts.MaxInterval,
		now:    time.Now,
		wake:   make(chan struct{}, 1),
	}
}

// Subscribe registers a subscriber for future snapshots.
func (s *Scheduler) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
}

// Wake requests an early re-evaluation. It never blocks; signaling while a
// wake is already pending is a no-op.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// NextWake reports how long to sleep before the next mandatory
// re-evaluation, given the cache's next-change horizon (zero when unknown).
func (s *Scheduler) NextWake(nextChange time.Time) time.Duration {
	if nextChange.IsZero() {
		return s.poll
	}

	d := nextChange.Sub(s.now())
	if d < s.min {
		return s.min
	}
	if d > s.max {
		return s.max
	}
	return d
}

// Run evaluates status in a loop until ctx is canceled. Each iteration calls
// GetStatus without forcing a fetch (the cache decides whether a provider
// refresh is due), publishes the snapshot, then sleeps until the next
// expected transition or an early wake signal.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		statuses, next := s.source.GetStatus(ctx, false)
		s.publish(statuses)

		d := s.NextWake(next)
		s.logger.Debug("scheduler sleeping", "duration", d, "next_change", next)

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			// Receiving clears the signal; proceed straight to
			// re-evaluation.
			timer.Stop()
			s.logger.Info("scheduler woken early by refresh signal")
		case <-timer.C:
		}
	}
}

func (s *Scheduler) publish(statuses []status.CalendarStatus) {
	s.mu.Lock()
	subs := make([]Subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Publish(statuses)
	}
}
