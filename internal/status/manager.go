package status

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"
)

const (
	// DefaultMaxFetchInterval bounds how stale the raw event cache may get
	// before a read triggers a provider refresh.
	DefaultMaxFetchInterval = 12 * time.Hour

	// DefaultFetchBack and DefaultFetchAhead define the event window
	// requested from the provider on each refresh.
	DefaultFetchBack  = 4 * time.Hour
	DefaultFetchAhead = 48 * time.Hour

	// longHorizon keeps the computed cache finite when no calendar has a
	// pending transition, so the validity check never degenerates into
	// always-recompute.
	longHorizon = 365 * 24 * time.Hour
)

// Fetcher retrieves the raw events for one provider calendar over a window.
// A Fetcher error covers the whole calendar; there is no partial success.
type Fetcher interface {
	FetchEvents(ctx context.Context, calendarID string, from, to time.Time) ([]*calendar.Event, error)
}

// ManagerOptions tunes a Manager. Zero values fall back to defaults.
type ManagerOptions struct {
	MaxFetchInterval time.Duration
	FetchBack        time.Duration
	FetchAhead       time.Duration
	Logger           *slog.Logger
}

// Manager owns the two cache layers behind GetStatus: the raw per-calendar
// event lists with their shared refresh timestamp, and the memoized computed
// snapshot with its validity horizon. A single mutex guards both layers so a
// reader never observes a half-updated raw cache paired with a stale
// computed result, and concurrent callers collapse onto one fetch/recompute.
type Manager struct {
	fetcher    Fetcher
	configs    []CalendarConfig
	maxFetch   time.Duration
	fetchBack  time.Duration
	fetchAhead time.Duration
	logger     *slog.Logger

	now func() time.Time

	mu            sync.Mutex
	events        map[string][]*calendar.Event
	lastRefreshed time.Time
	computed      computed
}

type computed struct {
	statuses   []CalendarStatus
	nextChange time.Time
	validUntil time.Time
}

// NewManager creates a Manager over the given provider fetcher and calendar
// configurations.
func NewManager(fetcher Fetcher, configs []CalendarConfig, opts ManagerOptions) *Manager {
	if opts.MaxFetchInterval == 0 {
		opts.MaxFetchInterval = DefaultMaxFetchInterval
	}
	if opts.FetchBack == 0 {
		opts.FetchBack = DefaultFetchBack
	}
	if opts.FetchAhead == 0 {
		opts.FetchAhead = DefaultFetchAhead
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Manager{
		fetcher:    fetcher,
		configs:    configs,
		maxFetch:   opts.MaxFetchInterval,
		fetchBack:  opts.FetchBack,
		fetchAhead: opts.FetchAhead,
		logger:     opts.Logger,
		now:        time.Now,
		events:     make(map[string][]*calendar.Event),
	}
}

// GetStatus returns the current status of every configured calendar and the
// instant the result is next expected to change (zero when none is known).
// forceFetch bypasses the raw-cache staleness check. A provider failure is
// logged and swallowed; the previous raw cache keeps serving, so GetStatus
// always returns a value.
func (m *Manager) GetStatus(ctx context.Context, forceFetch bool) ([]CalendarStatus, time.Time) {
	now := m.now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	if forceFetch || now.Sub(m.lastRefreshed) > m.maxFetch {
		m.refreshLocked(ctx, now)
	}

	if now.Before(m.computed.validUntil) {
		return slices.Clone(m.computed.statuses), m.computed.nextChange
	}

	return m.recomputeLocked(now)
}

// refreshLocked replaces every calendar's raw event list in one step. The
// first calendar that fails aborts the whole cycle so the cache never mixes
// fresh and stale lists within one computed pass.
func (m *Manager) refreshLocked(ctx context.Context, now time.Time) {
	from := now.Add(-m.fetchBack)
	to := now.Add(m.fetchAhead)

	fresh := make(map[string][]*calendar.Event, len(m.configs))
	for _, cfg := range m.configs {
		events, err := m.fetcher.FetchEvents(ctx, cfg.ProviderID, from, to)
		if err != nil {
			m.logger.Error("calendar fetch failed, serving cached events",
				"calendar", cfg.ID, "error", err)
			return
		}
		fresh[cfg.ID] = events
	}

	m.events = fresh
	m.lastRefreshed = now
	// Fresh raw data must never be paired with a stale-but-unexpired
	// computed result.
	m.computed.validUntil = time.Time{}

	m.logger.Info("event cache refreshed", "calendars", len(fresh))
}

func (m *Manager) recomputeLocked(now time.Time) ([]CalendarStatus, time.Time) {
	statuses := make([]CalendarStatus, 0, len(m.configs))
	var nextChange time.Time

	for _, cfg := range m.configs {
		res := ResolveCalendar(m.events[cfg.ID], cfg, now)

		if !res.NextChange.IsZero() &&
			(nextChange.IsZero() || res.NextChange.Before(nextChange)) {
			nextChange = res.NextChange
		}

		style, ok := cfg.Styles[res.Status]
		if !ok {
			style = cfg.Styles[Error]
		}
		statuses = append(statuses, CalendarStatus{
			ID:           cfg.ID,
			Name:         cfg.Name,
			Status:       res.Status,
			DisplayClass: style.Class,
			DisplayText:  style.Text,
		})
	}

	validUntil := nextChange
	if validUntil.IsZero() {
		validUntil = now.Add(longHorizon)
	}
	m.computed = computed{
		statuses:   statuses,
		nextChange: nextChange,
		validUntil: validUntil,
	}

	return slices.Clone(statuses), nextChange
}
