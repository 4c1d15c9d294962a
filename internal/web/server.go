// Package web serves the status dashboard: a JSON API, a websocket push
// channel, a rate-limited manual-refresh trigger, and the embedded static
// page.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/drewfead/statusboard/internal/status"
)

// DefaultRefreshCooldown rate-limits the manual refresh endpoint.
const DefaultRefreshCooldown = 30 * time.Second

//go:embed static
var embeddedStatic embed.FS

// StatusSource produces status snapshots on demand. *status.Manager
// satisfies it.
type StatusSource interface {
	GetStatus(ctx context.Context, forceFetch bool) ([]status.CalendarStatus, time.Time)
}

// Waker lets the manual-refresh handler signal the background scheduler.
// *scheduler.Scheduler satisfies it.
type Waker interface {
	Wake()
}

// Snapshot is the dashboard payload sent over /api/status and the websocket.
type Snapshot struct {
	CalendarStatuses []status.CalendarStatus `json:"calendar_statuses"`
	GameStatus       map[string]string       `json:"game_status"`
	NextChange       *time.Time              `json:"next_change,omitempty"`
}

// Options tunes a Server. Zero values fall back to defaults.
type Options struct {
	RefreshCooldown time.Duration
	Logger          *slog.Logger
}

// Server is the dashboard HTTP server. It implements scheduler.Subscriber so
// every background evaluation is pushed to connected websocket clients.
type Server struct {
	source   StatusSource
	waker    Waker
	cooldown time.Duration
	logger   *slog.Logger
	mux      *http.ServeMux
	hub      *hub
	upgrader websocket.Upgrader

	now func() time.Time

	gameMu sync.RWMutex
	game   map[string]string

	refreshMu         sync.Mutex
	lastManualRefresh time.Time
}

// NewServer constructs a Server over the given snapshot source and scheduler
// wake signal.
func NewServer(source StatusSource, waker Waker, opts Options) *Server {
	if opts.RefreshCooldown == 0 {
		opts.RefreshCooldown = DefaultRefreshCooldown
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		source:   source,
		waker:    waker,
		cooldown: opts.RefreshCooldown,
		logger:   opts.Logger,
		mux:      http.NewServeMux(),
		hub:      newHub(),
		upgrader: websocket.Upgrader{
			// The dashboard is served same-host; the push channel carries
			// nothing a plain GET on /api/status would not.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now:  time.Now,
		game: map[string]string{},
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Publish implements scheduler.Subscriber: every snapshot the scheduler
// produces is pushed to connected websocket clients.
func (s *Server) Publish(statuses []status.CalendarStatus) {
	s.hub.broadcast(Snapshot{
		CalendarStatuses: statuses,
		GameStatus:       s.gameStatus(),
	})
}

// SetGameStatus replaces the displayed game-server status and pushes the
// update to connected clients.
func (s *Server) SetGameStatus(ctx context.Context, realms map[string]string) {
	s.gameMu.Lock()
	s.game = realms
	s.gameMu.Unlock()

	s.hub.broadcast(s.snapshot(ctx))
}

func (s *Server) gameStatus() map[string]string {
	s.gameMu.RLock()
	defer s.gameMu.RUnlock()

	out := make(map[string]string, len(s.game))
	for k, v := range s.game {
		out[k] = v
	}
	return out
}

func (s *Server) snapshot(ctx context.Context) Snapshot {
	statuses, next := s.source.GetStatus(ctx, false)

	snap := Snapshot{
		CalendarStatuses: statuses,
		GameStatus:       s.gameStatus(),
	}
	if !next.IsZero() {
		snap.NextChange = &next
	}
	return snap
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/ws", s.handleWebsocket)
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleStatus serves the current snapshot. The cache layer decides
// internally whether any provider work is needed; a valid computed result
// costs nothing.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot(r.Context()))
}

// handleRefresh forces a provider fetch, subject to a cooldown so a stuck
// refresh button cannot hammer the calendar API.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := s.now()

	s.refreshMu.Lock()
	sinceLast := now.Sub(s.lastManualRefresh)
	if sinceLast < s.cooldown {
		s.refreshMu.Unlock()
		remaining := int((s.cooldown - sinceLast).Seconds())
		s.logger.Info("manual refresh rate limited", "retry_in_seconds", remaining)
		writeJSON(w, http.StatusTooManyRequests, refreshResponse{
			Success: false,
			Message: fmt.Sprintf("Please wait %d more seconds before refreshing again.", remaining),
		})
		return
	}
	s.lastManualRefresh = now
	s.refreshMu.Unlock()

	s.logger.Info("manual refresh requested")
	s.source.GetStatus(r.Context(), true)

	// Nudge the scheduler so it re-sleeps against the refreshed horizon and
	// pushes the new snapshot to subscribers.
	s.waker.Wake()

	writeJSON(w, http.StatusOK, refreshResponse{
		Success: true,
		Message: "Refresh request accepted and data update triggered.",
	})
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// New clients get the current snapshot immediately rather than waiting
	// for the next scheduler push. The write happens before the connection
	// joins the hub: the hub's mutex serializes broadcast writes, so the
	// connection must not be visible to broadcasts while this handler still
	// writes to it directly.
	if err := conn.WriteJSON(s.snapshot(r.Context())); err != nil {
		conn.Close()
		return
	}

	s.hub.add(conn)
	s.logger.Debug("websocket client connected", "clients", s.hub.clientCount())

	// Drain incoming frames to observe the close; the dashboard never sends
	// application data.
	go func() {
		defer func() {
			s.hub.remove(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		s.logger.Error("failed to initialize embedded static filesystem", "error", err)
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "dashboard UI not available", http.StatusServiceUnavailable)
		})
	}
	return http.FileServer(http.FS(sub))
}

type refreshResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
