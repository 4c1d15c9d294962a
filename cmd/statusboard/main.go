// Command statusboard serves a household status dashboard: per-calendar
// availability resolved from Google Calendar plus optional game-server
// status, pushed live to a small web UI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"

	"github.com/drewfead/statusboard/internal/auth"
	"github.com/drewfead/statusboard/internal/calendar"
	"github.com/drewfead/statusboard/internal/config"
	"github.com/drewfead/statusboard/internal/gamestatus"
	"github.com/drewfead/statusboard/internal/scheduler"
	"github.com/drewfead/statusboard/internal/status"
	"github.com/drewfead/statusboard/internal/web"
)

const shutdownGrace = 5 * time.Second

func main() {
	cmd := &cli.Command{
		Name:  "statusboard",
		Usage: "serve a live availability dashboard from Google Calendar",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the YAML config file (default: ~/.config/statusboard/config.yaml)",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "HTTP listen address (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "resolve statuses once, print JSON, and exit",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("statusboard failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	configPath := cmd.String("config")
	if configPath == "" {
		var err error
		configPath, err = config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", configPath, err)
	}
	if listen := cmd.String("listen"); listen != "" {
		cfg.Listen = listen
	}

	logger.Info("configuration loaded",
		"path", configPath,
		"listen", cfg.Listen,
		"calendars", len(cfg.Calendars),
		"game_status", cfg.GameStatus != nil,
	)

	manager, err := newManager(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cmd.Bool("once") {
		return runOnce(ctx, manager)
	}
	return serve(ctx, cfg, manager, logger)
}

// newManager wires credentials, the calendar client, and the status cache.
func newManager(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*status.Manager, error) {
	credentialsPath := cfg.CredentialsFile
	if credentialsPath == "" {
		var err error
		credentialsPath, err = config.GetCredentialsPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine credentials path: %w", err)
		}
	}
	tokenPath := cfg.TokenFile
	if tokenPath == "" {
		var err error
		tokenPath, err = config.GetTokenPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine token path: %w", err)
		}
	}

	httpClient, err := auth.NewHTTPClient(ctx, credentialsPath, tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate with Google: %w", err)
	}

	client, err := calendar.NewClient(ctx, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	return status.NewManager(client, cfg.StatusConfigs(), status.ManagerOptions{
		MaxFetchInterval: time.Duration(cfg.MaxFetchIntervalSeconds) * time.Second,
		FetchBack:        time.Duration(cfg.FetchBackHours) * time.Hour,
		FetchAhead:       time.Duration(cfg.FetchAheadHours) * time.Hour,
		Logger:           logger,
	}), nil
}

// runOnce forces a fetch, prints the resolved statuses as JSON, and exits.
func runOnce(ctx context.Context, manager *status.Manager) error {
	statuses, nextChange := manager.GetStatus(ctx, true)

	out := struct {
		CalendarStatuses []status.CalendarStatus `json:"calendar_statuses"`
		NextChange       *time.Time              `json:"next_change,omitempty"`
	}{CalendarStatuses: statuses}
	if !nextChange.IsZero() {
		out.NextChange = &nextChange
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// serve runs the background scheduler, the optional game-status cron, and
// the dashboard HTTP server until the context is canceled.
func serve(ctx context.Context, cfg *config.Config, manager *status.Manager, logger *slog.Logger) error {
	sched := scheduler.New(manager, scheduler.Options{
		MinInterval:  time.Duration(cfg.Scheduler.MinIntervalSeconds) * time.Second,
		PollInterval: time.Duration(cfg.Scheduler.PollIntervalSeconds) * time.Second,
		MaxInterval:  time.Duration(cfg.Scheduler.MaxIntervalSeconds) * time.Second,
		Logger:       logger,
	})

	server := web.NewServer(manager, sched, web.Options{
		RefreshCooldown: time.Duration(cfg.RefreshCooldownSeconds) * time.Second,
		Logger:          logger,
	})
	sched.Subscribe(server)

	if cfg.GameStatus != nil {
		stopCron, err := startGamePoller(ctx, cfg.GameStatus, server, logger)
		if err != nil {
			return err
		}
		defer stopCron()
	}

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.Handler(),
	}

	go sched.Run(ctx)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown failed", "error", err)
		}
	}()

	logger.Info("dashboard listening", "address", cfg.Listen)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// startGamePoller polls the game-server realm status on a fixed cron
// schedule and pushes updates to the dashboard. It returns a stop function.
func startGamePoller(ctx context.Context, cfg *config.GameStatusConfig, server *web.Server, logger *slog.Logger) (func(), error) {
	poller := gamestatus.NewPoller(gamestatus.Config{
		URL:    cfg.URL,
		Realms: cfg.Realms,
	})

	poll := func() {
		realms, err := poller.Fetch(ctx)
		if err != nil {
			logger.Error("game status fetch failed", "error", err)
			return
		}
		server.SetGameStatus(ctx, realms)
	}

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %ds", cfg.PollSeconds), poll); err != nil {
		return nil, fmt.Errorf("failed to schedule game status poll: %w", err)
	}
	c.Start()

	// Prime the dashboard instead of waiting a full interval for the first
	// cron tick.
	go poll()

	return func() { c.Stop() }, nil
}
