package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/pyqpapers/portal/internal/config"
	"codeberg.org/pyqpapers/portal/internal/httpclient"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"codeberg.org/pyqpapers/portal/internal/persist"
	"codeberg.org/pyqpapers/portal/internal/router"
	"codeberg.org/pyqpapers/portal/internal/session"
	"codeberg.org/pyqpapers/portal/internal/tui"
	"codeberg.org/pyqpapers/portal/pyq/feedback"
	"codeberg.org/pyqpapers/portal/pyq/papers"
	"codeberg.org/pyqpapers/portal/pyq/subjects"
	"codeberg.org/pyqpapers/portal/pyq/users"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error running pyq: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadEnvironmentVariables()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.ParseClientFlags(cfg, os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if !term.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("stdout is not a terminal")
	}

	closeLog, err := configureLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, registry)
		defer shutdown()
	}

	history := router.NewHistory(router.RouteHome)

	pipelineCfg := httpclient.DefaultConfig(cfg.APIBaseURL)
	pipelineCfg.Policy = httpclient.AuthPolicy(cfg.AuthPolicy)
	pipelineCfg.Timeout = cfg.HTTPTimeout
	pipelineCfg.RateLimit = cfg.RateLimit

	client, err := httpclient.New(pipelineCfg,
		httpclient.WithLocator(history.Current),
		httpclient.WithRegisterer(registry),
	)
	if err != nil {
		return fmt.Errorf("failed to create http client: %w", err)
	}

	persisted, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	store := session.New(client, persisted, history)
	defer store.Close()

	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}

	app := tui.NewApp(ctx, tui.Deps{
		Session:  store,
		History:  history,
		Papers:   papers.NewClient(client),
		Subjects: subjects.NewClient(client),
		Users:    users.NewClient(client),
		Feedback: feedback.NewClient(client),
	})
	defer app.Close()

	logger.Info("starting tui", "api", cfg.APIBaseURL, "policy", cfg.AuthPolicy)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	return nil
}

// moves log output off the terminal the program draws on
func configureLogging(cfg *config.Config) (func(), error) {
	if cfg.LogFile == "" {
		logger.Configure(cfg.Environment, io.Discard)
		return func() {}, nil
	}

	f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger.Configure(cfg.Environment, f)
	return func() { _ = f.Close() }, nil
}

func openSessionStore(ctx context.Context, cfg *config.Config) (persist.Store, func(), error) {
	if cfg.Ephemeral {
		return persist.NewMemoryStore(), func() {}, nil
	}

	store, err := persist.OpenSQLite(ctx, cfg.SessionDB)
	if err != nil {
		return nil, nil, err
	}

	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close session database", "error", err)
		}
	}, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorErr(err, "metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
