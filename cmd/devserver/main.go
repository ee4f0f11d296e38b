package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/pyqpapers/portal/api/rest"
	"codeberg.org/pyqpapers/portal/internal/auth"
	"codeberg.org/pyqpapers/portal/internal/config"
	"codeberg.org/pyqpapers/portal/internal/devstore"
	"codeberg.org/pyqpapers/portal/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// lifetime of the refresh cookie
const refreshMaxAge = 7 * 24 * time.Hour

func main() {
	logger.Info("starting pyqpapers dev server")

	cfg, err := config.LoadServerEnvironment()
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler, err := newHandler(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// wires the store, credentials and routes together
func newHandler(cfg *config.ServerConfig) (http.Handler, error) {
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	refresh, err := auth.NewRefreshStore(cfg.SessionSecret, cfg.Environment == "production", refreshMaxAge)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh store: %w", err)
	}

	store := devstore.New()
	if err := seed(store, cfg); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := rest.Options{
		Store:       store,
		Issuer:      issuer,
		Refresh:     refresh,
		CORSOrigins: cfg.CORSOrigins,
		Registry:    registry,
	}

	if cfg.GoogleClientID != "" && cfg.GoogleSecret != "" {
		opts.Google = auth.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleSecret, "")
		logger.Info("google sign-in enabled")
	} else {
		logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, google sign-in disabled")
	}

	return rest.NewRouter(opts)
}
