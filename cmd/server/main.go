package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audiograph/internal/auth"
	authmetrics "audiograph/internal/auth/metrics"
	"audiograph/internal/platform/config"
	"audiograph/internal/platform/httpserver"
	"audiograph/internal/platform/logger"
	platformmetrics "audiograph/internal/platform/metrics"
	"audiograph/internal/session"
	"audiograph/internal/spotify"
	spotifymetrics "audiograph/internal/spotify/metrics"
	httptransport "audiograph/internal/transport/http"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Token and session logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Production)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	authMetrics := authmetrics.New()
	upstreamMetrics := spotifymetrics.New()
	httpMetrics := platformmetrics.New()

	codec := session.NewCodec(cfg, log)
	exchanger := auth.NewExchanger(cfg, log, authMetrics)
	guard := auth.NewGuard(codec, exchanger, log, authMetrics,
		spotify.WithMetrics(upstreamMetrics),
		spotify.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
	)

	handler := httptransport.NewHandler(guard, exchanger, log, httpMetrics, cfg.Production)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting audiograph", "addr", cfg.Addr, "production", cfg.Production)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
