package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhythmscan/rhythmscan/pkg/ecg"
	"github.com/rhythmscan/rhythmscan/server/internal/alerts"
	"github.com/rhythmscan/rhythmscan/server/internal/api"
	"github.com/rhythmscan/rhythmscan/server/internal/auth"
	"github.com/rhythmscan/rhythmscan/server/internal/config"
	"github.com/rhythmscan/rhythmscan/server/internal/ingest"
	"github.com/rhythmscan/rhythmscan/server/internal/metrics"
	"github.com/rhythmscan/rhythmscan/server/internal/store"
	"github.com/rhythmscan/rhythmscan/server/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("rhythmscan-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.HTTPPort,
		"auth_mode", cfg.Auth.Mode,
		"store_ttl_s", cfg.Store.TTLSeconds,
		"nats_url", cfg.NATS.URL,
		"alert_rules", len(cfg.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Analysis store with background TTL eviction.
	st := store.New(time.Duration(cfg.Store.TTLSeconds) * time.Second)
	go st.Run(ctx)

	// Alerts engine — evaluates rules on every stored analysis.
	engine := alerts.New(cfg.Alerts.Rules, cfg.Alerts.Webhooks)

	// WebSocket hub — broadcasts the analyses snapshot to dashboard clients.
	hub := ws.New(st, time.Duration(cfg.WS.IntervalSeconds)*time.Second)
	go hub.Run(ctx)

	// Prometheus-format metrics, plus liveness gauges read at scrape time.
	reg := metrics.New()
	reg.AddGauge("rhythmscan_store_records", "Analysis records currently held, including stale ones.", st.Count)
	reg.AddGauge("rhythmscan_ws_clients", "Connected WebSocket clients.", hub.Count)
	reg.AddGauge("rhythmscan_alerts_firing", "Alerts currently firing.", engine.FiringCount)

	// Both capture paths share one set of pipeline settings.
	limits := cfg.Limits
	settings := api.Settings{
		Params: ecg.Params{
			LowCutHz:  cfg.Analysis.LowCutHz,
			HighCutHz: cfg.Analysis.HighCutHz,
			TapCount:  cfg.Analysis.Taps,
			Limits:    &limits,
		},
		MinSamples: cfg.Analysis.MinSamples,
		MaxSamples: cfg.Analysis.MaxSamples,
	}

	// Optional streaming ingest from NATS.
	if cfg.NATS.URL != "" {
		sub := ingest.New(ingest.Config{
			URL:            cfg.NATS.URL,
			CaptureSubject: cfg.NATS.CaptureSubject,
			FindingSubject: cfg.NATS.FindingSubject,
			Params:         settings.Params,
			MinSamples:     settings.MinSamples,
			MaxSamples:     settings.MaxSamples,
		}, st, engine, reg)
		go func() {
			if err := sub.Run(ctx); err != nil {
				slog.Error("ingest stopped", "err", err)
			}
		}()
	}

	// Hot-reload alert rules and webhook targets on config change. Pipeline
	// settings and ports stay fixed until restart.
	go func() {
		err := config.Watch(ctx, *configPath, func(c *config.Config) {
			engine.SetRules(c.Alerts.Rules)
			engine.SetWebhooks(c.Alerts.Webhooks)
			slog.Info("alert rules reloaded", "rules", len(c.Alerts.Rules), "webhooks", len(c.Alerts.Webhooks))
		})
		if err != nil {
			slog.Warn("config watch unavailable", "err", err)
		}
	}()

	// Combined HTTP server: REST API behind auth, WebSocket hub, metrics.
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", auth.Middleware(
		cfg.Auth.Mode,
		cfg.Auth.EffectiveHeader(),
		cfg.Auth.Key(),
		api.New(st, engine, reg, settings),
	))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", reg.Handler())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("rhythmscan-server shutting down")
	httpSrv.Shutdown(context.Background()) //nolint:errcheck
}
