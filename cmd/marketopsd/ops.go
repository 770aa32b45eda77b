package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/marketops/auth"
	"github.com/jonwraymond/marketops/config"
	"github.com/jonwraymond/marketops/health"
)

// newOpsServer builds the operational HTTP listener: health probes,
// Prometheus metrics, and an aggregator snapshot. Probes stay open;
// /metrics and /stats are wrapped by the auth middleware when a token or
// JWT secret is configured.
func newOpsServer(cfg config.Config, srv *server, registry *prometheus.Registry) *http.Server {
	authenticator := opsAuthenticator(cfg.Ops)

	mux := http.NewServeMux()
	health.RegisterHandlers(mux, srv.health)

	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	mux.Handle("/metrics", auth.Middleware(authenticator, metricsHandler))
	mux.Handle("/stats", auth.Middleware(authenticator, statsHandler(srv)))

	return &http.Server{
		Addr:              cfg.Ops.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func opsAuthenticator(cfg config.OpsConfig) auth.Authenticator {
	switch {
	case cfg.Token != "":
		return auth.NewTokenAuthenticator(cfg.Token)
	case cfg.JWTSecret != "":
		return auth.NewJWTAuthenticator(auth.JWTConfig{Secret: []byte(cfg.JWTSecret)})
	default:
		return nil
	}
}

// statsHandler serves the aggregator snapshot as JSON. It never resets
// counters; resets go through the reset-capable MCP tool.
func statsHandler(srv *server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats := srv.ex.Stats(false)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(stats)
	})
}
