package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jonwraymond/marketops/cache"
	"github.com/jonwraymond/marketops/config"
	"github.com/jonwraymond/marketops/health"
	"github.com/jonwraymond/marketops/invoke"
	"github.com/jonwraymond/marketops/observe"
	"github.com/jonwraymond/marketops/pool"
	"github.com/jonwraymond/marketops/upstream"
)

// server holds everything the tool handlers need. One instance per
// process; all state lives here, not in globals.
type server struct {
	cfg        config.Config
	ex         *invoke.Executor
	historical *pool.Singleton[*upstream.HistoricalClient]
	logger     observe.Logger
	health     *health.Aggregator
}

func runServe(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.Observe.ObserverConfig("marketops", version)
	obsCfg.Metrics.Registerer = registry
	observer, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = observer.Shutdown(shutdownCtx)
	}()

	logger := observer.Logger()

	metrics, err := observe.NewMetrics(observer.Meter())
	if err != nil {
		return fmt.Errorf("setup metrics: %w", err)
	}

	store, err := newCacheStore(cfg)
	if err != nil {
		return fmt.Errorf("setup cache: %w", err)
	}

	ex, err := invoke.New(
		invoke.WithCache(store),
		invoke.WithCachePolicy(cache.DefaultPolicy()),
		invoke.WithAggregator(observe.NewAggregator()),
		invoke.WithMetrics(metrics),
		invoke.WithTracer(observe.NewTracer(observer.Tracer())),
		invoke.WithLogger(logger),
		invoke.WithRetryPolicy(cfg.Retry.Policy()),
		invoke.WithResetThreshold(cfg.ResetThreshold),
	)
	if err != nil {
		return fmt.Errorf("setup executor: %w", err)
	}

	historical := pool.NewSingleton(func(context.Context) (*upstream.HistoricalClient, error) {
		return upstream.NewHistoricalClient(upstream.HistoricalConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			UserAgent: "marketopsd/" + version,
		})
	})

	srv := &server{
		cfg:        cfg,
		ex:         ex,
		historical: historical,
		logger:     logger,
		health:     newHealthAggregator(cfg, store, historical),
	}

	if cfg.Ops.Addr != "" {
		opsSrv := newOpsServer(cfg, srv, registry)
		go func() {
			logger.Info(ctx, "ops listener starting",
				observe.Field{Key: "addr", Value: cfg.Ops.Addr})
			if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error(ctx, "ops listener failed",
					observe.Field{Key: "error", Value: err.Error()})
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = opsSrv.Shutdown(shutdownCtx)
		}()
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "marketops",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: "marketops serves Databento market data: dataset and schema " +
			"discovery, historical record retrieval, symbology resolution, live " +
			"streaming snapshots, and batch download jobs. Responses served from " +
			"the local cache carry a [Cached] prefix. Use get_cost or the explain " +
			"flag on get_historical_data before pulling large ranges.",
	})

	registerMetadataTools(mcpServer, srv)
	registerTimeseriesTools(mcpServer, srv)
	registerSymbologyTools(mcpServer, srv)
	registerLiveTools(mcpServer, srv)
	registerBatchTools(mcpServer, srv)
	registerAdminTools(mcpServer, srv)

	logger.Info(ctx, "serving MCP over stdio",
		observe.Field{Key: "version", Value: version},
		observe.Field{Key: "cache_backend", Value: cfg.Cache.Backend})

	return mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func newCacheStore(cfg config.Config) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case config.BackendMemory:
		return cache.NewMemoryCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
	default:
		return cache.NewDiskCache(cfg.Cache.Dir)
	}
}

func newHealthAggregator(cfg config.Config, store cache.Cache, historical *pool.Singleton[*upstream.HistoricalClient]) *health.Aggregator {
	agg := health.NewAggregator(0)
	agg.Register("api_key", health.NewKeyFormatChecker(cfg.APIKey))
	agg.Register("cache", health.NewCacheChecker(store))
	agg.Register("upstream", health.NewUpstreamChecker(func(ctx context.Context) error {
		client, err := historical.Acquire(ctx)
		if err != nil {
			return err
		}
		return client.Ping(ctx)
	}))
	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
	return agg
}
