package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/marketops/health"
)

type healthCheckArgs struct{}

type getMetricsArgs struct {
	Reset bool `json:"reset,omitempty" jsonschema:"Zero the counters and latency samples after reading"`
}

type clearCacheArgs struct {
	ExpiredOnly bool `json:"expired_only,omitempty" jsonschema:"Remove only entries whose TTL has lapsed"`
}

type resetConnectionsArgs struct{}

func registerAdminTools(s *mcp.Server, srv *server) {
	addToolHelper(s, &mcp.Tool{
		Name:        "health_check",
		Description: "Run all health checks: API key format, cache round-trip, upstream reachability, memory",
	}, srv, func(ctx context.Context, _ healthCheckArgs, srv *server) (string, error) {
		results := srv.health.CheckAll(ctx)
		overall := health.OverallStatus(results)

		report := health.HealthResponse{
			Status:    overall.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]health.CheckResponse, len(results)),
		}
		for name, result := range results {
			check := health.CheckResponse{
				Status:   result.Status.String(),
				Message:  result.Message,
				Duration: result.Duration.String(),
			}
			if result.Error != nil {
				check.Error = result.Error.Error()
			}
			report.Checks[name] = check
		}
		return marshalIndent(report)
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "get_metrics",
		Description: "Snapshot the server's call, latency, cache, and outcome metrics",
	}, srv, func(_ context.Context, args getMetricsArgs, srv *server) (string, error) {
		return marshalIndent(srv.ex.Stats(args.Reset))
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "clear_cache",
		Description: "Remove cached responses; set expired_only to keep live entries",
	}, srv, func(ctx context.Context, args clearCacheArgs, srv *server) (string, error) {
		removed, err := srv.ex.ClearCache(ctx, args.ExpiredOnly)
		if err != nil {
			return "", err
		}
		if args.ExpiredOnly {
			return fmt.Sprintf("removed %d expired entries", removed), nil
		}
		return fmt.Sprintf("removed %d entries", removed), nil
	})

	addToolHelper(s, &mcp.Tool{
		Name: "reset_connections",
		Description: "Discard the pooled upstream client; the next call builds a fresh one. " +
			"In-flight calls on the old client are unaffected.",
	}, srv, func(_ context.Context, _ resetConnectionsArgs, srv *server) (string, error) {
		srv.historical.Reset()
		return "upstream connection reset; next call reconnects", nil
	})
}

func marshalIndent(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
