package main

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/marketops/estimate"
	"github.com/jonwraymond/marketops/upstream"
)

type getHistoricalDataArgs struct {
	Dataset string `json:"dataset" jsonschema:"Dataset code, e.g. GLBX.MDP3"`
	Symbols string `json:"symbols" jsonschema:"Comma-separated symbols, e.g. ES.FUT or ES.c.0"`
	Schema  string `json:"schema" jsonschema:"Record schema, e.g. trades or ohlcv-1d"`
	Start   string `json:"start" jsonschema:"Start date (YYYY-MM-DD) or ISO 8601 datetime"`
	End     string `json:"end,omitempty" jsonschema:"End date, exclusive"`
	STypeIn string `json:"stype_in,omitempty" jsonschema:"Input symbology type (default raw_symbol)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of records to return"`
	Explain bool   `json:"explain,omitempty" jsonschema:"Dry run: report estimated size and cost without fetching data"`
}

func registerTimeseriesTools(s *mcp.Server, srv *server) {
	addToolHelper(s, &mcp.Tool{
		Name: "get_historical_data",
		Description: "Fetch historical market data records. Set explain=true for a " +
			"dry-run estimate of size and cost before committing to a large pull.",
	}, srv, func(ctx context.Context, args getHistoricalDataArgs, srv *server) (string, error) {
		params, err := srv.rangeParams(args.Dataset, args.Symbols, args.Schema, args.Start, args.End, args.STypeIn, args.Limit)
		if err != nil {
			return "", err
		}

		// The explain flag must not split the cache key: an explained
		// query and its later fetch are the same request.
		keyArgs := args
		keyArgs.Explain = false

		// A cost probe backs both the explain report and the pre-flight
		// warnings. It goes through the executor, so repeats are cache hits.
		query := srv.costQuery(ctx, params)

		if args.Explain {
			query.CacheStatus = srv.cacheStatus(ctx, "get_historical_data", keyArgs)
			return estimate.Explain(query), nil
		}

		warnings := estimate.WarningBlock(query)

		body, err := srv.runHistorical(ctx, "get_historical_data", args.Dataset, args.Schema, keyArgs, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.GetRange(ctx, params)
			})
		if err != nil {
			return "", err
		}
		if warnings != "" {
			return warnings + "\n" + body, nil
		}
		return body, nil
	})
}

// costQuery probes the cost endpoint and folds the answer into an
// estimate query. Probe failures degrade to size-only estimates; the
// data fetch itself decides whether the upstream is actually down.
func (s *server) costQuery(ctx context.Context, params upstream.RangeParams) estimate.Query {
	query := estimate.Query{
		Dataset: params.Dataset,
		Symbols: params.Symbols,
		Schema:  params.Schema,
		Start:   params.Start,
		End:     params.End,
	}

	raw, err := s.runHistorical(ctx, "get_cost", params.Dataset, params.Schema, params, 0,
		func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
			return c.GetCost(ctx, params)
		})
	if err != nil {
		return query
	}

	query.CostUSD, query.RecordCount = parseCost([]byte(trimCachedPrefix(raw)))
	return query
}

// parseCost accepts the cost endpoint's two response shapes: a bare
// dollar amount, or an object carrying cost and record count.
func parseCost(raw []byte) (costUSD float64, records int64) {
	if err := json.Unmarshal(raw, &costUSD); err == nil {
		return costUSD, 0
	}

	var obj struct {
		Cost        float64 `json:"cost"`
		TotalCost   float64 `json:"total_cost"`
		RecordCount int64   `json:"record_count"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, 0
	}
	cost := obj.Cost
	if cost == 0 {
		cost = obj.TotalCost
	}
	return cost, obj.RecordCount
}

func trimCachedPrefix(s string) string {
	const prefix = "[Cached]\n"
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

// cacheStatus reports whether a data pull with these arguments would hit
// the cache, without touching the upstream.
func (s *server) cacheStatus(ctx context.Context, operation string, args any) string {
	key, err := s.ex.Keyer().Key(operation, args)
	if err != nil {
		return ""
	}
	if _, ok := s.ex.Cache().Get(ctx, key); ok {
		return "hit (a fetch would return the cached result)"
	}
	return "miss (a fetch would call the upstream)"
}
