package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/marketops/upstream"
	"github.com/jonwraymond/marketops/validation"
)

type listDatasetsArgs struct{}

type listSchemasArgs struct {
	Dataset string `json:"dataset" jsonschema:"Dataset code, e.g. GLBX.MDP3"`
}

type listPublishersArgs struct{}

type listFieldsArgs struct {
	Schema   string `json:"schema" jsonschema:"Record schema, e.g. trades or mbp-1"`
	Encoding string `json:"encoding,omitempty" jsonschema:"Payload encoding: dbn, csv, or json (default json)"`
}

type datasetRangeArgs struct {
	Dataset string `json:"dataset" jsonschema:"Dataset code, e.g. GLBX.MDP3"`
}

type getCostArgs struct {
	Dataset string `json:"dataset" jsonschema:"Dataset code, e.g. GLBX.MDP3"`
	Symbols string `json:"symbols" jsonschema:"Comma-separated symbols, e.g. ES.FUT or ES.c.0"`
	Schema  string `json:"schema" jsonschema:"Record schema, e.g. trades"`
	Start   string `json:"start" jsonschema:"Start date (YYYY-MM-DD) or ISO 8601 datetime"`
	End     string `json:"end,omitempty" jsonschema:"End date, exclusive; defaults to the dataset's end"`
}

func registerMetadataTools(s *mcp.Server, srv *server) {
	addToolHelper(s, &mcp.Tool{
		Name:        "list_datasets",
		Description: "List all datasets available to the configured account",
	}, srv, func(ctx context.Context, _ listDatasetsArgs, srv *server) (string, error) {
		return srv.runHistorical(ctx, "list_datasets", "", "", nil, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.ListDatasets(ctx)
			})
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "list_schemas",
		Description: "List record schemas available in a dataset",
	}, srv, func(ctx context.Context, args listSchemasArgs, srv *server) (string, error) {
		if err := validation.Dataset(args.Dataset); err != nil {
			return "", err
		}
		return srv.runHistorical(ctx, "list_schemas", args.Dataset, "", args, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.ListSchemas(ctx, args.Dataset)
			})
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "list_publishers",
		Description: "List publisher, dataset, and venue mappings",
	}, srv, func(ctx context.Context, _ listPublishersArgs, srv *server) (string, error) {
		return srv.runHistorical(ctx, "list_publishers", "", "", nil, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.ListPublishers(ctx)
			})
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "list_fields",
		Description: "List the fields of a record schema for a given encoding",
	}, srv, func(ctx context.Context, args listFieldsArgs, srv *server) (string, error) {
		if err := validation.Schema(args.Schema); err != nil {
			return "", err
		}
		encoding := args.Encoding
		if encoding == "" {
			encoding = "json"
		}
		if err := validation.Encoding(encoding); err != nil {
			return "", err
		}
		return srv.runHistorical(ctx, "list_fields", "", args.Schema, args, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.ListFields(ctx, args.Schema, encoding)
			})
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "get_dataset_range",
		Description: "Get the available date range of a dataset",
	}, srv, func(ctx context.Context, args datasetRangeArgs, srv *server) (string, error) {
		if err := validation.Dataset(args.Dataset); err != nil {
			return "", err
		}
		return srv.runHistorical(ctx, "get_dataset_range", args.Dataset, "", args, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.GetDatasetRange(ctx, args.Dataset)
			})
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "get_cost",
		Description: "Estimate the cost in US dollars of a historical data query",
	}, srv, func(ctx context.Context, args getCostArgs, srv *server) (string, error) {
		params, err := srv.rangeParams(args.Dataset, args.Symbols, args.Schema, args.Start, args.End, "", 0)
		if err != nil {
			return "", err
		}
		return srv.runHistorical(ctx, "get_cost", args.Dataset, args.Schema, args, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.GetCost(ctx, params)
			})
	})
}

// rangeParams validates and assembles the shared historical range
// parameters used by get_cost and get_historical_data.
func (s *server) rangeParams(dataset, symbols, schema, start, end, stypeIn string, limit int) (upstream.RangeParams, error) {
	if err := validation.Dataset(dataset); err != nil {
		return upstream.RangeParams{}, err
	}
	if err := validation.Schema(schema); err != nil {
		return upstream.RangeParams{}, err
	}
	parsed, err := validation.Symbols("symbols", symbols)
	if err != nil {
		return upstream.RangeParams{}, err
	}
	if end != "" {
		if err := validation.DateRange(start, end); err != nil {
			return upstream.RangeParams{}, err
		}
	} else if err := validation.DateFormat("start", start); err != nil {
		return upstream.RangeParams{}, err
	}
	if stypeIn != "" {
		if err := validation.SType("stype_in", stypeIn); err != nil {
			return upstream.RangeParams{}, err
		}
	}
	if limit < 0 {
		return upstream.RangeParams{}, validation.Errorf("limit", "must not be negative, got %d", limit)
	}

	return upstream.RangeParams{
		Dataset: dataset,
		Symbols: parsed,
		Schema:  schema,
		Start:   start,
		End:     end,
		STypeIn: stypeIn,
		Limit:   limit,
	}, nil
}
