package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/marketops/upstream"
	"github.com/jonwraymond/marketops/validation"
)

type resolveSymbolsArgs struct {
	Dataset   string `json:"dataset" jsonschema:"Dataset code, e.g. GLBX.MDP3"`
	Symbols   string `json:"symbols" jsonschema:"Comma-separated symbols to resolve"`
	STypeIn   string `json:"stype_in,omitempty" jsonschema:"Input symbology type (default raw_symbol)"`
	STypeOut  string `json:"stype_out,omitempty" jsonschema:"Output symbology type (default instrument_id)"`
	StartDate string `json:"start_date" jsonschema:"Start date (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"End date, exclusive"`
}

func registerSymbologyTools(s *mcp.Server, srv *server) {
	addToolHelper(s, &mcp.Tool{
		Name:        "resolve_symbols",
		Description: "Resolve symbols between symbology types, e.g. raw symbols to instrument IDs",
	}, srv, func(ctx context.Context, args resolveSymbolsArgs, srv *server) (string, error) {
		if err := validation.Dataset(args.Dataset); err != nil {
			return "", err
		}
		symbols, err := validation.Symbols("symbols", args.Symbols)
		if err != nil {
			return "", err
		}

		stypeIn := args.STypeIn
		if stypeIn == "" {
			stypeIn = "raw_symbol"
		}
		stypeOut := args.STypeOut
		if stypeOut == "" {
			stypeOut = "instrument_id"
		}
		if err := validation.SType("stype_in", stypeIn); err != nil {
			return "", err
		}
		if err := validation.SType("stype_out", stypeOut); err != nil {
			return "", err
		}
		if args.EndDate != "" {
			if err := validation.DateRange(args.StartDate, args.EndDate); err != nil {
				return "", err
			}
		} else if err := validation.DateFormat("start_date", args.StartDate); err != nil {
			return "", err
		}

		params := upstream.ResolveParams{
			Dataset:   args.Dataset,
			Symbols:   symbols,
			STypeIn:   stypeIn,
			STypeOut:  stypeOut,
			StartDate: args.StartDate,
			EndDate:   args.EndDate,
		}
		return srv.runHistorical(ctx, "resolve_symbols", args.Dataset, "", params, 0,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.ResolveSymbols(ctx, params)
			})
	})
}
