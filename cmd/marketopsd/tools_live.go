package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/marketops/invoke"
	"github.com/jonwraymond/marketops/pool"
	"github.com/jonwraymond/marketops/upstream"
	"github.com/jonwraymond/marketops/validation"
)

const (
	defaultLiveWait = 5 * time.Second
	maxLiveWait     = 60 * time.Second
	maxLiveRecords  = 1000
)

type getLiveDataArgs struct {
	Dataset        string `json:"dataset" jsonschema:"Dataset code, e.g. GLBX.MDP3"`
	Symbols        string `json:"symbols" jsonschema:"Comma-separated symbols to subscribe to"`
	Schema         string `json:"schema,omitempty" jsonschema:"Record schema (default trades)"`
	STypeIn        string `json:"stype_in,omitempty" jsonschema:"Input symbology type (default raw_symbol)"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"How long to collect records, 1-60 (default 5)"`
	MaxRecords     int    `json:"max_records,omitempty" jsonschema:"Stop after this many records, up to 1000 (default 100)"`
}

type liveSnapshot struct {
	Dataset     string            `json:"dataset"`
	Schema      string            `json:"schema"`
	RecordCount int               `json:"record_count"`
	Records     []json.RawMessage `json:"records"`
}

func registerLiveTools(s *mcp.Server, srv *server) {
	addToolHelper(s, &mcp.Tool{
		Name: "get_live_data",
		Description: "Stream live market data for a few seconds and return the collected " +
			"records. Each call opens a fresh gateway session; results are never cached.",
	}, srv, func(ctx context.Context, args getLiveDataArgs, srv *server) (string, error) {
		if err := validation.Dataset(args.Dataset); err != nil {
			return "", err
		}
		symbols, err := validation.Symbols("symbols", args.Symbols)
		if err != nil {
			return "", err
		}
		schema := args.Schema
		if schema == "" {
			schema = "trades"
		}
		if err := validation.Schema(schema); err != nil {
			return "", err
		}
		if args.STypeIn != "" {
			if err := validation.SType("stype_in", args.STypeIn); err != nil {
				return "", err
			}
		}

		wait := time.Duration(args.TimeoutSeconds) * time.Second
		if wait <= 0 {
			wait = defaultLiveWait
		}
		if wait > maxLiveWait {
			wait = maxLiveWait
		}
		limit := args.MaxRecords
		if limit <= 0 {
			limit = 100
		}
		if limit > maxLiveRecords {
			limit = maxLiveRecords
		}

		// Sessions are single-use: a fresh dial per call, closed before
		// the tool returns. Failed dials surface as construction errors.
		source := pool.NewFresh(func(ctx context.Context) (*upstream.LiveSession, error) {
			return upstream.DialLive(ctx, upstream.LiveConfig{
				APIKey:  srv.cfg.APIKey,
				Dataset: args.Dataset,
				Gateway: srv.cfg.LiveGateway,
			})
		})

		res, err := invoke.Run(ctx, srv.ex, invoke.Request[*upstream.LiveSession]{
			Operation: "get_live_data",
			Dataset:   args.Dataset,
			Schema:    schema,
			Args:      args,
			TTL:       -1, // live snapshots are point-in-time, never cached
			Source:    source,
			Call: func(ctx context.Context, sess *upstream.LiveSession) ([]byte, error) {
				defer func() { _ = sess.Close() }()
				return collectLive(sess, args.Dataset, schema, symbols, args.STypeIn, wait, limit)
			},
		})
		if err != nil {
			return "", err
		}
		return string(res.Value), nil
	})
}

// collectLive subscribes and drains records until the wait elapses or the
// limit is reached. Hitting the read deadline is the normal way out.
func collectLive(sess *upstream.LiveSession, dataset, schema string, symbols []string, stypeIn string, wait time.Duration, limit int) ([]byte, error) {
	if err := sess.Subscribe(schema, symbols, stypeIn); err != nil {
		return nil, err
	}
	if err := sess.Start(); err != nil {
		return nil, err
	}
	if err := sess.SetReadDeadline(time.Now().Add(wait)); err != nil {
		return nil, err
	}

	records := make([]json.RawMessage, 0, limit)
	for len(records) < limit {
		rec, err := sess.Next()
		if err != nil {
			if isDeadline(err) || errors.Is(err, io.EOF) || len(records) > 0 {
				break
			}
			return nil, err
		}
		records = append(records, rec)
	}

	snapshot := liveSnapshot{
		Dataset:     dataset,
		Schema:      schema,
		RecordCount: len(records),
		Records:     records,
	}
	return json.Marshal(snapshot)
}

func isDeadline(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
