package main

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/marketops/invoke"
	"github.com/jonwraymond/marketops/upstream"
)

// textResult creates a CallToolResult with plain text content.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// errResult creates a CallToolResult with an error message.
func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: err.Error()},
		},
		IsError: true,
	}
}

// addToolHelper adds a tool with a simplified handler that returns text.
// Handler errors become tool errors rather than protocol errors, so the
// model sees validation messages and upstream failures verbatim.
func addToolHelper[In any](s *mcp.Server, tool *mcp.Tool, srv *server, handler func(ctx context.Context, args In, srv *server) (string, error)) {
	mcp.AddTool(s, tool, func(ctx context.Context, req *mcp.CallToolRequest, args In) (*mcp.CallToolResult, any, error) {
		text, err := handler(ctx, args, srv)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(text), nil, nil
	})
}

// runHistorical executes one historical-API call through the executor and
// renders the payload, marking responses served from the cache.
func (s *server) runHistorical(ctx context.Context, op, dataset, schema string, args any, ttl time.Duration, call func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error)) (string, error) {
	res, err := invoke.Run(ctx, s.ex, invoke.Request[*upstream.HistoricalClient]{
		Operation: op,
		Dataset:   dataset,
		Schema:    schema,
		Args:      args,
		TTL:       ttl,
		Source:    s.historical,
		Call:      call,
	})
	if err != nil {
		return "", err
	}
	if res.CacheHit {
		return "[Cached]\n" + string(res.Value), nil
	}
	return string(res.Value), nil
}
