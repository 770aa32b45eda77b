package main

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/marketops/upstream"
	"github.com/jonwraymond/marketops/validation"
)

type submitBatchJobArgs struct {
	Dataset     string `json:"dataset" jsonschema:"Dataset code, e.g. GLBX.MDP3"`
	Symbols     string `json:"symbols" jsonschema:"Comma-separated symbols"`
	Schema      string `json:"schema" jsonschema:"Record schema, e.g. trades"`
	Start       string `json:"start" jsonschema:"Start date (YYYY-MM-DD) or ISO 8601 datetime"`
	End         string `json:"end" jsonschema:"End date, exclusive"`
	Encoding    string `json:"encoding,omitempty" jsonschema:"Output encoding: dbn, csv, or json (default dbn)"`
	Compression string `json:"compression,omitempty" jsonschema:"Compression: none or zstd (default zstd)"`
	STypeIn     string `json:"stype_in,omitempty" jsonschema:"Input symbology type (default raw_symbol)"`
}

type listBatchJobsArgs struct {
	States string `json:"states,omitempty" jsonschema:"Comma-separated job states to filter by, e.g. queued,processing,done"`
	Since  string `json:"since,omitempty" jsonschema:"Only jobs submitted on or after this date (YYYY-MM-DD)"`
}

type batchJobFilesArgs struct {
	JobID string `json:"job_id" jsonschema:"Batch job identifier returned by submit_batch_job"`
}

func registerBatchTools(s *mcp.Server, srv *server) {
	addToolHelper(s, &mcp.Tool{
		Name: "submit_batch_job",
		Description: "Submit a batch download job for a large historical extract. " +
			"Returns the job record; poll list_batch_jobs for completion.",
	}, srv, func(ctx context.Context, args submitBatchJobArgs, srv *server) (string, error) {
		if err := validation.Dataset(args.Dataset); err != nil {
			return "", err
		}
		symbols, err := validation.Symbols("symbols", args.Symbols)
		if err != nil {
			return "", err
		}
		if err := validation.Schema(args.Schema); err != nil {
			return "", err
		}
		if err := validation.DateRange(args.Start, args.End); err != nil {
			return "", err
		}

		encoding := args.Encoding
		if encoding == "" {
			encoding = "dbn"
		}
		if err := validation.Encoding(encoding); err != nil {
			return "", err
		}
		compression := args.Compression
		if compression == "" {
			compression = "zstd"
		}
		if err := validation.Compression(compression); err != nil {
			return "", err
		}
		if args.STypeIn != "" {
			if err := validation.SType("stype_in", args.STypeIn); err != nil {
				return "", err
			}
		}

		params := upstream.JobParams{
			Dataset:     args.Dataset,
			Symbols:     symbols,
			Schema:      args.Schema,
			Start:       args.Start,
			End:         args.End,
			Encoding:    encoding,
			Compression: compression,
			STypeIn:     args.STypeIn,
		}
		// Submissions mutate account state; they always bypass the cache.
		return srv.runHistorical(ctx, "submit_batch_job", args.Dataset, args.Schema, params, -1,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.SubmitJob(ctx, params)
			})
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "list_batch_jobs",
		Description: "List batch download jobs and their states",
	}, srv, func(ctx context.Context, args listBatchJobsArgs, srv *server) (string, error) {
		if args.Since != "" {
			if err := validation.DateFormat("since", args.Since); err != nil {
				return "", err
			}
		}
		// Job states change as workers progress; stale answers mislead.
		return srv.runHistorical(ctx, "list_batch_jobs", "", "", args, -1,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.ListJobs(ctx, args.States, args.Since)
			})
	})

	addToolHelper(s, &mcp.Tool{
		Name:        "get_batch_job_files",
		Description: "List the downloadable files of a completed batch job",
	}, srv, func(ctx context.Context, args batchJobFilesArgs, srv *server) (string, error) {
		if args.JobID == "" {
			return "", validation.Errorf("job_id", "cannot be empty")
		}
		return srv.runHistorical(ctx, "get_batch_job_files", "", "", args, -1,
			func(ctx context.Context, c *upstream.HistoricalClient) ([]byte, error) {
				return c.ListJobFiles(ctx, args.JobID)
			})
	})
}
