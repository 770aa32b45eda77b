package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production historical API endpoint.
const DefaultBaseURL = "https://hist.databento.com/v0"

// DefaultTimeout bounds a single historical request.
const DefaultTimeout = 30 * time.Second

// HistoricalConfig configures the historical API client.
type HistoricalConfig struct {
	// APIKey authenticates requests; sent as the basic-auth username.
	APIKey string

	// BaseURL overrides the API endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout bounds each request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string
}

// HistoricalClient calls the vendor's historical and metadata endpoints.
// It is safe for concurrent use and meant to be shared as the reusable
// pooled client.
type HistoricalClient struct {
	cfg HistoricalConfig
	hc  *http.Client
}

// NewHistoricalClient validates the config and returns a client.
func NewHistoricalClient(cfg HistoricalConfig) (*HistoricalClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "marketops"
	}
	return &HistoricalClient{
		cfg: cfg,
		hc:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// RangeParams identify a span of historical records.
type RangeParams struct {
	Dataset  string
	Symbols  []string
	Schema   string
	Start    string
	End      string
	STypeIn  string
	STypeOut string
	Limit    int
	Encoding string
}

func (p RangeParams) values() url.Values {
	v := url.Values{}
	v.Set("dataset", p.Dataset)
	if len(p.Symbols) > 0 {
		v.Set("symbols", strings.Join(p.Symbols, ","))
	}
	v.Set("schema", p.Schema)
	v.Set("start", p.Start)
	if p.End != "" {
		v.Set("end", p.End)
	}
	if p.STypeIn != "" {
		v.Set("stype_in", p.STypeIn)
	}
	if p.STypeOut != "" {
		v.Set("stype_out", p.STypeOut)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Encoding != "" {
		v.Set("encoding", p.Encoding)
	}
	return v
}

// ResolveParams identify a symbology resolution request.
type ResolveParams struct {
	Dataset   string
	Symbols   []string
	STypeIn   string
	STypeOut  string
	StartDate string
	EndDate   string
}

func (p ResolveParams) values() url.Values {
	v := url.Values{}
	v.Set("dataset", p.Dataset)
	v.Set("symbols", strings.Join(p.Symbols, ","))
	v.Set("stype_in", p.STypeIn)
	v.Set("stype_out", p.STypeOut)
	v.Set("start_date", p.StartDate)
	if p.EndDate != "" {
		v.Set("end_date", p.EndDate)
	}
	return v
}

// JobParams identify a batch download job submission.
type JobParams struct {
	Dataset     string
	Symbols     []string
	Schema      string
	Start       string
	End         string
	Encoding    string
	Compression string
	STypeIn     string
	STypeOut    string
	SplitSize   string
	Delivery    string
}

func (p JobParams) values() url.Values {
	v := url.Values{}
	v.Set("dataset", p.Dataset)
	v.Set("symbols", strings.Join(p.Symbols, ","))
	v.Set("schema", p.Schema)
	v.Set("start", p.Start)
	v.Set("end", p.End)
	if p.Encoding != "" {
		v.Set("encoding", p.Encoding)
	}
	if p.Compression != "" {
		v.Set("compression", p.Compression)
	}
	if p.STypeIn != "" {
		v.Set("stype_in", p.STypeIn)
	}
	if p.STypeOut != "" {
		v.Set("stype_out", p.STypeOut)
	}
	if p.SplitSize != "" {
		v.Set("split_size", p.SplitSize)
	}
	if p.Delivery != "" {
		v.Set("delivery", p.Delivery)
	}
	return v
}

// ListDatasets returns the datasets available to the account.
func (c *HistoricalClient) ListDatasets(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/metadata.list_datasets", nil)
}

// ListSchemas returns the schemas a dataset serves.
func (c *HistoricalClient) ListSchemas(ctx context.Context, dataset string) (json.RawMessage, error) {
	v := url.Values{}
	v.Set("dataset", dataset)
	return c.get(ctx, "/metadata.list_schemas", v)
}

// ListPublishers returns the publisher directory.
func (c *HistoricalClient) ListPublishers(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, "/metadata.list_publishers", nil)
}

// ListFields returns the record fields for a schema and encoding.
func (c *HistoricalClient) ListFields(ctx context.Context, schema, encoding string) (json.RawMessage, error) {
	v := url.Values{}
	v.Set("schema", schema)
	if encoding != "" {
		v.Set("encoding", encoding)
	}
	return c.get(ctx, "/metadata.list_fields", v)
}

// GetDatasetRange returns the available date range of a dataset.
func (c *HistoricalClient) GetDatasetRange(ctx context.Context, dataset string) (json.RawMessage, error) {
	v := url.Values{}
	v.Set("dataset", dataset)
	return c.get(ctx, "/metadata.get_dataset_range", v)
}

// GetCost returns the billed cost estimate for a range query.
func (c *HistoricalClient) GetCost(ctx context.Context, p RangeParams) (json.RawMessage, error) {
	return c.get(ctx, "/metadata.get_cost", p.values())
}

// GetRange streams a span of historical records.
func (c *HistoricalClient) GetRange(ctx context.Context, p RangeParams) (json.RawMessage, error) {
	return c.postForm(ctx, "/timeseries.get_range", p.values())
}

// ResolveSymbols maps symbols between symbology types.
func (c *HistoricalClient) ResolveSymbols(ctx context.Context, p ResolveParams) (json.RawMessage, error) {
	return c.postForm(ctx, "/symbology.resolve", p.values())
}

// SubmitJob submits a batch download job.
func (c *HistoricalClient) SubmitJob(ctx context.Context, p JobParams) (json.RawMessage, error) {
	return c.postForm(ctx, "/batch.submit_job", p.values())
}

// ListJobs lists batch jobs, optionally filtered by state.
func (c *HistoricalClient) ListJobs(ctx context.Context, states string, since string) (json.RawMessage, error) {
	v := url.Values{}
	if states != "" {
		v.Set("states", states)
	}
	if since != "" {
		v.Set("since", since)
	}
	return c.get(ctx, "/batch.list_jobs", v)
}

// ListJobFiles lists the downloadable files of a batch job.
func (c *HistoricalClient) ListJobFiles(ctx context.Context, jobID string) (json.RawMessage, error) {
	v := url.Values{}
	v.Set("job_id", jobID)
	return c.get(ctx, "/batch.list_files", v)
}

// Ping verifies the API is reachable and the key is accepted.
func (c *HistoricalClient) Ping(ctx context.Context) error {
	_, err := c.ListDatasets(ctx)
	return err
}

func (c *HistoricalClient) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *HistoricalClient) postForm(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *HistoricalClient) do(req *http.Request) (json.RawMessage, error) {
	// The key rides as the basic-auth username with an empty password.
	req.SetBasicAuth(c.cfg.APIKey, "")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if len(body) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return json.RawMessage(body), nil
}
