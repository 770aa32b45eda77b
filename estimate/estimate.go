package estimate

import (
	"fmt"
	"strings"
	"time"
)

// Approximate record sizes in bytes per schema. Unknown schemas fall back
// to DefaultRecordSize.
var schemaRecordSizes = map[string]int{
	"trades":     64,
	"tbbo":       48,
	"mbp-1":      56,
	"mbp-10":     560,
	"mbo":        80,
	"ohlcv-1s":   56,
	"ohlcv-1m":   56,
	"ohlcv-1h":   56,
	"ohlcv-1d":   56,
	"definition": 2048,
	"imbalance":  128,
	"statistics": 64,
	"status":     32,
}

// DefaultRecordSize is assumed for schemas without a known size.
const DefaultRecordSize = 64

// Warning thresholds.
const (
	SizeWarnBytes   = 100 * 1024 * 1024
	RecordWarnCount = 1_000_000
	CostWarnUSD     = 10.0
)

// RecordSize returns the approximate byte size of one record of a schema.
func RecordSize(schema string) int {
	if size, ok := schemaRecordSizes[schema]; ok {
		return size
	}
	return DefaultRecordSize
}

// Size is the estimated footprint of a query result.
type Size struct {
	RecordCount    int64
	RecordSize     int
	EstimatedBytes int64
}

// MB returns the estimate in megabytes.
func (s Size) MB() float64 {
	return float64(s.EstimatedBytes) / (1024 * 1024)
}

// QuerySize estimates the result footprint from a record count and schema.
func QuerySize(recordCount int64, schema string) Size {
	size := RecordSize(schema)
	return Size{
		RecordCount:    recordCount,
		RecordSize:     size,
		EstimatedBytes: recordCount * int64(size),
	}
}

// Warnings lists threshold breaches for a query. An empty slice means the
// query looks routine.
func Warnings(recordCount int64, sizeBytes int64, costUSD float64) []string {
	var out []string
	if recordCount > RecordWarnCount {
		out = append(out, fmt.Sprintf("large query: %d records (threshold %d)",
			recordCount, RecordWarnCount))
	}
	if sizeBytes > SizeWarnBytes {
		out = append(out, fmt.Sprintf("large data size: %.1f MB (threshold %d MB)",
			float64(sizeBytes)/(1024*1024), SizeWarnBytes/(1024*1024)))
	}
	if costUSD > CostWarnUSD {
		out = append(out, fmt.Sprintf("high estimated cost: $%.2f (threshold $%.2f)",
			costUSD, CostWarnUSD))
	}
	return out
}

// tick-level schemas benefit from aggregated alternatives.
var tickSchemas = map[string]bool{
	"trades": true,
	"mbo":    true,
	"mbp-1":  true,
	"mbp-10": true,
	"tbbo":   true,
}

// Alternatives suggests cheaper ways to run a large query.
func Alternatives(recordCount int64, schema string, rangeDays int) []string {
	var out []string
	if tickSchemas[schema] && recordCount > 100_000 {
		out = append(out, "consider aggregated schemas (ohlcv-1m, ohlcv-1h, ohlcv-1d) for reduced volume")
	}
	if recordCount > 1_000_000 {
		out = append(out, "for large downloads, submit_batch_job is cheaper and does not time out")
	}
	if rangeDays > 30 {
		out = append(out, "split the query into weekly or monthly ranges")
	}
	if recordCount > 10_000 {
		out = append(out, "use the limit parameter to sample before fetching everything")
	}
	return out
}

// RangeDays counts the calendar days a date range spans, inclusive.
// Unparseable dates count as a single day.
func RangeDays(start, end string) int {
	s, err1 := time.Parse("2006-01-02", clip(start))
	e, err2 := time.Parse("2006-01-02", clip(end))
	if err1 != nil || err2 != nil {
		return 1
	}
	days := int(e.Sub(s).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

func clip(date string) string {
	if len(date) > 10 {
		return date[:10]
	}
	return date
}

// Query carries everything Explain needs to describe one historical pull.
type Query struct {
	Dataset     string
	Symbols     []string
	Schema      string
	Start       string
	End         string
	RecordCount int64
	CostUSD     float64
	CacheStatus string
}

// Explain renders a dry-run report for a query: details, estimates,
// threshold warnings, and alternatives. No upstream call is made.
func Explain(q Query) string {
	size := QuerySize(q.RecordCount, q.Schema)
	days := RangeDays(q.Start, q.End)

	var b strings.Builder
	b.WriteString("Query explain (no API call made)\n\n")
	b.WriteString("Query:\n")
	fmt.Fprintf(&b, "  dataset: %s\n", q.Dataset)
	fmt.Fprintf(&b, "  symbols: %s\n", strings.Join(q.Symbols, ", "))
	fmt.Fprintf(&b, "  schema: %s\n", q.Schema)
	fmt.Fprintf(&b, "  range: %s to %s (%d days)\n", q.Start, q.End, days)

	b.WriteString("\nEstimates:\n")
	fmt.Fprintf(&b, "  records: ~%d\n", size.RecordCount)
	fmt.Fprintf(&b, "  size: ~%.1f MB\n", size.MB())
	fmt.Fprintf(&b, "  cost: ~$%.4f\n", q.CostUSD)

	if q.CacheStatus != "" {
		fmt.Fprintf(&b, "\nCache: %s\n", q.CacheStatus)
	}

	if warnings := Warnings(size.RecordCount, size.EstimatedBytes, q.CostUSD); len(warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}
	if alts := Alternatives(size.RecordCount, q.Schema, days); len(alts) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, a := range alts {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}
	return b.String()
}

// WarningBlock renders warnings plus alternatives as a text block to
// prepend to a tool response, or "" when the query is routine.
func WarningBlock(q Query) string {
	size := QuerySize(q.RecordCount, q.Schema)
	warnings := Warnings(size.RecordCount, size.EstimatedBytes, q.CostUSD)
	if len(warnings) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Query warnings:\n")
	for _, w := range warnings {
		fmt.Fprintf(&b, "  %s\n", w)
	}
	if alts := Alternatives(size.RecordCount, q.Schema, RangeDays(q.Start, q.End)); len(alts) > 0 {
		b.WriteString("Suggestions:\n")
		for _, a := range alts {
			fmt.Fprintf(&b, "  %s\n", a)
		}
	}
	return b.String()
}
