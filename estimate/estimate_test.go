package estimate

import (
	"strings"
	"testing"
)

func TestRecordSize(t *testing.T) {
	tests := []struct {
		schema string
		want   int
	}{
		{"trades", 64},
		{"mbp-10", 560},
		{"definition", 2048},
		{"status", 32},
		{"unknown-schema", DefaultRecordSize},
	}
	for _, tt := range tests {
		if got := RecordSize(tt.schema); got != tt.want {
			t.Errorf("RecordSize(%q) = %d, want %d", tt.schema, got, tt.want)
		}
	}
}

func TestQuerySize(t *testing.T) {
	s := QuerySize(1000, "trades")
	if s.EstimatedBytes != 64000 {
		t.Errorf("EstimatedBytes = %d, want 64000", s.EstimatedBytes)
	}
	if s.RecordSize != 64 {
		t.Errorf("RecordSize = %d, want 64", s.RecordSize)
	}
}

func TestWarnings(t *testing.T) {
	tests := []struct {
		name    string
		records int64
		bytes   int64
		cost    float64
		want    int
	}{
		{"routine", 1000, 64_000, 0.05, 0},
		{"many records", 2_000_000, 0, 0, 1},
		{"large size", 0, 200 * 1024 * 1024, 0, 1},
		{"high cost", 0, 0, 25.0, 1},
		{"everything", 2_000_000, 200 * 1024 * 1024, 25.0, 3},
		{"exactly at thresholds", RecordWarnCount, SizeWarnBytes, CostWarnUSD, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Warnings(tt.records, tt.bytes, tt.cost); len(got) != tt.want {
				t.Errorf("Warnings() = %v, want %d entries", got, tt.want)
			}
		})
	}
}

func TestAlternatives(t *testing.T) {
	t.Run("tick schema suggests aggregation", func(t *testing.T) {
		alts := Alternatives(200_000, "trades", 5)
		if len(alts) == 0 || !strings.Contains(alts[0], "ohlcv") {
			t.Errorf("Alternatives() = %v, want aggregation suggestion first", alts)
		}
	})
	t.Run("aggregated schema does not", func(t *testing.T) {
		for _, a := range Alternatives(200_000, "ohlcv-1d", 5) {
			if strings.Contains(a, "ohlcv") {
				t.Errorf("unexpected aggregation suggestion for ohlcv schema: %q", a)
			}
		}
	})
	t.Run("huge pull suggests batch", func(t *testing.T) {
		found := false
		for _, a := range Alternatives(5_000_000, "trades", 5) {
			if strings.Contains(a, "submit_batch_job") {
				found = true
			}
		}
		if !found {
			t.Error("missing batch job suggestion")
		}
	})
	t.Run("long range suggests splitting", func(t *testing.T) {
		found := false
		for _, a := range Alternatives(100, "ohlcv-1d", 90) {
			if strings.Contains(a, "split") {
				found = true
			}
		}
		if !found {
			t.Error("missing range split suggestion")
		}
	})
}

func TestRangeDays(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2024-01-01", "2024-01-01", 1},
		{"2024-01-01", "2024-01-31", 31},
		{"2024-01-01T00:00:00Z", "2024-01-02T12:00:00Z", 2},
		{"bogus", "2024-01-02", 1},
		{"2024-01-05", "2024-01-01", 1}, // inverted ranges clamp to one day
	}
	for _, tt := range tests {
		if got := RangeDays(tt.start, tt.end); got != tt.want {
			t.Errorf("RangeDays(%q, %q) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestExplain(t *testing.T) {
	out := Explain(Query{
		Dataset:     "GLBX.MDP3",
		Symbols:     []string{"ES.FUT"},
		Schema:      "trades",
		Start:       "2024-01-01",
		End:         "2024-03-31",
		RecordCount: 2_000_000,
		CostUSD:     15.0,
		CacheStatus: "miss",
	})

	for _, want := range []string{
		"no API call made",
		"GLBX.MDP3",
		"ES.FUT",
		"91 days",
		"Warnings:",
		"Suggestions:",
		"Cache: miss",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Explain() output missing %q:\n%s", want, out)
		}
	}
}

func TestWarningBlock_EmptyWhenRoutine(t *testing.T) {
	out := WarningBlock(Query{
		Schema:      "ohlcv-1d",
		Start:       "2024-01-01",
		End:         "2024-01-05",
		RecordCount: 5,
	})
	if out != "" {
		t.Errorf("WarningBlock() = %q, want empty", out)
	}
}

func TestWarningBlock_CarriesSuggestions(t *testing.T) {
	out := WarningBlock(Query{
		Schema:      "trades",
		Start:       "2024-01-01",
		End:         "2024-06-30",
		RecordCount: 5_000_000,
	})
	if !strings.Contains(out, "Query warnings:") || !strings.Contains(out, "Suggestions:") {
		t.Errorf("WarningBlock() = %q, want warnings and suggestions", out)
	}
}
