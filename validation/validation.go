package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Error marks a caller-fault failure: bad request parameters that no retry
// can fix. It is never retried and never cached.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Errorf builds an Error for field with a formatted reason.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Known record schemas served by the upstream API.
var validSchemas = map[string]bool{
	"mbo":        true,
	"mbp-1":      true,
	"mbp-10":     true,
	"trades":     true,
	"tbbo":       true,
	"ohlcv-1s":   true,
	"ohlcv-1m":   true,
	"ohlcv-1h":   true,
	"ohlcv-1d":   true,
	"definition": true,
	"imbalance":  true,
	"statistics": true,
	"status":     true,
}

// Known payload encodings.
var validEncodings = map[string]bool{
	"dbn":  true,
	"csv":  true,
	"json": true,
}

// Known compressions.
var validCompressions = map[string]bool{
	"none": true,
	"zstd": true,
}

// Known symbology types.
var validSTypes = map[string]bool{
	"raw_symbol":    true,
	"instrument_id": true,
	"continuous":    true,
	"parent":        true,
	"smart":         true,
}

var (
	// VENUE.FORMAT, e.g. GLBX.MDP3 or XNAS.ITCH.
	datasetPattern = regexp.MustCompile(`^[A-Z0-9]+\.[A-Z0-9]+$`)

	// YYYY-MM-DD with an optional ISO 8601 time suffix.
	iso8601Pattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)?$`)

	// Symbols may carry dots, dashes, underscores, spaces, and wildcards
	// (ES.FUT, ES.c.0, ALL_SYMBOLS).
	symbolPattern = regexp.MustCompile(`^[\w.\-\s*]+$`)
)

// Schemas returns the known schema names, sorted.
func Schemas() []string {
	return sortedKeys(validSchemas)
}

// STypes returns the known symbology type names, sorted.
func STypes() []string {
	return sortedKeys(validSTypes)
}

// Encodings returns the known encoding names, sorted.
func Encodings() []string {
	return sortedKeys(validEncodings)
}

// Compressions returns the known compression names, sorted.
func Compressions() []string {
	return sortedKeys(validCompressions)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dataset checks that a dataset name follows the VENUE.FORMAT pattern.
func Dataset(dataset string) error {
	if dataset == "" {
		return &Error{Field: "dataset", Reason: "cannot be empty"}
	}
	if !datasetPattern.MatchString(dataset) {
		return Errorf("dataset", "must follow VENUE.FORMAT pattern (e.g. GLBX.MDP3), got %q", dataset)
	}
	return nil
}

// Schema checks a schema name against the known set.
func Schema(schema string) error {
	if schema == "" {
		return &Error{Field: "schema", Reason: "cannot be empty"}
	}
	if !validSchemas[schema] {
		return Errorf("schema", "unknown schema %q, valid: %s", schema, strings.Join(Schemas(), ", "))
	}
	return nil
}

// Encoding checks an encoding name against the known set.
func Encoding(encoding string) error {
	if encoding == "" {
		return &Error{Field: "encoding", Reason: "cannot be empty"}
	}
	if !validEncodings[encoding] {
		return Errorf("encoding", "unknown encoding %q, valid: %s", encoding, strings.Join(Encodings(), ", "))
	}
	return nil
}

// Compression checks a compression name against the known set.
func Compression(compression string) error {
	if compression == "" {
		return &Error{Field: "compression", Reason: "cannot be empty"}
	}
	if !validCompressions[compression] {
		return Errorf("compression", "unknown compression %q, valid: %s", compression, strings.Join(Compressions(), ", "))
	}
	return nil
}

// SType checks a symbology type under the given field name (requests carry
// both stype_in and stype_out).
func SType(field, stype string) error {
	if stype == "" {
		return &Error{Field: field, Reason: "cannot be empty"}
	}
	if !validSTypes[stype] {
		return Errorf(field, "unknown symbology type %q, valid: %s", stype, strings.Join(STypes(), ", "))
	}
	return nil
}

// DateFormat checks that a string is a YYYY-MM-DD date or an ISO 8601
// datetime, and that the date portion is a real calendar date.
func DateFormat(field, date string) error {
	if date == "" {
		return &Error{Field: field, Reason: "cannot be empty"}
	}
	if !iso8601Pattern.MatchString(date) {
		return Errorf(field, "must be in YYYY-MM-DD or ISO 8601 format, got %q", date)
	}
	if _, err := time.Parse("2006-01-02", date[:10]); err != nil {
		return Errorf(field, "invalid date %q", date[:10])
	}
	return nil
}

// DateRange checks both endpoints and that start does not fall after end.
// Comparison uses the date portions only, matching the upstream API's
// day-granular range semantics.
func DateRange(start, end string) error {
	if err := DateFormat("start", start); err != nil {
		return err
	}
	if err := DateFormat("end", end); err != nil {
		return err
	}

	startDay, _ := time.Parse("2006-01-02", start[:10])
	endDay, _ := time.Parse("2006-01-02", end[:10])
	if startDay.After(endDay) {
		return Errorf("start", "date (%s) must be before or equal to end date (%s)", start, end)
	}
	return nil
}

// Symbols parses a comma-separated symbol list, trimming whitespace and
// rejecting empty or malformed entries.
func Symbols(field, symbols string) ([]string, error) {
	if strings.TrimSpace(symbols) == "" {
		return nil, &Error{Field: field, Reason: "cannot be empty"}
	}

	parts := strings.Split(symbols, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			return nil, &Error{Field: field, Reason: "contains empty symbol"}
		}
		if !symbolPattern.MatchString(s) {
			return nil, Errorf(field, "contains invalid characters in symbol %q", s)
		}
		out = append(out, s)
	}
	return out, nil
}

// APIKey checks that a key has the expected shape (db- prefix, plausible
// length). Only the shape is checked; the upstream rejects unknown keys.
func APIKey(key string) error {
	if key == "" {
		return &Error{Field: "api_key", Reason: "cannot be empty"}
	}
	if !strings.HasPrefix(key, "db-") {
		return Errorf("api_key", "must start with %q", "db-")
	}
	if len(key) < 16 {
		return Errorf("api_key", "too short, got %d characters", len(key))
	}
	return nil
}

// IntRange checks that value lies in [min, max], both inclusive.
func IntRange(field string, value, min, max int) error {
	if value < min {
		return Errorf(field, "must be at least %d, got %d", min, value)
	}
	if value > max {
		return Errorf(field, "must be at most %d, got %d", max, value)
	}
	return nil
}
