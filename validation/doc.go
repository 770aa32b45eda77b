// Package validation checks request parameters against the upstream
// API's vocabulary: dataset naming, known schemas, encodings,
// compressions, symbology types, date formats and ranges, and symbol
// lists. Failures are *Error values, which the execution layer treats as
// caller faults: never retried, never cached.
package validation
