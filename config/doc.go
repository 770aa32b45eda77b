// Package config loads server configuration: compiled defaults, overlaid
// by an optional YAML file, overlaid by environment variables, with
// credential references resolved through the secret package. Validation
// happens once at load; the rest of the process trusts the result.
package config
