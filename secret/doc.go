// Package secret resolves credential references in configuration values,
// so API keys never have to sit in config files verbatim.
//
// It supports:
//   - Strict environment expansion (see ExpandEnvStrict)
//   - Pluggable secret providers (see Provider; EnvProvider is built in)
//   - Resolving secret references in configuration values (see Resolver)
//
// References use the prefix "secretref:":
//   - Full value:  secretref:env:DATABENTO_API_KEY
//   - Inline use:  Bearer secretref:env:OPS_TOKEN
package secret
