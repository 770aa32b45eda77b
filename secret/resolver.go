package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

const refPrefix = "secretref:"

var inlineRefPattern = regexp.MustCompile(`secretref:([^:\s]+):([^\s]+)`)

// Resolver turns configuration values into credentials: environment
// expansion first, then secretref resolution through registered
// providers. In strict mode an empty resolved credential is an error,
// since an empty API key only fails later and further from the cause.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver with the given providers.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider, replacing any previous one with the same name.
func (r *Resolver) Register(p Provider) {
	if r == nil || p == nil {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[p.Name()] = p
}

// ResolveValue expands environment references in value and resolves any
// secret references, whole-value or embedded.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, name, ref)
	}
	return r.resolveEmbedded(ctx, expanded)
}

// ResolveSlice resolves each value in values.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

// ResolveMap resolves each string value in input.
func (r *Resolver) ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error) {
	if input == nil {
		return nil, nil
	}
	out := make(map[string]string, len(input))
	for k, v := range input {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

// ParseSecretRef parses a whole-value secret reference of the form
// secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	if !strings.HasPrefix(value, refPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(value, refPrefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func (r *Resolver) resolve(ctx context.Context, name, ref string) (string, error) {
	provider, ok := r.providers[name]
	if !ok || provider == nil {
		return "", fmt.Errorf("secret: provider %q is not registered", name)
	}
	resolved, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && resolved == "" {
		return "", fmt.Errorf("secret: provider %q returned empty value", name)
	}
	return resolved, nil
}

// resolveEmbedded handles references inside a larger value, like
// "Bearer secretref:env:OPS_TOKEN". Replacement runs back-to-front so
// match offsets stay valid.
func (r *Resolver) resolveEmbedded(ctx context.Context, value string) (string, error) {
	matches := inlineRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	out := value
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		resolved, err := r.resolve(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}
