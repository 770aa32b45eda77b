package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testKey = "db-test-key-000000000000000000000"

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marketops.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestDefault_ValidatesWithKey(t *testing.T) {
	cfg := Default()
	cfg.APIKey = testKey

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.Cache.Backend != BackendDisk {
		t.Errorf("default backend = %q, want %q", cfg.Cache.Backend, BackendDisk)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("default max attempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfigFile(t, `
api_key: `+testKey+`
cache:
  backend: memory
retry:
  max_attempts: 5
  base_delay: 250ms
  max_delay: 30s
  jitter_fraction: 0.5
`)

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cache.Backend != BackendMemory {
		t.Errorf("backend = %q, want %q", cfg.Cache.Backend, BackendMemory)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("max attempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if got := time.Duration(cfg.Retry.BaseDelay); got != 250*time.Millisecond {
		t.Errorf("base delay = %v, want 250ms", got)
	}
	// Untouched sections keep their defaults.
	if cfg.Ops.Addr != "127.0.0.1:9780" {
		t.Errorf("ops addr = %q, want default", cfg.Ops.Addr)
	}
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfigFile(t, "api_key: "+testKey+"\nnot_a_field: true\n")

	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoad_MissingFileErrors(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "api_key: db-from-file-0000000000000000\ncache:\n  backend: memory\n")
	t.Setenv("DATABENTO_API_KEY", testKey)
	t.Setenv("MARKETOPS_CACHE_BACKEND", "disk")
	t.Setenv("MARKETOPS_RESET_THRESHOLD", "7")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != testKey {
		t.Errorf("api key = %q, want env value", cfg.APIKey)
	}
	if cfg.Cache.Backend != BackendDisk {
		t.Errorf("backend = %q, want disk", cfg.Cache.Backend)
	}
	if cfg.ResetThreshold != 7 {
		t.Errorf("reset threshold = %d, want 7", cfg.ResetThreshold)
	}
}

func TestLoad_ResolvesSecretRefs(t *testing.T) {
	t.Setenv("MARKETOPS_TEST_KEY", testKey)
	path := writeConfigFile(t, "api_key: secretref:env:MARKETOPS_TEST_KEY\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIKey != testKey {
		t.Errorf("api key = %q, want resolved secret", cfg.APIKey)
	}
}

func TestLoad_UnresolvableSecretErrors(t *testing.T) {
	path := writeConfigFile(t, "api_key: secretref:env:MARKETOPS_DEFINITELY_UNSET\n")

	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected error for unresolvable secret")
	}
}

func TestDuration_UnmarshalRejectsBareNumbers(t *testing.T) {
	path := writeConfigFile(t, "api_key: "+testKey+"\nretry:\n  base_delay: 250\n")

	if _, err := Load(context.Background(), path); err == nil {
		t.Fatal("expected error for non-string duration")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "wrong-prefix"
	cfg.Cache.Backend = "filesystem"
	cfg.ResetThreshold = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"api_key", "cache.backend", "reset_threshold"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got %v", want, err)
		}
	}
}

func TestValidate_Backends(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"memory needs nothing", func(c *Config) { c.Cache = CacheConfig{Backend: BackendMemory} }, false},
		{"redis without addr", func(c *Config) { c.Cache = CacheConfig{Backend: BackendRedis} }, true},
		{"redis with addr", func(c *Config) {
			c.Cache = CacheConfig{Backend: BackendRedis, Redis: RedisConfig{Addr: "localhost:6379"}}
		}, false},
		{"disk without dir", func(c *Config) { c.Cache = CacheConfig{Backend: BackendDisk} }, true},
		{"token and jwt together", func(c *Config) {
			c.Ops.Token = "t"
			c.Ops.JWTSecret = "s"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.APIKey = testKey
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestObserverConfig_Mapping(t *testing.T) {
	o := ObserveConfig{
		LogLevel:        "debug",
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		TraceSamplePct:  0.5,
	}
	obs := o.ObserverConfig("marketops", "1.0.0")

	if !obs.Logging.Enabled || obs.Logging.Level != "debug" {
		t.Errorf("logging not mapped: %+v", obs.Logging)
	}
	if !obs.Metrics.Enabled || obs.Metrics.Exporter != "prometheus" {
		t.Errorf("metrics not mapped: %+v", obs.Metrics)
	}
	if obs.Tracing.Enabled {
		t.Error("tracing exporter \"none\" should leave tracing disabled")
	}
}
