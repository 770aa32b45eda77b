package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/marketops/invoke"
	"github.com/jonwraymond/marketops/observe"
	"github.com/jonwraymond/marketops/resilience"
	"github.com/jonwraymond/marketops/secret"
	"github.com/jonwraymond/marketops/upstream"
	"github.com/jonwraymond/marketops/validation"
)

// Cache backends.
const (
	BackendDisk   = "disk"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the fully resolved server configuration. Fields holding
// credentials (APIKey, Ops.Token, Ops.JWTSecret, Cache.Redis.Password)
// accept secretref: values in the YAML file; Load resolves them before
// validation.
type Config struct {
	// APIKey authenticates against the upstream market-data API.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the historical API endpoint. Empty means the
	// production endpoint.
	BaseURL string `yaml:"base_url"`

	// LiveGateway overrides the live gateway address. Empty means the
	// address derived from the dataset name.
	LiveGateway string `yaml:"live_gateway"`

	// ResetThreshold is the consecutive-failure count that triggers a
	// connection pool reset.
	ResetThreshold int `yaml:"reset_threshold"`

	Cache   CacheConfig   `yaml:"cache"`
	Retry   RetryConfig   `yaml:"retry"`
	Ops     OpsConfig     `yaml:"ops"`
	Observe ObserveConfig `yaml:"observe"`
}

// CacheConfig selects and parameterizes the response cache backend.
type CacheConfig struct {
	Backend string      `yaml:"backend"` // disk|memory|redis
	Dir     string      `yaml:"dir"`     // disk backend only
	Redis   RedisConfig `yaml:"redis"`   // redis backend only
}

// RedisConfig holds redis backend connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RetryConfig holds the default retry policy for upstream calls.
type RetryConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	BaseDelay      Duration `yaml:"base_delay"`
	MaxDelay       Duration `yaml:"max_delay"`
	JitterFraction float64  `yaml:"jitter_fraction"`
}

// Policy converts the section into a resilience policy.
func (r RetryConfig) Policy() resilience.Policy {
	return resilience.Policy{
		MaxAttempts:    r.MaxAttempts,
		BaseDelay:      time.Duration(r.BaseDelay),
		MaxDelay:       time.Duration(r.MaxDelay),
		JitterFraction: r.JitterFraction,
	}
}

// OpsConfig configures the operational HTTP listener. When both Token and
// JWTSecret are empty the listener is unauthenticated, which is only
// sensible on a loopback address.
type OpsConfig struct {
	Addr      string `yaml:"addr"`
	Token     string `yaml:"token"`
	JWTSecret string `yaml:"jwt_secret"`
}

// ObserveConfig holds telemetry settings. Empty exporter strings disable
// the corresponding subsystem.
type ObserveConfig struct {
	LogLevel        string  `yaml:"log_level"`
	MetricsExporter string  `yaml:"metrics_exporter"`
	TracingExporter string  `yaml:"tracing_exporter"`
	TraceSamplePct  float64 `yaml:"trace_sample_pct"`
}

// ObserverConfig maps the section onto the observe package's config.
func (o ObserveConfig) ObserverConfig(serviceName, version string) observe.Config {
	return observe.Config{
		ServiceName: serviceName,
		Version:     version,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingExporter != "" && o.TracingExporter != "none",
			Exporter:  o.TracingExporter,
			SamplePct: o.TraceSamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsExporter != "" && o.MetricsExporter != "none",
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: o.LogLevel != "",
			Level:   o.LogLevel,
		},
	}
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the compiled-in defaults. The API key has no default
// and must come from the file or DATABENTO_API_KEY.
func Default() Config {
	retry := resilience.DefaultPolicy()
	return Config{
		BaseURL:        upstream.DefaultBaseURL,
		ResetThreshold: invoke.DefaultResetThreshold,
		Cache: CacheConfig{
			Backend: BackendDisk,
			Dir:     defaultCacheDir(),
		},
		Retry: RetryConfig{
			MaxAttempts:    retry.MaxAttempts,
			BaseDelay:      Duration(retry.BaseDelay),
			MaxDelay:       Duration(retry.MaxDelay),
			JitterFraction: retry.JitterFraction,
		},
		Ops: OpsConfig{
			Addr: "127.0.0.1:9780",
		},
		Observe: ObserveConfig{
			LogLevel:       "info",
			TraceSamplePct: 0.1,
		},
	}
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".marketops-cache"
	}
	return filepath.Join(base, "marketops")
}

// Load builds the effective configuration: defaults, overlaid by the YAML
// file at path (skipped when path is empty), overlaid by environment
// variables, with secret references resolved last. The result is
// validated before return.
func Load(ctx context.Context, path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.resolveSecrets(ctx); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables onto cfg. Variables take
// precedence over the file so deployments can override without editing it.
func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("DATABENTO_API_KEY", &cfg.APIKey)
	setString("MARKETOPS_BASE_URL", &cfg.BaseURL)
	setString("MARKETOPS_LIVE_GATEWAY", &cfg.LiveGateway)
	setInt("MARKETOPS_RESET_THRESHOLD", &cfg.ResetThreshold)

	setString("MARKETOPS_CACHE_BACKEND", &cfg.Cache.Backend)
	setString("MARKETOPS_CACHE_DIR", &cfg.Cache.Dir)
	setString("MARKETOPS_REDIS_ADDR", &cfg.Cache.Redis.Addr)
	setString("MARKETOPS_REDIS_PASSWORD", &cfg.Cache.Redis.Password)
	setInt("MARKETOPS_REDIS_DB", &cfg.Cache.Redis.DB)

	setString("MARKETOPS_OPS_ADDR", &cfg.Ops.Addr)
	setString("MARKETOPS_OPS_TOKEN", &cfg.Ops.Token)
	setString("MARKETOPS_JWT_SECRET", &cfg.Ops.JWTSecret)

	setString("MARKETOPS_LOG_LEVEL", &cfg.Observe.LogLevel)
	setString("MARKETOPS_METRICS_EXPORTER", &cfg.Observe.MetricsExporter)
	setString("MARKETOPS_TRACING_EXPORTER", &cfg.Observe.TracingExporter)
}

// resolveSecrets resolves secretref: values and ${ENV} expansions in the
// credential-bearing fields.
func (c *Config) resolveSecrets(ctx context.Context) error {
	r := secret.NewResolver(true, secret.EnvProvider{})

	fields := map[string]*string{
		"api_key":        &c.APIKey,
		"ops.token":      &c.Ops.Token,
		"ops.jwt_secret": &c.Ops.JWTSecret,
		"redis.password": &c.Cache.Redis.Password,
	}
	for name, field := range fields {
		if *field == "" {
			continue
		}
		resolved, err := r.ResolveValue(ctx, *field)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*field = resolved
	}
	return nil
}

// Validate checks the configuration, reporting every problem rather than
// the first.
func (c *Config) Validate() error {
	var errs []error

	if err := validation.APIKey(c.APIKey); err != nil {
		errs = append(errs, err)
	}

	switch c.Cache.Backend {
	case BackendDisk:
		if c.Cache.Dir == "" {
			errs = append(errs, errors.New("cache.dir is required for the disk backend"))
		}
	case BackendMemory:
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be one of disk, memory, redis, got %q", c.Cache.Backend))
	}

	if err := c.Retry.Policy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("retry: %w", err))
	}
	if c.ResetThreshold < 1 {
		errs = append(errs, fmt.Errorf("reset_threshold must be at least 1, got %d", c.ResetThreshold))
	}
	if c.Ops.Addr == "" {
		errs = append(errs, errors.New("ops.addr cannot be empty"))
	}
	if c.Ops.Token != "" && c.Ops.JWTSecret != "" {
		errs = append(errs, errors.New("ops.token and ops.jwt_secret are mutually exclusive"))
	}

	obs := c.Observe.ObserverConfig("marketops", "")
	if err := obs.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observe: %w", err))
	}

	return errors.Join(errs...)
}
