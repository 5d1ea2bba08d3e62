// Package config loads the gentleman.json configuration used by the
// CLI. File values are layered under GENTLEMAN_* environment
// overrides, then validated.
package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/gentleman-programming/gentleman-signals-state-manager/internal/errors"
)

const (
	// FileName is the default configuration file name.
	FileName = "gentleman.json"

	// DefaultAddr is the default inspector listen address.
	DefaultAddr = "localhost:6060"

	// DefaultMetricsNamespace is the default Prometheus namespace.
	DefaultMetricsNamespace = "gentleman"

	// DefaultDebounceMS is the default persistence debounce.
	DefaultDebounceMS = 1000
)

// Persistence modes.
const (
	PersistNone = "none"
	PersistFile = "file"
	PersistS3   = "s3"
)

// Config is the complete gentleman.json schema.
type Config struct {
	// Addr is the inspector listen address.
	Addr string `json:"addr,omitempty" env:"GENTLEMAN_ADDR"`

	// MetricsNamespace is the Prometheus namespace for store metrics.
	MetricsNamespace string `json:"metricsNamespace,omitempty" env:"GENTLEMAN_METRICS_NAMESPACE"`

	// State is the default-state configuration served to the store.
	State map[string]any `json:"state,omitempty"`

	// TransientKeys are state keys excluded from persistence.
	TransientKeys []string `json:"transientKeys,omitempty" env:"GENTLEMAN_TRANSIENT_KEYS" envSeparator:","`

	// StrictKeys makes access to keys outside State an error.
	StrictKeys bool `json:"strictKeys,omitempty" env:"GENTLEMAN_STRICT_KEYS"`

	// Persistence configures snapshotting.
	Persistence Persistence `json:"persistence,omitempty"`
}

// Persistence configures where snapshots go.
type Persistence struct {
	// Mode is "none", "file", or "s3".
	Mode string `json:"mode,omitempty" env:"GENTLEMAN_PERSIST_MODE"`

	// Path is the snapshot file path (file mode).
	Path string `json:"path,omitempty" env:"GENTLEMAN_PERSIST_PATH"`

	// Bucket is the S3 bucket (s3 mode).
	Bucket string `json:"bucket,omitempty" env:"GENTLEMAN_PERSIST_BUCKET"`

	// Prefix is the S3 key prefix (s3 mode).
	Prefix string `json:"prefix,omitempty" env:"GENTLEMAN_PERSIST_PREFIX"`

	// Region is the S3 region (s3 mode). Defaults to "us-east-1".
	Region string `json:"region,omitempty" env:"GENTLEMAN_PERSIST_REGION"`

	// Endpoint overrides the S3 endpoint, for S3-compatible stores
	// such as MinIO.
	Endpoint string `json:"endpoint,omitempty" env:"GENTLEMAN_PERSIST_ENDPOINT"`

	// DebounceMS is how long changes settle before a snapshot is
	// written, in milliseconds.
	DebounceMS int `json:"debounceMs,omitempty" env:"GENTLEMAN_PERSIST_DEBOUNCE_MS"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Addr:             DefaultAddr,
		MetricsNamespace: DefaultMetricsNamespace,
		State:            map[string]any{},
		Persistence: Persistence{
			Mode:       PersistNone,
			DebounceMS: DefaultDebounceMS,
		},
	}
}

// Load reads the configuration from path, fills in defaults, applies
// environment overrides, and validates. An empty path means FileName
// in the current directory; a missing file at that implicit path is
// not an error and yields the defaults (still env-overridable).
func Load(path string) (*Config, error) {
	implicit := path == ""
	if implicit {
		path = FileName
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E102").Wrap(err).
				WithSuggestion("check " + path + " for trailing commas or unquoted keys")
		}
	case os.IsNotExist(err) && implicit:
		// No file, defaults only.
	default:
		return nil, errors.New("E101").Wrap(err).
			WithSuggestion("create " + path + " or pass --config")
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.Newf(errors.CategoryConfig, "parse environment overrides: %v", err).Wrap(err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MetricsNamespace == "" {
		c.MetricsNamespace = DefaultMetricsNamespace
	}
	if c.State == nil {
		c.State = map[string]any{}
	}
	if c.Persistence.Mode == "" {
		c.Persistence.Mode = PersistNone
	}
	if c.Persistence.Mode == PersistS3 && c.Persistence.Region == "" {
		c.Persistence.Region = "us-east-1"
	}
	if c.Persistence.DebounceMS <= 0 {
		c.Persistence.DebounceMS = DefaultDebounceMS
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if !strings.Contains(c.Addr, ":") {
		return errors.New("E104").
			WithSuggestion("use host:port, e.g. \"localhost:6060\"")
	}

	switch c.Persistence.Mode {
	case PersistNone:
	case PersistFile:
		if c.Persistence.Path == "" {
			return errors.New("E103").
				WithSuggestion("file mode needs persistence.path")
		}
	case PersistS3:
		if c.Persistence.Bucket == "" {
			return errors.New("E103").
				WithSuggestion("s3 mode needs persistence.bucket")
		}
	default:
		return errors.New("E103").
			WithSuggestion("persistence.mode must be none, file, or s3")
	}

	return nil
}
