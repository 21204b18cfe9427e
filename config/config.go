package config

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/c360/filmgraph/errors"
	"github.com/c360/filmgraph/gateway/graphql"
)

// Environment variables read after the JSON layers.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvTMDBAPIKey   = "TMDB_API_KEY"
	EnvBindAddress  = "_BIND_ADDRESS"
	EnvMetricsPort  = "_METRICS_PORT"
	defaultEnvScope = "FILMGRAPH"
)

// MissingDatabaseURL is reported when no database URL is configured.
const MissingDatabaseURL = "database.url is required (set DATABASE_URL)"

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `json:"database"`
	GraphQL  graphql.Config `json:"graphql"`
	Metrics  MetricsConfig  `json:"metrics"`
	TMDB     TMDBConfig     `json:"tmdb"`
}

// DatabaseConfig defines the Postgres connection pool
type DatabaseConfig struct {
	URL            string `json:"url"`
	MaxConns       int32  `json:"max_conns,omitempty"`
	MinConns       int32  `json:"min_conns,omitempty"`
	AcquireTimeout string `json:"acquire_timeout,omitempty"` // e.g. "5s"
	Migrate        bool   `json:"migrate"`
}

// AcquireTimeoutDuration returns the parsed acquire timeout, or zero when unset
func (d DatabaseConfig) AcquireTimeoutDuration() time.Duration {
	if d.AcquireTimeout == "" {
		return 0
	}
	timeout, err := time.ParseDuration(d.AcquireTimeout)
	if err != nil {
		return 0
	}
	return timeout
}

// MetricsConfig defines the Prometheus exposition server
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// TMDBConfig defines the metadata provider client
type TMDBConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Timeout string `json:"timeout,omitempty"`
}

// TimeoutDuration returns the parsed client timeout, or zero when unset
func (t TMDBConfig) TimeoutDuration() time.Duration {
	if t.Timeout == "" {
		return 0
	}
	timeout, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0
	}
	return timeout
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.WrapFatal(errors.ErrMissingConfig, "Config", "Validate", MissingDatabaseURL)
	}

	if c.Database.MaxConns < 0 || c.Database.MinConns < 0 {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate",
			"database connection limits must not be negative")
	}
	if c.Database.MaxConns > 0 && c.Database.MinConns > c.Database.MaxConns {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate",
			"database.min_conns must not exceed database.max_conns")
	}
	if err := validateDuration(c.Database.AcquireTimeout); err != nil {
		return errors.WrapFatal(err, "Config", "Validate", "database.acquire_timeout")
	}

	if err := c.GraphQL.Validate(); err != nil {
		return errors.WrapFatal(err, "Config", "Validate", "graphql")
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return errors.WrapFatal(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}

	if err := validateDuration(c.TMDB.Timeout); err != nil {
		return errors.WrapFatal(err, "Config", "Validate", "tmdb.timeout")
	}

	return nil
}

func validateDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err)
	}
	if d < 0 {
		return fmt.Errorf("%w: negative duration %s", errors.ErrInvalidConfig, s)
	}
	return nil
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	envFiles   []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:     []string{},
		envFiles:   []string{".env"},
		validation: false,
		envPrefix:  defaultEnvScope,
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// SetEnvFiles replaces the dotenv files read before environment overrides.
// Missing files are ignored.
func (l *Loader) SetEnvFiles(paths ...string) {
	l.envFiles = paths
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := l.getDefaults()

	for _, path := range l.layers {
		rawConfig, err := readLayer(path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", fmt.Sprintf("load %s", path))
		}
		cfg = l.mergeFromMap(cfg, rawConfig)
	}

	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// getDefaults returns default configuration
func (l *Loader) getDefaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			MaxConns:       10,
			AcquireTimeout: "5s",
		},
		GraphQL: graphql.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		TMDB: TMDBConfig{
			Timeout: "10s",
		},
	}
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) *Config {
	if override == nil {
		return base
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return base
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return base
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return base
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return base
	}

	return &merged
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

// loadEnvFiles populates the process environment from dotenv files.
// Variables already set in the environment win.
func (l *Loader) loadEnvFiles() error {
	for _, path := range l.envFiles {
		if err := statRegular(path, maxEnvFileSize); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return errors.WrapFatal(err, "Loader", "loadEnvFiles", fmt.Sprintf("check %s", path))
		}
		if err := godotenv.Load(path); err != nil {
			return errors.WrapFatal(err, "Loader", "loadEnvFiles", fmt.Sprintf("read %s", path))
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	if val, err := lookupEnv(EnvDatabaseURL); err != nil {
		return err
	} else if val != "" {
		cfg.Database.URL = val
	}

	if val, err := lookupEnv(EnvTMDBAPIKey); err != nil {
		return err
	} else if val != "" {
		cfg.TMDB.APIKey = val
	}

	if val, err := lookupEnv(l.envPrefix + EnvBindAddress); err != nil {
		return err
	} else if val != "" {
		cfg.GraphQL.BindAddress = val
	}

	if val, err := lookupEnv(l.envPrefix + EnvMetricsPort); err != nil {
		return err
	} else if val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return errors.WrapFatal(errors.ErrInvalidConfig, "Loader", "applyEnvOverrides",
				fmt.Sprintf("%s%s=%q is not a port", l.envPrefix, EnvMetricsPort, val))
		}
		cfg.Metrics.Port = port
	}

	return nil
}

func lookupEnv(key string) (string, error) {
	val := os.Getenv(key)
	if err := checkEnvValue(key, val); err != nil {
		return "", errors.WrapFatal(err, "Loader", "applyEnvOverrides", key)
	}
	return val, nil
}

// String returns a JSON representation of the config with secrets redacted
func (c *Config) String() string {
	redacted := *c
	if redacted.Database.URL != "" {
		redacted.Database.URL = "[redacted]"
	}
	if redacted.TMDB.APIKey != "" {
		redacted.TMDB.APIKey = "[redacted]"
	}
	data, _ := json.MarshalIndent(&redacted, "", "  ")
	return string(data)
}
