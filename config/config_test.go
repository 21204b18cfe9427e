package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filmgraph/errors"
)

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	prev, had := os.LookupEnv(key)
	require.NoError(t, os.Unsetenv(key))
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvDatabaseURL, EnvTMDBAPIKey,
		defaultEnvScope + EnvBindAddress, defaultEnvScope + EnvMetricsPort,
	} {
		unsetEnv(t, key)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "filmgraph.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func newTestLoader() *Loader {
	loader := NewLoader()
	loader.SetEnvFiles()
	return loader
}

func TestLoader_Defaults(t *testing.T) {
	clearOverrides(t)

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GraphQL.BindAddress)
	assert.Equal(t, "/graphql", cfg.GraphQL.Path)
	assert.True(t, cfg.GraphQL.EnablePlayground)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, 5*time.Second, cfg.Database.AcquireTimeoutDuration())
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 10*time.Second, cfg.TMDB.TimeoutDuration())
	assert.Empty(t, cfg.Database.URL)
}

func TestLoader_LoadJSON(t *testing.T) {
	clearOverrides(t)

	path := writeConfig(t, `{
		"database": {"url": "postgres://films@localhost/films", "max_conns": 4, "migrate": true},
		"graphql": {"bind_address": ":9000", "enable_cors": true},
		"tmdb": {"api_key": "abc", "base_url": "http://tmdb.local/3"}
	}`)

	loader := newTestLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://films@localhost/films", cfg.Database.URL)
	assert.Equal(t, int32(4), cfg.Database.MaxConns)
	assert.True(t, cfg.Database.Migrate)
	assert.Equal(t, ":9000", cfg.GraphQL.BindAddress)
	assert.Equal(t, []string{"*"}, cfg.GraphQL.CORSOrigins)
	assert.Equal(t, "abc", cfg.TMDB.APIKey)

	// Untouched sections keep their defaults
	assert.Equal(t, "/graphql", cfg.GraphQL.Path)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.Equal(t, "5s", cfg.Database.AcquireTimeout)
}

func TestLoader_LayersMerge(t *testing.T) {
	clearOverrides(t)

	base := writeConfig(t, `{"database": {"url": "postgres://base"}, "metrics": {"port": 9100}}`)
	override := writeConfig(t, `{"metrics": {"enabled": false}}`)

	loader := newTestLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://base", cfg.Database.URL)
	assert.Equal(t, 9100, cfg.Metrics.Port)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoader_EnvOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv(EnvDatabaseURL, "postgres://env")
	t.Setenv(EnvTMDBAPIKey, "env-key")
	t.Setenv("FILMGRAPH_BIND_ADDRESS", ":7070")
	t.Setenv("FILMGRAPH_METRICS_PORT", "9191")

	path := writeConfig(t, `{"database": {"url": "postgres://file"}}`)
	cfg, err := newTestLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env", cfg.Database.URL)
	assert.Equal(t, "env-key", cfg.TMDB.APIKey)
	assert.Equal(t, ":7070", cfg.GraphQL.BindAddress)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

func TestLoader_InvalidMetricsPortEnv(t *testing.T) {
	clearOverrides(t)
	t.Setenv("FILMGRAPH_METRICS_PORT", "nine")

	_, err := newTestLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestLoader_DotEnv(t *testing.T) {
	clearOverrides(t)

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("DATABASE_URL=postgres://dotenv\n"), 0600))

	loader := NewLoader()
	loader.SetEnvFiles(envFile, filepath.Join(t.TempDir(), "missing.env"))
	loader.EnableValidation(true)

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://dotenv", cfg.Database.URL)
}

func TestLoader_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	clearOverrides(t)
	t.Setenv(EnvDatabaseURL, "postgres://process")

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("DATABASE_URL=postgres://dotenv\n"), 0600))

	loader := NewLoader()
	loader.SetEnvFiles(envFile)
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://process", cfg.Database.URL)
}

func TestLoader_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing database url",
			body:    `{}`,
			wantErr: "database.url is required (set DATABASE_URL)",
		},
		{
			name:    "min above max",
			body:    `{"database": {"url": "postgres://x", "max_conns": 2, "min_conns": 3}}`,
			wantErr: "min_conns",
		},
		{
			name:    "bad acquire timeout",
			body:    `{"database": {"url": "postgres://x", "acquire_timeout": "soon"}}`,
			wantErr: "database.acquire_timeout",
		},
		{
			name:    "bad graphql path",
			body:    `{"database": {"url": "postgres://x"}, "graphql": {"path": "graphql"}}`,
			wantErr: "path must start with /",
		},
		{
			name:    "reserved graphql path",
			body:    `{"database": {"url": "postgres://x"}, "graphql": {"path": "/health"}}`,
			wantErr: "reserved",
		},
		{
			name:    "metrics port out of range",
			body:    `{"database": {"url": "postgres://x"}, "metrics": {"port": 70000}}`,
			wantErr: "metrics.port",
		},
		{
			name:    "bad tmdb timeout",
			body:    `{"database": {"url": "postgres://x"}, "tmdb": {"timeout": "-1s"}}`,
			wantErr: "tmdb.timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOverrides(t)

			loader := newTestLoader()
			loader.EnableValidation(true)
			_, err := loader.LoadFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.IsFatal(err), "expected fatal error, got %v", err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_MissingDatabaseURLIsMissingConfig(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingConfig))
}

func TestLoader_RejectsUnsafePaths(t *testing.T) {
	clearOverrides(t)

	tests := []string{
		"",
		"../outside.json",
		filepath.Join(t.TempDir(), "config.yaml"),
	}
	for _, path := range tests {
		_, err := newTestLoader().LoadFile(path)
		assert.Error(t, err, "path %q should be rejected", path)
	}
}

func TestLoader_RejectsDeepJSON(t *testing.T) {
	clearOverrides(t)

	body := `{"database":` + strings.Repeat(`{"a":`, maxLayerDepth+1) + `1` +
		strings.Repeat(`}`, maxLayerDepth+1) + `}`
	_, err := newTestLoader().LoadFile(writeConfig(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too deep")
}

func TestLoader_RejectsOversizedLayer(t *testing.T) {
	clearOverrides(t)

	body := `{"tmdb":{"base_url":"` + strings.Repeat("x", maxLayerSize) + `"}}`
	_, err := newTestLoader().LoadFile(writeConfig(t, body))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "too large")
}

func TestLoader_RejectsNonObjectLayer(t *testing.T) {
	clearOverrides(t)

	_, err := newTestLoader().LoadFile(writeConfig(t, `["database"]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a JSON object")
}

func TestLoader_EnvFileChecks(t *testing.T) {
	clearOverrides(t)
	dir := t.TempDir()

	loader := newTestLoader()
	loader.SetEnvFiles(filepath.Join(dir, "absent.env"))
	_, err := loader.Load()
	assert.NoError(t, err, "a missing dotenv file is skipped")

	loader = newTestLoader()
	loader.SetEnvFiles(dir)
	_, err = loader.Load()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "not a regular file")

	big := filepath.Join(dir, "big.env")
	require.NoError(t, os.WriteFile(big, []byte("TMDB_API_KEY="+strings.Repeat("k", maxEnvFileSize)+"\n"), 0o600))
	loader = newTestLoader()
	loader.SetEnvFiles(big)
	_, err = loader.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoader_RejectsOversizedEnvValue(t *testing.T) {
	clearOverrides(t)
	t.Setenv(EnvTMDBAPIKey, strings.Repeat("k", maxEnvValueLen+1))

	_, err := newTestLoader().Load()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), EnvTMDBAPIKey)
}

func TestConfig_StringRedactsSecrets(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{URL: "postgres://user:secret@db/films"},
		TMDB:     TMDBConfig{APIKey: "tmdb-secret"},
	}

	out := cfg.String()
	assert.NotContains(t, out, "secret")
	assert.Contains(t, out, "[redacted]")
	// The original value is untouched
	assert.Equal(t, "tmdb-secret", cfg.TMDB.APIKey)
}
