package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, DefaultPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
namespace: acme
redis:
  url: redis://cache:6380/2
reconcile:
  debounce_ms: 20
drag:
  activation_distance: 4
store:
  breaker:
    max_failures: 2
    open_timeout_ms: 500
log:
  level: debug
  file: /tmp/swimlane.log
`)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "acme", config.Namespace)
	assert.Equal(t, 20*time.Millisecond, config.Debounce())
	assert.Equal(t, 4.0, config.Drag.ActivationDistance)
	assert.Equal(t, uint32(2), config.Store.Breaker.MaxFailures)
	assert.Equal(t, 500*time.Millisecond, config.BreakerOpenTimeout())
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, 10, config.Log.MaxSizeMB, "unset fields are defaulted")

	opts, err := config.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	config, err := Load(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, Default(), config)
	assert.Equal(t, "default", config.Namespace)
	assert.Equal(t, "redis://localhost:6379/0", config.Redis.URL)
	assert.Equal(t, 50*time.Millisecond, config.Debounce())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
redis:
  - this is invalid
    yaml syntax
`)

	config, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
namespace: from-file
`)
	t.Setenv(EnvNamespace, "from-env")
	t.Setenv(EnvRedisURL, "redis://other:6379/1")

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", config.Namespace)
	assert.Equal(t, "redis://other:6379/1", config.Redis.URL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
`)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("SWIMLANE_LOG_LEVEL=WARN\n"), 0644))
	t.Cleanup(func() { os.Unsetenv(EnvLogLevel) })

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", config.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SwimlaneConfig)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*SwimlaneConfig) {}},
		{name: "unsupported version", mutate: func(c *SwimlaneConfig) { c.Version = "2.0" }, wantErr: "unsupported version: 2.0"},
		{name: "namespace with colon", mutate: func(c *SwimlaneConfig) { c.Namespace = "a:b" }, wantErr: "invalid namespace"},
		{name: "bad redis url", mutate: func(c *SwimlaneConfig) { c.Redis.URL = "http://nope" }, wantErr: "invalid redis.url"},
		{name: "negative debounce", mutate: func(c *SwimlaneConfig) { c.Reconcile.DebounceMs = -1 }, wantErr: "debounce_ms"},
		{name: "negative activation", mutate: func(c *SwimlaneConfig) { c.Drag.ActivationDistance = -2 }, wantErr: "activation_distance"},
		{name: "unknown log level", mutate: func(c *SwimlaneConfig) { c.Log.Level = "verbose" }, wantErr: "invalid log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
