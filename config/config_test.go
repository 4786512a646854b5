package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/residency-engine/residency"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "./data/residency.db", cfg.Store.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.ExtractionModel)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.AI.ChatModel)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "Georgia", cfg.Residency.Country)
	assert.Equal(t, residency.OverlapMerge, cfg.Residency.OverlapPolicy())
}

func TestAIConfig_RequestBudget(t *testing.T) {
	// GIVEN: the default retry policy
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	// THEN: the budget covers the first attempt plus every retry
	assert.Equal(t, 4*45*time.Second, cfg.AI.RequestBudget())
	assert.Equal(t, 10*time.Second, AIConfig{Timeout: 10 * time.Second}.RequestBudget())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
store:
  db_path: ":memory:"
ai:
  timeout: 10s
  max_concurrency: 2
residency:
  overlap: sum
`)
	t.Setenv("RESIDENCY_AI_API_KEY", "secret")
	t.Setenv("RESIDENCY_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Store.DBPath)
	assert.Equal(t, 10*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 2, cfg.AI.MaxConcurrency)
	assert.Equal(t, residency.OverlapSum, cfg.Residency.OverlapPolicy())
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, "residency:\n  overlap: average\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "residency.overlap")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:    ServerConfig{Port: 8080},
			Store:     StoreConfig{DBPath: ":memory:"},
			Log:       LogConfig{Level: "info"},
			AI:        AIConfig{Timeout: time.Second, MaxConcurrency: 1},
			Residency: ResidencyConfig{Country: "Georgia", Overlap: "merge"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no db path", func(c *Config) { c.Store.DBPath = "" }, "store.db_path"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"no timeout", func(c *Config) { c.AI.Timeout = 0 }, "ai.timeout"},
		{"negative retries", func(c *Config) { c.AI.MaxRetries = -1 }, "ai.max_retries"},
		{"no concurrency", func(c *Config) { c.AI.MaxConcurrency = 0 }, "ai.max_concurrency"},
		{"no country", func(c *Config) { c.Residency.Country = "" }, "residency.country"},
		{"empty overlap defaults", func(c *Config) { c.Residency.Overlap = "" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
