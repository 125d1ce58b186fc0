package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/nurexia/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
	content := []byte(`
log_level: debug
defaults:
  provider: openai
  format: json
  temperature: 0.2
providers:
  openai:
    api_key: "${TEST_OPENAI_KEY}"
    default_model: gpt-4o
server:
  host: "127.0.0.1"
  port: 8081
archive:
  enabled: true
  type: localfs
  path: "/tmp/nurexia/transcripts"
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Defaults.Provider)
	assert.Equal(t, "json", cfg.Defaults.Format)
	assert.Equal(t, "chat", cfg.Defaults.Mode, "unset keys keep defaults")
	assert.Equal(t, 0.2, cfg.Defaults.Temperature)
	assert.Equal(t, "sk-from-env", cfg.Providers["openai"].APIKey)
	assert.Equal(t, "localfs", cfg.Archive.Type)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.Defaults.Provider)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("NUREXIA_SERVER_PORT", "9090")
	t.Setenv("NUREXIA_DEFAULTS_PROVIDER", "ollama")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.Defaults.Provider)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Defaults.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %f", cfg.Defaults.Temperature)
	}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(c *Config)) Config {
		c := *Defaults()
		mut(&c)
		return c
	}
	tests := []struct {
		name    string
		cfg     Config
		wantErr *core.Error
	}{
		{"valid config", valid(func(*Config) {}), nil},
		{"invalid port - zero", valid(func(c *Config) { c.Server.Port = 0 }), core.ErrConfigInvalid},
		{"invalid port - too high", valid(func(c *Config) { c.Server.Port = 70000 }), core.ErrConfigInvalid},
		{"temperature too high", valid(func(c *Config) { c.Defaults.Temperature = 2.5 }), core.ErrConfigInvalid},
		{"negative temperature", valid(func(c *Config) { c.Defaults.Temperature = -0.1 }), core.ErrConfigInvalid},
		{"unknown format", valid(func(c *Config) { c.Defaults.Format = "html" }), core.ErrConfigInvalid},
		{"unknown mode", valid(func(c *Config) { c.Defaults.Mode = "review" }), core.ErrConfigInvalid},
		{"bad log level", valid(func(c *Config) { c.LogLevel = "loud" }), core.ErrConfigInvalid},
		{"missing provider", valid(func(c *Config) { c.Defaults.Provider = "" }), core.ErrConfigMissing},
		{"metrics path", valid(func(c *Config) { c.Metrics.Path = "metrics" }), core.ErrConfigInvalid},
		{"s3 without bucket", valid(func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
		}), core.ErrConfigMissing},
		{"unknown archive type", valid(func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "ftp"
		}), core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "Validate() error = %v, want %s", err, tt.wantErr.Code)
		})
	}
}
