package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/astro-web3/print-gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	dir := writeConfig(t, "auth:\n  secret: s3cret\n")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.False(t, cfg.Auth.Security)
	assert.Equal(t, config.BackendLP, cfg.Printing.Backend)
	assert.Equal(t, config.ConvertAuto, cfg.Printing.Convert)
	assert.Equal(t, "magick", cfg.Printing.ImageMagick.Bin)
	assert.Equal(t, time.Minute, cfg.Printing.Spooler.Timeout)
}

func TestLoad_FileValues(t *testing.T) {
	t.Setenv("APP_ENV", "")
	dir := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 8631
auth:
  secret: abc
  security: true
printing:
  backend: spooler
  convert: none
  spooler:
    base_url: http://spooler.local
    timeout: 5s
`)

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8631", cfg.Addr())
	assert.True(t, cfg.Auth.Security)
	assert.Equal(t, config.BackendSpooler, cfg.Printing.Backend)
	assert.Equal(t, "http://spooler.local", cfg.Printing.Spooler.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Printing.Spooler.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PRINT_GATEWAY_AUTH_SECRET", "from-env")
	t.Setenv("PRINT_GATEWAY_AUTH_SECURITY", "true")
	t.Setenv("PRINT_GATEWAY_SERVER_PORT", "4000")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.Secret)
	assert.True(t, cfg.Auth.Security)
	assert.Equal(t, 4000, cfg.Server.Port)
}

func TestLoad_EnvironmentOverlay(t *testing.T) {
	dir := writeConfig(t, "auth:\n  secret: base\n")
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "config.staging.yaml"),
		[]byte("auth:\n  security: true\n"),
		0o600,
	))
	t.Setenv("APP_ENV", "staging")

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "base", cfg.Auth.Secret)
	assert.True(t, cfg.Auth.Security)
}

func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "")
	_, err := config.Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.secret")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:   "valid lp",
			mutate: func(*config.Config) {},
		},
		{
			name:    "unknown backend",
			mutate:  func(c *config.Config) { c.Printing.Backend = "cups-ipp" },
			wantErr: "printing.backend",
		},
		{
			name:    "spooler without url",
			mutate:  func(c *config.Config) { c.Printing.Backend = config.BackendSpooler },
			wantErr: "base_url",
		},
		{
			name:    "bad convert mode",
			mutate:  func(c *config.Config) { c.Printing.Convert = "png" },
			wantErr: "printing.convert",
		},
		{
			name:    "bad port",
			mutate:  func(c *config.Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Auth.Secret = "s"
			cfg.Server.Port = 3000
			cfg.Printing.Backend = config.BackendLP
			cfg.Printing.Convert = config.ConvertAuto
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
