package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-analyzer/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Storage.Enabled())
	assert.Equal(t, 4, cfg.Processing.MaxConcurrency)
	assert.Equal(t, ".", cfg.Export.Dir)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
  format: json
server:
  address: ":9090"
  read_timeout: 5s
database:
  driver: postgres
  dsn: "host=localhost user=nfe dbname=nfe"
processing:
  max_concurrency: 8
storage:
  endpoint: "localhost:9000"
  bucket: reports
`), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 8, cfg.Processing.MaxConcurrency)
	assert.Equal(t, "reports", cfg.Storage.Bucket)
	assert.Equal(t, "exports", cfg.Storage.Prefix)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("NFE_LOG_LEVEL", "warn")
	t.Setenv("NFE_DB_DSN", "file:nfe.db")
	t.Setenv("NFE_MAX_CONCURRENCY", "2")
	t.Setenv("NFE_MINIO_USE_SSL", "true")
	t.Setenv("NFE_MINIO_ENDPOINT", "s3.local")
	t.Setenv("NFE_MINIO_BUCKET", "nfe")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "file:nfe.db", cfg.Database.DSN)
	assert.Equal(t, 2, cfg.Processing.MaxConcurrency)
	assert.True(t, cfg.Storage.UseSSL)
	assert.True(t, cfg.Storage.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"NFE_LOG_LEVEL": "trace"}, "invalid log level"},
		{"log format", map[string]string{"NFE_LOG_FORMAT": "xml"}, "invalid log format"},
		{"driver", map[string]string{"NFE_DB_DRIVER": "mysql"}, "invalid database driver"},
		{"concurrency", map[string]string{"NFE_MAX_CONCURRENCY": "0"}, "max_concurrency"},
		{"bucket", map[string]string{"NFE_MINIO_ENDPOINT": "s3.local"}, "bucket is required"},
		{"upload", map[string]string{"NFE_EXPORT_UPLOAD": "true"}, "requires a storage endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load("")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o600))

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}
