package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
beehiiv:
  api_key: file-key
session:
  redis_url: redis://cache:6379/1
`), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.Equal(t, "file-key", cfg.Beehiiv.APIKey)
	assert.Equal(t, "https://api.beehiiv.com/v2", cfg.Beehiiv.BaseURL)
	assert.Equal(t, "redis://cache:6379/1", cfg.Session.RedisURL)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 1600, cfg.Analyzer.MaxImageWidth)
	assert.Equal(t, 8, cfg.Report.AnalysisConcurrency)
	assert.False(t, cfg.Export.ArchiveEnabled)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}
