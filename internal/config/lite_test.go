package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdr-rating-server/internal/domain"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.True(t, cfg.HistoryEnable)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, domain.MatchSubstring, cfg.OccupationMatch)
	assert.Equal(t, domain.AgeSourceTable, cfg.AgeAdjustmentSource)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, domain.MatchSubstring, cfg.OccupationMatch)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PDR_DATA_DIR", "/tmp/test-pdr")
	t.Setenv("PDR_CACHE_MAX_ITEMS", "500")
	t.Setenv("PDR_CACHE_TTL", "12h")
	t.Setenv("PDR_HTTP_PORT", "9090")
	t.Setenv("PDR_LOG_LEVEL", "debug")
	t.Setenv("PDR_OCCUPATION_MATCH", "exact")
	t.Setenv("PDR_AGE_ADJUSTMENT_SOURCE", "bands")
	t.Setenv("PDR_HISTORY_ENABLED", "false")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-pdr", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, domain.MatchExact, cfg.OccupationMatch)
	assert.Equal(t, domain.AgeSourceBands, cfg.AgeAdjustmentSource)
	assert.False(t, cfg.HistoryEnable)
}

func TestLoadLiteConfig_InvalidValuesKeepDefaults(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("PDR_CACHE_MAX_ITEMS", "-5")
	t.Setenv("PDR_CACHE_TTL", "soon")
	t.Setenv("PDR_OCCUPATION_MATCH", "fuzzy")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, domain.MatchSubstring, cfg.OccupationMatch)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.pdr-rating"}

	assert.Equal(t, "/home/user/.pdr-rating/reference.db", cfg.ReferenceDBPath())
	assert.Equal(t, "/home/user/.pdr-rating/history.db", cfg.HistoryDBPath())

	cfg.ReferenceDB = "/srv/pdrs.db"
	assert.Equal(t, "/srv/pdrs.db", cfg.ReferenceDBPath())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "pdr")}

	err := cfg.EnsureDataDir()
	require.NoError(t, err)

	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"PDR_DATA_DIR",
		"PDR_REFERENCE_DB",
		"PDR_HISTORY_ENABLED",
		"PDR_CACHE_MAX_ITEMS",
		"PDR_CACHE_TTL",
		"PDR_OCCUPATION_MATCH",
		"PDR_AGE_ADJUSTMENT_SOURCE",
		"PDR_HTTP_PORT",
		"PDR_LOG_LEVEL",
		"PDR_LOG_FORMAT",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}
