// Package config provides configuration management for the rating server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdr-rating-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// Reference data and history both live in SQLite files under DataDir.
type LiteConfig struct {
	// Data storage
	DataDir       string // Base directory for data files
	ReferenceDB   string // Reference data SQLite file; defaults to DataDir/reference.db
	HistoryEnable bool   // Persist medical-input calculations

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Rating settings
	OccupationMatch     domain.OccupationMatchMode
	AgeAdjustmentSource domain.AgeAdjustmentSource

	// HTTP settings
	HTTPPort int

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pdr-rating")

	return &LiteConfig{
		DataDir:             dataDir,
		HistoryEnable:       true,
		CacheMaxItems:       1000,
		CacheTTL:            time.Hour,
		OccupationMatch:     domain.MatchSubstring,
		AgeAdjustmentSource: domain.AgeSourceTable,
		HTTPPort:            8080,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("PDR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.ReferenceDB = os.Getenv("PDR_REFERENCE_DB")
	if v := os.Getenv("PDR_HISTORY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.HistoryEnable = b
		}
	}

	if v := os.Getenv("PDR_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("PDR_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := domain.OccupationMatchMode(os.Getenv("PDR_OCCUPATION_MATCH")); v.IsValid() {
		cfg.OccupationMatch = v
	}
	if v := domain.AgeAdjustmentSource(os.Getenv("PDR_AGE_ADJUSTMENT_SOURCE")); v.IsValid() {
		cfg.AgeAdjustmentSource = v
	}

	if v := os.Getenv("PDR_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("PDR_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PDR_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// ReferenceDBPath returns the path to the reference data SQLite database.
func (c *LiteConfig) ReferenceDBPath() string {
	if c.ReferenceDB != "" {
		return c.ReferenceDB
	}
	return filepath.Join(c.DataDir, "reference.db")
}

// HistoryDBPath returns the path to the rating history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
