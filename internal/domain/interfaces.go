package domain

import (
	"context"
)

// RatingCalculator computes permanent disability ratings from report data
type RatingCalculator interface {
	CalculateRating(ctx context.Context, input *RatingInput) (*RatingResult, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetRatingConfig() *RatingConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
}
