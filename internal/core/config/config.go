// Package config provides configuration management for thomson commands.
package config

import (
	"time"

	"github.com/solatis/thomson/internal/types"
)

// Config is the complete runtime configuration.
type Config struct {
	Transform TransformConfig
	Store     StoreConfig
	Serve     ServeConfig
	Log       LogConfig
}

// TransformConfig controls the transform core.
type TransformConfig struct {
	MaxDepth int  // recursion limit for rules and sources
	Pretty   bool // indent JSON output even when stdout is not a terminal
}

// StoreConfig locates the run history database. Empty URL disables history.
type StoreConfig struct {
	URL string
}

// ServeConfig holds configuration for the gRPC and HTTP transform service.
type ServeConfig struct {
	Host            string
	Port            int // gRPC
	HTTPPort        int // HTTP JSON API and metrics
	MaxConnections  int
	RequestTimeout  time.Duration
	MaxDocumentSize int
	APIKeys         []string // environment only; empty disables authentication
}

// LogConfig selects logger level and format.
type LogConfig struct {
	Level  string
	Format string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Transform: TransformConfig{
			MaxDepth: types.DefaultMaxDepth,
		},
		Serve: ServeConfig{
			Host:            "0.0.0.0",
			Port:            50051,
			HTTPPort:        8080,
			MaxConnections:  1000,
			RequestTimeout:  30 * time.Second,
			MaxDocumentSize: types.MaxDocumentSize,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
