// Package config provides configuration management for the Waypost CLI
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the CLI configuration
type Config struct {
	// Endpoint is the ingestion endpoint base URL
	Endpoint string `mapstructure:"endpoint"`
	// BatchSize is the maximum events per batch
	BatchSize int `mapstructure:"batch-size"`
	// FlushInterval is the periodic flush interval
	FlushInterval time.Duration `mapstructure:"flush-interval"`
	// SamplingRate is the probability a sampled event is recorded
	SamplingRate float64 `mapstructure:"sampling-rate"`
	// RedisAddr enables the Redis alert sink when set
	RedisAddr string `mapstructure:"redis-addr"`
	// AlertChannel is the Redis pub/sub channel for alerts
	AlertChannel string `mapstructure:"alert-channel"`
	// Debug enables verbose output
	Debug bool `mapstructure:"debug"`
}

// defaultConfigPath returns the default config file path
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".waypostctl/config.yaml"
	}
	return filepath.Join(home, ".waypostctl/config.yaml")
}

// Load reads the CLI configuration from disk, with defaults applied for
// anything unset
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("WAYPOSTCTL_CONFIG")
	}
	if path == "" {
		path = defaultConfigPath()
	}

	viper.SetDefault("endpoint", "http://localhost:8420")
	viper.SetDefault("batch-size", 50)
	viper.SetDefault("flush-interval", 5*time.Second)
	viper.SetDefault("sampling-rate", 1.0)
	viper.SetDefault("alert-channel", "waypost:alerts")

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and flags cover everything
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}
