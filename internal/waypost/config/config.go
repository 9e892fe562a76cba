// Package config provides configuration management for the Waypost telemetry
// pipeline
package config

import (
	"time"
)

// Config holds all configuration for the telemetry pipeline
type Config struct {
	Collector CollectorConfig `yaml:"collector"`
	Transport TransportConfig `yaml:"transport"`
	Journeys  JourneyConfig   `yaml:"journeys"`
	Ops       OpsConfig       `yaml:"ops"`
	Alerts    AlertConfig     `yaml:"alerts"`
}

// CollectorConfig holds event capture and batching settings
type CollectorConfig struct {
	BatchSize       int           `yaml:"batchSize"`
	FlushInterval   time.Duration `yaml:"flushInterval"`
	MaxRetries      int           `yaml:"maxRetries"`
	MaxRetryBatches int           `yaml:"maxRetryBatches"`
	SamplingRate    float64       `yaml:"samplingRate"`
	DebugMode       bool          `yaml:"debugMode"`
	DeviceClass     string        `yaml:"deviceClass"`
}

// TransportConfig holds ingestion endpoint settings
type TransportConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	SendTimeout   time.Duration `yaml:"sendTimeout"`
	BeaconTimeout time.Duration `yaml:"beaconTimeout"`
	ProbeURL      string        `yaml:"probeURL"`
	ProbeInterval time.Duration `yaml:"probeInterval"`
}

// JourneyConfig holds journey monitor settings
type JourneyConfig struct {
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	Retention       time.Duration `yaml:"retention"`
	CatalogPath     string        `yaml:"catalogPath"`
}

// OpsConfig holds the debug/ops HTTP surface settings
type OpsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// AlertConfig holds alert sink settings
type AlertConfig struct {
	RedisAddr    string `yaml:"redisAddr"`
	RedisChannel string `yaml:"redisChannel"`
}

// Defaults returns a configuration with production defaults applied
func Defaults() *Config {
	return &Config{
		Collector: CollectorConfig{
			BatchSize:       50,
			FlushInterval:   5 * time.Second,
			MaxRetries:      3,
			MaxRetryBatches: 64,
			SamplingRate:    1.0,
			DeviceClass:     "unknown",
		},
		Transport: TransportConfig{
			SendTimeout:   10 * time.Second,
			BeaconTimeout: 200 * time.Millisecond,
			ProbeInterval: 15 * time.Second,
		},
		Journeys: JourneyConfig{
			CleanupInterval: 24 * time.Hour,
			Retention:       24 * time.Hour,
		},
		Ops: OpsConfig{
			Host: "127.0.0.1",
			Port: 9180,
		},
		Alerts: AlertConfig{
			RedisChannel: "waypost:alerts",
		},
	}
}

// overlayEnv overlays environment variables on top of file-based config
func (c *Config) overlayEnv() {
	// Collector config
	if batchSize := getEnvAsInt("WAYPOST_BATCH_SIZE", 0); batchSize != 0 {
		c.Collector.BatchSize = batchSize
	}
	if interval := getEnvAsDuration("WAYPOST_FLUSH_INTERVAL", 0); interval != 0 {
		c.Collector.FlushInterval = interval
	}
	if retries := getEnvAsInt("WAYPOST_MAX_RETRIES", -1); retries >= 0 {
		c.Collector.MaxRetries = retries
	}
	if retryBatches := getEnvAsInt("WAYPOST_MAX_RETRY_BATCHES", 0); retryBatches != 0 {
		c.Collector.MaxRetryBatches = retryBatches
	}
	if rate := getEnvAsFloat("WAYPOST_SAMPLING_RATE", -1); rate >= 0 {
		c.Collector.SamplingRate = rate
	}
	if debug := getEnv("WAYPOST_DEBUG", ""); debug != "" {
		c.Collector.DebugMode = debug == "1" || debug == "true"
	}
	if class := getEnv("WAYPOST_DEVICE_CLASS", ""); class != "" {
		c.Collector.DeviceClass = class
	}

	// Transport config
	if endpoint := getEnv("WAYPOST_ENDPOINT", ""); endpoint != "" {
		c.Transport.Endpoint = endpoint
	}
	if timeout := getEnvAsDuration("WAYPOST_SEND_TIMEOUT", 0); timeout != 0 {
		c.Transport.SendTimeout = timeout
	}
	if timeout := getEnvAsDuration("WAYPOST_BEACON_TIMEOUT", 0); timeout != 0 {
		c.Transport.BeaconTimeout = timeout
	}
	if probe := getEnv("WAYPOST_PROBE_URL", ""); probe != "" {
		c.Transport.ProbeURL = probe
	}
	if interval := getEnvAsDuration("WAYPOST_PROBE_INTERVAL", 0); interval != 0 {
		c.Transport.ProbeInterval = interval
	}

	// Journey config
	if interval := getEnvAsDuration("WAYPOST_CLEANUP_INTERVAL", 0); interval != 0 {
		c.Journeys.CleanupInterval = interval
	}
	if retention := getEnvAsDuration("WAYPOST_JOURNEY_RETENTION", 0); retention != 0 {
		c.Journeys.Retention = retention
	}
	if path := getEnv("WAYPOST_JOURNEY_CATALOG", ""); path != "" {
		c.Journeys.CatalogPath = path
	}

	// Ops config
	if enabled := getEnv("WAYPOST_OPS_ENABLED", ""); enabled != "" {
		c.Ops.Enabled = enabled == "1" || enabled == "true"
	}
	if host := getEnv("WAYPOST_OPS_HOST", ""); host != "" {
		c.Ops.Host = host
	}
	if port := getEnvAsInt("WAYPOST_OPS_PORT", 0); port != 0 {
		c.Ops.Port = port
	}

	// Alert config
	if addr := getEnvMulti([]string{"WAYPOST_REDIS_ADDR", "REDIS_ADDR"}, ""); addr != "" {
		c.Alerts.RedisAddr = addr
	}
	if channel := getEnv("WAYPOST_ALERT_CHANNEL", ""); channel != "" {
		c.Alerts.RedisChannel = channel
	}
}

// Load returns the default configuration with environment overrides applied
func Load() (*Config, error) {
	cfg := Defaults()
	cfg.overlayEnv()
	return cfg, cfg.validate()
}
