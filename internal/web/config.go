package web

import (
	"time"

	"github.com/gss-opera-matcher/internal/config"
)

// Config represents the web server configuration
type Config struct {
	Server   ServerConfig  `json:"server" mapstructure:"server"`
	Features FeatureConfig `json:"features" mapstructure:"features"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int           `json:"port" mapstructure:"port"`
	Host            string        `json:"host" mapstructure:"host"`
	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `json:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// FeatureConfig contains feature toggles
type FeatureConfig struct {
	PersistEnabled bool `json:"persist_enabled" mapstructure:"persist_enabled"`
	StreamEnabled  bool `json:"stream_enabled" mapstructure:"stream_enabled"`
	MetricsEnabled bool `json:"metrics_enabled" mapstructure:"metrics_enabled"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    64 << 20,
		},
		Features: FeatureConfig{
			PersistEnabled: true,
			StreamEnabled:  true,
			MetricsEnabled: true,
		},
	}
}

// ConfigFromEnv overlays WEB_* environment variables on the defaults
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.Server.Port = config.GetEnvInt("WEB_PORT", cfg.Server.Port)
	cfg.Server.Host = config.GetEnv("WEB_HOST", cfg.Server.Host)
	cfg.Features.PersistEnabled = config.GetEnvBool("ENABLE_PERSIST", cfg.Features.PersistEnabled)
	cfg.Features.StreamEnabled = config.GetEnvBool("ENABLE_STREAM", cfg.Features.StreamEnabled)
	cfg.Features.MetricsEnabled = config.GetEnvBool("ENABLE_METRICS", cfg.Features.MetricsEnabled)
	return cfg
}
