package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lyra/pkg/rtsp"
)

type Config struct {
	RTSP    RTSPConfig    `yaml:"rtsp"`
	Ingest  IngestConfig  `yaml:"ingest"`
	API     APIConfig     `yaml:"api"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type RTSPConfig struct {
	Port            int    `yaml:"port"`
	Interface       string `yaml:"interface"`         // advertised as the Transport source address
	ReadChunk       int    `yaml:"read_chunk"`        // bytes per read attempt
	RetryIntervalMS int    `yaml:"retry_interval_ms"` // delay between read attempts
	MaxAttempts     int    `yaml:"max_attempts"`      // consecutive empty attempts before abandonment
	PortBase        int    `yaml:"port_base"`         // first server port pair handed to clients
}

type IngestConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIConfig struct {
	Port int `yaml:"port"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// GetConfigWithDefaults returns default configuration values
func GetConfigWithDefaults() *Config {
	return &Config{
		RTSP: RTSPConfig{
			Port:            554, // RTSP standard port
			Interface:       "127.0.0.1",
			ReadChunk:       200,
			RetryIntervalMS: 10,
			MaxAttempts:     50,
			PortBase:        6970,
		},
		Ingest: IngestConfig{
			Enabled: false,
			Port:    9999,
		},
		API: APIConfig{
			Port: 8080,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9091,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from yaml file, falling back to defaults
// when no file is present.
func LoadConfig() (*Config, error) {
	config := GetConfigWithDefaults()

	configPath := filepath.Join("configs", "default.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Info("Config file not found, using defaults", "path", configPath)
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// overlay on top of the defaults
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.RTSP.Port <= 0 || c.RTSP.Port > 65535 {
		return fmt.Errorf("invalid rtsp port: %d (must be between 1-65535)", c.RTSP.Port)
	}

	if c.RTSP.ReadChunk <= 0 {
		return fmt.Errorf("invalid rtsp read_chunk: %d (must be positive)", c.RTSP.ReadChunk)
	}

	if c.RTSP.RetryIntervalMS <= 0 {
		return fmt.Errorf("invalid rtsp retry_interval_ms: %d (must be positive)", c.RTSP.RetryIntervalMS)
	}

	if c.RTSP.MaxAttempts <= 0 {
		return fmt.Errorf("invalid rtsp max_attempts: %d (must be positive)", c.RTSP.MaxAttempts)
	}

	if c.RTSP.PortBase <= 0 || c.RTSP.PortBase > 65535 {
		return fmt.Errorf("invalid rtsp port_base: %d (must be between 1-65535)", c.RTSP.PortBase)
	}

	if c.Ingest.Enabled && (c.Ingest.Port <= 0 || c.Ingest.Port > 65535) {
		return fmt.Errorf("invalid ingest port: %d (must be between 1-65535)", c.Ingest.Port)
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid api port: %d (must be between 1-65535)", c.API.Port)
	}

	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("invalid metrics port: %d (must be between 1-65535)", c.Metrics.Port)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if strings.ToLower(c.Logging.Level) == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %v)", c.Logging.Level, validLevels)
	}

	return nil
}

// ToRTSPConfig converts Config.RTSP to rtsp.Config
func (c *Config) ToRTSPConfig() rtsp.Config {
	return rtsp.Config{
		Port:          c.RTSP.Port,
		ReadChunk:     c.RTSP.ReadChunk,
		RetryInterval: time.Duration(c.RTSP.RetryIntervalMS) * time.Millisecond,
		MaxAttempts:   c.RTSP.MaxAttempts,
	}
}

// GetSlogLevel returns slog.Level from config
func (c *Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
