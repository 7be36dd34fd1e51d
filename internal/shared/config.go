package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Camera   CameraConfig   `toml:"camera"`
	Session  SessionConfig  `toml:"session"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// BackendConfig locates the analysis backend.
type BackendConfig struct {
	URL            string  `toml:"url"`
	Token          string  `toml:"token"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
}

// Timeout returns the per-request timeout, defaulting to 30s.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// CameraConfig selects and tunes the frame source.
type CameraConfig struct {
	Source     string `toml:"source"`
	Path       string `toml:"path"`
	Device     int    `toml:"device"`
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	FacingMode string `toml:"facing_mode"`
	Quality    int    `toml:"quality"`
}

// SessionConfig holds client-side session defaults.
type SessionConfig struct {
	AutoCaptureIntervalSeconds int `toml:"auto_capture_interval_seconds"`
	SongsBeforeRecheck         int `toml:"songs_before_recheck"`
}

// AutoCaptureInterval returns the polling interval, defaulting to 30s.
func (s SessionConfig) AutoCaptureInterval() time.Duration {
	if s.AutoCaptureIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.AutoCaptureIntervalSeconds) * time.Second
}

// DatabaseConfig contains database connection settings for the round journal.
type DatabaseConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the headless control surface.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig controls log level and the TUI log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks values that would otherwise surface as confusing runtime failures.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("%w: backend.url is required", ErrInvalidConfig)
	}
	if c.Camera.Quality < 1 || c.Camera.Quality > 100 {
		return fmt.Errorf("%w: camera.quality must be between 1 and 100", ErrInvalidConfig)
	}
	if n := c.Session.SongsBeforeRecheck; n < 1 || n > 10 {
		return fmt.Errorf("%w: session.songs_before_recheck must be between 1 and 10", ErrInvalidConfig)
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
