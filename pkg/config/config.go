package config

import (
	"fmt"
	"os"
	"time"

	"github.com/blang/semver"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config holds application configuration
type Config struct {
	// Serial link to the radio module
	Port         string        `yaml:"port" json:"port"`
	BaudRate     int           `yaml:"baud_rate" json:"baud_rate" default:"115200"`
	PacketMode   bool          `yaml:"packet_mode" json:"packet_mode"`
	ReplyTimeout time.Duration `yaml:"reply_timeout" json:"reply_timeout" default:"1s"`

	// GATT client
	EventTimeout   time.Duration `yaml:"event_timeout" json:"event_timeout" default:"1s"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout" default:"10s"`
	ScanTimeout    time.Duration `yaml:"scan_timeout" json:"scan_timeout" default:"10s"`
	Connection     uint8         `yaml:"connection" json:"connection"`
	// MinFirmware is a semver range the module firmware must satisfy; empty accepts any.
	MinFirmware string `yaml:"min_firmware" json:"min_firmware" default:">=1.3.0"`

	LogLevel     logrus.Level `yaml:"log_level" json:"log_level"`
	OutputFormat string       `yaml:"output_format" json:"output_format" default:"text"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	cfg.LogLevel = logrus.InfoLevel
	return cfg
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges and formats
func (c *Config) Validate() error {
	if c.BaudRate <= 0 {
		return fmt.Errorf("baud_rate must be positive, got %d", c.BaudRate)
	}
	for name, d := range map[string]time.Duration{
		"reply_timeout":   c.ReplyTimeout,
		"event_timeout":   c.EventTimeout,
		"connect_timeout": c.ConnectTimeout,
		"scan_timeout":    c.ScanTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.OutputFormat != OutputText && c.OutputFormat != OutputJSON {
		return fmt.Errorf("output_format must be %q or %q, got %q", OutputText, OutputJSON, c.OutputFormat)
	}
	if _, err := c.FirmwareRange(); err != nil {
		return err
	}
	return nil
}

// FirmwareRange parses MinFirmware. An empty range accepts every version.
func (c *Config) FirmwareRange() (semver.Range, error) {
	if c.MinFirmware == "" {
		return func(semver.Version) bool { return true }, nil
	}
	r, err := semver.ParseRange(c.MinFirmware)
	if err != nil {
		return nil, fmt.Errorf("min_firmware %q: %w", c.MinFirmware, err)
	}
	return r, nil
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger
}
