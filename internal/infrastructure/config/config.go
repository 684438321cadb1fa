package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for printlink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Printer  PrinterConfig  `yaml:"printer"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Transfer TransferConfig `yaml:"transfer"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PrinterConfig identifies the target device on the local network.
type PrinterConfig struct {
	// Host is the printer's IP address or hostname.
	Host string `yaml:"host"`

	// Serial is the device serial number. Report and request topics are
	// derived from it (device/{serial}/report, device/{serial}/request).
	Serial string `yaml:"serial"`

	// AccessCode is the device-specific access code shown on the printer's
	// screen. It is the password for both the MQTT and FTPS channels.
	AccessCode string `yaml:"access_code"`
}

// MQTTConfig contains messaging channel settings.
type MQTTConfig struct {
	// Port is the broker port on the device. Default: 8883.
	Port int `yaml:"port"`

	// TLS enables the encrypted transport. Default: true. Devices present
	// self-signed certificates, so chain verification is disabled.
	TLS bool `yaml:"tls"`

	// QoS is the quality-of-service level for publishes. Default: 0.
	QoS int `yaml:"qos"`

	// Reconnect controls the bounded retry applied to the initial connect.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains connection retry settings (seconds).
type ReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// TransferConfig contains file-transfer channel settings.
type TransferConfig struct {
	// Port is the FTPS port on the device. Default: 990 (implicit TLS).
	Port int `yaml:"port"`

	// Timeout is the dial/command timeout in seconds. Default: 15.
	Timeout int `yaml:"timeout"`
}

// DatabaseConfig contains SQLite settings for the local print-job history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains optional telemetry recording settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: PRINTLINK_SECTION_KEY
// For example: PRINTLINK_PRINTER_HOST, PRINTLINK_PRINTER_ACCESS_CODE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
//
// The MQTT and FTPS defaults match the fixed service ports exposed by the
// supported device family; only the printer identity has no default.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Port: 8883,
			TLS:  true,
			QoS:  0,
			Reconnect: ReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     10,
				MaxAttempts:  3,
			},
		},
		Transfer: TransferConfig{
			Port:    990,
			Timeout: 15,
		},
		Database: DatabaseConfig{
			Path:        "data/printlink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			URL:           "http://localhost:8086",
			Bucket:        "printlink",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Printer identity
	if v := os.Getenv("PRINTLINK_PRINTER_HOST"); v != "" {
		cfg.Printer.Host = v
	}
	if v := os.Getenv("PRINTLINK_PRINTER_SERIAL"); v != "" {
		cfg.Printer.Serial = v
	}
	if v := os.Getenv("PRINTLINK_PRINTER_ACCESS_CODE"); v != "" {
		cfg.Printer.AccessCode = v
	}

	// MQTT
	if v := os.Getenv("PRINTLINK_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Port = port
		}
	}

	// Transfer
	if v := os.Getenv("PRINTLINK_TRANSFER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Transfer.Port = port
		}
	}

	// Database
	if v := os.Getenv("PRINTLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("PRINTLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Printer identity is mandatory — every channel needs it.
	if c.Printer.Host == "" {
		errs = append(errs, "printer.host is required")
	}
	if c.Printer.Serial == "" {
		errs = append(errs, "printer.serial is required")
	}
	if c.Printer.AccessCode == "" {
		errs = append(errs, "printer.access_code is required (set PRINTLINK_PRINTER_ACCESS_CODE environment variable)")
	}

	// MQTT validation
	if c.MQTT.Port < 1 || c.MQTT.Port > 65535 {
		errs = append(errs, "mqtt.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Reconnect.MaxAttempts < 1 {
		errs = append(errs, "mqtt.reconnect.max_attempts must be at least 1")
	}

	// Transfer validation
	if c.Transfer.Port < 1 || c.Transfer.Port > 65535 {
		errs = append(errs, "transfer.port must be between 1 and 65535")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb.enabled is true")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb.enabled is true (set PRINTLINK_INFLUXDB_TOKEN environment variable)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// TransferTimeout returns the file-transfer timeout as a Duration.
func (c *Config) TransferTimeout() time.Duration {
	return time.Duration(c.Transfer.Timeout) * time.Second
}
