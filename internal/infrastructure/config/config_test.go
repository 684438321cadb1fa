package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
printer:
  host: 192.168.1.50
  serial: 01S00C123400001
  access_code: "12345678"
`

// =============================================================================
// Load Tests
// =============================================================================

func TestLoadValid(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Printer.Host != "192.168.1.50" {
		t.Errorf("Printer.Host = %q, want 192.168.1.50", cfg.Printer.Host)
	}
	if cfg.Printer.Serial != "01S00C123400001" {
		t.Errorf("Printer.Serial = %q", cfg.Printer.Serial)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Port != 8883 {
		t.Errorf("MQTT.Port = %d, want 8883", cfg.MQTT.Port)
	}
	if !cfg.MQTT.TLS {
		t.Error("MQTT.TLS = false, want true by default")
	}
	if cfg.Transfer.Port != 990 {
		t.Errorf("Transfer.Port = %d, want 990", cfg.Transfer.Port)
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled = true, want false by default")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, validConfig+`
mqtt:
  port: 1883
  tls: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Port != 1883 {
		t.Errorf("MQTT.Port = %d, want 1883", cfg.MQTT.Port)
	}
	if cfg.MQTT.TLS {
		t.Error("MQTT.TLS = true, want false from file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "printer: [not: valid")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid YAML")
	}
}

// =============================================================================
// Environment Override Tests
// =============================================================================

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, validConfig)

	t.Setenv("PRINTLINK_PRINTER_HOST", "10.0.0.9")
	t.Setenv("PRINTLINK_PRINTER_ACCESS_CODE", "87654321")
	t.Setenv("PRINTLINK_MQTT_PORT", "1884")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Printer.Host != "10.0.0.9" {
		t.Errorf("Printer.Host = %q, want env override 10.0.0.9", cfg.Printer.Host)
	}
	if cfg.Printer.AccessCode != "87654321" {
		t.Errorf("Printer.AccessCode = %q, want env override", cfg.Printer.AccessCode)
	}
	if cfg.MQTT.Port != 1884 {
		t.Errorf("MQTT.Port = %d, want 1884", cfg.MQTT.Port)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidateMissingIdentity(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing host", func(c *Config) { c.Printer.Host = "" }, "printer.host"},
		{"missing serial", func(c *Config) { c.Printer.Serial = "" }, "printer.serial"},
		{"missing access code", func(c *Config) { c.Printer.AccessCode = "" }, "printer.access_code"},
		{"bad mqtt port", func(c *Config) { c.MQTT.Port = 0 }, "mqtt.port"},
		{"bad qos", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"bad transfer port", func(c *Config) { c.Transfer.Port = 70000 }, "transfer.port"},
		{"influx enabled without token", func(c *Config) {
			c.InfluxDB.Enabled = true
			c.InfluxDB.Token = ""
		}, "influxdb.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Printer = PrinterConfig{Host: "h", Serial: "s", AccessCode: "c"}
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}
