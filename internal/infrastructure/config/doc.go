// Package config provides configuration loading for printlink.
//
// Configuration is loaded from a YAML file with environment variable
// overrides, in this precedence order:
//
//  1. Hardcoded defaults (defaultConfig)
//  2. YAML file values
//  3. PRINTLINK_* environment variables
//
// The access code and InfluxDB token are secrets; prefer supplying them via
// PRINTLINK_PRINTER_ACCESS_CODE and PRINTLINK_INFLUXDB_TOKEN rather than
// committing them to the config file.
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Printer.Host)
package config
