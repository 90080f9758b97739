// Package config handles loading and validating onkyo-ctl configuration.
//
// This package manages:
//   - Built-in defaults, including the default profile catalog
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (ONKYO_HOST, ONKYO_PORT, ...)
//   - Validation of required fields
//
// Sensitive values (MQTT password, InfluxDB token) should be set via
// environment variables rather than the config file.
//
// Usage:
//
//	cfg, err := config.Load(os.Getenv("ONKYO_CONFIG"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.DeviceAddress())
package config
