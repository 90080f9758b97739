// Package logging provides structured logging for onkyo-ctl.
//
// It wraps log/slog so every entry carries the service name and build
// version. Output is JSON by default and text when configured:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting service", "port", 8080)
//	logger.Error("device unreachable", "error", err)
//
// Never log MQTT passwords or InfluxDB tokens.
package logging
