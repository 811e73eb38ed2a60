// Package logging provides structured logging for the home panel core.
//
// It wraps log/slog so every component logs with the same default
// fields (service, version) and the same level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version).ForNode(cfg.Node.ID)
//	logger.Info("polling started", "address", addr)
//	logger.Warn("status segment rejected", "key", "TEMP", "value", "abc")
//
// Do not log MQTT passwords or InfluxDB tokens.
package logging
