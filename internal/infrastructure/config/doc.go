// Package config handles loading and validating home panel configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with HOMEPANEL_* environment variables
//   - Validation of required fields and value ranges
//   - Default value handling (2 s poll, 3 s device timeout, 35 °C alarm)
//
// Security Considerations:
//   - MQTT and InfluxDB credentials should be set via environment variables
//   - The device protocol is unauthenticated; keep the API bound to a trusted
//     interface (the default is 127.0.0.1)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Device.Address, cfg.PollInterval())
package config
