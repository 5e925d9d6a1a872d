// Package config handles loading and validating the Gray Logic RF service
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GRAYLOGIC_RF_*)
//   - Validation of required fields
//   - Default value handling
//
// The RF433 bridge has its own file (devices, receivers, protocols), loaded
// by the rf433 package from protocols.rf433.config_file.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token) should be set via
//     environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
