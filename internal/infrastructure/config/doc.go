// Package config handles loading and validating Gray Logic DMX configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a local .env file (development convenience)
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The defaults reproduce a stock sACN deployment: multicast group
// 239.255.0.1 on port 5568 with TTL 128, outbound priority 100, and a
// fixed one-second reconnect interval to the relay.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - JWT secrets are only required when security.jwt.enabled is set
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Network.Multicast.Address)
package config
