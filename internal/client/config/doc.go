// Package config loads runtime configuration for the GophGuard console client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     address:port of the AccessControl gRPC endpoint
//	-t duration   per-request timeout
//	-n string     device name sent on login
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "5s",
//	  "device": "laptop"
//	}
package config
