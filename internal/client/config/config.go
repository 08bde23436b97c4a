package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the console client.
type Config struct {
	ServerEndpointAddr string
	RequestTimeout     time.Duration
	Device             string
}

// LoadDefaults populates c with defaults. Device falls back to the host name.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RequestTimeout = 5 * time.Second
	c.Device = defaultDevice()
}

func defaultDevice() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "console"
}

// LoadConfig constructs a Config from defaults, the optional JSON file and
// command-line flags. Later sources take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if cfg.ServerEndpointAddr == "" {
		return nil, fmt.Errorf("server address is required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be positive")
	}
	return cfg, nil
}
