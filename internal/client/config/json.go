package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
	"github.com/dmitrijs2005/gophguard/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	Device             string         `json:"device"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
// Empty values in the file leave the current setting untouched.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.Device != "" {
		cfg.Device = jc.Device
	}
	return nil
}
