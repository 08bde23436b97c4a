package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
)

// parseFlags populates cfg from the flags this package knows about; other
// arguments (such as -c) are filtered out by flagx.FilterArgs first.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-n"})

	fs := flag.NewFlagSet("gophguard-client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")
	fs.StringVar(&cfg.Device, "n", cfg.Device, "device name")

	return fs.Parse(args)
}
