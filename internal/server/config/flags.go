package config

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophguard/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     gRPC bind address (e.g., ":50051")
//	-m string     metrics bind address, empty disables the endpoint
//	-d string     PostgreSQL DSN, or "memory"
//	-s string     JWT HMAC secret key
//	-t duration   session token lifetime
//	-n string     notifier kind: log, smtp, kafka, s3
//	-r string     Redis address for the shared rate limiter
//	-l string     log level
//	-u string     public base URL used in e-mailed links
//	-admins list  comma-separated admin e-mails
//
// Arguments meant for other parsers (e.g. -c) are filtered out first.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-d", "-s", "-t", "-n", "-r", "-l", "-u", "-admins"})

	fs := flag.NewFlagSet("gophguard", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "address to serve metrics on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.SessionTokenTTL, "t", config.SessionTokenTTL, "session token validity")
	fs.StringVar(&config.Notifier, "n", config.Notifier, "notifier kind")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.PublicBaseURL, "u", config.PublicBaseURL, "public base URL")

	admins := fs.String("admins", strings.Join(config.AdminEmails, ","), "comma-separated admin e-mails")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *admins == "" {
		config.AdminEmails = nil
	} else {
		config.AdminEmails = strings.Split(*admins, ",")
	}
	return nil
}
