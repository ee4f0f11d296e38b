package config

import (
	"flag"
	"io"
)

// applies command line overrides on top of env configuration
func ParseClientFlags(cfg *Config, args []string, output io.Writer) error {
	fs := flag.NewFlagSet("pyq", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.APIBaseURL, "api", cfg.APIBaseURL, "base URL of the papers API")
	fs.StringVar(&cfg.AuthPolicy, "policy", cfg.AuthPolicy, "401 recovery policy: redirect or refresh")
	fs.StringVar(&cfg.SessionDB, "session-db", cfg.SessionDB, "path to the persisted session database")
	fs.BoolVar(&cfg.Ephemeral, "ephemeral", cfg.Ephemeral, "keep the session in memory only")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file instead of discarding them")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve client metrics on this address (e.g. :9101)")
	fs.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "per request timeout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	return cfg.Validate()
}
