// Package config handles the parsing and validation of application configuration
// from command-line arguments, environment variables and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/woozymasta/a2squery/internal/logger"
	"github.com/woozymasta/a2squery/internal/vars"
)

// Query kinds accepted by --what.
const (
	WhatInfo    = "info"
	WhatPlayers = "players"
	WhatRules   = "rules"
	WhatSummary = "summary"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Query     Query         `group:"Query Options" namespace:"query" env-namespace:"A2SQUERY_QUERY"`
	Server    Server        `group:"Server Options" env-namespace:"A2SQUERY"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"A2SQUERY_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"A2SQUERY_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"A2SQUERY_RATE_LIMIT"`
	Monitor   Monitor       `group:"Monitor Options" namespace:"monitor" env-namespace:"A2SQUERY_MONITOR"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"A2SQUERY_LOG"`

	Args struct {
		Addresses []string `positional-arg-name:"host[:port]" description:"Servers to query"`
	} `positional-args:"yes"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Query holds A2S query options shared by every mode.
type Query struct {
	// betteralign:ignore

	Timeout  time.Duration `short:"T" long:"timeout" env:"TIMEOUT" description:"Read/write timeout of every datagram, 0 waits forever" default:"5s"`
	Deadline time.Duration `long:"deadline" env:"DEADLINE" description:"Overall time for all queries to one server, 0 disables" default:"20s"`
	What     []string      `short:"w" long:"what" env:"WHAT" env-delim:"," description:"Queries to run" choice:"info" choice:"players" choice:"rules" choice:"summary" default:"info" default:"players" default:"rules"`
	Output   string        `short:"o" long:"output" env:"OUTPUT" description:"Output format" choice:"table" choice:"json" default:"table"`
	Targets  string        `short:"f" long:"targets" env:"TARGETS" description:"YAML file with a list of servers to query"`
}

// Server holds web server configuration.
type Server struct {
	// betteralign:ignore

	Serve        bool     `short:"s" long:"serve" env:"SERVE" description:"Run the HTTP API instead of querying once"`
	Address      string   `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken    string   `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token"`
	AllowedHosts []string `short:"a" long:"allowed-host" env:"ALLOWED_HOSTS" env-delim:"," description:"Hosts the API may query, empty allows any"`
	TrustProxy   bool     `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// Storage holds database configuration.
type Storage struct {
	// betteralign:ignore

	Path          string        `short:"d" long:"path" env:"PATH" description:"Path to SQLite database, empty disables history"`
	PruneStale    time.Duration `long:"prune-stale" description:"Delete servers not seen for this long and exit"`
	CheckAll      bool          `long:"check-all" description:"Re-check all stored servers. Update if UP, delete if DOWN, then exit"`
	GenerateCount int           `long:"generate" description:"Fill the database with this many random servers and exit"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	// betteralign:ignore

	Count  int           `long:"count" env:"COUNT" description:"Requests allowed per client IP within the window" default:"30"`
	Window time.Duration `long:"window" env:"WINDOW" description:"Rate limit window" default:"1m"`
}

// Monitor holds background polling configuration.
type Monitor struct {
	// betteralign:ignore

	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Poll targets into storage at this interval, 0 disables" default:"0"`
	Workers  int           `long:"workers" env:"WORKERS" description:"Concurrent queries" default:"10"`
	Rate     float64       `long:"rate" env:"RATE" description:"Max queries started per second" default:"20"`
}

// Parse reads the configuration from the .env file, flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := parseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return cfg
}

func parseArgs(args []string, help io.Writer) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default&^flags.PrintErrors)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			_, _ = fmt.Fprintln(help, err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return nil, err
	}

	return &cfg, nil
}

// Validate checks option combinations that flags alone cannot express.
func (c *Config) Validate() error {
	if c.Server.Serve && c.Query.Deadline <= 0 {
		return errors.New("query deadline `--query-deadline' must be positive in serve mode")
	}

	if c.Server.Serve && c.Server.AuthToken == "" {
		return errors.New("required flag `-t, --auth-token' or environment variable `A2SQUERY_AUTH_TOKEN` was not specified")
	}

	if (c.Storage.PruneStale > 0 || c.Storage.CheckAll || c.Storage.GenerateCount > 0 || c.Monitor.Interval > 0) && c.Storage.Path == "" {
		return errors.New("storage path `-d, --db-path' is required for maintenance and monitoring")
	}

	if c.Monitor.Workers < 1 {
		return fmt.Errorf("monitor workers must be positive, got %d", c.Monitor.Workers)
	}

	if c.RateLimit.Count < 1 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit count and window must be positive")
	}

	return nil
}

// Wants reports whether the given query kind was selected with --what.
func (q Query) Wants(kind string) bool {
	for _, w := range q.What {
		if w == kind {
			return true
		}
	}

	return false
}

// loadDotEnv exports variables from path without overriding ones already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}
