package main

import (
	"flag"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// config holds the settings of the daemon. They come from a TOML file, and
// any flags given on the command line override the file.
type config struct {
	Port      string   `toml:"port"`
	PProfPort string   `toml:"pprof_port"`
	Location  string   `toml:"location"`
	Mount     string   `toml:"mount"` // serve only the tree under this path
	Verbosity int      `toml:"verbosity"`
	SentryDSN string   `toml:"sentry_dsn"`
	Tokens    string   `toml:"tokens"` // file of user tokens, see server.NewListDecoder
	S3        s3Config `toml:"s3"`
}

type s3Config struct {
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
}

const defaultConfigFile = "arbor.toml"

// loadConfig parses the command line args (without the program name). The
// file named by -config is read if it exists, and must exist if -config was
// given explicitly.
func loadConfig(args []string) (config, error) {
	cfg := config{Port: "14100"}
	fs := flag.NewFlagSet("arbor", flag.ContinueOnError)
	var (
		configFile = fs.String("config", defaultConfigFile, "TOML configuration file")
		port       = fs.String("port", cfg.Port, "port to listen on")
		pprofPort  = fs.String("pprof-port", "", "port for pprof, none if empty")
		location   = fs.String("location", "", "backing store: memory:, a directory, s3://host/bucket/prefix, ql:file or mysql:dial")
		mount      = fs.String("mount", "", "path in the backing store to serve as the root")
		verbosity  = fs.Int("v", 0, "verbosity: 0 warn, 1 info, 2 debug, 3 trace")
		sentryDSN  = fs.String("sentry-dsn", "", "DSN to report errors to")
		tokens     = fs.String("tokens", "", "file of user tokens, allow everyone if empty")
	)
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	_, err := os.Stat(*configFile)
	if err == nil || set["config"] {
		if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "reading %s", *configFile)
		}
	}

	override := func(name string, dst *string, src string) {
		if set[name] {
			*dst = src
		}
	}
	override("port", &cfg.Port, *port)
	override("pprof-port", &cfg.PProfPort, *pprofPort)
	override("location", &cfg.Location, *location)
	override("mount", &cfg.Mount, *mount)
	override("sentry-dsn", &cfg.SentryDSN, *sentryDSN)
	override("tokens", &cfg.Tokens, *tokens)
	if set["v"] {
		cfg.Verbosity = *verbosity
	}
	return cfg, nil
}
