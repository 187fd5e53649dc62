package main

import (
	"errors"
	"flag"
	"os"
)

// cliConfig holds the flag values before main.go validates and wires them
// into the platform's collaborators, mirroring the teacher's
// cmd/rtmp-server/flags.go split between flag parsing and a validated
// struct.
type cliConfig struct {
	quicAddr    string
	httpAddr    string
	storageRoot string
	logLevel    string
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("platform-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	fs.StringVar(&cfg.quicAddr, "quic-listen", ":8443", "QUIC listen address for device ingress")
	fs.StringVar(&cfg.httpAddr, "http-listen", ":8080", "HTTP listen address for browser clients")
	fs.StringVar(&cfg.storageRoot, "storage-root", "./test-videos", "directory containing recording files")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid -log-level")
	}

	return cfg, nil
}
