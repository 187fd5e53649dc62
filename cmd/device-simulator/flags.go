package main

import (
	"errors"
	"flag"
	"os"
	"strings"
)

// cliConfig holds the flag values before main.go validates and uses them,
// mirroring the teacher's cmd/rtmp-server/flags.go split between flag
// parsing and a small validated struct.
type cliConfig struct {
	serverAddr string
	directory  string
	files      []string
	deviceID   string
	logLevel   string
	resolution string
	maxBitrate uint64
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("device-simulator", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	var filesCSV string

	fs.StringVar(&cfg.serverAddr, "server", "127.0.0.1:8443", "platform-server QUIC address")
	fs.StringVar(&cfg.directory, "directory", "./test-videos", "directory containing recording files to upload")
	fs.StringVar(&filesCSV, "files", "", "comma-separated list of filenames within -directory to upload")
	fs.StringVar(&cfg.deviceID, "device-id", "device_001", "identifier this simulator presents during session-start")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "log level: debug|info|warn|error")
	fs.StringVar(&cfg.resolution, "resolution", "1280x720", "advertised resolution")
	fs.Uint64Var(&cfg.maxBitrate, "max-bitrate", 2_000_000, "advertised max bitrate in bits/sec")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if filesCSV == "" {
		return nil, errors.New("-files is required (comma-separated filenames)")
	}
	for _, f := range strings.Split(filesCSV, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			cfg.files = append(cfg.files, f)
		}
	}
	if len(cfg.files) == 0 {
		return nil, errors.New("-files produced no usable filenames")
	}

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.New("invalid -log-level")
	}

	return cfg, nil
}
