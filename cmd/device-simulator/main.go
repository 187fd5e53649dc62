// Command device-simulator is the demo device-side uploader (spec §6):
// it dials the platform over QUIC, completes the session-start
// handshake, then streams one or more recording files as live segments.
// Per spec §1 this is deliberately out-of-scope glue — no retry/backoff,
// no multi-device orchestration, just enough to exercise the QUIC ingress
// path end to end.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/transport"
	"github.com/chengang12345632/media-test-sub001/internal/wire"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		logger.Warn("invalid log level, using default", "level", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli", "device_id", cfg.deviceID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := transport.Dial(ctx, cfg.serverAddr, transport.DialConfig{}, wire.SessionStart{
		DeviceID:   cfg.deviceID,
		DeviceName: cfg.deviceID,
		Resolution: cfg.resolution,
		MaxBitrate: cfg.maxBitrate,
	}, log)
	if err != nil {
		log.Error("dial failed", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	log.Info("session started", "server", cfg.serverAddr)

	for _, file := range cfg.files {
		select {
		case <-ctx.Done():
			log.Info("interrupted, stopping upload")
			_ = client.SessionEnd(cfg.deviceID, "interrupted")
			return
		default:
		}

		if err := uploadFile(ctx, client, cfg.deviceID, cfg.directory, file, log); err != nil {
			log.Error("upload failed", "file", file, "error", err)
		}
	}

	_ = client.SessionEnd(cfg.deviceID, "upload complete")
	log.Info("all recordings uploaded")
}
