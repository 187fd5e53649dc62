// Command platform-server is the platform-side bootstrap (spec §6): it
// brings up the QUIC device-ingress listener and the browser-facing
// HTTP/SSE server over the same unified stream handler, then waits for a
// shutdown signal. Per spec §1, CLI wiring and config loading are
// deliberately out-of-scope glue — no TOML file, just flags and
// defaults — mirroring the teacher's cmd/rtmp-server/main.go structure.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/distribution"
	"github.com/chengang12345632/media-test-sub001/internal/latency"
	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/stream"
	"github.com/chengang12345632/media-test-sub001/internal/transport"
	"github.com/chengang12345632/media-test-sub001/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		logger.Warn("invalid log level, using default", "level", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	dist := distribution.New(log)
	alerts := latency.NewAlertBroadcaster()
	monitor := latency.NewMonitor(latency.DefaultThresholds(), alerts)
	stats := latency.NewStatisticsManager()
	handler := stream.New(dist, monitor).WithStatistics(stats)

	quicListener, err := transport.NewListener(transport.Config{ListenAddr: cfg.quicAddr}, handler, log)
	if err != nil {
		log.Error("failed to start quic listener", "error", err)
		os.Exit(1)
	}
	quicListener.Start()
	log.Info("quic listener started", "addr", quicListener.Addr())

	httpServer := web.NewServer(web.Config{
		ListenAddr:  cfg.httpAddr,
		StorageRoot: cfg.storageRoot,
	}, handler, quicListener, stats, alerts, monitor, log)
	httpServer.Start()
	log.Info("http server started", "addr", cfg.httpAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := httpServer.Stop(); err != nil {
			log.Error("http server stop error", "error", err)
		}
		if err := quicListener.Stop(); err != nil {
			log.Error("quic listener stop error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("platform server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after shutdown timeout")
	}
}
