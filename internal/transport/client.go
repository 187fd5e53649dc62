package transport

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/chengang12345632/media-test-sub001/internal/segment"
	"github.com/chengang12345632/media-test-sub001/internal/wire"
)

// DeviceClient is the device-side half of the QUIC transport: it dials the
// platform, performs the session-start handshake on a bidirectional
// control stream, and opens one unidirectional stream per outgoing
// segment. Used by the device-simulator CLI.
type DeviceClient struct {
	conn    *quic.Conn
	control quic.Stream
	log     *slog.Logger
}

// DialConfig mirrors the server Config's timeouts so a simulated device
// negotiates the same keep-alive/idle-timeout contract (spec §6).
type DialConfig struct {
	KeepAlivePeriod time.Duration
	MaxIdleTimeout  time.Duration
}

func (c *DialConfig) applyDefaults() {
	if c.KeepAlivePeriod == 0 {
		c.KeepAlivePeriod = 5 * time.Second
	}
	if c.MaxIdleTimeout == 0 {
		c.MaxIdleTimeout = 60 * time.Second
	}
}

// Dial opens a QUIC connection to addr and completes the SessionStart
// handshake carrying info.
func Dial(ctx context.Context, addr string, cfg DialConfig, info wire.SessionStart, log *slog.Logger) (*DeviceClient, error) {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}

	tlsConf := insecureClientTLSConfig([]string{ALPN})
	quicConf := &quic.Config{
		KeepAlivePeriod: cfg.KeepAlivePeriod,
		MaxIdleTimeout:  cfg.MaxIdleTimeout,
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConf)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	control, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "control stream open failed")
		return nil, fmt.Errorf("transport: open control stream: %w", err)
	}
	if err := wire.Encode(control, info); err != nil {
		_ = conn.CloseWithError(0, "handshake encode failed")
		return nil, fmt.Errorf("transport: send session start: %w", err)
	}

	return &DeviceClient{
		conn:    conn,
		control: control,
		log:     log.With("component", "transport.client", "device_id", info.DeviceID),
	}, nil
}

// Heartbeat sends a liveness ping on the control stream.
func (c *DeviceClient) Heartbeat(unixNano int64) error {
	return wire.Encode(c.control, wire.Heartbeat{UnixNano: unixNano})
}

// SessionEnd notifies the platform this device is disconnecting and then
// closes the connection.
func (c *DeviceClient) SessionEnd(sessionID, reason string) error {
	err := wire.Encode(c.control, wire.SessionEnd{SessionID: sessionID, Reason: reason})
	_ = c.conn.CloseWithError(0, reason)
	return err
}

// SendSegment opens a fresh unidirectional stream and writes one framed
// VideoSegment message, closing the stream once the write completes (spec
// §6: "one unidirectional stream per segment").
func (c *DeviceClient) SendSegment(ctx context.Context, sessionID string, seg *segment.VideoSegment) error {
	str, err := c.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("transport: open segment stream: %w", err)
	}
	msg := wire.VideoSegmentMessage{SessionID: sessionID, Segment: *seg}
	if err := wire.Encode(str, msg); err != nil {
		_ = str.Close()
		return fmt.Errorf("transport: send segment: %w", err)
	}
	return str.Close()
}

// Close tears down the underlying QUIC connection.
func (c *DeviceClient) Close() error {
	return c.conn.CloseWithError(0, "client closed")
}
