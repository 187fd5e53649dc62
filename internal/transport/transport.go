// Package transport is the device<->platform QUIC glue (spec §6). It is
// deliberately simple: the wire codec and the unified stream handler carry
// all the interesting behavior, this package only opens streams, frames
// messages through internal/wire, and feeds decoded segments into a
// per-device source.Live. Grounded on the teacher's server.go accept-loop
// shape (listener, tracked connections, graceful Stop) and on the QUIC
// per-connection-goroutine pattern shown by the nik1740 streaming-handler
// example, adapted from json.Decoder framing to this project's wire codec.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/source"
	"github.com/chengang12345632/media-test-sub001/internal/stream"
	"github.com/chengang12345632/media-test-sub001/internal/wire"
)

// ALPN is the QUIC application protocol negotiated between device and
// platform.
const ALPN = "streamcore-v1"

// Config holds listener tuning knobs (spec §6: "Keep-alive 5s; idle
// timeout 60s; up to 100 concurrent unidirectional streams").
type Config struct {
	ListenAddr        string
	KeepAlivePeriod   time.Duration
	MaxIdleTimeout    time.Duration
	MaxIncomingStream int64
	LagBufferSize     int
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8443"
	}
	if c.KeepAlivePeriod == 0 {
		c.KeepAlivePeriod = 5 * time.Second
	}
	if c.MaxIdleTimeout == 0 {
		c.MaxIdleTimeout = 60 * time.Second
	}
	if c.MaxIncomingStream == 0 {
		c.MaxIncomingStream = 100
	}
	if c.LagBufferSize == 0 {
		c.LagBufferSize = 1000
	}
}

// deviceSession tracks the bookkeeping the listener needs for one connected
// device: its stream handler session ID and the LagChannel its unistream
// reader feeds.
type deviceSession struct {
	deviceID  string
	sessionID string
	rx        *source.LagChannel
	live      *source.Live
}

// Listener accepts device QUIC connections and bridges them into the
// unified stream handler.
type Listener struct {
	cfg     Config
	ln      *quic.Listener
	handler *stream.Handler
	log     *slog.Logger

	mu         sync.Mutex
	sessions   map[uint64]*deviceSession
	nextConnID uint64
	closing    bool
	wg         sync.WaitGroup
}

// NewListener binds a QUIC listener on cfg.ListenAddr using a generated
// self-signed certificate (spec §6: "unverified self-signed certificates,
// demo only").
func NewListener(cfg Config, handler *stream.Handler, log *slog.Logger) (*Listener, error) {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Logger()
	}

	tlsConf, err := generateSelfSignedTLSConfig([]string{ALPN})
	if err != nil {
		return nil, fmt.Errorf("transport: generate tls config: %w", err)
	}

	quicConf := &quic.Config{
		KeepAlivePeriod:       cfg.KeepAlivePeriod,
		MaxIdleTimeout:        cfg.MaxIdleTimeout,
		MaxIncomingUniStreams: cfg.MaxIncomingStream,
	}

	ln, err := quic.ListenAddr(cfg.ListenAddr, tlsConf, quicConf)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", cfg.ListenAddr, err)
	}

	return &Listener{
		cfg:      cfg,
		ln:       ln,
		handler:  handler,
		log:      log.With("component", "transport"),
		sessions: make(map[uint64]*deviceSession),
	}, nil
}

// Addr returns the bound listener address.
func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Start launches the accept loop in a background goroutine.
func (l *Listener) Start() {
	l.wg.Add(1)
	go l.acceptLoop()
}

func (l *Listener) acceptLoop() {
	defer l.wg.Done()
	ctx := context.Background()
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			l.mu.Lock()
			closing := l.closing
			l.mu.Unlock()
			if closing || errors.Is(err, quic.ErrServerClosed) {
				return
			}
			l.log.Warn("accept error", "error", err)
			return
		}
		l.wg.Add(1)
		go l.handleConnection(conn)
	}
}

// handleConnection owns one device's lifetime: it completes the
// session-start handshake on the control stream, registers a live source
// with the stream handler, then runs the control-message loop and the
// per-segment unidirectional-stream loop concurrently until the device
// disconnects.
func (l *Listener) handleConnection(conn *quic.Conn) {
	defer l.wg.Done()

	ctx := conn.Context()
	control, err := conn.AcceptStream(ctx)
	if err != nil {
		l.log.Warn("control stream not opened", "error", err)
		_ = conn.CloseWithError(0, "control stream required")
		return
	}

	msgType, msg, err := wire.Decode(control)
	if err != nil {
		l.log.Warn("control handshake decode failed", "error", err)
		_ = conn.CloseWithError(0, "invalid handshake")
		return
	}
	start, ok := msg.(wire.SessionStart)
	if msgType != wire.TypeSessionStart || !ok {
		l.log.Warn("expected SessionStart, got", "type", msgType)
		_ = conn.CloseWithError(0, "expected session start")
		return
	}

	rx := source.NewLagChannel(l.cfg.LagBufferSize)
	live := source.NewLive(start.DeviceID, rx, l.log)
	live.SetStreamInfo(start.Resolution, 0, int(start.MaxBitrate))

	sessionID, err := l.handler.StartStream(live)
	if err != nil {
		l.log.Error("start stream failed", "device_id", start.DeviceID, "error", err)
		_ = conn.CloseWithError(0, "start stream failed")
		return
	}

	sess := &deviceSession{deviceID: start.DeviceID, sessionID: sessionID, rx: rx, live: live}
	l.mu.Lock()
	l.nextConnID++
	connID := l.nextConnID
	l.sessions[connID] = sess
	l.mu.Unlock()

	l.log.Info("device session started", "device_id", start.DeviceID, "session_id", sessionID)

	defer func() {
		l.mu.Lock()
		delete(l.sessions, connID)
		l.mu.Unlock()
		rx.Close()
		_ = l.handler.StopStream(sessionID)
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.controlLoop(ctx, control, sess)
	}()
	go func() {
		defer wg.Done()
		l.segmentLoop(ctx, conn, sess)
	}()
	wg.Wait()
}

// controlLoop reads Heartbeat/SessionEnd messages off the bidirectional
// control stream for the lifetime of the connection.
func (l *Listener) controlLoop(ctx context.Context, control quic.Stream, sess *deviceSession) {
	for {
		msgType, msg, err := wire.Decode(control)
		if err != nil {
			return
		}
		switch msgType {
		case wire.TypeHeartbeat:
			_ = msg
		case wire.TypeSessionEnd:
			end, _ := msg.(wire.SessionEnd)
			l.log.Info("device session end", "device_id", sess.deviceID, "reason", end.Reason)
			return
		default:
			l.log.Debug("unexpected control message", "type", msgType)
		}
	}
}

// segmentLoop accepts one unidirectional stream per segment (spec §6) and
// decodes each into the device's LagChannel.
func (l *Listener) segmentLoop(ctx context.Context, conn *quic.Conn, sess *deviceSession) {
	for {
		str, err := conn.AcceptUniStream(ctx)
		if err != nil {
			return
		}
		go l.readSegmentStream(str, sess)
	}
}

func (l *Listener) readSegmentStream(str quic.ReceiveStream, sess *deviceSession) {
	msgType, msg, err := wire.Decode(str)
	if err != nil {
		l.log.Warn("segment stream decode failed", "device_id", sess.deviceID, "error", err)
		return
	}
	if msgType != wire.TypeVideoSegment {
		l.log.Debug("unexpected message on segment stream", "type", msgType)
		return
	}
	vsm, ok := msg.(wire.VideoSegmentMessage)
	if !ok {
		return
	}
	seg := vsm.Segment
	sess.rx.Send(&seg)
}

// DeviceInfo is a connected device's identity and stream-handler session.
type DeviceInfo struct {
	DeviceID  string
	SessionID string
}

// ConnectedDevices lists every device currently connected, for the HTTP
// device-listing route (spec §6 `/api/v1/devices`).
func (l *Listener) ConnectedDevices() []DeviceInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]DeviceInfo, 0, len(l.sessions))
	for _, sess := range l.sessions {
		out = append(out, DeviceInfo{DeviceID: sess.deviceID, SessionID: sess.sessionID})
	}
	return out
}

// Stop closes the listener and waits for every connection goroutine to
// exit.
func (l *Listener) Stop() error {
	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()

	err := l.ln.Close()
	l.wg.Wait()
	return err
}
