package transport

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/distribution"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
	"github.com/chengang12345632/media-test-sub001/internal/stream"
	"github.com/chengang12345632/media-test-sub001/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestHandler() *stream.Handler {
	return stream.New(distribution.New(discardLogger()), nil)
}

func TestListenerAcceptsDeviceHandshakeAndForwardsSegments(t *testing.T) {
	h := newTestHandler()
	ln, err := NewListener(Config{ListenAddr: "127.0.0.1:0"}, h, discardLogger())
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	ln.Start()
	defer ln.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Dial(ctx, ln.Addr(), DialConfig{}, wire.SessionStart{
		DeviceID:   "dev-1",
		DeviceName: "camera-1",
		Resolution: "1920x1080",
		MaxBitrate: 4_000_000,
	}, discardLogger())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	deadline := time.Now().Add(2 * time.Second)
	var sessionID string
	for time.Now().Before(deadline) {
		devices := ln.ConnectedDevices()
		if len(devices) == 1 {
			sessionID = devices[0].SessionID
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if sessionID == "" {
		t.Fatalf("expected device session to register")
	}

	sub, err := h.Subscribe(sessionID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	seg := segment.New(1.0, 0.033, []byte{1, 2, 3, 4}, true, segment.FMP4, segment.Live)
	if err := client.SendSegment(ctx, sessionID, seg); err != nil {
		t.Fatalf("send segment: %v", err)
	}

	select {
	case got := <-sub.Segments():
		if got.ID != seg.ID {
			t.Fatalf("expected segment id %s, got %s", seg.ID, got.ID)
		}
		if len(got.Data) != len(seg.Data) {
			t.Fatalf("expected %d data bytes, got %d", len(seg.Data), len(got.Data))
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for forwarded segment")
	}
}

func TestListenerHasNoDevicesBeforeAnyHandshake(t *testing.T) {
	h := newTestHandler()
	ln, err := NewListener(Config{ListenAddr: "127.0.0.1:0"}, h, discardLogger())
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	ln.Start()
	defer ln.Stop()

	time.Sleep(50 * time.Millisecond)
	if len(ln.ConnectedDevices()) != 0 {
		t.Fatalf("expected no connected devices before any handshake")
	}
}
