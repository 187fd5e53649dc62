// Package integration exercises the full device -> platform -> browser
// pipeline end to end, the way tests/integration/quickstart_test.go exercises
// a whole RTMP publish/relay cycle against real in-process listeners rather
// than mocking any layer.
package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/distribution"
	"github.com/chengang12345632/media-test-sub001/internal/latency"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
	"github.com/chengang12345632/media-test-sub001/internal/stream"
	"github.com/chengang12345632/media-test-sub001/internal/transport"
	"github.com/chengang12345632/media-test-sub001/internal/web"
	"github.com/chengang12345632/media-test-sub001/internal/wire"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDeviceUploadReachesBrowserSSE dials a simulated device into a real
// transport.Listener, sends one segment, then confirms a browser client
// subscribed through internal/web's SSE endpoint receives it -- the same
// round trip cmd/device-simulator and a browser tab perform in production,
// minus the process boundary.
func TestDeviceUploadReachesBrowserSSE(t *testing.T) {
	log := discardLogger()
	dist := distribution.New(log)
	alerts := latency.NewAlertBroadcaster()
	monitor := latency.NewMonitor(latency.DefaultThresholds(), alerts)
	stats := latency.NewStatisticsManager()
	handler := stream.New(dist, monitor).WithStatistics(stats)

	ln, err := transport.NewListener(transport.Config{ListenAddr: "127.0.0.1:0"}, handler, log)
	if err != nil {
		t.Fatalf("new listener: %v", err)
	}
	ln.Start()
	defer ln.Stop()

	srv := web.NewServer(web.Config{}, handler, ln, stats, alerts, monitor, log)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	dialCtx, cancelDial := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDial()
	client, err := transport.Dial(dialCtx, ln.Addr(), transport.DialConfig{}, wire.SessionStart{
		DeviceID:   "dev-cam-1",
		DeviceName: "front-door",
		Resolution: "1920x1080",
		MaxBitrate: 4_000_000,
	}, log)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	var sessionID string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		devices := ln.ConnectedDevices()
		if len(devices) == 1 {
			sessionID = devices[0].SessionID
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if sessionID == "" {
		t.Fatalf("device never registered a session")
	}

	startResp, err := http.Post(ts.URL+"/api/v1/stream/start", "application/json",
		strings.NewReader(`{"mode":"live","device_id":"dev-cam-1"}`))
	if err != nil {
		t.Fatalf("stream start: %v", err)
	}
	var started struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(startResp.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	startResp.Body.Close()
	if started.Data.SessionID != sessionID {
		t.Fatalf("live stream/start returned %q, want device session %q", started.Data.SessionID, sessionID)
	}

	sseCtx, cancelSSE := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelSSE()
	req, _ := http.NewRequestWithContext(sseCtx, http.MethodGet, ts.URL+"/api/v1/stream/"+sessionID+"/segments", nil)
	sseResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sse request: %v", err)
	}
	defer sseResp.Body.Close()
	if sseResp.StatusCode != http.StatusOK {
		t.Fatalf("sse status = %d", sseResp.StatusCode)
	}

	segmentArrived := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(sseResp.Body)
		for scanner.Scan() {
			if strings.HasPrefix(scanner.Text(), "event: segment") {
				close(segmentArrived)
				return
			}
		}
	}()

	seg := segment.New(0, 1.0, []byte{0, 0, 0, 1, 0x65, 1, 2, 3}, true, segment.H264Raw, segment.Live)
	sendCtx, cancelSend := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelSend()
	if err := client.SendSegment(sendCtx, "dev-cam-1", seg); err != nil {
		t.Fatalf("send segment: %v", err)
	}

	select {
	case <-segmentArrived:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for SSE segment event")
	}
}
