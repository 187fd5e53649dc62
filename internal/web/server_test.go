package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/distribution"
	"github.com/chengang12345632/media-test-sub001/internal/latency"
	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/stream"
)

// buildSample writes a minimal Annex-B stream under dir, mirroring
// filereader's own test fixture builder.
func buildSample(t *testing.T, dir, name string, frames int) string {
	t.Helper()
	var data []byte
	startCode := []byte{0, 0, 0, 1}

	data = append(data, startCode...)
	data = append(data, 0x67, 0x42, 0x00, 0x1f)
	data = append(data, startCode...)
	data = append(data, 0x68, 0xce)

	for i := 0; i < frames; i++ {
		data = append(data, startCode...)
		if i == 0 {
			data = append(data, 0x65)
		} else {
			data = append(data, 0x61)
		}
		data = append(data, make([]byte, 10)...)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func newTestServer(t *testing.T, storageRoot string) *Server {
	t.Helper()
	log := logger.Logger()
	dist := distribution.New(log)
	monitor := latency.NewMonitor(latency.DefaultThresholds(), latency.NewAlertBroadcaster())
	statsMgr := latency.NewStatisticsManager()
	h := stream.New(dist, monitor).WithStatistics(statsMgr)

	return NewServer(Config{StorageRoot: storageRoot}, h, nil, statsMgr, latency.NewAlertBroadcaster(), monitor, log)
}

func TestPlaybackStartControlAndStop(t *testing.T) {
	dir := t.TempDir()
	buildSample(t, dir, "dev_001_clip.h264", 5)

	srv := newTestServer(t, dir)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	startResp, err := http.Post(ts.URL+"/api/v1/stream/start", "application/json",
		strings.NewReader(`{"mode":"playback","file_id":"dev_001_clip.h264"}`))
	if err != nil {
		t.Fatalf("start request: %v", err)
	}
	defer startResp.Body.Close()
	if startResp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", startResp.StatusCode)
	}
	var started struct {
		Status string `json:"status"`
		Data   struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(startResp.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.Data.SessionID == "" {
		t.Fatalf("expected non-empty session id")
	}
	sid := started.Data.SessionID

	pauseResp, err := http.Post(ts.URL+"/api/v1/stream/"+sid+"/control", "application/json",
		strings.NewReader(`{"op":"pause"}`))
	if err != nil {
		t.Fatalf("pause request: %v", err)
	}
	defer pauseResp.Body.Close()
	if pauseResp.StatusCode != http.StatusOK {
		t.Fatalf("pause status = %d", pauseResp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/v1/stream/"+sid, nil)
	stopResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stop request: %v", err)
	}
	defer stopResp.Body.Close()
	if stopResp.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d", stopResp.StatusCode)
	}
}

func TestStreamSegmentsSSEDeliversSegmentEvent(t *testing.T) {
	dir := t.TempDir()
	buildSample(t, dir, "dev_001_clip.h264", 5)

	srv := newTestServer(t, dir)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	startResp, err := http.Post(ts.URL+"/api/v1/stream/start", "application/json",
		strings.NewReader(`{"mode":"playback","file_id":"dev_001_clip.h264"}`))
	if err != nil {
		t.Fatalf("start request: %v", err)
	}
	var started struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	json.NewDecoder(startResp.Body).Decode(&started)
	startResp.Body.Close()
	sid := started.Data.SessionID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/stream/"+sid+"/segments", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sse request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("sse status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: segment") {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected at least one segment event")
	}
}

func TestRecordingStreamServesRangeRequest(t *testing.T) {
	dir := t.TempDir()
	path := buildSample(t, dir, "dev_001_clip.h264", 2)
	data, _ := os.ReadFile(path)

	srv := newTestServer(t, dir)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/recordings/dev_001_clip.h264/stream", nil)
	req.Header.Set("Range", "bytes=0-3")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("range request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	wantRange := "bytes 0-3/" + strconv.Itoa(len(data))
	if got := resp.Header.Get("Content-Range"); got != wantRange {
		t.Fatalf("content-range = %q, want %q", got, wantRange)
	}
}
