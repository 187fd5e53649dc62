package web

import (
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
)

// deviceView is the JSON shape for one connected device (spec §6
// `/api/v1/devices`).
type deviceView struct {
	DeviceID  string `json:"device_id"`
	SessionID string `json:"session_id"`
}

// handleListDevices lists every device currently connected over QUIC. This
// is deliberately thin glue over transport.Listener's own bookkeeping
// (spec §1 "deliberately out of scope... simple glue").
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	if s.listener == nil {
		writeSuccess(w, []deviceView{})
		return
	}
	devices := s.listener.ConnectedDevices()
	out := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceView{DeviceID: d.DeviceID, SessionID: d.SessionID})
	}
	writeSuccess(w, out)
}

// recordingView describes one file available for playback.
type recordingView struct {
	FileID string `json:"file_id"`
	Size   int64  `json:"size_bytes"`
}

// handleDeviceRecordings scans the storage root for files whose name is
// prefixed with the device ID (the device-simulator's own naming
// convention, e.g. "device_001_clip.h264") and returns each as a
// directly-streamable file ID. Directory scanning is explicitly
// out-of-scope glue (spec §1); this is a flat os.ReadDir, not a watcher
// or index.
func (s *Server) handleDeviceRecordings(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	prefix := deviceID + "_"

	entries, err := os.ReadDir(s.cfg.StorageRoot)
	if err != nil {
		writeSuccess(w, []recordingView{})
		return
	}

	out := make([]recordingView, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, recordingView{FileID: entry.Name(), Size: info.Size()})
	}
	writeSuccess(w, out)
}
