package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
	"github.com/chengang12345632/media-test-sub001/internal/source"
)

// streamStartRequest selects between attaching to an already-connected
// device's live session and opening a new server-side playback session
// (spec §6 "Open a session (live or playback, selected by request body)").
type streamStartRequest struct {
	Mode     string `json:"mode"` // "live" | "playback"
	DeviceID string `json:"device_id,omitempty"`
	FileID   string `json:"file_id,omitempty"`
}

type streamStartResponse struct {
	SessionID string `json:"session_id"`
}

// handleStreamStart dispatches by mode. A live session already exists from
// the moment the device completed its QUIC handshake (transport.Listener
// registers it eagerly), so "live" here is a lookup, not a creation;
// "playback" opens a fresh source.Playback over a recording file.
func (s *Server) handleStreamStart(w http.ResponseWriter, r *http.Request) {
	var req streamStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch req.Mode {
	case "live":
		s.startLive(w, req)
	case "playback":
		s.startPlayback(w, req)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown stream mode %q", req.Mode))
	}
}

func (s *Server) startLive(w http.ResponseWriter, req streamStartRequest) {
	if s.listener == nil {
		writeAPIError(w, coreerr.NewConnectionError("DeviceNotConnected", req.DeviceID, nil))
		return
	}
	for _, d := range s.listener.ConnectedDevices() {
		if d.DeviceID == req.DeviceID {
			writeSuccess(w, streamStartResponse{SessionID: d.SessionID})
			return
		}
	}
	writeAPIError(w, coreerr.NewConnectionError("DeviceNotConnected", req.DeviceID, nil))
}

func (s *Server) startPlayback(w http.ResponseWriter, req streamStartRequest) {
	path := filepath.Join(s.cfg.StorageRoot, req.FileID)
	pb, err := source.NewPlayback(req.FileID, path, s.log)
	if err != nil {
		writeAPIError(w, coreerr.NewFileError("FileNotFound", path, err))
		return
	}
	sessionID, err := s.handler.StartStream(pb)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, streamStartResponse{SessionID: sessionID})
}

// streamControlRequest carries one of pause/resume/seek/set_rate (spec §6
// `/api/v1/stream/{sid}/control`).
type streamControlRequest struct {
	Op       string  `json:"op"` // "pause" | "resume" | "seek" | "set_rate"
	Position float64 `json:"position,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
}

func (s *Server) handleStreamControl(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	var req streamControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch req.Op {
	case "pause":
		if err := s.handler.Pause(sid); err != nil {
			writeAPIError(w, err)
			return
		}
		writeSuccess(w, nil)
	case "resume":
		if err := s.handler.Resume(sid); err != nil {
			writeAPIError(w, err)
			return
		}
		writeSuccess(w, nil)
	case "seek":
		result, err := s.handler.Seek(r.Context(), sid, req.Position)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeSuccess(w, result)
	case "set_rate":
		if err := s.handler.SetRate(sid, req.Rate); err != nil {
			writeAPIError(w, err)
			return
		}
		writeSuccess(w, nil)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown control op %q", req.Op))
	}
}

func (s *Server) handleStreamStop(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if err := s.handler.StopStream(sid); err != nil {
		writeAPIError(w, err)
		return
	}
	writeSuccess(w, nil)
}

// sseSegmentData is the wire shape of one "segment" SSE event (spec §6
// "event type segment with JSON payload
// {segment_id, timestamp, duration, is_keyframe, format, data: base64}").
type sseSegmentData struct {
	SegmentID  string  `json:"segment_id"`
	Timestamp  float64 `json:"timestamp"`
	Duration   float64 `json:"duration"`
	IsKeyframe bool    `json:"is_keyframe"`
	Format     string  `json:"format"`
	Data       string  `json:"data"`
}

const sseKeepAliveInterval = 15 * time.Second

// handleStreamSegments subscribes to sid's distribution fan-out and
// streams each delivered segment as an SSE "segment" event, stamping T4
// (client play) on the latency monitor as each one is flushed. A rise in
// Subscription.Dropped() since the last check is reported as a "warning"
// event carrying the skip count (spec §4.5 "Lagged(skipped)" signal).
func (s *Server) handleStreamSegments(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	sub, err := s.handler.Subscribe(sid)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	var lastDropped uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case seg, open := <-sub.Segments():
			if !open {
				return
			}
			if dropped := sub.Dropped(); dropped > lastDropped {
				skipped := dropped - lastDropped
				lastDropped = dropped
				fmt.Fprintf(w, "event: warning\ndata: Lagged: skipped %d segments\n\n", skipped)
				flusher.Flush()
			}

			now := time.Now()
			if s.monitor != nil {
				s.monitor.RecordClientPlay(sid, seg.ID, now)
			}

			data := sseSegmentData{
				SegmentID:  seg.ID,
				Timestamp:  seg.Timestamp,
				Duration:   seg.Duration,
				IsKeyframe: seg.Keyframe,
				Format:     seg.Format.String(),
				Data:       base64.StdEncoding.EncodeToString(seg.Data),
			}
			payload, err := json.Marshal(data)
			if err != nil {
				s.log.Error("failed to marshal segment for sse", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: segment\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
