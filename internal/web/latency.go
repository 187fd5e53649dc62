package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
	"github.com/chengang12345632/media-test-sub001/internal/latency"
)

// handleSessionStatistics returns a point-in-time snapshot of a session's
// rolling latency/throughput/loss statistics (spec §6
// `/api/v1/latency/sessions/{sid}/statistics`).
func (s *Server) handleSessionStatistics(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	if s.stats == nil {
		writeAPIError(w, coreerr.NewSessionNotFound(sid))
		return
	}
	snap, ok := s.stats.GetStatistics(sid)
	if !ok {
		writeAPIError(w, coreerr.NewSessionNotFound(sid))
		return
	}
	writeSuccess(w, snap)
}

const alertSubscriberBuffer = 64

// handleAlertFeed streams every published latency alert as an
// unnamed-event SSE stream (spec §6 `/api/v1/latency/alerts`).
func (s *Server) handleAlertFeed(w http.ResponseWriter, r *http.Request) {
	s.streamAlerts(w, r, func(latency.Alert) bool { return true })
}

// handleSessionAlertFeed streams only the alerts whose SessionID matches
// the path parameter (spec §6 `/api/v1/latency/sessions/{sid}/alerts`).
func (s *Server) handleSessionAlertFeed(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	s.streamAlerts(w, r, func(a latency.Alert) bool { return a.SessionID == sid })
}

func (s *Server) streamAlerts(w http.ResponseWriter, r *http.Request, match func(latency.Alert) bool) {
	if s.alerts == nil {
		http.Error(w, "latency alerting not configured", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := s.alerts.Subscribe(alertSubscriberBuffer)
	defer s.alerts.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case a, open := <-ch:
			if !open {
				return
			}
			if !match(a) {
				continue
			}
			payload, err := json.Marshal(alertView{
				Kind:        a.Kind.String(),
				SessionID:   a.SessionID,
				SegmentID:   a.SegmentID,
				LatencyMs:   float64(a.Latency) / float64(time.Millisecond),
				ThresholdMs: float64(a.Threshold) / float64(time.Millisecond),
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// alertView is the JSON shape of one latency alert delivered over SSE.
type alertView struct {
	Kind        string  `json:"kind"`
	SessionID   string  `json:"session_id"`
	SegmentID   string  `json:"segment_id"`
	LatencyMs   float64 `json:"latency_ms"`
	ThresholdMs float64 `json:"threshold_ms"`
}
