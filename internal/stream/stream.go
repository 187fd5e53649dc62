// Package stream is the central orchestrator (spec §4.7): it owns the
// session registry, spawns one forwarder goroutine per session that drains
// a source.Source into the distribution fan-out, stamps latency timestamps,
// and dispatches control operations under mutual exclusion with the
// forwarder.
package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
	"github.com/chengang12345632/media-test-sub001/internal/distribution"
	"github.com/chengang12345632/media-test-sub001/internal/latency"
	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
	"github.com/chengang12345632/media-test-sub001/internal/source"
)

// State is the session state machine position (spec §4.7): Initializing ->
// Streaming <-> Paused, Streaming -> Seeking -> Streaming, any -> Stopped,
// Error(reason) terminal. Reuses source.State since both describe the same
// session lifecycle position, just observed from the handler side.
type State = source.State

const (
	StateInitializing = source.StateInitializing
	StateStreaming    = source.StateStreaming
	StatePaused       = source.StatePaused
	StateSeeking      = source.StateSeeking
	StateStopped      = source.StateStopped
	StateError        = source.StateError
)

// Stats tracks per-session counters surfaced on demand (spec §4.7).
type Stats struct {
	TotalSegments  uint64
	TotalBytes     uint64
	KeyframeCount  uint64
	AverageLatency time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration

	sumLatency time.Duration
	sampled    uint64
}

func (s *Stats) record(seg *segment.VideoSegment, forwardLatency time.Duration) {
	s.TotalSegments++
	s.TotalBytes += uint64(len(seg.Data))
	if seg.Keyframe {
		s.KeyframeCount++
	}
	if forwardLatency <= 0 {
		return
	}
	s.sampled++
	s.sumLatency += forwardLatency
	s.AverageLatency = s.sumLatency / time.Duration(s.sampled)
	if s.MinLatency == 0 || forwardLatency < s.MinLatency {
		s.MinLatency = forwardLatency
	}
	if forwardLatency > s.MaxLatency {
		s.MaxLatency = forwardLatency
	}
}

// Snapshot is a copy-safe view of Stats.
type Snapshot struct {
	SessionID     string
	State         State
	TotalSegments uint64
	TotalBytes    uint64
	KeyframeCount uint64
	AverageLatency time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration
}

type session struct {
	mu     sync.Mutex
	id     string
	src    source.Source
	state  State
	cancel context.CancelFunc
	done   chan struct{}
	stats  Stats
	log    *slog.Logger
}

// Handler is the unified stream handler (spec §4.7).
type Handler struct {
	mu       sync.RWMutex
	sessions map[string]*session

	dist    *distribution.Manager
	monitor *latency.Monitor
	stats   *latency.StatisticsManager
	log     *slog.Logger
}

// New creates a handler wired to a distribution manager and a latency
// monitor; either may be nil in tests that don't exercise fan-out/latency.
// A statistics manager is attached separately with WithStatistics.
func New(dist *distribution.Manager, monitor *latency.Monitor) *Handler {
	return &Handler{
		sessions: make(map[string]*session),
		dist:     dist,
		monitor:  monitor,
		log:      logger.Logger(),
	}
}

// WithStatistics attaches a statistics manager and returns h for chaining
// (kept separate from New so existing two-argument call sites are
// unaffected).
func (h *Handler) WithStatistics(stats *latency.StatisticsManager) *Handler {
	h.stats = stats
	return h
}

// StartStream generates a session identifier, registers the source, and
// spawns its forwarder goroutine. Returns the new session ID.
func (h *Handler) StartStream(src source.Source) (string, error) {
	sessionID := uuid.NewString()

	h.mu.Lock()
	if h.dist != nil {
		h.dist.CreateSession(sessionID)
	}
	if h.stats != nil {
		h.stats.StartSession(sessionID)
	}
	sess := &session{
		id:    sessionID,
		src:   src,
		state: StateInitializing,
		done:  make(chan struct{}),
		log:   logger.WithStream(h.log, "session", sessionID),
	}
	h.sessions[sessionID] = sess
	h.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	go h.forward(ctx, sess)

	return sessionID, nil
}

// forward is the session's sole writer: it pulls segments from the source,
// stamps T3 (platform forward), fans them out, and updates stats. Mirrors
// the teacher's BroadcastMessage loop, generalized from one publisher
// connection's read loop to a polymorphic Source. Any error from the source
// ends the loop without a retry: context.Canceled leaves the session
// Stopped, every other error leaves it in Error.
func (h *Handler) forward(ctx context.Context, sess *session) {
	defer close(sess.done)

	sess.mu.Lock()
	sess.state = StateStreaming
	sess.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		seg, err := sess.src.NextSegment(ctx)
		if err != nil {
			sess.mu.Lock()
			if err == context.Canceled {
				sess.state = StateStopped
			} else {
				sess.state = StateError
			}
			sess.mu.Unlock()
			sess.log.Info("forwarder exiting", "error", err)
			return
		}

		now := time.Now()
		seg.ForwardTime = float64(now.UnixNano()) / 1e9
		forwardLatency := time.Duration(0)
		if seg.ReceiveTime > 0 {
			forwardLatency = time.Duration((seg.ForwardTime - seg.ReceiveTime) * float64(time.Second))
		}

		if h.monitor != nil {
			// T1 is extracted from the segment's declared timestamp (spec
			// §4.8): only meaningful for Live-origin segments, where
			// Timestamp is the device's send time rather than a position
			// within a recording (segment.VideoSegment's own invariant).
			if seg.Origin == segment.Live && seg.Timestamp > 0 {
				deviceSend := time.Unix(0, int64(seg.Timestamp*float64(time.Second)))
				h.monitor.RecordDeviceSend(sess.id, seg.ID, deviceSend)
			}
			if seg.ReceiveTime > 0 {
				receiveTime := time.Unix(0, int64(seg.ReceiveTime*float64(time.Second)))
				h.monitor.RecordPlatformReceive(sess.id, seg.ID, receiveTime)
			}
			h.monitor.RecordPlatformForward(sess.id, seg.ID, now)
		}

		sess.mu.Lock()
		sess.stats.record(seg, forwardLatency)
		sess.mu.Unlock()

		if h.stats != nil {
			h.stats.RecordSegmentLatency(sess.id, len(seg.Data), forwardLatency)
		}

		if h.dist != nil {
			_ = h.dist.DistributeSegment(sess.id, seg)
		}
	}
}

func (h *Handler) lookup(sessionID string) (*session, error) {
	h.mu.RLock()
	sess, ok := h.sessions[sessionID]
	h.mu.RUnlock()
	if !ok {
		return nil, coreerr.NewSessionNotFound(sessionID)
	}
	return sess, nil
}

// Subscribe returns a new distribution subscription for sessionID. If a
// keyframe is cached, it is delivered immediately (spec §4.7, §8 "first
// delivered segment is a keyframe iff a cached keyframe exists").
func (h *Handler) Subscribe(sessionID string) (*distribution.Subscription, error) {
	if _, err := h.lookup(sessionID); err != nil {
		return nil, err
	}
	if h.dist == nil {
		return nil, coreerr.NewInternalError("stream.Subscribe", nil)
	}
	return h.dist.Subscribe(sessionID)
}

// Pause dispatches to the owned source under mutual exclusion with the
// forwarder, then updates the recorded state.
func (h *Handler) Pause(sessionID string) error {
	sess, err := h.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.src.Pause(); err != nil {
		return err
	}
	sess.state = StatePaused
	return nil
}

// Resume dispatches Resume to the owned source and updates state.
func (h *Handler) Resume(sessionID string) error {
	sess, err := h.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.src.Resume(); err != nil {
		return err
	}
	sess.state = StateStreaming
	return nil
}

// Seek dispatches Seek to the owned source, tracking the Seeking
// transitional state around the call.
func (h *Handler) Seek(ctx context.Context, sessionID string, positionSec float64) (source.SeekResult, error) {
	sess, err := h.lookup(sessionID)
	if err != nil {
		return source.SeekResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	prev := sess.state
	sess.state = StateSeeking
	result, err := sess.src.Seek(ctx, positionSec)
	if err != nil {
		sess.state = prev
		return source.SeekResult{}, err
	}
	sess.state = StateStreaming
	return result, nil
}

// SetRate dispatches SetRate to the owned source.
func (h *Handler) SetRate(sessionID string, rate float64) error {
	sess, err := h.lookup(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.src.SetRate(rate)
}

// StopStream cancels the forwarder, removes the session from the registry,
// and closes its distribution session so subscribers observe closure on
// their next receive.
func (h *Handler) StopStream(sessionID string) error {
	h.mu.Lock()
	sess, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()
	if !ok {
		return coreerr.NewSessionNotFound(sessionID)
	}

	sess.cancel()
	<-sess.done

	if h.dist != nil {
		h.dist.CloseSession(sessionID)
	}
	if h.stats != nil {
		h.stats.StopSession(sessionID)
	}
	return nil
}

// Info returns the session's current state and source info.
func (h *Handler) Info(sessionID string) (State, source.Info, error) {
	sess, err := h.lookup(sessionID)
	if err != nil {
		return StateStopped, source.Info{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state, sess.src.Info(), nil
}

// Stats returns a snapshot of the session's counters.
func (h *Handler) Stats(sessionID string) (Snapshot, error) {
	sess, err := h.lookup(sessionID)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return Snapshot{
		SessionID:      sessionID,
		State:          sess.state,
		TotalSegments:  sess.stats.TotalSegments,
		TotalBytes:     sess.stats.TotalBytes,
		KeyframeCount:  sess.stats.KeyframeCount,
		AverageLatency: sess.stats.AverageLatency,
		MinLatency:     sess.stats.MinLatency,
		MaxLatency:     sess.stats.MaxLatency,
	}, nil
}

// SessionIDs lists every currently registered session.
func (h *Handler) SessionIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}
