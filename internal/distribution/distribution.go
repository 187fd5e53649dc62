// Package distribution fans a session's segments out to every subscribed
// client (spec §4.7): one channel per subscriber, a cached last keyframe so
// a late joiner can start decoding immediately, and drop-on-full
// backpressure so one slow client never stalls the others.
package distribution

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

const defaultSubscriberBuffer = 1000

// Subscription is a single subscriber's view of a session: a receive-only
// channel plus the handle needed to unsubscribe and observe how far it has
// lagged (spec §4.5 "Lagged(skipped)" signal, surfaced by web as an SSE
// "warning" event).
type Subscription struct {
	ch      <-chan *segment.VideoSegment
	id      uint64
	dropped *atomic.Uint64
}

// Segments returns the channel a subscriber should range over.
func (s *Subscription) Segments() <-chan *segment.VideoSegment { return s.ch }

// Dropped reports the cumulative number of segments dropped because this
// subscriber's channel was full when DistributeSegment tried to enqueue.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

type subscriber struct {
	id      uint64
	ch      chan *segment.VideoSegment
	dropped atomic.Uint64
}

// TrySend attempts a non-blocking enqueue, reporting false on a full
// channel rather than blocking the publisher (mirrors the teacher's
// TrySendMessage optional interface).
func (s *subscriber) TrySend(seg *segment.VideoSegment) bool {
	select {
	case s.ch <- seg:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

type session struct {
	mu           sync.RWMutex
	subs         []*subscriber
	nextSubID    uint64
	lastKeyframe *segment.VideoSegment
	closed       bool
}

// Manager owns every active distribution session, keyed by session ID
// (spec §4.7 "unified stream handler" fan-out layer).
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	log      *slog.Logger
}

// New creates an empty distribution manager.
func New(log *slog.Logger) *Manager {
	return &Manager{sessions: make(map[string]*session), log: log}
}

// CreateSession registers a new, empty distribution session.
func (m *Manager) CreateSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = &session{}
}

// CloseSession removes a session and disconnects every subscriber.
func (m *Manager) CloseSession(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.closed = true
	for _, sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	s.mu.Unlock()
}

// ActiveSessions reports how many sessions are currently registered.
func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) lookup(sessionID string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, coreerr.NewSessionNotFound(sessionID)
	}
	return s, nil
}

// DistributeSegment fans seg out to every current subscriber of sessionID.
// A keyframe is cached so Subscribe can hand it to late joiners
// immediately; this is the fix for the cached-keyframe delivery the
// original session fan-out attempted but could not actually perform once
// a subscriber had already missed the broadcast moment.
func (m *Manager) DistributeSegment(sessionID string, seg *segment.VideoSegment) error {
	s, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if seg.Keyframe {
		s.lastKeyframe = seg.Clone()
	}
	subs := make([]*subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if !sub.TrySend(seg.Clone()) {
			if m.log != nil {
				m.log.Debug("dropped segment, slow subscriber", "session_id", sessionID, "subscriber_id", sub.id)
			}
		}
	}
	return nil
}

// Subscribe registers a new subscriber on sessionID and, if a keyframe has
// already been cached, delivers it immediately so the subscriber can start
// decoding without waiting for the next broadcast keyframe.
func (m *Manager) Subscribe(sessionID string) (*Subscription, error) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, coreerr.NewSessionNotFound(sessionID)
	}

	s.nextSubID++
	sub := &subscriber{id: s.nextSubID, ch: make(chan *segment.VideoSegment, defaultSubscriberBuffer)}
	s.subs = append(s.subs, sub)

	if s.lastKeyframe != nil {
		sub.ch <- s.lastKeyframe.Clone()
	}

	return &Subscription{ch: sub.ch, id: sub.id, dropped: &sub.dropped}, nil
}

// Unsubscribe removes a subscriber from a session, closing its channel.
func (m *Manager) Unsubscribe(sessionID string, sub *Subscription) {
	s, err := m.lookup(sessionID)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cand := range s.subs {
		if cand.id == sub.id {
			close(cand.ch)
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount reports how many subscribers a session currently has.
func (m *Manager) SubscriberCount(sessionID string) int {
	s, err := m.lookup(sessionID)
	if err != nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
