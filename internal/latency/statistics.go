package latency

import (
	"sort"
	"sync"
	"time"
)

// statsWindowSize bounds the retained latency history per session.
const statsWindowSize = 1000

// Snapshot is the public statistics view for one session (spec §4.8).
type Snapshot struct {
	SessionID         string
	TotalSegments     uint64
	TotalBytes        uint64
	AverageLatencyMs  float64
	CurrentLatencyMs  float64
	MinLatencyMs      uint64
	MaxLatencyMs      uint64
	P50LatencyMs      uint64
	P95LatencyMs      uint64
	P99LatencyMs      uint64
	ThroughputMbps    float64
	PacketLossRate    float64
}

type sessionStats struct {
	startTime  time.Time
	lastUpdate time.Time

	totalSegments    uint64
	totalBytes       uint64
	expectedSegments uint64
	lostSegments     uint64

	history []time.Duration // ring-like slice, oldest first
}

func newSessionStats() *sessionStats {
	now := time.Now()
	return &sessionStats{startTime: now, lastUpdate: now}
}

func (s *sessionStats) addLatency(d time.Duration) {
	if len(s.history) >= statsWindowSize {
		s.history = s.history[1:]
	}
	s.history = append(s.history, d)
	s.lastUpdate = time.Now()
}

func (s *sessionStats) average() float64 {
	if len(s.history) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s.history {
		sum += d
	}
	return float64(sum) / float64(len(s.history)) / float64(time.Millisecond)
}

func (s *sessionStats) minMax() (min, max uint64) {
	if len(s.history) == 0 {
		return 0, 0
	}
	min = uint64(s.history[0] / time.Millisecond)
	max = min
	for _, d := range s.history[1:] {
		ms := uint64(d / time.Millisecond)
		if ms < min {
			min = ms
		}
		if ms > max {
			max = ms
		}
	}
	return min, max
}

func (s *sessionStats) percentile(p float64) uint64 {
	if len(s.history) == 0 {
		return 0
	}
	sorted := make([]uint64, len(s.history))
	for i, d := range s.history {
		sorted[i] = uint64(d / time.Millisecond)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted))*p + 0.999999) // ceil
	idx--
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (s *sessionStats) throughputMbps() float64 {
	elapsed := s.lastUpdate.Sub(s.startTime)
	if elapsed <= 0 {
		return 0
	}
	bits := float64(s.totalBytes) * 8.0
	return bits / elapsed.Seconds() / 1_000_000.0
}

func (s *sessionStats) packetLossRate() float64 {
	if s.expectedSegments == 0 {
		return 0
	}
	return float64(s.lostSegments) / float64(s.expectedSegments)
}

func (s *sessionStats) snapshot(sessionID string) Snapshot {
	min, max := s.minMax()
	current := 0.0
	if n := len(s.history); n > 0 {
		current = float64(s.history[n-1]) / float64(time.Millisecond)
	}
	return Snapshot{
		SessionID:        sessionID,
		TotalSegments:    s.totalSegments,
		TotalBytes:       s.totalBytes,
		AverageLatencyMs: s.average(),
		CurrentLatencyMs: current,
		MinLatencyMs:     min,
		MaxLatencyMs:     max,
		P50LatencyMs:     s.percentile(0.50),
		P95LatencyMs:     s.percentile(0.95),
		P99LatencyMs:     s.percentile(0.99),
		ThroughputMbps:   s.throughputMbps(),
		PacketLossRate:   s.packetLossRate(),
	}
}

// StatisticsManager tracks rolling latency/throughput/loss statistics per
// session (spec §4.8).
type StatisticsManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionStats
}

// NewStatisticsManager creates an empty manager.
func NewStatisticsManager() *StatisticsManager {
	return &StatisticsManager{sessions: make(map[string]*sessionStats)}
}

// StartSession begins tracking a session.
func (m *StatisticsManager) StartSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = newSessionStats()
}

// RecordSegmentLatency records one segment's size and observed latency.
func (m *StatisticsManager) RecordSegmentLatency(sessionID string, size int, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	s.totalSegments++
	s.totalBytes += uint64(size)
	s.expectedSegments++
	s.addLatency(latency)
}

// RecordLostSegment marks an expected segment as never arrived.
func (m *StatisticsManager) RecordLostSegment(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	s.expectedSegments++
	s.lostSegments++
}

// GetStatistics returns the current snapshot for a session.
func (m *StatisticsManager) GetStatistics(sessionID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(sessionID), true
}

// GetAllStatistics returns snapshots for every tracked session.
func (m *StatisticsManager) GetAllStatistics() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, 0, len(m.sessions))
	for id, s := range m.sessions {
		out = append(out, s.snapshot(id))
	}
	return out
}

// StopSession stops tracking a session and discards its history.
func (m *StatisticsManager) StopSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
