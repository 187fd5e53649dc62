// Package latency implements the four-timestamp (T1..T4) end-to-end
// latency measurement system (spec §4.8): per-segment transmission,
// processing, distribution and end-to-end durations, a sliding-window
// percentile tracker per session, threshold-based alerting, and a
// broadcaster that fans latency alerts out to observers.
package latency

import (
	"sync"
	"time"
)

// Thresholds gates when a Measurement crosses into an Alert.
type Thresholds struct {
	Transmission time.Duration
	Processing   time.Duration
	Distribution time.Duration
	EndToEnd     time.Duration
}

// DefaultThresholds matches the platform's operational targets (spec §4.8).
func DefaultThresholds() Thresholds {
	return Thresholds{
		Transmission: 100 * time.Millisecond,
		Processing:   50 * time.Millisecond,
		Distribution: 50 * time.Millisecond,
		EndToEnd:     200 * time.Millisecond,
	}
}

// Measurement holds the four timestamps recorded for one segment, keyed
// externally by segment ID. It is created when the first of its hops is
// recorded, and each field is zero until its hop is observed.
type Measurement struct {
	SessionID       string
	DeviceSend      time.Time // T1
	PlatformReceive time.Time // T2
	PlatformForward time.Time // T3
	ClientPlay      time.Time // T4
}

// Transmission returns T2-T1 if both are set.
func (m Measurement) Transmission() (time.Duration, bool) {
	return diff(m.PlatformReceive, m.DeviceSend)
}

// Processing returns T3-T2 if both are set.
func (m Measurement) Processing() (time.Duration, bool) {
	return diff(m.PlatformForward, m.PlatformReceive)
}

// Distribution returns T4-T3 if both are set.
func (m Measurement) Distribution() (time.Duration, bool) {
	return diff(m.ClientPlay, m.PlatformForward)
}

// EndToEnd returns T4-T1 if both are set.
func (m Measurement) EndToEnd() (time.Duration, bool) {
	return diff(m.ClientPlay, m.DeviceSend)
}

func diff(later, earlier time.Time) (time.Duration, bool) {
	if later.IsZero() || earlier.IsZero() {
		return 0, false
	}
	return later.Sub(earlier), true
}

// Monitor tracks per-segment T1..T4 timestamps, derives the four latency
// durations as each hop is recorded, and raises an Alert on the
// broadcaster when a duration exceeds its threshold. Removed on
// RecordClientPlay to bound memory to in-flight segments.
type Monitor struct {
	mu           sync.Mutex
	measurements map[string]*Measurement

	thresholds  Thresholds
	broadcaster *AlertBroadcaster
}

// NewMonitor creates a monitor that publishes alerts to b.
func NewMonitor(thresholds Thresholds, b *AlertBroadcaster) *Monitor {
	return &Monitor{
		measurements: make(map[string]*Measurement),
		thresholds:   thresholds,
		broadcaster:  b,
	}
}

func (m *Monitor) entry(segmentID string) *Measurement {
	e, ok := m.measurements[segmentID]
	if !ok {
		e = &Measurement{}
		m.measurements[segmentID] = e
	}
	return e
}

// RecordDeviceSend records T1.
func (m *Monitor) RecordDeviceSend(sessionID, segmentID string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entry(segmentID)
	e.SessionID = sessionID
	e.DeviceSend = t
}

// RecordPlatformReceive records T2 and evaluates the transmission alert.
func (m *Monitor) RecordPlatformReceive(sessionID, segmentID string, t time.Time) {
	m.mu.Lock()
	e := m.entry(segmentID)
	e.SessionID = sessionID
	e.PlatformReceive = t
	latency, ok := e.Transmission()
	m.mu.Unlock()

	if ok && latency > m.thresholds.Transmission {
		m.broadcaster.Publish(Alert{Kind: AlertTransmission, SessionID: sessionID, SegmentID: segmentID, Latency: latency, Threshold: m.thresholds.Transmission})
	}
}

// RecordPlatformForward records T3 and evaluates the processing alert.
func (m *Monitor) RecordPlatformForward(sessionID, segmentID string, t time.Time) {
	m.mu.Lock()
	e := m.entry(segmentID)
	e.SessionID = sessionID
	e.PlatformForward = t
	latency, ok := e.Processing()
	m.mu.Unlock()

	if ok && latency > m.thresholds.Processing {
		m.broadcaster.Publish(Alert{Kind: AlertProcessing, SessionID: sessionID, SegmentID: segmentID, Latency: latency, Threshold: m.thresholds.Processing})
	}
}

// RecordClientPlay records T4, evaluates distribution and end-to-end
// alerts, and removes the measurement (the segment's lifecycle is over).
func (m *Monitor) RecordClientPlay(sessionID, segmentID string, t time.Time) {
	m.mu.Lock()
	e := m.entry(segmentID)
	e.SessionID = sessionID
	e.ClientPlay = t
	distLatency, distOK := e.Distribution()
	e2eLatency, e2eOK := e.EndToEnd()
	delete(m.measurements, segmentID)
	m.mu.Unlock()

	if distOK && distLatency > m.thresholds.Distribution {
		m.broadcaster.Publish(Alert{Kind: AlertDistribution, SessionID: sessionID, SegmentID: segmentID, Latency: distLatency, Threshold: m.thresholds.Distribution})
	}
	if e2eOK && e2eLatency > m.thresholds.EndToEnd {
		m.broadcaster.Publish(Alert{Kind: AlertEndToEnd, SessionID: sessionID, SegmentID: segmentID, Latency: e2eLatency, Threshold: m.thresholds.EndToEnd})
	}
}

// Snapshot returns a copy of the in-flight measurement for a segment, for
// diagnostics or tests.
func (m *Monitor) Snapshot(segmentID string) (Measurement, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.measurements[segmentID]
	if !ok {
		return Measurement{}, false
	}
	return *e, true
}
