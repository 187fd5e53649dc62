// Package source defines the polymorphic segment source (spec §4.1): a flat
// interface with two concrete variants, Live and Playback. Dispatch is
// through the interface only — no shared base type, matching the teacher's
// flat-interface style (media.Subscriber / media.CodecStore) rather than an
// inheritance hierarchy.
package source

import (
	"context"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

// Mode tags which variant produced a StreamInfo.
type Mode int

const (
	ModeLive Mode = iota
	ModePlayback
)

// State is the session state machine position (spec §4.7).
type State int

const (
	StateInitializing State = iota
	StateStreaming
	StatePaused
	StateSeeking
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateStreaming:
		return "streaming"
	case StatePaused:
		return "paused"
	case StateSeeking:
		return "seeking"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Info is the advertised per-session descriptor (spec §3 StreamInfo).
type Info struct {
	Mode         Mode
	DeviceID     string
	FileID       string
	PlaybackRate float64
	State        State

	Resolution string
	FPS        float64
	Bitrate    int

	// Duration is nil for live streams.
	Duration *float64
	Position float64
}

// SeekResult is returned by Seek (spec §4.2).
type SeekResult struct {
	Requested         float64
	Actual            float64
	KeyframeOffset    int64
	PrecisionAchieved float64
	ExecutionTime     time.Duration
}

// Source is the uniform extension point between live pass-through and
// server-side playback (spec §4.1). Implementations must respect the error
// contract: Live rejects Seek/SetRate with a PlaybackError
// (OperationNotSupported); Playback validates ranges before delegating.
type Source interface {
	// NextSegment blocks until a segment is available, the stream ends
	// (io.EOF), or ctx is cancelled.
	NextSegment(ctx context.Context) (*segment.VideoSegment, error)
	Seek(ctx context.Context, positionSec float64) (SeekResult, error)
	SetRate(rate float64) error
	Pause() error
	Resume() error
	Info() Info
}
