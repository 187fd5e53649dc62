// Package segment defines VideoSegment, the unit of work that flows from a
// source through the unified stream handler to every subscriber (spec §3).
package segment

import (
	"github.com/google/uuid"
)

// Format tags the encoding of a segment's payload.
type Format int

const (
	H264Raw Format = iota
	FMP4
	MP4
)

func (f Format) String() string {
	switch f {
	case H264Raw:
		return "h264raw"
	case FMP4:
		return "fmp4"
	case MP4:
		return "mp4"
	default:
		return "unknown"
	}
}

// Origin tags whether a segment came from a live device feed or a recording.
type Origin int

const (
	Live Origin = iota
	Playback
)

func (o Origin) String() string {
	if o == Live {
		return "live"
	}
	return "playback"
}

// VideoSegment is the unit of work carried end-to-end through the platform.
//
// Invariants (spec §3): len(Data) == the stated length; Timestamp >= 0;
// for Live segments Timestamp is the device send time, for Playback
// segments it is the position within the source file.
type VideoSegment struct {
	ID        string
	Timestamp float64 // seconds: device send time (Live) or file position (Playback)
	Duration  float64 // seconds
	Data      []byte
	Keyframe  bool
	Format    Format
	Origin    Origin

	// Latency accounting (spec §4.8); zero value means "not yet observed".
	ReceiveTime float64 // T2, unix seconds
	ForwardTime float64 // T3, unix seconds
}

// New constructs a segment with a fresh random identifier.
func New(timestamp, duration float64, data []byte, keyframe bool, format Format, origin Origin) *VideoSegment {
	return &VideoSegment{
		ID:        uuid.NewString(),
		Timestamp: timestamp,
		Duration:  duration,
		Data:      data,
		Keyframe:  keyframe,
		Format:    format,
		Origin:    origin,
	}
}

// Clone returns a deep copy safe to hand to an independent subscriber. This
// mirrors the teacher's relay pattern of cloning a message's payload before
// fan-out so that one subscriber's slice mutation (or a future rewrite of the
// backing array) cannot corrupt another's view.
func (s *VideoSegment) Clone() *VideoSegment {
	if s == nil {
		return nil
	}
	data := make([]byte, len(s.Data))
	copy(data, s.Data)
	return &VideoSegment{
		ID:          s.ID,
		Timestamp:   s.Timestamp,
		Duration:    s.Duration,
		Data:        data,
		Keyframe:    s.Keyframe,
		Format:      s.Format,
		Origin:      s.Origin,
		ReceiveTime: s.ReceiveTime,
		ForwardTime: s.ForwardTime,
	}
}
