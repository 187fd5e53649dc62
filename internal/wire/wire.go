// Package wire implements the deterministic binary codec carried over the
// device<->platform QUIC streams (spec §6): a 1-byte message-type tag, a
// little-endian 8-byte length prefix, and a payload whose own fields are
// little-endian integers and 8-byte-length-prefixed byte/string buffers.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

// MessageType tags the payload that follows the envelope (spec §6's tagged
// union over {SessionStart, SessionEnd, SeekRequest, RateChange, Pause,
// Resume, Heartbeat, VideoSegment}).
type MessageType uint8

const (
	TypeSessionStart MessageType = 0x01
	TypeSessionEnd   MessageType = 0x02
	TypeSeekRequest  MessageType = 0x03
	TypeRateChange   MessageType = 0x04
	TypePause        MessageType = 0x05
	TypeResume       MessageType = 0x06
	TypeHeartbeat    MessageType = 0x0A
	TypeVideoSegment MessageType = 0x0F
)

func (t MessageType) String() string {
	switch t {
	case TypeSessionStart:
		return "SessionStart"
	case TypeSessionEnd:
		return "SessionEnd"
	case TypeSeekRequest:
		return "SeekRequest"
	case TypeRateChange:
		return "RateChange"
	case TypePause:
		return "Pause"
	case TypeResume:
		return "Resume"
	case TypeHeartbeat:
		return "Heartbeat"
	case TypeVideoSegment:
		return "VideoSegment"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
	}
}

// Message payload types, one struct per MessageType.

// SessionStart carries the device-info record sent on the control stream's
// session-start handshake.
type SessionStart struct {
	DeviceID   string
	DeviceName string
	Resolution string
	MaxBitrate uint64
}

// SessionEnd reports why a device is closing its session.
type SessionEnd struct {
	SessionID string
	Reason    string
}

// SeekRequest asks the platform to seek a playback session.
type SeekRequest struct {
	SessionID string
	Position  float64
}

// RateChange asks the platform to change a playback session's rate.
type RateChange struct {
	SessionID string
	Rate      float64
}

// Pause asks the platform to pause a session.
type Pause struct {
	SessionID string
}

// Resume asks the platform to resume a session.
type Resume struct {
	SessionID string
}

// Heartbeat is a periodic control-stream liveness ping (spec §5 keepalive).
type Heartbeat struct {
	UnixNano int64
}

// VideoSegmentMessage carries one segment.VideoSegment plus the session it
// belongs to, sent on its own unidirectional QUIC stream.
type VideoSegmentMessage struct {
	SessionID string
	Segment   segment.VideoSegment
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeFloat64(w io.Writer, v float64) error {
	return writeUint64(w, math.Float64bits(v))
}

func readFloat64(r io.Reader) (float64, error) {
	u, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

func writeBytes(w io.Writer, data []byte) error {
	if err := writeUint64(w, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	n, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeString(w io.Writer, s string) error { return writeBytes(w, []byte(s)) }

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}
