package wire

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chengang12345632/media-test-sub001/internal/bufpool"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

// Encode serializes msg into its length-prefixed wire envelope: a 1-byte
// MessageType tag, an 8-byte little-endian payload length, then the
// payload. Supported msg types are the structs declared in wire.go.
func Encode(w io.Writer, msg any) error {
	var buf bytes.Buffer
	msgType, err := encodePayload(&buf, msg)
	if err != nil {
		return err
	}
	if err := writeU8(w, uint8(msgType)); err != nil {
		return err
	}
	return writeBytes(w, buf.Bytes())
}

func encodePayload(buf *bytes.Buffer, msg any) (MessageType, error) {
	switch m := msg.(type) {
	case SessionStart:
		for _, s := range []string{m.DeviceID, m.DeviceName, m.Resolution} {
			if err := writeString(buf, s); err != nil {
				return 0, err
			}
		}
		if err := writeUint64(buf, m.MaxBitrate); err != nil {
			return 0, err
		}
		return TypeSessionStart, nil
	case SessionEnd:
		if err := writeString(buf, m.SessionID); err != nil {
			return 0, err
		}
		if err := writeString(buf, m.Reason); err != nil {
			return 0, err
		}
		return TypeSessionEnd, nil
	case SeekRequest:
		if err := writeString(buf, m.SessionID); err != nil {
			return 0, err
		}
		if err := writeFloat64(buf, m.Position); err != nil {
			return 0, err
		}
		return TypeSeekRequest, nil
	case RateChange:
		if err := writeString(buf, m.SessionID); err != nil {
			return 0, err
		}
		if err := writeFloat64(buf, m.Rate); err != nil {
			return 0, err
		}
		return TypeRateChange, nil
	case Pause:
		if err := writeString(buf, m.SessionID); err != nil {
			return 0, err
		}
		return TypePause, nil
	case Resume:
		if err := writeString(buf, m.SessionID); err != nil {
			return 0, err
		}
		return TypeResume, nil
	case Heartbeat:
		if err := writeUint64(buf, uint64(m.UnixNano)); err != nil {
			return 0, err
		}
		return TypeHeartbeat, nil
	case VideoSegmentMessage:
		if err := encodeVideoSegment(buf, m); err != nil {
			return 0, err
		}
		return TypeVideoSegment, nil
	default:
		return 0, fmt.Errorf("wire: unsupported message type %T", msg)
	}
}

func encodeVideoSegment(buf *bytes.Buffer, m VideoSegmentMessage) error {
	if err := writeString(buf, m.SessionID); err != nil {
		return err
	}
	if err := writeString(buf, m.Segment.ID); err != nil {
		return err
	}
	if err := writeFloat64(buf, m.Segment.Timestamp); err != nil {
		return err
	}
	if err := writeFloat64(buf, m.Segment.Duration); err != nil {
		return err
	}
	keyframe := uint8(0)
	if m.Segment.Keyframe {
		keyframe = 1
	}
	if err := writeU8(buf, keyframe); err != nil {
		return err
	}
	if err := writeU8(buf, uint8(m.Segment.Format)); err != nil {
		return err
	}
	if err := writeU8(buf, uint8(m.Segment.Origin)); err != nil {
		return err
	}
	if err := writeFloat64(buf, m.Segment.ReceiveTime); err != nil {
		return err
	}
	if err := writeFloat64(buf, m.Segment.ForwardTime); err != nil {
		return err
	}
	return writeBytes(buf, m.Segment.Data)
}

// Decode reads one framed message from r and returns its MessageType tag
// plus the decoded payload as `any` (one of the structs declared in
// wire.go), ready for a type switch at the call site.
func Decode(r io.Reader) (MessageType, any, error) {
	tag, err := readU8(r)
	if err != nil {
		return 0, nil, err
	}

	n, err := readUint64(r)
	if err != nil {
		return 0, nil, err
	}
	payload := bufpool.Get(int(n))
	defer bufpool.Put(payload)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	body := bytes.NewReader(payload)

	msgType := MessageType(tag)
	switch msgType {
	case TypeSessionStart:
		var m SessionStart
		if m.DeviceID, err = readString(body); err != nil {
			return 0, nil, err
		}
		if m.DeviceName, err = readString(body); err != nil {
			return 0, nil, err
		}
		if m.Resolution, err = readString(body); err != nil {
			return 0, nil, err
		}
		if m.MaxBitrate, err = readUint64(body); err != nil {
			return 0, nil, err
		}
		return msgType, m, nil
	case TypeSessionEnd:
		var m SessionEnd
		if m.SessionID, err = readString(body); err != nil {
			return 0, nil, err
		}
		if m.Reason, err = readString(body); err != nil {
			return 0, nil, err
		}
		return msgType, m, nil
	case TypeSeekRequest:
		var m SeekRequest
		if m.SessionID, err = readString(body); err != nil {
			return 0, nil, err
		}
		if m.Position, err = readFloat64(body); err != nil {
			return 0, nil, err
		}
		return msgType, m, nil
	case TypeRateChange:
		var m RateChange
		if m.SessionID, err = readString(body); err != nil {
			return 0, nil, err
		}
		if m.Rate, err = readFloat64(body); err != nil {
			return 0, nil, err
		}
		return msgType, m, nil
	case TypePause:
		var m Pause
		if m.SessionID, err = readString(body); err != nil {
			return 0, nil, err
		}
		return msgType, m, nil
	case TypeResume:
		var m Resume
		if m.SessionID, err = readString(body); err != nil {
			return 0, nil, err
		}
		return msgType, m, nil
	case TypeHeartbeat:
		var m Heartbeat
		u, err := readUint64(body)
		if err != nil {
			return 0, nil, err
		}
		m.UnixNano = int64(u)
		return msgType, m, nil
	case TypeVideoSegment:
		m, err := decodeVideoSegment(body)
		if err != nil {
			return 0, nil, err
		}
		return msgType, m, nil
	default:
		return 0, nil, fmt.Errorf("wire: unknown message type 0x%02x", tag)
	}
}

func decodeVideoSegment(body io.Reader) (VideoSegmentMessage, error) {
	var m VideoSegmentMessage
	var err error
	if m.SessionID, err = readString(body); err != nil {
		return m, err
	}
	if m.Segment.ID, err = readString(body); err != nil {
		return m, err
	}
	if m.Segment.Timestamp, err = readFloat64(body); err != nil {
		return m, err
	}
	if m.Segment.Duration, err = readFloat64(body); err != nil {
		return m, err
	}
	keyframe, err := readU8(body)
	if err != nil {
		return m, err
	}
	m.Segment.Keyframe = keyframe != 0
	format, err := readU8(body)
	if err != nil {
		return m, err
	}
	m.Segment.Format = segment.Format(format)
	origin, err := readU8(body)
	if err != nil {
		return m, err
	}
	m.Segment.Origin = segment.Origin(origin)
	if m.Segment.ReceiveTime, err = readFloat64(body); err != nil {
		return m, err
	}
	if m.Segment.ForwardTime, err = readFloat64(body); err != nil {
		return m, err
	}
	if m.Segment.Data, err = readBytes(body); err != nil {
		return m, err
	}
	return m, nil
}
