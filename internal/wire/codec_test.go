package wire

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

func TestEncodeDecodeRoundTripsEveryMessageType(t *testing.T) {
	cases := []any{
		SessionStart{DeviceID: "dev-1", DeviceName: "cam", Resolution: "1920x1080", MaxBitrate: 4_000_000},
		SessionEnd{SessionID: "sess-1", Reason: "client_disconnect"},
		SeekRequest{SessionID: "sess-1", Position: 12.5},
		RateChange{SessionID: "sess-1", Rate: 1.5},
		Pause{SessionID: "sess-1"},
		Resume{SessionID: "sess-1"},
		Heartbeat{UnixNano: 1700000000000000000},
		VideoSegmentMessage{
			SessionID: "sess-1",
			Segment: segment.VideoSegment{
				ID: "seg-1", Timestamp: 1.0, Duration: 0.033,
				Data: []byte{1, 2, 3, 4}, Keyframe: true,
				Format: segment.FMP4, Origin: segment.Live,
				ReceiveTime: 100.1, ForwardTime: 100.2,
			},
		},
	}

	for _, msg := range cases {
		var buf bytes.Buffer
		if err := Encode(&buf, msg); err != nil {
			t.Fatalf("encode %T: %v", msg, err)
		}
		gotType, gotMsg, err := Decode(&buf)
		if err != nil {
			t.Fatalf("decode %T: %v", msg, err)
		}
		if !reflect.DeepEqual(gotMsg, msg) {
			t.Fatalf("round-trip mismatch for %T:\n got=%+v\nwant=%+v", msg, gotMsg, msg)
		}
		_ = gotType
	}
}

func TestEnvelopeFrameLayoutIsStable(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Pause{SessionID: "ab"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	raw := buf.Bytes()

	if raw[0] != byte(TypePause) {
		t.Fatalf("expected type tag 0x%02x, got 0x%02x", TypePause, raw[0])
	}
	payloadLen := binary.LittleEndian.Uint64(raw[1:9])
	if int(payloadLen) != len(raw)-9 {
		t.Fatalf("length prefix %d does not match actual payload length %d", payloadLen, len(raw)-9)
	}

	wantSessionIDLen := uint64(2)
	gotSessionIDLen := binary.LittleEndian.Uint64(raw[9:17])
	if gotSessionIDLen != wantSessionIDLen {
		t.Fatalf("expected session id length %d, got %d", wantSessionIDLen, gotSessionIDLen)
	}
	if string(raw[17:19]) != "ab" {
		t.Fatalf("expected session id bytes 'ab', got %q", raw[17:19])
	}
}

func TestDecodeUnknownMessageTypeErrors(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0xFE)
	_ = writeBytes(&buf, []byte{})
	if _, _, err := Decode(&buf); err == nil {
		t.Fatalf("expected error decoding unknown message type")
	}
}

func TestDecodeTruncatedStreamErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Heartbeat{UnixNano: 42}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:5])
	if _, _, err := Decode(truncated); err == nil {
		t.Fatalf("expected error decoding truncated stream")
	}
}
