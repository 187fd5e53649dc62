package golden

import (
	"bytes"
	"testing"

	"github.com/chengang12345632/media-test-sub001/internal/wire"
)

func TestHeartbeatMatchesGoldenVector(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.Encode(&buf, wire.Heartbeat{UnixNano: 42}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), HeartbeatVector) {
		t.Fatalf("encoded bytes = % x, want % x", buf.Bytes(), HeartbeatVector)
	}

	_, msg, err := wire.Decode(bytes.NewReader(HeartbeatVector))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	hb, ok := msg.(wire.Heartbeat)
	if !ok || hb.UnixNano != 42 {
		t.Fatalf("decoded = %#v, want Heartbeat{UnixNano: 42}", msg)
	}
}

func TestSessionEndMatchesGoldenVector(t *testing.T) {
	var buf bytes.Buffer
	if err := wire.Encode(&buf, wire.SessionEnd{SessionID: "s1", Reason: "done"}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), SessionEndVector) {
		t.Fatalf("encoded bytes = % x, want % x", buf.Bytes(), SessionEndVector)
	}

	_, msg, err := wire.Decode(bytes.NewReader(SessionEndVector))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	se, ok := msg.(wire.SessionEnd)
	if !ok || se.SessionID != "s1" || se.Reason != "done" {
		t.Fatalf("decoded = %#v, want SessionEnd{SessionID: s1, Reason: done}", msg)
	}
}
