// Package golden holds fixed expected byte sequences for the QUIC wire
// codec (internal/wire), the way tests/golden/gen_control_vectors.go fixes
// expected RTMP control-message payload bytes for its own codec. Those
// vectors were produced by a //go:build ignore generator writing .bin
// files to disk; this codec's vectors are small enough to hand-derive
// from the format itself (1-byte tag, 8-byte little-endian length prefix,
// little-endian fields) and keep inline as byte-slice literals instead,
// since there is no build step here that writes fixtures to disk.
package golden

// HeartbeatVector is the wire encoding of wire.Heartbeat{UnixNano: 42}:
// tag(0x0A) + payload length(8, LE) + payload(42 as uint64 LE).
var HeartbeatVector = []byte{
	0x0A,
	0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x2A, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// SessionEndVector is the wire encoding of
// wire.SessionEnd{SessionID: "s1", Reason: "done"}: tag(0x02) + payload
// length(22, LE) + [len("s1")=2, "s1", len("done")=4, "done"].
var SessionEndVector = []byte{
	0x02,
	0x16, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 's', '1',
	0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 'd', 'o', 'n', 'e',
}
