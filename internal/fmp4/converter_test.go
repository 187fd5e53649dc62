package fmp4

import (
	"testing"

	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

func TestInitSegmentStartsWithFtyp(t *testing.T) {
	c := New(DefaultConfig())
	init := c.InitSegment()
	if len(init) <= 100 {
		t.Fatalf("expected a substantial init segment, got %d bytes", len(init))
	}
	if string(init[4:8]) != "ftyp" {
		t.Fatalf("expected ftyp box at offset 4, got %q", init[4:8])
	}
}

func TestConvertSegmentProducesMoofMdat(t *testing.T) {
	c := New(DefaultConfig())
	src := segment.New(1.0, 0.033, []byte{0, 0, 0, 1, 0x67, 0x42, 0x00, 0x1f}, true, segment.H264Raw, segment.Live)

	out, err := c.ConvertSegment(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Format != segment.FMP4 {
		t.Fatalf("expected FMP4 format, got %v", out.Format)
	}
	if string(out.Data[4:8]) != "moof" {
		t.Fatalf("expected moof box first, got %q", out.Data[4:8])
	}

	mdatOffset := len(out.Data) - (8 + len(src.Data))
	if string(out.Data[mdatOffset+4:mdatOffset+8]) != "mdat" {
		t.Fatalf("expected mdat box trailing the moof, layout mismatch")
	}
}

func TestConvertSegmentIncrementsSequenceNumber(t *testing.T) {
	c := New(DefaultConfig())
	src := segment.New(0, 0.033, []byte{0, 0, 0, 1, 0x65}, true, segment.H264Raw, segment.Live)

	first, _ := c.ConvertSegment(src)
	second, _ := c.ConvertSegment(src)
	if string(first.Data) == string(second.Data) {
		t.Fatalf("expected sequence number to change moof contents between segments")
	}
}

func TestConvertSegmentRejectsNonH264Raw(t *testing.T) {
	c := New(DefaultConfig())
	src := segment.New(0, 0.033, []byte{1, 2, 3}, true, segment.FMP4, segment.Live)
	if _, err := c.ConvertSegment(src); err == nil {
		t.Fatalf("expected error converting an already-FMP4 segment")
	}
}
