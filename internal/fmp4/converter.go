package fmp4

import (
	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

// Timescale is the H.264 wire timescale used in tfdt/mdhd/mvhd boxes.
const Timescale = 90000

// Config parameterizes the emitted track's header boxes.
type Config struct {
	Width     uint16
	Height    uint16
	Timescale uint32
}

// DefaultConfig matches the dimensions and timescale of a typical 1080p
// H.264 device feed.
func DefaultConfig() Config {
	return Config{Width: 1920, Height: 1080, Timescale: Timescale}
}

// Converter repackages H264Raw segments into FMP4 segments. It is
// stateful: the moof sequence number increments per converted segment, so
// one Converter instance belongs to exactly one session.
type Converter struct {
	cfg            Config
	sequenceNumber uint32
}

// New creates a converter for the given track configuration.
func New(cfg Config) *Converter {
	return &Converter{cfg: cfg}
}

// InitSegment emits the ftyp+moov box pair once per stream, ahead of any
// media segments, so the MSE player can initialize its SourceBuffer.
func (c *Converter) InitSegment() []byte {
	buf := &boxWriter{}
	writeBox(buf, typeFtyp, c.ftypPayload())
	writeBox(buf, typeMoov, c.moovPayload())
	return buf.Bytes()
}

// ConvertSegment wraps one H264Raw segment's NAL payload in a moof+mdat
// pair, returning a new segment tagged FMP4. The source segment is left
// untouched.
func (c *Converter) ConvertSegment(seg *segment.VideoSegment) (*segment.VideoSegment, error) {
	if seg.Format != segment.H264Raw {
		return nil, coreerr.NewInternalError("fmp4.ConvertSegment", errOnlyH264Raw)
	}

	buf := &boxWriter{}
	writeBox(buf, typeMoof, c.moofPayload(seg))
	writeBox(buf, typeMdat, seg.Data)
	c.sequenceNumber++

	out := seg.Clone()
	out.Data = buf.Bytes()
	out.Format = segment.FMP4
	return out, nil
}

var errOnlyH264Raw = internalErr("only H264Raw segments can be converted to fMP4")

type internalErr string

func (e internalErr) Error() string { return string(e) }
