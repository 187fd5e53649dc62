package filereader

import (
	"io"
	"os"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
)

const (
	targetSegmentBytes = 50 * 1024
	keyframeResendNALs = 30 // re-issue an SPS/PPS/IDR bootstrap every ~30 frames
	assumedFPS         = 30.0
)

// FileStreamReader is a chunked, keyframe-aware reader over an Annex-B
// H.264 recording (spec §4.2). Not safe for concurrent use.
type FileStreamReader struct {
	path string
	data []byte
	nals []nalUnit
	idx  *KeyframeIndex

	// bootstrap holds the leading SPS+PPS bytes found while scanning, so
	// NextChunk can prepend decode parameters for a late-joining
	// subscriber even when the file itself carries them only once.
	bootstrap []byte

	cursor        int // index into nals of the next unit to consume
	framesEmitted int
	rate          float64
}

// Open reads path fully and scans it for Annex-B NAL units, building a
// keyframe index eagerly so Seek is O(log n) for the life of the reader.
func Open(path string) (*FileStreamReader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, coreerr.NewFileError("FileNotFound", path, err)
		}
		return nil, coreerr.NewFileError("FileNotAccessible", path, err)
	}

	nals := scanNALUnits(data)
	if len(nals) == 0 {
		return nil, coreerr.NewFileError("NoVideoStream", path, nil)
	}

	idx := buildKeyframeIndex(nals)

	return &FileStreamReader{
		path:      path,
		data:      data,
		nals:      nals,
		idx:       idx,
		bootstrap: leadingParameterSets(data, nals),
		rate:      1.0,
	}, nil
}

// leadingParameterSets returns the byte span covering the file's first
// contiguous run of SPS/PPS units (stopping at the first non-parameter-set
// NAL), used to bootstrap decoders that join mid-stream.
func leadingParameterSets(data []byte, nals []nalUnit) []byte {
	if len(nals) == 0 {
		return nil
	}
	end := nals[0].Start
	for _, n := range nals {
		if n.Type != nalTypeSPS && n.Type != nalTypePPS {
			break
		}
		end = n.End
	}
	if end <= nals[0].Start {
		return nil
	}
	return append([]byte(nil), data[nals[0].Start:end]...)
}

// buildKeyframeIndex walks the NAL list once, recording an entry at every
// IDR unit. Timestamps are derived from an assumed frame rate since raw
// Annex-B streams carry no wall-clock PTS; the runtime frame-rate detector
// refines pacing once segments start flowing (spec §4.3).
func buildKeyframeIndex(nals []nalUnit) *KeyframeIndex {
	idx := &KeyframeIndex{}
	frameCount := 0
	for _, n := range nals {
		if n.Type == nalTypeSlice || n.Type == nalTypeIDR {
			if n.Type == nalTypeIDR {
				idx.Entries = append(idx.Entries, KeyframeEntry{
					Timestamp:  float64(frameCount) / assumedFPS,
					FileOffset: int64(n.Start),
					FrameSize:  int64(n.End - n.Start),
				})
			}
			frameCount++
		}
	}
	idx.Duration = float64(frameCount) / assumedFPS
	return idx
}

// Index exposes the keyframe index for inspection (e.g. by Info()).
func (r *FileStreamReader) Index() *KeyframeIndex { return r.idx }

// Progress returns the current position in seconds.
func (r *FileStreamReader) Progress() float64 {
	if r.cursor >= len(r.nals) {
		return r.idx.Duration
	}
	return r.timestampForNALIndex(r.cursor)
}

func (r *FileStreamReader) timestampForNALIndex(nalIdx int) float64 {
	frameCount := 0
	for i := 0; i < nalIdx && i < len(r.nals); i++ {
		if r.nals[i].Type == nalTypeSlice || r.nals[i].Type == nalTypeIDR {
			frameCount++
		}
	}
	return float64(frameCount) / assumedFPS
}

// Chunk is one emitted group of NAL units with its derived timing.
type Chunk struct {
	Data      []byte
	Timestamp float64
	Duration  float64
	Keyframe  bool
}

// NextChunk accumulates NAL units starting at the cursor per the spec §4.2
// emission algorithm: stop at ~50KiB, or when the next unit is an SPS
// (group-of-pictures boundary), whichever comes first. Returns io.EOF when
// the file is exhausted.
func (r *FileStreamReader) NextChunk() (Chunk, error) {
	if r.cursor >= len(r.nals) {
		return Chunk{}, io.EOF
	}

	start := r.nals[r.cursor].Start
	startNAL := r.cursor
	framesInChunk := 0
	keyframe := false
	needsBootstrap := startNAL == 0 || r.framesEmitted%keyframeResendNALs == 0

	i := r.cursor
	for i < len(r.nals) {
		n := r.nals[i]
		if i > startNAL && n.Type == nalTypeSPS {
			break // group-of-pictures boundary
		}
		if n.Type.isKeyframeMarker() {
			keyframe = true
		}
		if n.Type == nalTypeSlice || n.Type == nalTypeIDR {
			framesInChunk++
			r.framesEmitted++
		}
		i++
		if (n.End-start) >= targetSegmentBytes && i < len(r.nals) && r.nals[i].Type != nalTypeSPS {
			break
		}
	}
	end := r.nals[i-1].End
	timestamp := r.timestampForNALIndex(startNAL)
	r.cursor = i
	duration := float64(framesInChunk) / assumedFPS
	if framesInChunk == 0 {
		duration = 0
	}

	payload := r.data[start:end]
	if needsBootstrap && len(r.bootstrap) > 0 && !bytesHavePrefix(payload, r.bootstrap) {
		keyframe = true
		combined := make([]byte, 0, len(r.bootstrap)+len(payload))
		combined = append(combined, r.bootstrap...)
		combined = append(combined, payload...)
		payload = combined
	} else {
		payload = append([]byte(nil), payload...)
	}

	return Chunk{
		Data:      payload,
		Timestamp: timestamp,
		Duration:  duration,
		Keyframe:  keyframe,
	}, nil
}

func bytesHavePrefix(data, prefix []byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i := range prefix {
		if data[i] != prefix[i] {
			return false
		}
	}
	return true
}

// SeekResult mirrors the value returned to callers of Source.Seek.
type SeekResult struct {
	ActualTimestamp float64
	KeyframeOffset  int64
}

// Seek moves the cursor to the NAL unit at the floor keyframe for target,
// per spec §4.2's binary-search algorithm.
func (r *FileStreamReader) Seek(target float64) (SeekResult, error) {
	if target < 0 {
		return SeekResult{}, coreerr.NewInvalidSeekPosition(target)
	}
	if target > r.idx.Duration {
		return SeekResult{}, coreerr.NewInvalidSeekPosition(target)
	}

	entry, _, ok := r.idx.Floor(target)
	if !ok {
		return SeekResult{}, coreerr.NewFileError("NoVideoStream", r.path, nil)
	}

	for i, n := range r.nals {
		if int64(n.Start) == entry.FileOffset {
			r.cursor = i
			break
		}
	}

	return SeekResult{ActualTimestamp: entry.Timestamp, KeyframeOffset: entry.FileOffset}, nil
}

// SetRate validates and stores the playback rate; it does not itself
// affect chunk timing, which is rate-independent — the pacer applies rate
// scaling at emission time (spec §4.4).
func (r *FileStreamReader) SetRate(rate float64) error {
	if rate < 0.25 || rate > 4.0 {
		return coreerr.NewInvalidPlaybackRate(rate)
	}
	r.rate = rate
	return nil
}

// Duration returns the total stream duration in seconds.
func (r *FileStreamReader) Duration() float64 { return r.idx.Duration }
