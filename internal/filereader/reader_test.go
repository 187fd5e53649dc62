package filereader

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
)

// buildSample constructs a minimal Annex-B stream: SPS, PPS, then a run of
// IDR/slice NALs, each padded to keep segment boundaries predictable.
func buildSample(t *testing.T, frames int) string {
	t.Helper()
	var data []byte
	startCode := []byte{0, 0, 0, 1}

	data = append(data, startCode...)
	data = append(data, 0x67, 0x42, 0x00, 0x1f) // SPS
	data = append(data, startCode...)
	data = append(data, 0x68, 0xce) // PPS

	for i := 0; i < frames; i++ {
		data = append(data, startCode...)
		if i == 0 {
			data = append(data, 0x65) // IDR
		} else {
			data = append(data, 0x61) // non-IDR slice
		}
		data = append(data, make([]byte, 10)...)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.h264")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func TestOpenBuildsKeyframeIndex(t *testing.T) {
	path := buildSample(t, 5)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(r.Index().Entries) != 1 {
		t.Fatalf("expected one IDR keyframe entry, got %d", len(r.Index().Entries))
	}
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/path.h264")
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestOpenRejectsNonVideoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-video.bin")
	os.WriteFile(path, []byte{1, 2, 3, 4, 5}, 0o644)

	if _, err := Open(path); err == nil {
		t.Fatalf("expected NoVideoStream error")
	}
}

func TestNextChunkFirstChunkCarriesKeyframe(t *testing.T) {
	path := buildSample(t, 5)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	chunk, err := r.NextChunk()
	if err != nil {
		t.Fatalf("next chunk: %v", err)
	}
	if !chunk.Keyframe {
		t.Fatalf("expected first chunk to be flagged as keyframe")
	}
}

func TestNextChunkReachesEOF(t *testing.T) {
	path := buildSample(t, 2)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for {
		_, err := r.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestSeekValidatesRange(t *testing.T) {
	path := buildSample(t, 30)
	r, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	assertInvalidSeekPosition(t, r, -1)
	assertInvalidSeekPosition(t, r, r.Duration()+100)

	result, err := r.Seek(0)
	if err != nil {
		t.Fatalf("seek to start: %v", err)
	}
	if result.ActualTimestamp != 0 {
		t.Fatalf("expected floor timestamp 0, got %v", result.ActualTimestamp)
	}
}

func assertInvalidSeekPosition(t *testing.T, r *FileStreamReader, target float64) {
	t.Helper()
	_, err := r.Seek(target)
	var pe *coreerr.PlaybackError
	if !errors.As(err, &pe) || pe.Reason != "InvalidSeekPosition" {
		t.Fatalf("expected InvalidSeekPosition for target %v, got %v", target, err)
	}
}

func TestSetRateValidatesBounds(t *testing.T) {
	path := buildSample(t, 3)
	r, _ := Open(path)

	if err := r.SetRate(2.0); err != nil {
		t.Fatalf("unexpected error for valid rate: %v", err)
	}
	if err := r.SetRate(5.0); err == nil {
		t.Fatalf("expected error for out-of-range rate")
	}
	if err := r.SetRate(0.1); err == nil {
		t.Fatalf("expected error for out-of-range rate")
	}
}
