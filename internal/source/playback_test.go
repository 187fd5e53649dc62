package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/chengang12345632/media-test-sub001/internal/logger"
)

func writeSample(t *testing.T, frames int) string {
	t.Helper()
	var data []byte
	startCode := []byte{0, 0, 0, 1}
	data = append(data, startCode...)
	data = append(data, 0x67, 0x42, 0x00, 0x1f)
	data = append(data, startCode...)
	data = append(data, 0x68, 0xce)
	for i := 0; i < frames; i++ {
		data = append(data, startCode...)
		if i == 0 {
			data = append(data, 0x65)
		} else {
			data = append(data, 0x61)
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

func TestPlaybackNextSegmentReadsUntilEOF(t *testing.T) {
	path := writeSample(t, 3)
	p, err := NewPlayback("file-1", path, logger.Logger())
	if err != nil {
		t.Fatalf("new playback: %v", err)
	}

	count := 0
	for {
		_, err := p.NextSegment(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		count++
		if count > 10 {
			t.Fatalf("did not reach EOF")
		}
	}
	if count == 0 {
		t.Fatalf("expected at least one segment")
	}
}

func TestPlaybackSetRateValidatesBounds(t *testing.T) {
	path := writeSample(t, 3)
	p, _ := NewPlayback("file-1", path, logger.Logger())

	if err := p.SetRate(2.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.SetRate(10.0); err == nil {
		t.Fatalf("expected error for out-of-range rate")
	}
}

func TestPlaybackSeekReturnsFloorKeyframe(t *testing.T) {
	path := writeSample(t, 40)
	p, _ := NewPlayback("file-1", path, logger.Logger())

	result, err := p.Seek(context.Background(), 0.5)
	if err != nil {
		t.Fatalf("seek: %v", err)
	}
	if result.Actual > result.Requested+1e-9 {
		t.Fatalf("actual position should not exceed requested: %+v", result)
	}
}

func TestPlaybackPauseResumeStateMachine(t *testing.T) {
	path := writeSample(t, 3)
	p, _ := NewPlayback("file-1", path, logger.Logger())

	if err := p.Pause(); err == nil {
		t.Fatalf("expected pause to fail before streaming starts")
	}

	if _, err := p.NextSegment(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := p.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
}
