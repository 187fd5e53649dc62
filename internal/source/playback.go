package source

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
	"github.com/chengang12345632/media-test-sub001/internal/filereader"
	"github.com/chengang12345632/media-test-sub001/internal/framerate"
	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

const pausePollInterval = 100 * time.Millisecond

// Playback wraps a FileStreamReader, a frame-rate Detector, and an
// optional Pacer to replay a recording with full seek/rate control (spec
// §4.1 Playback variant). Not safe for concurrent use of NextSegment, but
// Pause/Resume/state reads are mutex-guarded so a control-plane goroutine
// can call them while NextSegment runs.
type Playback struct {
	fileID string
	reader *filereader.FileStreamReader
	detect *framerate.Detector
	pacer  *framerate.Pacer
	log    *slog.Logger

	mu    sync.Mutex
	state State
	rate  float64
}

// NewPlayback opens path and constructs a playback source over it.
func NewPlayback(fileID, path string, log *slog.Logger) (*Playback, error) {
	reader, err := filereader.Open(path)
	if err != nil {
		return nil, err
	}
	return &Playback{
		fileID: fileID,
		reader: reader,
		detect: framerate.NewDetector(),
		log:    logger.WithStream(log, "playback", fileID),
		state:  StateInitializing,
		rate:   1.0,
	}, nil
}

func (p *Playback) stateLocked() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// NextSegment reads the next chunk, feeds its timestamp to the detector,
// rebuilds or updates the pacer when the FPS estimate has moved by more
// than the detector's change threshold, then sleeps via the pacer before
// returning the segment (spec §4.1, §4.3, §4.4).
func (p *Playback) NextSegment(ctx context.Context) (*segment.VideoSegment, error) {
	p.mu.Lock()
	if p.state == StateInitializing {
		p.state = StateStreaming
	}
	p.mu.Unlock()

	for {
		if p.stateLocked() == StateStopped {
			return nil, io.EOF
		}
		if p.stateLocked() == StatePaused {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pausePollInterval):
			}
			continue
		}
		break
	}

	chunk, err := p.reader.NextChunk()
	if err == io.EOF {
		p.mu.Lock()
		p.state = StateStopped
		p.mu.Unlock()
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}

	p.detect.AddSample(uint64(chunk.Timestamp*1_000_000), time.Now())
	if info, ok := p.detect.Info(); ok {
		switch {
		case p.pacer == nil:
			p.pacer = framerate.NewPacer(info.FPS)
			p.pacer.SetPlaybackRate(p.currentRate())
		case p.detect.Changed():
			p.pacer.UpdateTargetFPS(info.FPS)
		}
	}

	if p.pacer != nil {
		if late := p.pacer.WaitForNextFrame(1); late > 0 {
			p.log.Warn("playback pacing late", "late", late)
		}
	} else {
		time.Sleep(time.Duration(chunk.Duration / p.currentRate() * float64(time.Second)))
	}

	seg := segment.New(chunk.Timestamp, chunk.Duration, chunk.Data, chunk.Keyframe, segment.H264Raw, segment.Playback)
	seg.ReceiveTime = float64(time.Now().UnixNano()) / 1e9
	return seg, nil
}

func (p *Playback) currentRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Seek validates 0 <= position <= duration then delegates to the reader's
// keyframe-aligned seek, resetting the detector window since timestamps
// across a seek are not comparable (spec §4.2).
func (p *Playback) Seek(ctx context.Context, positionSec float64) (SeekResult, error) {
	start := time.Now()

	p.mu.Lock()
	prevState := p.state
	p.state = StateSeeking
	p.mu.Unlock()

	result, err := p.reader.Seek(positionSec)

	p.mu.Lock()
	p.state = prevState
	p.mu.Unlock()

	if err != nil {
		return SeekResult{}, err
	}
	p.detect.Reset()

	precision := 1.0
	if positionSec != 0 {
		precision = 1 - (positionSec-result.ActualTimestamp)/positionSec
	}

	return SeekResult{
		Requested:         positionSec,
		Actual:            result.ActualTimestamp,
		KeyframeOffset:    result.KeyframeOffset,
		PrecisionAchieved: precision,
		ExecutionTime:     time.Since(start),
	}, nil
}

// SetRate validates 0.25 <= r <= 4.0 and updates both the reader and the
// pacer (spec §4.1).
func (p *Playback) SetRate(rate float64) error {
	if err := p.reader.SetRate(rate); err != nil {
		return err
	}
	p.mu.Lock()
	p.rate = rate
	p.mu.Unlock()
	if p.pacer != nil {
		return p.pacer.SetPlaybackRate(rate)
	}
	return nil
}

// Pause is only valid from Streaming (spec §4.1, mirroring the Live
// variant's state-machine discipline).
func (p *Playback) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateStreaming {
		return coreerr.NewInternalError("Playback.Pause", nil)
	}
	p.state = StatePaused
	return nil
}

// Resume is only valid from Paused.
func (p *Playback) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StatePaused {
		return coreerr.NewInternalError("Playback.Resume", nil)
	}
	p.state = StateStreaming
	return nil
}

// Info reports the playback source's current advertised state.
func (p *Playback) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	duration := p.reader.Duration()
	fps := 0.0
	if info, ok := p.detect.Info(); ok {
		fps = info.FPS
	}
	return Info{
		Mode:         ModePlayback,
		FileID:       p.fileID,
		PlaybackRate: p.rate,
		State:        p.state,
		FPS:          fps,
		Duration:     &duration,
		Position:     p.reader.Progress(),
	}
}
