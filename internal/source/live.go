package source

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
	"github.com/chengang12345632/media-test-sub001/internal/logger"
	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

// Live wraps a per-device LagChannel fed by the QUIC ingress reader. It
// rejects Seek/SetRate (spec §4.1): pass-through has no timeline to
// control. Safe for use by a single consumer goroutine; state is atomic
// only where a concurrent Pause/Resume call from an HTTP control handler
// needs to race safely with the consuming NextSegment loop.
type Live struct {
	deviceID string
	rx       *LagChannel
	log      *slog.Logger

	state atomic.Int32 // State, but atomic for concurrent Pause/Resume

	resolution string
	fps        float64
	bitrate    int
	position   atomic.Value // float64
}

// NewLive constructs a live source over rx, which the caller's QUIC
// ingress goroutine feeds via rx.Send.
func NewLive(deviceID string, rx *LagChannel, log *slog.Logger) *Live {
	l := &Live{
		deviceID: deviceID,
		rx:       rx,
		log:      logger.WithStream(log, "live", deviceID),
	}
	l.state.Store(int32(StateInitializing))
	l.position.Store(0.0)
	return l
}

// SetStreamInfo records advertised resolution/fps/bitrate once known
// (typically parsed from the first SPS).
func (l *Live) SetStreamInfo(resolution string, fps float64, bitrate int) {
	l.resolution = resolution
	l.fps = fps
	l.bitrate = bitrate
}

func (l *Live) currentState() State { return State(l.state.Load()) }

// NextSegment blocks on the ingress channel. While paused it keeps
// draining and discarding incoming segments so the channel never lags
// behind the device (spec §4.1): "pause ... discards them".
func (l *Live) NextSegment(ctx context.Context) (*segment.VideoSegment, error) {
	l.state.CompareAndSwap(int32(StateInitializing), int32(StateStreaming))

	for {
		if l.currentState() == StateStopped {
			return nil, io.EOF
		}

		seg, skipped, ok, err := l.rx.Recv(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			l.state.Store(int32(StateStopped))
			return nil, io.EOF
		}
		if skipped > 0 {
			l.log.Warn("live source lagged, dropped segments", "skipped", skipped)
		}

		if l.currentState() == StatePaused {
			l.log.Debug("dropping segment while paused", "segment_id", seg.ID)
			continue
		}

		l.position.Store(seg.Timestamp)
		seg.ReceiveTime = float64(time.Now().UnixNano()) / 1e9
		return seg, nil
	}
}

// Seek is unsupported for a live pass-through source.
func (l *Live) Seek(ctx context.Context, positionSec float64) (SeekResult, error) {
	return SeekResult{}, coreerr.NewOperationNotSupported()
}

// SetRate is unsupported for a live pass-through source.
func (l *Live) SetRate(rate float64) error {
	return coreerr.NewOperationNotSupported()
}

// Pause transitions Streaming -> Paused; subsequent segments are dropped.
func (l *Live) Pause() error {
	if !l.state.CompareAndSwap(int32(StateStreaming), int32(StatePaused)) {
		return coreerr.NewInternalError("Live.Pause", nil)
	}
	return nil
}

// Resume transitions Paused -> Streaming.
func (l *Live) Resume() error {
	if !l.state.CompareAndSwap(int32(StatePaused), int32(StateStreaming)) {
		return coreerr.NewInternalError("Live.Resume", nil)
	}
	return nil
}

// Info reports the live source's current advertised state.
func (l *Live) Info() Info {
	pos, _ := l.position.Load().(float64)
	return Info{
		Mode:         ModeLive,
		DeviceID:     l.deviceID,
		PlaybackRate: 1.0,
		State:        l.currentState(),
		Resolution:   l.resolution,
		FPS:          l.fps,
		Bitrate:      l.bitrate,
		Position:     pos,
	}
}
