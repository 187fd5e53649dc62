package framerate

import (
	"time"

	"github.com/chengang12345632/media-test-sub001/internal/coreerr"
)

const (
	minPlaybackRate = 0.25
	maxPlaybackRate = 4.0
	lateWarnMs      = 10
)

// Pacer sleeps a sending task to hit a target FPS divided by a playback
// rate (spec §4.4). Not safe for concurrent use.
type Pacer struct {
	targetFPS    float64
	playbackRate float64
	lastSend     *time.Time

	baseIntervalUs uint64
}

// NewPacer creates a pacer targeting the given FPS at 1x playback rate.
func NewPacer(targetFPS float64) *Pacer {
	p := &Pacer{targetFPS: targetFPS, playbackRate: 1.0}
	p.recomputeInterval()
	return p
}

func (p *Pacer) recomputeInterval() {
	if p.targetFPS > 0 {
		p.baseIntervalUs = uint64(1_000_000.0 / p.targetFPS)
	} else {
		p.baseIntervalUs = 33_333
	}
}

// TargetFPS returns the pacer's current target FPS.
func (p *Pacer) TargetFPS() float64 { return p.targetFPS }

// PlaybackRate returns the pacer's current playback-rate multiplier.
func (p *Pacer) PlaybackRate() float64 { return p.playbackRate }

// Delay computes the emission delay for frames, in frames of the segment:
// Δ = framesInSegment / (fps * rate).
func (p *Pacer) Delay(framesInSegment int) time.Duration {
	if framesInSegment <= 0 {
		framesInSegment = 1
	}
	if p.targetFPS <= 0 || p.playbackRate <= 0 {
		return time.Duration(p.baseIntervalUs) * time.Microsecond
	}
	seconds := float64(framesInSegment) / (p.targetFPS * p.playbackRate)
	return time.Duration(seconds * float64(time.Second))
}

// SetPlaybackRate validates and applies a new rate; callers should also
// propagate the same rate to the reader driving this pacer.
func (p *Pacer) SetPlaybackRate(rate float64) error {
	if rate < minPlaybackRate || rate > maxPlaybackRate {
		return coreerr.NewInvalidPlaybackRate(rate)
	}
	p.playbackRate = rate
	return nil
}

// UpdateTargetFPS changes the target FPS; safe to call between emissions.
func (p *Pacer) UpdateTargetFPS(fps float64) {
	p.targetFPS = fps
	p.recomputeInterval()
}

// Reset clears the last-send bookkeeping without altering rate/FPS.
func (p *Pacer) Reset() {
	p.lastSend = nil
}

// WaitForNextFrame blocks the caller until the computed delay since the
// last call has elapsed; the sleep cannot be cancelled. It returns a
// diagnostic lateness duration when overdue by more than 10ms; zero
// otherwise. On first call it records the send time and returns
// immediately.
func (p *Pacer) WaitForNextFrame(framesInSegment int) (late time.Duration) {
	target := p.Delay(framesInSegment)
	now := time.Now()

	if p.lastSend != nil {
		elapsed := now.Sub(*p.lastSend)
		if elapsed < target {
			time.Sleep(target - elapsed)
		} else {
			overtime := elapsed - target
			if overtime > lateWarnMs*time.Millisecond {
				late = overtime
			}
		}
	}

	sent := time.Now()
	p.lastSend = &sent
	return late
}
