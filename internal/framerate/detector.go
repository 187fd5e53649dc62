// Package framerate implements automatic frame-rate detection from a PTS
// sample stream and a paced-delivery sleep helper (spec §4.3, §4.4).
package framerate

import (
	"math"
	"time"
)

// Method tags how an FPS estimate was produced.
type Method int

const (
	MethodDefault Method = iota
	MethodFromTimestamp
	MethodFromSPS
)

func (m Method) String() string {
	switch m {
	case MethodFromSPS:
		return "sps"
	case MethodFromTimestamp:
		return "timestamp"
	default:
		return "default"
	}
}

// Info is a point-in-time FPS estimate with its derived frame duration.
type Info struct {
	FPS             float64
	FrameDurationUs uint64
	Variable        bool
	Method          Method
	Confidence      float32
}

func newInfo(fps float64, method Method, confidence float32) Info {
	us := uint64(33_333)
	if fps > 0 {
		us = uint64(1_000_000.0 / fps)
	}
	return Info{FPS: fps, FrameDurationUs: us, Method: method, Confidence: confidence}
}

// DefaultInfo returns the 30 FPS fallback used until enough samples accrue.
func DefaultInfo() Info {
	return newInfo(30.0, MethodDefault, 0.5)
}

const (
	maxSamplesDefault = 20
	minSamples        = 10
	minDeltaUs        = 8_000   // 120 FPS bound
	maxDeltaUs        = 200_000 // 5 FPS bound
	changeThreshold   = 0.10
)

type sample struct {
	ptsUs uint64
	recv  time.Time
}

// Detector estimates FPS from a sliding window of PTS samples (spec §4.3).
// Not safe for concurrent use; callers serialize access (one per source).
type Detector struct {
	samples    []sample
	maxSamples int

	detectedFPS *float64
	previousFPS *float64
	confidence  float32
}

// NewDetector creates a detector with the default 20-sample window.
func NewDetector() *Detector {
	return &Detector{maxSamples: maxSamplesDefault}
}

// NewDetectorWithWindow creates a detector with a custom sample window.
func NewDetectorWithWindow(maxSamples int) *Detector {
	return &Detector{maxSamples: maxSamples}
}

// FPS returns the current detected FPS, if any.
func (d *Detector) FPS() (float64, bool) {
	if d.detectedFPS == nil {
		return 0, false
	}
	return *d.detectedFPS, true
}

// Confidence returns the most recent detection confidence.
func (d *Detector) Confidence() float32 {
	return d.confidence
}

// Info returns the current FPS estimate packaged with its detection method,
// or false if no estimate has been produced yet.
func (d *Detector) Info() (Info, bool) {
	if d.detectedFPS == nil {
		return Info{}, false
	}
	method := MethodDefault
	if len(d.samples) > 0 {
		method = MethodFromTimestamp
	}
	return newInfo(*d.detectedFPS, method, d.confidence), true
}

// Reset clears accumulated samples and the current estimate; used after a
// seek, since timestamps before and after are not comparable (spec §4.2).
func (d *Detector) Reset() {
	d.samples = nil
	d.detectedFPS = nil
	d.confidence = 0
}

// AddSample feeds one (PTS, receive-time) pair into the window and
// re-estimates FPS once at least minSamples have accrued.
func (d *Detector) AddSample(ptsUs uint64, receiveTime time.Time) {
	d.samples = append(d.samples, sample{ptsUs: ptsUs, recv: receiveTime})

	max := d.maxSamples
	if max <= 0 {
		max = maxSamplesDefault
	}
	for len(d.samples) > max {
		d.samples = d.samples[1:]
	}

	if len(d.samples) >= minSamples {
		if info, ok := d.detectFromTimestamps(); ok {
			d.updateDetected(info.FPS, info.Confidence)
		}
	}
}

// detectFromTimestamps computes a fresh estimate from the current window
// without mutating detector state.
func (d *Detector) detectFromTimestamps() (Info, bool) {
	if len(d.samples) < minSamples {
		return Info{}, false
	}

	deltas := make([]float64, 0, len(d.samples)-1)
	for i := 1; i < len(d.samples); i++ {
		prev, curr := d.samples[i-1].ptsUs, d.samples[i].ptsUs
		if curr <= prev {
			continue
		}
		delta := float64(curr - prev)
		if delta < minDeltaUs || delta > maxDeltaUs {
			continue
		}
		deltas = append(deltas, delta)
	}
	if len(deltas) < minSamples/2 {
		return Info{}, false
	}

	mean := 0.0
	for _, v := range deltas {
		mean += v
	}
	mean /= float64(len(deltas))
	if mean <= 0 {
		return Info{}, false
	}

	variance := 0.0
	for _, v := range deltas {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(deltas))
	stddev := math.Sqrt(variance)
	cv := stddev / mean

	confidence := confidenceFromCV(cv)
	fps := 1_000_000.0 / mean

	return newInfo(fps, MethodFromTimestamp, confidence), true
}

func confidenceFromCV(cv float64) float32 {
	switch {
	case cv < 0.05:
		return 0.95
	case cv < 0.10:
		return 0.80
	case cv < 0.20:
		return 0.60
	default:
		return 0.40
	}
}

func (d *Detector) updateDetected(fps float64, confidence float32) {
	if d.detectedFPS != nil {
		prev := *d.detectedFPS
		d.previousFPS = &prev
	}
	v := fps
	d.detectedFPS = &v
	d.confidence = confidence
}

// Changed reports whether the most recent update moved the estimate by more
// than 10% relative to the prior one; consumers rebuild the pacer on true.
func (d *Detector) Changed() bool {
	if d.previousFPS == nil || d.detectedFPS == nil {
		return false
	}
	prev, curr := *d.previousFPS, *d.detectedFPS
	if prev == 0 {
		return false
	}
	change := math.Abs(curr-prev) / prev
	return change > changeThreshold
}
