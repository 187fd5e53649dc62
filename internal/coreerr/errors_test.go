package coreerr

import (
	"errors"
	"testing"
)

func TestInvalidPlaybackRateMessage(t *testing.T) {
	err := NewInvalidPlaybackRate(0.24)
	if !IsPlaybackError(err) {
		t.Fatalf("expected playback error classification")
	}
	var pe *PlaybackError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PlaybackError, got %T", err)
	}
	if pe.Rate != 0.24 {
		t.Fatalf("rate mismatch: %v", pe.Rate)
	}
}

func TestInvalidSeekPosition(t *testing.T) {
	err := NewInvalidSeekPosition(-0.1)
	if !IsPlaybackError(err) {
		t.Fatalf("expected playback error classification")
	}
}

func TestSessionNotFound(t *testing.T) {
	err := NewSessionNotFound("abc")
	if !IsResourceError(err) {
		t.Fatalf("expected resource error classification")
	}
}

func TestRetryEligibility(t *testing.T) {
	cases := []struct {
		err      error
		eligible bool
	}{
		{NewConnectionError("ConnectionLost", "dev1", nil), true},
		{NewConnectionError("DeviceOffline", "dev1", nil), false},
		{NewFileError("FileReadError", "/tmp/x", nil), true},
		{NewFileError("FileNotFound", "/tmp/x", nil), false},
		{NewTransmissionError("NetworkError", nil), true},
		{NewTransmissionError("SegmentCorrupted", nil), false},
		{NewOperationNotSupported(), false},
	}
	for _, c := range cases {
		if got := IsRetryEligible(c.err); got != c.eligible {
			t.Errorf("IsRetryEligible(%v) = %v, want %v", c.err, got, c.eligible)
		}
	}
}

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{BaseBackoff: 100_000_000, MaxBackoff: 1_000_000_000, Strategy: Linear} // ns
	if d := p.Delay(0); d != 100_000_000 {
		t.Fatalf("linear attempt0: %v", d)
	}
	if d := p.Delay(2); d != 300_000_000 {
		t.Fatalf("linear attempt2: %v", d)
	}

	p.Strategy = Exponential
	if d := p.Delay(0); d != 100_000_000 {
		t.Fatalf("exp attempt0: %v", d)
	}
	if d := p.Delay(3); d != 800_000_000 {
		t.Fatalf("exp attempt3: %v", d)
	}
	if d := p.Delay(10); d != p.MaxBackoff {
		t.Fatalf("exp cap: %v", d)
	}
}

func TestRetryPolicyShouldRetry(t *testing.T) {
	p := DefaultRetryPolicy()
	err := NewTransmissionError("NetworkError", nil)
	if !p.ShouldRetry(err, 0) {
		t.Fatalf("expected retry allowed")
	}
	if p.ShouldRetry(err, p.MaxRetries) {
		t.Fatalf("expected retry exhausted")
	}
	nonRetryable := NewOperationNotSupported()
	if p.ShouldRetry(nonRetryable, 0) {
		t.Fatalf("expected non-retryable error to be rejected")
	}
}
