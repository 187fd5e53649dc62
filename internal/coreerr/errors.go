// Package coreerr defines the platform's typed error taxonomy (spec §4.9):
// Connection, File, Transmission, Playback and Resource categories plus an
// Internal catch-all, each carrying the context needed for HTTP status
// mapping and retry classification.
package coreerr

import (
	stdErrors "errors"
	"fmt"
)

// categoryMarker is implemented by all taxonomy error types so classification
// predicates can use errors.As without a type switch per caller.
type categoryMarker interface {
	error
	category() string
}

// ConnectionError covers device connectivity failures.
type ConnectionError struct {
	Reason string // DeviceNotConnected | DeviceOffline | ConnectionLost
	DeviceID string
	Err    error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection error: %s (device=%s)", e.Reason, e.DeviceID)
	}
	return fmt.Sprintf("connection error: %s (device=%s): %v", e.Reason, e.DeviceID, e.Err)
}
func (e *ConnectionError) Unwrap() error  { return e.Err }
func (e *ConnectionError) category() string { return "connection" }

// FileError covers recording-file access failures.
type FileError struct {
	Reason string // FileNotFound | FileNotAccessible | FileReadError
	Path   string
	Err    error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("file error: %s (path=%s)", e.Reason, e.Path)
	}
	return fmt.Sprintf("file error: %s (path=%s): %v", e.Reason, e.Path, e.Err)
}
func (e *FileError) Unwrap() error  { return e.Err }
func (e *FileError) category() string { return "file" }

// TransmissionError covers segment delivery failures.
type TransmissionError struct {
	Reason string // TransmissionTimeout | SegmentCorrupted | NetworkError
	Err    error
}

func (e *TransmissionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transmission error: %s", e.Reason)
	}
	return fmt.Sprintf("transmission error: %s: %v", e.Reason, e.Err)
}
func (e *TransmissionError) Unwrap() error  { return e.Err }
func (e *TransmissionError) category() string { return "transmission" }

// PlaybackError covers invalid control operations against a source.
type PlaybackError struct {
	Reason   string // OperationNotSupported | InvalidSeekPosition | InvalidPlaybackRate
	Position float64
	Rate     float64
}

func (e *PlaybackError) Error() string {
	switch e.Reason {
	case "InvalidSeekPosition":
		return fmt.Sprintf("playback error: invalid seek position %.3f", e.Position)
	case "InvalidPlaybackRate":
		return fmt.Sprintf("playback error: invalid playback rate %.3f", e.Rate)
	default:
		return fmt.Sprintf("playback error: %s", e.Reason)
	}
}
func (e *PlaybackError) category() string { return "playback" }

// ResourceError covers session registry/capacity failures.
type ResourceError struct {
	Reason    string // SessionNotFound | TooManySessions | OutOfMemory
	SessionID string
}

func (e *ResourceError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("resource error: %s (session=%s)", e.Reason, e.SessionID)
	}
	return fmt.Sprintf("resource error: %s", e.Reason)
}
func (e *ResourceError) category() string { return "resource" }

// InternalError wraps unexpected failures that don't fit another category.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("internal error: %s", e.Op)
	}
	return fmt.Sprintf("internal error: %s: %v", e.Op, e.Err)
}
func (e *InternalError) Unwrap() error  { return e.Err }
func (e *InternalError) category() string { return "internal" }

// Constructors.
func NewConnectionError(reason, deviceID string, cause error) error {
	return &ConnectionError{Reason: reason, DeviceID: deviceID, Err: cause}
}
func NewFileError(reason, path string, cause error) error {
	return &FileError{Reason: reason, Path: path, Err: cause}
}
func NewTransmissionError(reason string, cause error) error {
	return &TransmissionError{Reason: reason, Err: cause}
}
func NewOperationNotSupported() error {
	return &PlaybackError{Reason: "OperationNotSupported"}
}
func NewInvalidSeekPosition(pos float64) error {
	return &PlaybackError{Reason: "InvalidSeekPosition", Position: pos}
}
func NewInvalidPlaybackRate(rate float64) error {
	return &PlaybackError{Reason: "InvalidPlaybackRate", Rate: rate}
}
func NewSessionNotFound(sessionID string) error {
	return &ResourceError{Reason: "SessionNotFound", SessionID: sessionID}
}
func NewTooManySessions() error {
	return &ResourceError{Reason: "TooManySessions"}
}
func NewInternalError(op string, cause error) error {
	return &InternalError{Op: op, Err: cause}
}

// classify returns the taxonomy bucket of err, or "" if err doesn't
// participate in the taxonomy.
func classify(err error) string {
	if err == nil {
		return ""
	}
	var m categoryMarker
	if stdErrors.As(err, &m) {
		return m.category()
	}
	return ""
}

// IsPlaybackError reports whether err is (or wraps) a PlaybackError.
func IsPlaybackError(err error) bool { return classify(err) == "playback" }

// IsResourceError reports whether err is (or wraps) a ResourceError.
func IsResourceError(err error) bool { return classify(err) == "resource" }

// reasonOf extracts the Reason field shared by most taxonomy errors, used by
// the retry-eligibility check below.
func reasonOf(m categoryMarker) string {
	switch e := m.(type) {
	case *ConnectionError:
		return e.Reason
	case *FileError:
		return e.Reason
	case *TransmissionError:
		return e.Reason
	}
	return ""
}

// retryableReasons lists the error reasons eligible for the retry policy
// per spec §4.9: ConnectionLost, TransmissionTimeout, NetworkError, FileReadError.
var retryableReasons = map[string]bool{
	"ConnectionLost":      true,
	"TransmissionTimeout": true,
	"NetworkError":        true,
	"FileReadError":       true,
}

// IsRetryEligible reports whether err belongs to a retryable reason.
func IsRetryEligible(err error) bool {
	var m categoryMarker
	if !stdErrors.As(err, &m) {
		return false
	}
	return retryableReasons[reasonOf(m)]
}
