package pms7003

import (
	"errors"
	"fmt"
)

// Transient decode errors. Each means no usable frame was obtained on this
// attempt; the channel is otherwise assumed healthy.
var (
	ErrSyncTimeout      = errors.New("pms7003: start sequence not seen before timeout")
	ErrShortRead        = errors.New("pms7003: short frame read")
	ErrLengthMismatch   = errors.New("pms7003: unexpected frame length")
	ErrChecksumMismatch = errors.New("pms7003: checksum mismatch")
)

// Terminal worker errors.
var (
	ErrMaxFailures  = errors.New("pms7003: too many read failures")
	ErrWorkerClosed = errors.New("pms7003: worker stopped")
)

// ShortReadError reports a frame body cut off by a timeout or end of stream.
type ShortReadError struct {
	Want int
	Got  int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("pms7003: short frame read: got %d of %d bytes", e.Got, e.Want)
}

func (e *ShortReadError) Is(target error) bool { return target == ErrShortRead }

// LengthError reports a declared payload length other than FrameLength.
type LengthError struct {
	Expected uint16
	Actual   uint16
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("pms7003: unexpected frame length: expected %d, got %d", e.Expected, e.Actual)
}

func (e *LengthError) Is(target error) bool { return target == ErrLengthMismatch }

// ChecksumError reports a frame whose stored checksum does not match the
// recomputed one.
type ChecksumError struct {
	Expected uint16
	Actual   uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("pms7003: checksum mismatch: expected %#04x, got %#04x", e.Expected, e.Actual)
}

func (e *ChecksumError) Is(target error) bool { return target == ErrChecksumMismatch }

// MaxFailuresError is recorded by a Worker when its failure threshold is
// reached. Last is the error of the final failed attempt.
type MaxFailuresError struct {
	Failures int
	Last     error
}

func (e *MaxFailuresError) Error() string {
	return fmt.Sprintf("pms7003: giving up after %d read failures: %v", e.Failures, e.Last)
}

func (e *MaxFailuresError) Is(target error) bool { return target == ErrMaxFailures }

func (e *MaxFailuresError) Unwrap() error { return e.Last }

// IsTransient reports whether err is one of the recoverable decode errors.
func IsTransient(err error) bool {
	if errors.Is(err, ErrMaxFailures) {
		return false
	}
	return errors.Is(err, ErrSyncTimeout) ||
		errors.Is(err, ErrShortRead) ||
		errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrChecksumMismatch)
}
