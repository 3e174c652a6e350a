package pms7003

import "errors"

// ErrTimeout is returned by a Channel read when no byte arrived within the
// channel's read timeout.
var ErrTimeout = errors.New("pms7003: read timeout")

// Channel is the duplex byte transport a sensor is attached to.
//
// Read blocks until at least one byte is available or the channel's read
// timeout elapses, in which case it returns 0 and ErrTimeout. Short reads are
// allowed. The physical configuration of the line (baud rate, framing) is the
// implementation's responsibility.
type Channel interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}
