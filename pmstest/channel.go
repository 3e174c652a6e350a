// Package pmstest provides a deterministic in-memory pms7003.Channel and
// synthetic data generators for tests and demos.
package pmstest

import (
	"errors"
	"sync"
	"time"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
)

// ErrClosed is returned by Channel operations after Close.
var ErrClosed = errors.New("pmstest: channel closed")

// Channel is an in-memory pms7003.Channel. Reads consume queued bytes; when
// nothing is queued, Refill is consulted and, if it yields nothing, the read
// waits Timeout and returns pms7003.ErrTimeout.
type Channel struct {
	// MaxChunk caps the bytes returned by one Read. Zero means unlimited.
	MaxChunk int

	// Timeout is how long an empty read blocks before timing out.
	Timeout time.Duration

	// Refill is called when the queue is empty. It may return nil.
	Refill func() []byte

	mu      sync.Mutex
	pending []byte
	written []byte
	reads   int
	closed  bool
}

var _ pms7003.Channel = (*Channel)(nil)

// NewChannel returns a Channel with data queued for reading.
func NewChannel(data ...[]byte) *Channel {
	c := &Channel{}
	for _, d := range data {
		c.pending = append(c.pending, d...)
	}
	return c
}

// Feed queues b for reading.
func (c *Channel) Feed(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, b...)
}

func (c *Channel) Read(p []byte) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	c.reads++
	if len(c.pending) == 0 && c.Refill != nil {
		c.pending = append(c.pending, c.Refill()...)
	}
	if len(c.pending) == 0 {
		timeout := c.Timeout
		c.mu.Unlock()
		time.Sleep(timeout)
		return 0, pms7003.ErrTimeout
	}

	n := len(p)
	if c.MaxChunk > 0 && n > c.MaxChunk {
		n = c.MaxChunk
	}
	n = copy(p[:n], c.pending)
	c.pending = c.pending[n:]
	c.mu.Unlock()
	return n, nil
}

func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	c.written = append(c.written, p...)
	return len(p), nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Written returns a copy of everything written so far.
func (c *Channel) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written...)
}

// Closed reports whether Close was called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Reads returns the number of Read calls made while open.
func (c *Channel) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}
