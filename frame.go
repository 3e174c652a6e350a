package pms7003

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

// Frame layout. The start sequence is consumed separately; FrameBytes counts
// what follows it.
const (
	StartByte1  = 0x42
	StartByte2  = 0x4D
	FrameBytes  = 30
	FrameLength = FrameBytes - 2 // declared payload length
)

// Decoder reads frames from a Channel.
type Decoder struct {
	// Timeout bounds each phase of a read (synchronisation and frame body),
	// even when bytes keep arriving. Zero means DefaultReadTimeout.
	Timeout time.Duration

	// Now stamps decoded measurements. Zero means time.Now.
	Now func() time.Time
}

// ReadOne discards bytes until the start sequence, then reads and validates
// one frame. A Measurement is returned only when both the declared length
// and the checksum are valid.
func (d *Decoder) ReadOne(ch Channel) (Measurement, error) {
	if err := d.sync(ch); err != nil {
		return Measurement{}, err
	}

	var frame [FrameBytes]byte
	if err := d.readFull(ch, frame[:]); err != nil {
		return Measurement{}, err
	}

	values, err := parseFrame(frame)
	if err != nil {
		return Measurement{}, err
	}
	return NewMeasurement(d.now(), values), nil
}

func (d *Decoder) sync(ch Channel) error {
	deadline := time.Now().Add(d.timeout())
	var b [1]byte
	var prev byte
	seen := false
	for {
		n, err := ch.Read(b[:])
		if n == 1 {
			if seen && prev == StartByte1 && b[0] == StartByte2 {
				return nil
			}
			prev, seen = b[0], true
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) || errors.Is(err, io.EOF) {
				return ErrSyncTimeout
			}
			return fmt.Errorf("pms7003: read: %w", err)
		}
		if time.Now().After(deadline) {
			return ErrSyncTimeout
		}
	}
}

func (d *Decoder) readFull(ch Channel, buf []byte) error {
	deadline := time.Now().Add(d.timeout())
	got := 0
	for got < len(buf) {
		n, err := ch.Read(buf[got:])
		got += n
		if got == len(buf) {
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) || errors.Is(err, io.EOF) {
				return &ShortReadError{Want: len(buf), Got: got}
			}
			return fmt.Errorf("pms7003: read: %w", err)
		}
		if time.Now().After(deadline) {
			return &ShortReadError{Want: len(buf), Got: got}
		}
	}
	return nil
}

func (d *Decoder) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultReadTimeout
	}
	return d.Timeout
}

func (d *Decoder) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// parseFrame validates the length field before the checksum and returns the
// twelve data words.
func parseFrame(frame [FrameBytes]byte) ([NumValues]uint16, error) {
	var values [NumValues]uint16

	length := binary.BigEndian.Uint16(frame[0:2])
	if length != FrameLength {
		return values, &LengthError{Expected: FrameLength, Actual: length}
	}

	stored := binary.BigEndian.Uint16(frame[28:30])
	if sum := Checksum(frame[:28]); sum != stored {
		return values, &ChecksumError{Expected: sum, Actual: stored}
	}

	for i := range values {
		values[i] = binary.BigEndian.Uint16(frame[2+2*i:])
	}
	return values, nil
}

// Checksum is the plain byte sum of the start sequence and body, truncated
// to 16 bits.
func Checksum(body []byte) uint16 {
	sum := uint16(StartByte1) + uint16(StartByte2)
	for _, b := range body {
		sum += uint16(b)
	}
	return sum
}

// EncodeFrame builds a complete, valid frame including the start sequence,
// zero reserved bytes and checksum.
func EncodeFrame(values [NumValues]uint16) [FrameBytes + 2]byte {
	var out [FrameBytes + 2]byte
	out[0], out[1] = StartByte1, StartByte2
	binary.BigEndian.PutUint16(out[2:4], FrameLength)
	for i, v := range values {
		binary.BigEndian.PutUint16(out[4+2*i:], v)
	}
	binary.BigEndian.PutUint16(out[30:32], Checksum(out[2:30]))
	return out
}
