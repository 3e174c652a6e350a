package pms7003

import (
	"fmt"
	"sync"
)

// Sensor is a PMS7003 attached to a Channel. Its methods must not be called
// while a Worker owns the sensor.
type Sensor struct {
	ch        Channel
	dec       Decoder
	closeOnce sync.Once
	closeErr  error
}

// OpenSensor wraps ch. The sensor takes ownership of the channel and closes
// it on Close.
func OpenSensor(ch Channel) *Sensor {
	return &Sensor{ch: ch}
}

// Open opens the serial device described by cfg and returns a sensor on it.
func Open(cfg Config) (*Sensor, error) {
	port, err := OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	s := OpenSensor(port)
	s.dec.Timeout = port.config.ReadTimeout
	return s, nil
}

// SetDecoder replaces the sensor's frame decoder settings.
func (s *Sensor) SetDecoder(d Decoder) {
	s.dec = d
}

// ReadMeasurement makes one synchronous attempt to read a frame. Every
// decode error is returned to the caller.
func (s *Sensor) ReadMeasurement() (Measurement, error) {
	return s.dec.ReadOne(s.ch)
}

// Wakeup puts the sensor into normal (measuring) mode.
func (s *Sensor) Wakeup() error {
	return s.write(WakeupCommand())
}

// Sleep puts the sensor into sleep mode.
func (s *Sensor) Sleep() error {
	return s.write(SleepCommand())
}

func (s *Sensor) write(cmd []byte) error {
	if _, err := s.ch.Write(cmd); err != nil {
		return fmt.Errorf("pms7003: write command: %w", err)
	}
	return nil
}

// Close closes the underlying channel. Safe to call multiple times.
func (s *Sensor) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.ch.Close()
	})
	return s.closeErr
}
