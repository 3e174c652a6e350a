package pms7003

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Defaults from the PMS7003 data manual and the reference driver.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 2 * time.Second
)

// ErrPortClosed is returned by Port operations after Close.
var ErrPortClosed = errors.New("pms7003: port closed")

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device      string
	BaudRate    int           // default 9600
	ReadTimeout time.Duration // default 2s
}

// Port is a Channel backed by a Linux serial device in raw 8N1 mode.
// Reads are bounded by Config.ReadTimeout and are unblocked by Close.
type Port struct {
	fd        int
	file      *os.File
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

var _ Channel = (*Port)(nil)

// OpenPort opens a serial port using the provided Config.
// The port is configured for raw, non-buffered operation: 8 data bits,
// no parity, one stop bit.
func OpenPort(cfg Config) (*Port, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	fd, err := syscall.Open(cfg.Device, syscall.O_RDWR|syscall.O_NOCTTY|syscall.O_NONBLOCK, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baudToUnix(cfg.BaudRate)

	// Timeouts are handled with poll, so the driver returns as soon as a
	// single byte is available.
	termios.Cc[unix.VMIN] = 1
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	if err := syscall.SetNonblock(fd, false); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("set blocking: %w", err)
	}

	// Create self-pipe for killability
	pipeFds := make([]int, 2)
	if err := unix.Pipe(pipeFds); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:     fd,
		file:   os.NewFile(uintptr(fd), cfg.Device),
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

// Read reads up to len(p) bytes. It waits at most Config.ReadTimeout for the
// first byte and returns ErrTimeout if none arrived.
func (p *Port) Read(buf []byte) (int, error) {
	select {
	case <-p.done:
		return 0, ErrPortClosed
	default:
	}

	deadline := time.Now().Add(p.config.ReadTimeout)
	for {
		timeout := int(time.Until(deadline) / time.Millisecond)
		if timeout < 0 {
			timeout = 0
		}
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLIN},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(pfd, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return 0, ErrTimeout
		}

		select {
		case <-p.done:
			return 0, ErrPortClosed
		default:
		}
		// An invalid descriptor means the port was closed underneath us.
		if (pfd[0].Revents|pfd[1].Revents)&unix.POLLNVAL != 0 {
			return 0, ErrPortClosed
		}
		if pfd[1].Revents&unix.POLLIN != 0 {
			return 0, ErrPortClosed
		}
		if pfd[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			return p.file.Read(buf)
		}
	}
}

// Write writes buf to the serial port.
func (p *Port) Write(buf []byte) (int, error) {
	select {
	case <-p.done:
		return 0, ErrPortClosed
	default:
	}
	return p.file.Write(buf)
}

// Close closes the serial port and unblocks any pending Read.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		if p.pipeW > 0 {
			unix.Write(p.pipeW, []byte{1})
		}
		if p.file != nil {
			err = p.file.Close()
		}
		if p.pipeR > 0 {
			unix.Close(p.pipeR)
		}
		if p.pipeW > 0 {
			unix.Close(p.pipeW)
		}
	})
	return err
}

// Device returns the device path the port was opened on.
func (p *Port) Device() string {
	return p.config.Device
}

func baudToUnix(baud int) uint32 {
	switch baud {
	case 9600:
		return unix.B9600
	case 19200:
		return unix.B19200
	case 38400:
		return unix.B38400
	case 57600:
		return unix.B57600
	case 115200:
		return unix.B115200
	case 230400:
		return unix.B230400
	default:
		return unix.B9600 // fallback
	}
}
