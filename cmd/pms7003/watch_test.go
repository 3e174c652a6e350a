package main

import (
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-pms7003/internal/config"
	"github.com/luhtfiimanal/go-pms7003/internal/logging"
	"github.com/luhtfiimanal/go-pms7003/pmstest"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_LogsMeasurementsFromPTY(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	cfg := config.Default()
	cfg.Serial.Device = slave.Name()
	cfg.Serial.ReadTimeout = 50 * time.Millisecond
	cfg.Worker.MaxFailures = -1
	cfg.Worker.DrainInterval = 20 * time.Millisecond

	var out syncBuffer
	log := logging.New(&out, "info", "json")

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()

	go func() {
		// Let the port switch to raw mode first.
		time.Sleep(50 * time.Millisecond)
		gen := pmstest.NewValues(1)
		for ctx.Err() == nil {
			if _, err := master.Write(pmstest.Frame(gen.Next())); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	require.NoError(t, watch(ctx, cfg, log))
	require.Contains(t, out.String(), `"msg":"measurement"`)
}

func TestWatch_MissingDevice(t *testing.T) {
	cfg := config.Default()
	cfg.Serial.Device = "/dev/does-not-exist-pms7003"

	var out syncBuffer
	err := watch(context.Background(), cfg, logging.New(&out, "info", "text"))
	require.Error(t, err)
}

func TestWatch_MetricsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	cfg := config.Default()
	cfg.Metrics.Listen = ln.Addr().String()

	var out syncBuffer
	err = watch(context.Background(), cfg, logging.New(&out, "info", "text"))
	require.ErrorContains(t, err, "metrics listener")
}
