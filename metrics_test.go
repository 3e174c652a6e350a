package pms7003_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	pms7003 "github.com/luhtfiimanal/go-pms7003"
	"github.com/luhtfiimanal/go-pms7003/pmstest"
)

func TestFailureReason(t *testing.T) {
	require.Equal(t, "sync_timeout", pms7003.FailureReason(pms7003.ErrSyncTimeout))
	require.Equal(t, "short_read", pms7003.FailureReason(&pms7003.ShortReadError{}))
	require.Equal(t, "length_mismatch", pms7003.FailureReason(&pms7003.LengthError{}))
	require.Equal(t, "checksum_mismatch", pms7003.FailureReason(&pms7003.ChecksumError{}))
	require.Equal(t, "io", pms7003.FailureReason(pmstest.ErrClosed))
}

func TestPrometheusMetrics_Worker(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	metrics, err := pms7003.NewPrometheusMetrics(reg, prometheus.Labels{"device": "test"})
	require.NoError(t, err)

	ch := pmstest.NewChannel(sequentialFrame(), sequentialFrame(), badChecksumFrame())
	ch.Timeout = time.Millisecond
	w := pms7003.NewWorker(pms7003.OpenSensor(ch), pms7003.WorkerConfig{
		MaxFailures: 2,
		Metrics:     metrics,
	})
	require.NoError(t, w.Start())
	<-w.Done()
	require.NoError(t, w.Stop())

	expected := `
# HELP pms7003_buffered_measurements Measurements read but not yet drained.
# TYPE pms7003_buffered_measurements gauge
pms7003_buffered_measurements{device="test"} 2
# HELP pms7003_measurements_total Total number of frames decoded successfully.
# TYPE pms7003_measurements_total counter
pms7003_measurements_total{device="test"} 2
# HELP pms7003_read_failures_total Total number of failed frame reads by reason.
# TYPE pms7003_read_failures_total counter
pms7003_read_failures_total{device="test",reason="checksum_mismatch"} 1
pms7003_read_failures_total{device="test",reason="sync_timeout"} 1
# HELP pms7003_worker_failed 1 once the worker gave up after too many read failures.
# TYPE pms7003_worker_failed gauge
pms7003_worker_failed{device="test"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))

	require.Len(t, w.Measurements(), 2)
	drained := `
# HELP pms7003_buffered_measurements Measurements read but not yet drained.
# TYPE pms7003_buffered_measurements gauge
pms7003_buffered_measurements{device="test"} 0
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(drained), "pms7003_buffered_measurements"))
}

func TestPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := pms7003.NewPrometheusMetrics(reg, nil)
	require.NoError(t, err)
	_, err = pms7003.NewPrometheusMetrics(reg, nil)
	require.Error(t, err)
}
