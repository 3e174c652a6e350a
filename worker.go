package pms7003

import (
	"log/slog"
	"sync"
)

// DefaultMaxFailures is used when WorkerConfig.MaxFailures is zero.
const DefaultMaxFailures = 3

// State is the lifecycle state of a Worker.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	// MaxFailures is the number of failed reads, counted over the whole
	// session, after which the worker gives up. A negative value never gives
	// up. Zero is not a threshold: it selects DefaultMaxFailures.
	MaxFailures int

	Logger  *slog.Logger
	Metrics Metrics

	// OnError is called from the worker goroutine for every failed read that
	// does not end the session.
	OnError func(error)

	// OnFailure is called once from the worker goroutine with the
	// *MaxFailuresError that ended the session.
	OnFailure func(error)
}

// Worker reads measurements continuously on its own goroutine and buffers
// them until they are drained with Measurements.
//
// The buffer, the lifecycle state and the failure count are guarded by a
// single mutex, which is never held across a channel read.
type Worker struct {
	sensor      *Sensor
	maxFailures int
	log         *slog.Logger
	metrics     Metrics
	onError     func(error)
	onFailure   func(error)
	done        chan struct{}

	mu       sync.Mutex
	state    State
	buffer   []Measurement
	failures int
	err      error
}

// NewWorker creates a worker that takes ownership of sensor. The sensor is
// closed by Stop.
func NewWorker(sensor *Sensor, cfg WorkerConfig) *Worker {
	w := &Worker{
		sensor:      sensor,
		maxFailures: cfg.MaxFailures,
		log:         cfg.Logger,
		metrics:     cfg.Metrics,
		onError:     cfg.OnError,
		onFailure:   cfg.OnFailure,
		done:        make(chan struct{}),
	}
	if w.maxFailures == 0 {
		w.maxFailures = DefaultMaxFailures
	}
	if w.log == nil {
		w.log = slog.New(slog.DiscardHandler)
	}
	if w.metrics == nil {
		w.metrics = NopMetrics{}
	}
	return w
}

// Start launches the read loop. It is a no-op on a running worker and
// returns ErrWorkerClosed once the worker has stopped or failed.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateRunning:
		return nil
	case StateCreated:
	default:
		return ErrWorkerClosed
	}
	w.state = StateRunning
	w.log.Debug("worker started", "max_failures", w.maxFailures)
	go w.run()
	return nil
}

func (w *Worker) run() {
	defer close(w.done)

	for {
		w.mu.Lock()
		running := w.state == StateRunning
		w.mu.Unlock()
		if !running {
			return
		}

		m, err := w.sensor.ReadMeasurement()

		w.mu.Lock()
		if err == nil {
			w.buffer = append(w.buffer, m)
			w.metrics.Buffered(len(w.buffer))
			w.mu.Unlock()

			w.metrics.MeasurementRead()
			continue
		}

		w.failures++
		failures := w.failures
		if w.maxFailures > 0 && failures == w.maxFailures {
			var fatal error
			if w.state == StateRunning {
				fatal = &MaxFailuresError{Failures: failures, Last: err}
				w.state = StateFailed
				w.err = fatal
			}
			w.mu.Unlock()

			w.metrics.ReadFailed(FailureReason(err))
			if fatal != nil {
				w.log.Error("giving up on sensor", "failures", failures, "err", err)
				w.metrics.WorkerFailed()
				if w.onFailure != nil {
					w.onFailure(fatal)
				}
			}
			return
		}
		w.mu.Unlock()

		w.log.Warn("sensor read failed", "failures", failures, "err", err)
		w.metrics.ReadFailed(FailureReason(err))
		if w.onError != nil {
			w.onError(err)
		}
	}
}

// Stop asks the read loop to exit, waits until it has, and only then closes
// the sensor. The in-flight read is allowed to finish, so Stop can block for
// up to the channel's read timeout. Calling Stop again is a no-op.
func (w *Worker) Stop() error {
	w.mu.Lock()
	switch w.state {
	case StateCreated:
		w.state = StateStopped
		close(w.done)
		w.mu.Unlock()
		return w.sensor.Close()
	case StateRunning:
		w.state = StateStopping
	case StateStopped:
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	<-w.done
	// Sensor.Close blocks concurrent callers until the first close is done.
	err := w.sensor.Close()

	w.mu.Lock()
	if w.state == StateStopping {
		w.state = StateStopped
		w.log.Debug("worker stopped", "failures", w.failures)
	}
	w.mu.Unlock()
	return err
}

// Measurements hands over everything read since the previous call, in read
// order, and leaves the buffer empty.
func (w *Worker) Measurements() []Measurement {
	w.mu.Lock()
	buf := w.buffer
	w.buffer = nil
	w.metrics.Buffered(0)
	w.mu.Unlock()

	return buf
}

// Done is closed when the read loop has exited, either because Stop was
// called or because the failure threshold was reached.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Failures returns the number of failed reads in this session.
func (w *Worker) Failures() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failures
}

// Err returns the *MaxFailuresError that ended the session, or nil.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
