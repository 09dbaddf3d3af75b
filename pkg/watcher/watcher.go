package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/zk-tools/zk-watcher-go/pkg/command"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"
	"github.com/zk-tools/zk-watcher-go/pkg/metrics"
	"github.com/zk-tools/zk-watcher-go/pkg/registry"
)

const (
	// DefaultTick is the coarse polling granularity of the check loop.
	// Stop requests are observed within one tick.
	DefaultTick = time.Second

	// DefaultCheckTimeout is the hard wall-clock bound on one check run.
	DefaultCheckTimeout = 90 * time.Second
)

// Options control the watcher loop timing. Zero values select defaults;
// tests shrink them to run fast.
type Options struct {
	Tick         time.Duration
	CheckTimeout time.Duration
}

// State is a diagnostic snapshot of a watcher. The registry is the source
// of truth for consumers; this only feeds logs and introspection.
type State struct {
	LastCheckedAt    time.Time
	LastKnownHealthy bool
	ChecksCompleted  int
}

// Watcher owns one service's check loop: it polls on a coarse tick, runs
// the check command when the refresh interval has elapsed, and reflects
// the result into the registry. Each watcher runs on its own goroutine
// and shares nothing with other watchers except the registry handle.
type Watcher struct {
	spec     ServiceSpec
	key      string
	options  Options
	registry registry.Registry
	runner   *command.Runner
	logger   logging.Logger

	mutex sync.Mutex
	state State

	stopChan chan struct{}
	stopOnce sync.Once
	doneChan chan struct{}
}

func NewWatcher(spec ServiceSpec, host string, reg registry.Registry, options Options, logger logging.Logger) (*Watcher, error) {
	if err := ValidateServiceSpec(spec); err != nil {
		return nil, err
	}
	if err := ValidateOptions(options); err != nil {
		return nil, err
	}

	if options.Tick == 0 {
		options.Tick = DefaultTick
	}
	if options.CheckTimeout == 0 {
		options.CheckTimeout = DefaultCheckTimeout
	}

	return &Watcher{
		spec:     spec,
		key:      spec.RegistrationKey(host),
		options:  options,
		registry: reg,
		runner:   command.NewRunner(logger),
		logger:   logger,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

// Start launches the check loop on its own goroutine.
func (w *Watcher) Start() {
	w.logger.Infof("Starting watcher, service: %s, key: %s, refresh: %v",
		w.spec.Name, w.key, w.spec.RefreshInterval)
	go w.loop()
}

// Stop requests termination. It is idempotent and returns immediately;
// the loop observes the request within one tick, lets any in-flight check
// finish, performs one final unhealthy registration and then exits. Done
// reports completion.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Debugf("Stop requested, service: %s", w.spec.Name)
		close(w.stopChan)
	})
}

// Done is closed once the loop has exited, after the final deregistration.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneChan
}

// RegistrationKey returns the registry key this watcher publishes under.
func (w *Watcher) RegistrationKey() string {
	return w.key
}

// State returns a copy of the diagnostic state.
func (w *Watcher) State() State {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.state
}

func (w *Watcher) loop() {
	defer close(w.doneChan)

	w.logger.Debugf("Watcher loop started, service: %s", w.spec.Name)

	ticker := time.NewTicker(w.options.Tick)
	defer ticker.Stop()

	// First check fires immediately; LastCheckedAt starts at "never".
	w.performCheck()

	for {
		select {
		case <-ticker.C:
			if w.due() {
				w.performCheck()
			}
		case <-w.stopChan:
			w.logger.Infof("Watcher stopping, service: %s", w.spec.Name)
			w.report(false)
			w.logger.Infof("Watcher stopped, service: %s", w.spec.Name)
			return
		}
	}
}

func (w *Watcher) due() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return time.Since(w.state.LastCheckedAt) >= w.spec.RefreshInterval
}

// performCheck runs one check and reports the outcome. Checks within one
// watcher are strictly sequential since this is only called from the loop.
func (w *Watcher) performCheck() {
	w.logger.Debugf("[%s] running", w.spec.Command)

	result := w.runner.Run(context.Background(), w.spec.Command, w.options.CheckTimeout)
	healthy := result.Healthy()

	if healthy {
		w.logger.Infof("[%s] returned successfully", w.spec.Command)
	} else {
		w.logger.Warnf("[%s] returned a failed exit code [%d], status: %s",
			w.spec.Command, result.ExitCode, result.Status)
	}

	metrics.ChecksTotal.WithLabelValues(w.spec.Name, string(result.Status)).Inc()
	metrics.CheckDuration.WithLabelValues(w.spec.Name).Observe(result.Duration.Seconds())
	if healthy {
		metrics.ServiceHealthy.WithLabelValues(w.spec.Name).Set(1)
	} else {
		metrics.ServiceHealthy.WithLabelValues(w.spec.Name).Set(0)
	}

	w.report(healthy)

	// State advances regardless of the registry call outcome; the next
	// scheduled check is the retry mechanism.
	w.mutex.Lock()
	w.state.LastCheckedAt = time.Now()
	w.state.LastKnownHealthy = healthy
	w.state.ChecksCompleted++
	w.mutex.Unlock()
}

// report reflects the health state into the registry. Registry errors are
// logged and discarded; they never stop the loop.
func (w *Watcher) report(healthy bool) {
	err := w.registry.Register(w.key, w.spec.Payload, healthy)
	if err != nil {
		metrics.RegistryUpdatesTotal.WithLabelValues(w.spec.Name, "error").Inc()
		w.logger.Warnf("[%s] could not update path %s with state %t: %v",
			w.spec.Name, w.key, healthy, err)
		return
	}

	metrics.RegistryUpdatesTotal.WithLabelValues(w.spec.Name, "ok").Inc()
	w.logger.Debugf("[%s] successfully updated path %s with state %t",
		w.spec.Name, w.key, healthy)
}
