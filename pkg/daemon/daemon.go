package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/zk-tools/zk-watcher-go/pkg/errors"
	"github.com/zk-tools/zk-watcher-go/pkg/logging"
	"github.com/zk-tools/zk-watcher-go/pkg/registry"
	"github.com/zk-tools/zk-watcher-go/pkg/watcher"
)

// DaemonState represents the current state of the watcher daemon
type DaemonState string

const (
	// DaemonStateNotStarted is the initial state before Start() is called
	DaemonStateNotStarted DaemonState = "not_started"

	// DaemonStateRunning means all watchers have been started
	DaemonStateRunning DaemonState = "running"

	// DaemonStateStopping means shutdown is propagating to the watchers
	DaemonStateStopping DaemonState = "stopping"

	// DaemonStateStopped means every watcher has been joined (or abandoned
	// after the shutdown deadline) and the registry is closed
	DaemonStateStopped DaemonState = "stopped"
)

type Options struct {
	HostIdentifier       string
	ForceShutdownTimeout time.Duration
	WatcherOptions       watcher.Options
}

// Daemon supervises one watcher per configured service. It holds the
// single shared registry handle and propagates shutdown to every watcher,
// waiting (bounded) for their final deregistrations.
type Daemon struct {
	options  Options
	registry registry.Registry
	logger   logging.Logger

	mutex    sync.Mutex
	watchers map[string]*watcher.Watcher // keyed by registration key
	state    DaemonState
}

func NewDaemon(options Options, reg registry.Registry, logger logging.Logger) (*Daemon, error) {
	if reg == nil {
		return nil, errors.NewValidationError("registry cannot be nil", nil)
	}
	if options.HostIdentifier == "" {
		return nil, errors.NewValidationError("host identifier cannot be empty", nil)
	}
	if options.ForceShutdownTimeout == 0 {
		options.ForceShutdownTimeout = DefaultForceShutdownTimeout
	}

	return &Daemon{
		options:  options,
		registry: reg,
		logger:   logger,
		watchers: make(map[string]*watcher.Watcher),
		state:    DaemonStateNotStarted,
	}, nil
}

// AddService registers a watcher for the given spec. Services are added
// before Start; there is no dynamic reconfiguration.
func (d *Daemon) AddService(spec watcher.ServiceSpec) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.state != DaemonStateNotStarted {
		return errors.NewValidationError("services can only be added before the daemon starts", nil).WithContext("state", string(d.state))
	}

	watcherLogger := logging.NewLoggerFrom("watcher: "+spec.Name+" , ", d.logger)

	w, err := watcher.NewWatcher(spec, d.options.HostIdentifier, d.registry, d.options.WatcherOptions, watcherLogger)
	if err != nil {
		return err
	}

	key := w.RegistrationKey()
	if _, exists := d.watchers[key]; exists {
		return errors.NewValidationError("watcher already exists for registration key", nil).WithContext("key", key)
	}

	d.watchers[key] = w
	d.logger.Infof("Added service, name: %s, key: %s", spec.Name, key)
	return nil
}

// Start launches all watchers concurrently. There is no ordering
// dependency between services.
func (d *Daemon) Start() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.state != DaemonStateNotStarted {
		return errors.NewValidationError("daemon has already been started", nil).WithContext("state", string(d.state))
	}
	if len(d.watchers) == 0 {
		return errors.NewValidationError("no services to watch", nil)
	}

	for _, w := range d.watchers {
		w.Start()
	}
	d.state = DaemonStateRunning

	d.logger.Infof("Watcher daemon running, watchers: %d", len(d.watchers))
	return nil
}

// Stop signals every watcher and waits, bounded by ForceShutdownTimeout,
// for each to finish its final deregistration. Returns an error if any
// watcher had to be abandoned at the deadline.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mutex.Lock()
	if d.state != DaemonStateRunning {
		state := d.state
		d.mutex.Unlock()
		if state == DaemonStateStopped {
			return nil
		}
		return errors.NewValidationError("daemon is not running", nil).WithContext("state", string(state))
	}
	d.state = DaemonStateStopping
	watchers := make(map[string]*watcher.Watcher, len(d.watchers))
	for key, w := range d.watchers {
		watchers[key] = w
	}
	d.mutex.Unlock()

	d.logger.Infof("Stopping watcher daemon, watchers: %d", len(watchers))

	for _, w := range watchers {
		w.Stop()
	}

	deadline := time.Now().Add(d.options.ForceShutdownTimeout)
	abandoned := 0
	for key, w := range watchers {
		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-w.Done():
			timer.Stop()
		case <-timer.C:
			d.logger.Errorf("Timed out waiting for watcher to stop, key: %s", key)
			abandoned++
		case <-ctx.Done():
			timer.Stop()
			d.logger.Errorf("Shutdown cancelled while waiting for watcher, key: %s", key)
			abandoned++
		}
	}

	if err := d.registry.Close(); err != nil {
		d.logger.Warnf("Failed to close registry: %v", err)
	}

	d.mutex.Lock()
	d.state = DaemonStateStopped
	d.mutex.Unlock()

	if abandoned > 0 {
		return errors.NewInternalError("watchers did not stop before the shutdown deadline", nil).WithContext("count", abandoned)
	}

	d.logger.Infof("Watcher daemon stopped")
	return nil
}

// State returns the daemon lifecycle state.
func (d *Daemon) State() DaemonState {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.state
}

// WatcherStates returns a diagnostic snapshot of every watcher, keyed by
// registration key.
func (d *Daemon) WatcherStates() map[string]watcher.State {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	states := make(map[string]watcher.State, len(d.watchers))
	for key, w := range d.watchers {
		states[key] = w.State()
	}
	return states
}
