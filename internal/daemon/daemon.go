package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"subembed/internal/bot"
	"subembed/internal/config"
	"subembed/internal/deps"
	"subembed/internal/logging"
	"subembed/internal/session"
	"subembed/internal/staging"
)

// Poller delivers inbound events until its context ends.
type Poller interface {
	Poll(ctx context.Context, submit func(bot.Event) bool) error
}

// Dispatcher queues events per user.
type Dispatcher interface {
	Submit(ev bot.Event) bool
	Active() int
	Close()
	Wait()
}

// Options carries the long-lived collaborators the daemon supervises.
type Options struct {
	Version      string
	Layout       staging.Layout
	Sessions     session.Store
	Dispatcher   Dispatcher
	Poller       Poller
	Dependencies []deps.Status
}

// Daemon owns the polling loop, the status page and the single-instance lock.
type Daemon struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	lockPath string
	lock     *flock.Flock
	status   *statusServer

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	pollDone  chan struct{}
	pollErr   error
	stopOnce  sync.Once
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Version      string
	StartedAt    time.Time
	Sessions     int
	ActiveUsers  int
	Files        []staging.DirUsage
	Dependencies []deps.Status
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || opts.Sessions == nil || opts.Dispatcher == nil || opts.Poller == nil {
		return nil, errors.New("daemon requires config, session store, dispatcher, and poller")
	}
	lockPath := cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	d := &Daemon{
		cfg:      cfg,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	if cfg.Status.Enabled {
		d.status = newStatusServer(cfg.Status.Bind, d, d.logger)
	}
	return d, nil
}

// Start acquires the lock, opens the status page and begins polling.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another subembed instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.startedAt = time.Now()
	if err := d.status.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start status server: %w", err)
	}

	d.cancel = cancel
	d.pollDone = make(chan struct{})
	d.stopOnce = sync.Once{}
	d.running.Store(true)

	go func() {
		defer close(d.pollDone)
		d.pollErr = d.opts.Poller.Poll(runCtx, d.opts.Dispatcher.Submit)
		if d.pollErr != nil {
			logging.ErrorWithContext(d.logger, "polling ended with error", "poll_failed",
				logging.Error(d.pollErr),
				logging.String(logging.FieldErrorHint, "check network access to the Bot API"),
			)
		}
	}()

	d.logger.Info("subembed daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("version", d.opts.Version),
	)
	return nil
}

// Done is closed when polling stops, whether by Stop or by failure.
func (d *Daemon) Done() <-chan struct{} {
	return d.pollDone
}

// Err returns the polling error after Done is closed.
func (d *Daemon) Err() error {
	return d.pollErr
}

// Stop ends polling, lets queued events finish against a cancelled context,
// then releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.stopOnce.Do(func() {
		d.cancel()
		<-d.pollDone
		d.opts.Dispatcher.Close()
		d.opts.Dispatcher.Wait()
		d.status.stop()
		if err := d.lock.Unlock(); err != nil {
			logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the lock file if the next start refuses to run"),
			)
		}
		d.running.Store(false)
		d.logger.Info("subembed daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
	})
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Version:      d.opts.Version,
		StartedAt:    d.startedAt,
		Sessions:     d.opts.Sessions.Len(),
		ActiveUsers:  d.opts.Dispatcher.Active(),
		Files:        d.opts.Layout.Usage(),
		Dependencies: append([]deps.Status(nil), d.opts.Dependencies...),
		LockFilePath: d.lockPath,
	}
}

// StatusAddr returns the status page listen address, empty when disabled or
// not started.
func (d *Daemon) StatusAddr() string {
	return d.status.addr()
}
