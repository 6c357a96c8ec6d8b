package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/connectivity"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
	"github.com/richardthorek/Station-Manager-sub004/internal/notifications"
	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
	"github.com/richardthorek/Station-Manager-sub004/internal/submit"
	"github.com/richardthorek/Station-Manager-sub004/internal/syncer"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	monitor   *connectivity.Monitor
	engine    *syncer.Engine
	submitter *submit.Submitter
	notifier  notifications.Service
	logPath   string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	unsubOnline  func()
	unsubOffline func()
	wg           sync.WaitGroup

	snapshotMu sync.Mutex
	snapshot   queue.HealthSummary
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Online       bool
	Draining     bool
	Queue        queue.HealthSummary
	QueueDBPath  string
	SocketPath   string
	LockFilePath string
}

// New constructs a daemon from pre-built components.
func New(cfg *config.Config, store *queue.Store, monitor *connectivity.Monitor, engine *syncer.Engine, submitter *submit.Submitter, notifier notifications.Service, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || monitor == nil || engine == nil {
		return nil, errors.New("daemon requires config, store, monitor, and engine")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "stationd.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		monitor:   monitor,
		engine:    engine,
		submitter: submitter,
		notifier:  notifier,
		logPath:   filepath.Join(cfg.Paths.LogDir, "stationd.log"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock, recovers crashed sync state, and
// launches the connectivity monitor plus the status poller. When the
// server is already reachable an initial drain runs immediately.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another station daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	// Actions stuck in syncing belong to a crashed process; nothing is
	// in flight now, so they go back to pending before the first drain.
	if reset, resetErr := d.store.ResetStuckSyncing(d.ctx); resetErr != nil {
		d.releaseLock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("recover stuck actions: %w", resetErr)
	} else if reset > 0 {
		d.logger.Info("recovered actions stuck in syncing",
			logging.Int64("recovered", reset),
			logging.String(logging.FieldEventType, "stuck_actions_recovered"),
		)
	}

	d.unsubOnline = d.monitor.OnOnline(func() {
		d.logger.Info("connectivity restored, draining queue",
			logging.String(logging.FieldEventType, "reconnect_drain"),
		)
		if err := d.notifier.NotifyOnline(d.ctx); err != nil {
			d.logger.Debug("online notification not delivered", logging.Error(err))
		}
		d.engine.TriggerDrain(d.ctx)
	})
	d.unsubOffline = d.monitor.OnOffline(func() {
		pending := 0
		if health, err := d.store.Health(d.ctx); err == nil {
			pending = health.Pending
		}
		if err := d.notifier.NotifyOffline(d.ctx, pending); err != nil {
			d.logger.Debug("offline notification not delivered", logging.Error(err))
		}
	})

	if err := d.monitor.Start(d.ctx); err != nil {
		d.unsubscribeTransitions()
		d.releaseLock()
		d.cancel()
		d.ctx, d.cancel = nil, nil
		return fmt.Errorf("start connectivity monitor: %w", err)
	}

	if d.monitor.Online() {
		d.engine.TriggerDrain(d.ctx)
	}

	d.refreshSnapshot(d.ctx)
	d.wg.Add(1)
	go d.pollStatus(d.ctx)

	d.running.Store(true)
	d.logger.Info("station daemon started",
		logging.String("lock", d.lockPath),
		logging.String("db", d.cfg.QueueDatabasePath()),
		logging.Bool("online", d.monitor.Online()),
	)
	return nil
}

// Stop halts background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.unsubscribeTransitions()
	d.monitor.Stop()
	d.engine.Wait()
	d.wg.Wait()
	d.releaseLock()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("station daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) unsubscribeTransitions() {
	if d.unsubOnline != nil {
		d.unsubOnline()
		d.unsubOnline = nil
	}
	if d.unsubOffline != nil {
		d.unsubOffline()
		d.unsubOffline = nil
	}
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
			logging.String(logging.FieldErrorHint, "remove the lock file manually if the next start fails"),
			logging.String(logging.FieldImpact, "subsequent starts may be blocked"),
		)
	}
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Submitter returns the submission facade, for embedding callers.
func (d *Daemon) Submitter() *submit.Submitter {
	return d.submitter
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns a point-in-time view of the daemon.
func (d *Daemon) Status(ctx context.Context) Status {
	d.snapshotMu.Lock()
	snapshot := d.snapshot
	d.snapshotMu.Unlock()

	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Online:       d.monitor.Online(),
		Draining:     d.engine.Draining(),
		Queue:        snapshot,
		QueueDBPath:  d.cfg.QueueDatabasePath(),
		SocketPath:   d.cfg.SocketPath(),
		LockFilePath: d.lockPath,
	}
}

// SyncNow triggers a drain cycle and waits for it to complete.
func (d *Daemon) SyncNow(ctx context.Context) (syncer.Outcome, error) {
	if !d.running.Load() {
		return syncer.Outcome{}, errors.New("daemon not running")
	}
	return d.engine.DrainAndWait(ctx)
}

// ListQueue returns actions filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Action, error) {
	return d.store.List(ctx, statuses...)
}

// GetAction returns a single queued action, or nil when absent.
func (d *Daemon) GetAction(ctx context.Context, id string) (*queue.Action, error) {
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all actions.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	return d.store.Clear(ctx)
}

// ClearFailed removes only failed actions.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	return d.store.ClearFailed(ctx)
}

// RetryFailed requeues failed actions (optionally a subset) and triggers
// a drain so they replay without waiting for the next reconnect.
func (d *Daemon) RetryFailed(ctx context.Context, ids []string) (int64, error) {
	updated, err := d.store.RetryFailed(ctx, ids...)
	if err != nil {
		return 0, err
	}
	if updated > 0 && d.running.Load() {
		d.engine.TriggerDrain(d.ctx)
	}
	return updated, nil
}

// RemoveAction deletes a single action by id.
func (d *Daemon) RemoveAction(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, errors.New("action id is required")
	}
	return d.store.Remove(ctx, id)
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	return d.store.CheckHealth(ctx)
}

// CacheClear drops every cached read entry.
func (d *Daemon) CacheClear(ctx context.Context) (int64, error) {
	return d.store.CacheClear(ctx)
}

// TestNotification sends a test push via the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// pollStatus refreshes the queue snapshot on an interval. It only reads;
// draining stays the engine's job.
func (d *Daemon) pollStatus(ctx context.Context) {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Sync.StatusPollInterval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.refreshSnapshot(ctx)
		}
	}
}

func (d *Daemon) refreshSnapshot(ctx context.Context) {
	health, err := d.store.Health(ctx)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("failed to refresh queue snapshot",
				logging.Error(err),
				logging.String(logging.FieldEventType, "snapshot_refresh_failed"),
				logging.String(logging.FieldErrorHint, "check queue database health"),
				logging.String(logging.FieldImpact, "status output may be stale"),
			)
		}
		return
	}
	d.snapshotMu.Lock()
	d.snapshot = health
	d.snapshotMu.Unlock()
}
