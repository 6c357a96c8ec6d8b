package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
)

// Monitor polls a probe and tracks online state. Subscribers registered
// through OnOnline and OnOffline fire once per matching transition.
type Monitor struct {
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	online atomic.Bool

	mu          sync.Mutex
	onlineSubs  map[int]func()
	offlineSubs map[int]func()
	nextSubID   int
	netlink     *netlinkWatcher
	quit        chan struct{}
	running     bool

	poke chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithProbe replaces the default HTTP probe.
func WithProbe(probe Probe) Option {
	return func(m *Monitor) {
		if probe != nil {
			m.probe = probe
		}
	}
}

// WithInterval overrides the polling interval.
func WithInterval(interval time.Duration) Option {
	return func(m *Monitor) {
		if interval > 0 {
			m.interval = interval
		}
	}
}

// NewMonitor builds a connectivity monitor from configuration.
func NewMonitor(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Monitor, error) {
	timeout := time.Duration(cfg.Connectivity.ProbeTimeout) * time.Second
	interval := time.Duration(cfg.Connectivity.ProbeInterval) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}

	monitor := &Monitor{
		interval:    interval,
		timeout:     timeout,
		logger:      logging.NewComponentLogger(logger, "connectivity"),
		onlineSubs:  make(map[int]func()),
		offlineSubs: make(map[int]func()),
		poke:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(monitor)
	}

	if monitor.probe == nil {
		probe, err := NewHTTPProbe(cfg.Connectivity.ProbeURL, timeout)
		if err != nil {
			return nil, err
		}
		monitor.probe = probe
	}

	if cfg.Connectivity.WatchNetlink {
		monitor.netlink = newNetlinkWatcher(monitor.logger, monitor.RequestProbe)
	}

	return monitor, nil
}

// Online reports the most recently observed connectivity state.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// OnOnline registers a callback fired on each offline-to-online
// transition. The returned function unregisters it.
func (m *Monitor) OnOnline(fn func()) func() {
	return m.subscribe(m.onlineSubs, fn)
}

// OnOffline registers a callback fired on each online-to-offline
// transition. The returned function unregisters it.
func (m *Monitor) OnOffline(fn func()) func() {
	return m.subscribe(m.offlineSubs, fn)
}

func (m *Monitor) subscribe(set map[int]func(), fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++
	set[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(set, id)
	}
}

// RequestProbe asks the monitor to probe soon instead of waiting for the
// next tick. Safe to call from any goroutine; redundant requests collapse.
func (m *Monitor) RequestProbe() {
	select {
	case m.poke <- struct{}{}:
	default:
	}
}

// Start runs an immediate probe to seed the state, then begins the
// background polling loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.quit = make(chan struct{})
	m.running = true
	quit := m.quit
	m.mu.Unlock()

	m.check(ctx)

	if m.netlink != nil {
		m.netlink.Start(ctx)
	}

	m.wg.Add(1)
	go m.loop(ctx, quit)

	m.logger.Info("connectivity monitor started",
		logging.String(logging.FieldEventType, "connectivity_monitor_started"),
		logging.Duration("interval", m.interval),
		logging.Bool("online", m.Online()),
	)
	return nil
}

// Stop halts the polling loop and the netlink watcher.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	close(m.quit)
	m.quit = nil
	m.running = false
	m.mu.Unlock()

	if m.netlink != nil {
		m.netlink.Stop()
	}
	m.wg.Wait()

	m.logger.Info("connectivity monitor stopped",
		logging.String(logging.FieldEventType, "connectivity_monitor_stopped"),
	)
}

func (m *Monitor) loop(ctx context.Context, quit <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case <-ticker.C:
			m.check(ctx)
		case <-m.poke:
			m.check(ctx)
		}
	}
}

// check runs one probe and records the transition, firing subscribers
// when the server comes back.
func (m *Monitor) check(ctx context.Context) {
	probeCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	err := m.probe.Check(probeCtx)
	nowOnline := err == nil
	wasOnline := m.online.Swap(nowOnline)

	switch {
	case nowOnline && !wasOnline:
		m.logger.Info("server reachable",
			logging.String(logging.FieldEventType, "connectivity_online"),
		)
		m.fire(m.onlineSubs)
	case !nowOnline && wasOnline:
		m.logger.Warn("server unreachable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "connectivity_offline"),
			logging.String(logging.FieldErrorHint, "check network link and server availability"),
			logging.String(logging.FieldImpact, "submissions will queue locally"),
		)
		m.fire(m.offlineSubs)
	}
}

func (m *Monitor) fire(set map[int]func()) {
	m.mu.Lock()
	callbacks := make([]func(), 0, len(set))
	for _, fn := range set {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
