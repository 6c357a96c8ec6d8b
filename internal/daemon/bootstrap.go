package daemon

import (
	"fmt"
	"log/slog"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/connectivity"
	"github.com/richardthorek/Station-Manager-sub004/internal/notifications"
	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
	"github.com/richardthorek/Station-Manager-sub004/internal/remote"
	"github.com/richardthorek/Station-Manager-sub004/internal/submit"
	"github.com/richardthorek/Station-Manager-sub004/internal/syncer"
)

// Bootstrap opens the queue store and assembles a fully wired daemon.
// The caller owns the returned daemon and must Close it.
func Bootstrap(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	store, err := queue.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}

	client, err := remote.New(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build remote client: %w", err)
	}

	monitor, err := connectivity.NewMonitor(cfg, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build connectivity monitor: %w", err)
	}

	notifier := notifications.NewService(cfg)
	engine := syncer.NewEngine(cfg, store, client, notifier, logger)
	submitter := submit.New(cfg, store, client, monitor, engine, logger)

	d, err := New(cfg, store, monitor, engine, submitter, notifier, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}
