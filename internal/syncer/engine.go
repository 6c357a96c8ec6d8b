package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
	"github.com/richardthorek/Station-Manager-sub004/internal/notifications"
	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
	"github.com/richardthorek/Station-Manager-sub004/internal/remote"
)

// Replayer executes a queued action against the server. *remote.Client
// satisfies it.
type Replayer interface {
	Do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error)
}

// Outcome summarizes one completed drain cycle. Remaining counts actions
// reverted to pending for a later cycle; Unreachable reports that at least
// one attempt hit a transport failure. ErrDetail carries the most recent
// failure description so subscribers can report what went wrong without
// re-querying the store; it is empty when every attempt succeeded.
type Outcome struct {
	Synced      int
	Failed      int
	Remaining   int
	Duration    time.Duration
	Unreachable bool
	ErrDetail   string
}

// Engine replays pending actions in enqueue order.
type Engine struct {
	store      *queue.Store
	replayer   Replayer
	notifier   notifications.Service
	logger     *slog.Logger
	retryLimit int
	grace      time.Duration

	mu          sync.Mutex
	draining    bool
	redrain     bool
	subscribers map[int]func(Outcome)
	nextSubID   int

	wg sync.WaitGroup
}

// NewEngine builds a sync engine from configuration.
func NewEngine(cfg *config.Config, store *queue.Store, replayer Replayer, notifier notifications.Service, logger *slog.Logger) *Engine {
	retryLimit := cfg.Sync.RetryLimit
	if retryLimit <= 0 {
		retryLimit = 3
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Engine{
		store:       store,
		replayer:    replayer,
		notifier:    notifier,
		logger:      logging.NewComponentLogger(logger, "syncer"),
		retryLimit:  retryLimit,
		grace:       time.Duration(cfg.Sync.GraceWindowSeconds) * time.Second,
		subscribers: make(map[int]func(Outcome)),
	}
}

// Draining reports whether a drain cycle is currently running.
func (e *Engine) Draining() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draining
}

// OnSyncComplete registers a callback invoked after every drain cycle.
// The returned function unregisters it.
func (e *Engine) OnSyncComplete(fn func(Outcome)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextSubID
	e.nextSubID++
	e.subscribers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

// TriggerDrain starts a drain cycle in the background. If one is already
// running the request is remembered and a follow-up cycle runs once the
// current one finishes. Returns true when a new cycle was started.
func (e *Engine) TriggerDrain(ctx context.Context) bool {
	e.mu.Lock()
	if e.draining {
		e.redrain = true
		e.mu.Unlock()
		return false
	}
	e.draining = true
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx)
	}()
	return true
}

// DrainAndWait triggers a drain and blocks until a cycle completes or the
// context is cancelled. When a cycle is already running, the outcome
// returned is that of the next cycle to finish.
func (e *Engine) DrainAndWait(ctx context.Context) (Outcome, error) {
	done := make(chan Outcome, 1)
	unregister := e.OnSyncComplete(func(outcome Outcome) {
		select {
		case done <- outcome:
		default:
		}
	})
	defer unregister()

	e.TriggerDrain(ctx)

	select {
	case outcome := <-done:
		return outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Wait blocks until any in-flight drain goroutine has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) run(ctx context.Context) {
	for {
		outcome := e.drainOnce(ctx)
		e.publish(ctx, outcome)

		e.mu.Lock()
		if e.redrain {
			e.redrain = false
			e.mu.Unlock()
			continue
		}
		e.draining = false
		e.mu.Unlock()
		return
	}
}

// drainOnce replays every pending action in enqueue order. One failing
// action never blocks the later ones; actions that hit a transport failure
// revert to pending and wait for a later cycle.
func (e *Engine) drainOnce(ctx context.Context) Outcome {
	start := time.Now()
	outcome := Outcome{}

	pending, err := e.store.List(ctx, queue.StatusPending)
	if err != nil {
		e.logger.Error("failed to list pending actions",
			logging.Error(err),
			logging.String(logging.FieldEventType, "drain_list_failed"),
			logging.String(logging.FieldErrorHint, "check queue database health"),
			logging.String(logging.FieldImpact, "drain cycle skipped"),
		)
		outcome.Duration = time.Since(start)
		return outcome
	}

	if len(pending) > 0 {
		e.logger.Info("drain cycle started",
			logging.String(logging.FieldEventType, "drain_started"),
			logging.Int("pending", len(pending)),
		)
	}

	for i, action := range pending {
		if ctx.Err() != nil {
			outcome.Remaining += len(pending) - i
			break
		}
		e.replay(ctx, action, &outcome)
	}

	if purged, err := e.store.PurgeSynced(ctx, e.grace); err != nil {
		e.logger.Warn("failed to purge synced actions",
			logging.Error(err),
			logging.String(logging.FieldEventType, "purge_failed"),
			logging.String(logging.FieldErrorHint, "check queue database health"),
			logging.String(logging.FieldImpact, "synced records linger until the next cycle"),
		)
	} else if purged > 0 {
		e.logger.Debug("purged synced actions",
			logging.Int64("purged", purged),
		)
	}

	outcome.Duration = time.Since(start)

	if outcome.Synced > 0 || outcome.Failed > 0 {
		e.logger.Info("drain cycle finished",
			logging.String(logging.FieldEventType, "drain_finished"),
			logging.Int("synced", outcome.Synced),
			logging.Int("failed", outcome.Failed),
			logging.Int("remaining", outcome.Remaining),
			logging.Duration("duration", outcome.Duration),
		)
	}
	return outcome
}

// replay attempts one action and records the result in outcome.
func (e *Engine) replay(ctx context.Context, action *queue.Action, outcome *Outcome) {
	action.Status = queue.StatusSyncing
	if err := e.store.Update(ctx, action); err != nil {
		e.logger.Error("failed to mark action syncing",
			logging.Error(err),
			logging.String(logging.FieldActionID, action.ID),
			logging.String(logging.FieldEventType, "action_update_failed"),
			logging.String(logging.FieldErrorHint, "check queue database health"),
			logging.String(logging.FieldImpact, "action skipped this cycle"),
		)
		return
	}

	_, err := e.replayer.Do(ctx, action.Method, action.Endpoint, action.Payload)
	switch {
	case err == nil:
		action.Status = queue.StatusSynced
		action.LastError = ""
		if updateErr := e.store.Update(ctx, action); updateErr != nil {
			e.logger.Error("failed to mark action synced",
				logging.Error(updateErr),
				logging.String(logging.FieldActionID, action.ID),
				logging.String(logging.FieldEventType, "action_update_failed"),
				logging.String(logging.FieldErrorHint, "check queue database health"),
				logging.String(logging.FieldImpact, "action may replay again"),
			)
		}
		outcome.Synced++
		e.logger.Info("action synced",
			logging.String(logging.FieldActionID, action.ID),
			logging.String(logging.FieldActionKind, string(action.Kind)),
			logging.String("endpoint", action.Endpoint),
		)

	case remote.IsRejection(err):
		// The server answered and refused: replaying identical bytes will
		// not change its mind, so the retry budget is not spent here.
		outcome.ErrDetail = err.Error()
		action.SetFailed(err.Error())
		if updateErr := e.store.Update(ctx, action); updateErr != nil {
			e.logger.Error("failed to mark action failed",
				logging.Error(updateErr),
				logging.String(logging.FieldActionID, action.ID),
				logging.String(logging.FieldEventType, "action_update_failed"),
				logging.String(logging.FieldErrorHint, "check queue database health"),
				logging.String(logging.FieldImpact, "failure not recorded"),
			)
		}
		outcome.Failed++
		e.logger.Warn("action rejected by server",
			logging.Error(err),
			logging.String(logging.FieldActionID, action.ID),
			logging.String(logging.FieldActionKind, string(action.Kind)),
			logging.String(logging.FieldEventType, "action_rejected"),
			logging.String(logging.FieldErrorHint, "inspect the payload and retry manually if appropriate"),
			logging.String(logging.FieldImpact, "action requires manual retry"),
		)
		if notifyErr := e.notifier.NotifyActionFailed(ctx, string(action.Kind), action.Endpoint, err.Error()); notifyErr != nil {
			e.logger.Debug("failure notification not delivered", logging.Error(notifyErr))
		}

	default:
		outcome.Unreachable = true
		outcome.ErrDetail = err.Error()
		action.RetryCount++
		if action.RetryCount >= e.retryLimit {
			action.SetFailed(err.Error())
			outcome.Failed++
			e.logger.Warn("action exhausted connectivity retries",
				logging.Error(err),
				logging.String(logging.FieldActionID, action.ID),
				logging.String(logging.FieldActionKind, string(action.Kind)),
				logging.Int("retry_count", action.RetryCount),
				logging.String(logging.FieldEventType, "action_retries_exhausted"),
				logging.String(logging.FieldErrorHint, "use the retry command once the server is reachable"),
				logging.String(logging.FieldImpact, "action requires manual retry"),
			)
			if notifyErr := e.notifier.NotifyActionFailed(ctx, string(action.Kind), action.Endpoint, err.Error()); notifyErr != nil {
				e.logger.Debug("failure notification not delivered", logging.Error(notifyErr))
			}
		} else {
			action.Status = queue.StatusPending
			action.LastError = err.Error()
			outcome.Remaining++
			e.logger.Info("server unreachable, action deferred",
				logging.Error(err),
				logging.String(logging.FieldActionID, action.ID),
				logging.Int("retry_count", action.RetryCount),
				logging.String(logging.FieldEventType, "action_deferred"),
			)
		}
		if updateErr := e.store.Update(ctx, action); updateErr != nil {
			e.logger.Error("failed to record connectivity failure",
				logging.Error(updateErr),
				logging.String(logging.FieldActionID, action.ID),
				logging.String(logging.FieldEventType, "action_update_failed"),
				logging.String(logging.FieldErrorHint, "check queue database health"),
				logging.String(logging.FieldImpact, "retry bookkeeping lost"),
			)
		}
	}
}

func (e *Engine) publish(ctx context.Context, outcome Outcome) {
	e.mu.Lock()
	callbacks := make([]func(Outcome), 0, len(e.subscribers))
	for _, fn := range e.subscribers {
		callbacks = append(callbacks, fn)
	}
	e.mu.Unlock()

	for _, fn := range callbacks {
		fn(outcome)
	}

	if outcome.Synced > 0 || outcome.Failed > 0 {
		if err := e.notifier.NotifySyncComplete(ctx, outcome.Synced, outcome.Failed, outcome.Duration); err != nil {
			e.logger.Debug("sync notification not delivered", logging.Error(err))
		}
	}
}
