package submit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
	"github.com/richardthorek/Station-Manager-sub004/internal/remote"
)

// ErrNoCachedData reports that the server is unreachable and no cached
// copy exists for the requested key.
var ErrNoCachedData = errors.New("server unreachable and no cached data available")

// ErrQueuedWithoutResult reports that the action was queued for later sync
// but the caller supplied no placeholder to stand in for the server
// response. The queued action is identified by Result.ActionID.
var ErrQueuedWithoutResult = errors.New("action queued for later sync without a placeholder result")

// OnlineChecker exposes the connectivity state. *connectivity.Monitor
// satisfies it.
type OnlineChecker interface {
	Online() bool
	RequestProbe()
}

// DrainRequester asks the sync engine for a drain cycle. *syncer.Engine
// satisfies it.
type DrainRequester interface {
	TriggerDrain(ctx context.Context) bool
}

// Caller executes requests against the server. *remote.Client satisfies it.
type Caller interface {
	Do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error)
	Fetch(ctx context.Context, endpoint string) ([]byte, error)
}

// Result describes how a submission was handled.
type Result struct {
	// Value holds the server response body for direct submissions, or the
	// caller's placeholder for queued ones.
	Value []byte
	// Local is true when the action was queued and Value is a
	// locally-synthesized placeholder rather than a server response.
	Local bool
	// ActionID identifies the queued action when Local is true.
	ActionID string
}

// Submitter routes mutations to the server or the durable queue.
type Submitter struct {
	store          *queue.Store
	caller         Caller
	online         OnlineChecker
	drainer        DrainRequester
	logger         *slog.Logger
	drainOnEnqueue bool
}

// New builds a Submitter.
func New(cfg *config.Config, store *queue.Store, caller Caller, online OnlineChecker, drainer DrainRequester, logger *slog.Logger) *Submitter {
	return &Submitter{
		store:          store,
		caller:         caller,
		online:         online,
		drainer:        drainer,
		logger:         logging.NewComponentLogger(logger, "submit"),
		drainOnEnqueue: cfg.Sync.DrainOnEnqueue,
	}
}

// Submit sends the action to the server when reachable, queueing it
// otherwise. A direct attempt that hits a transport failure falls back to
// the queue; an application rejection propagates to the caller and is
// never queued. When an action is queued, placeholder stands in for the
// server response; with no placeholder the queued action is reported via
// ErrQueuedWithoutResult.
func (s *Submitter) Submit(ctx context.Context, kind queue.Kind, endpoint, method string, payload, placeholder []byte) (Result, error) {
	if s.online.Online() {
		value, err := s.caller.Do(ctx, method, endpoint, payload)
		switch {
		case err == nil:
			return Result{Value: value}, nil
		case remote.IsRejection(err):
			return Result{}, err
		default:
			s.logger.Info("direct submission hit transport failure, queueing",
				logging.Error(err),
				logging.String(logging.FieldActionKind, string(kind)),
				logging.String("endpoint", endpoint),
				logging.String(logging.FieldEventType, "submit_fallback_queued"),
			)
			s.online.RequestProbe()
			return s.enqueue(ctx, kind, endpoint, method, payload, placeholder, false)
		}
	}
	return s.enqueue(ctx, kind, endpoint, method, payload, placeholder, true)
}

func (s *Submitter) enqueue(ctx context.Context, kind queue.Kind, endpoint, method string, payload, placeholder []byte, offline bool) (Result, error) {
	action, err := s.store.Enqueue(ctx, kind, endpoint, method, payload)
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("action queued",
		logging.String(logging.FieldActionID, action.ID),
		logging.String(logging.FieldActionKind, string(kind)),
		logging.String("endpoint", endpoint),
		logging.Bool("offline", offline),
	)

	// An action queued while nominally online may just have raced a brief
	// outage; ask for a drain so it does not wait for the next reconnect.
	if s.drainOnEnqueue && s.drainer != nil && !offline {
		s.drainer.TriggerDrain(ctx)
	}

	result := Result{Value: placeholder, Local: true, ActionID: action.ID}
	if placeholder == nil {
		return result, ErrQueuedWithoutResult
	}
	return result, nil
}

// ReadThrough fetches the endpoint and refreshes the cache under key when
// the server is reachable. A live fetch that hits a transport failure
// falls back to the cached copy; with no cached copy the fetch error
// propagates. Offline with no cached copy reports ErrNoCachedData.
func (s *Submitter) ReadThrough(ctx context.Context, key, endpoint string, ttl time.Duration) ([]byte, bool, error) {
	var fetchErr error
	if s.online.Online() {
		value, err := s.caller.Fetch(ctx, endpoint)
		switch {
		case err == nil:
			if cacheErr := s.store.CacheSet(ctx, key, value, ttl); cacheErr != nil {
				s.logger.Warn("failed to refresh cache entry",
					logging.Error(cacheErr),
					logging.String("cache_key", key),
					logging.String(logging.FieldEventType, "cache_refresh_failed"),
					logging.String(logging.FieldErrorHint, "check queue database health"),
					logging.String(logging.FieldImpact, "stale reads until the next successful fetch"),
				)
			}
			return value, false, nil
		case remote.IsRejection(err):
			return nil, false, err
		default:
			fetchErr = err
			s.online.RequestProbe()
		}
	}

	value, ok, err := s.store.CacheGet(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if fetchErr != nil {
			return nil, false, fetchErr
		}
		return nil, false, ErrNoCachedData
	}
	return value, true, nil
}
