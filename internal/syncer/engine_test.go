package syncer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
	"github.com/richardthorek/Station-Manager-sub004/internal/notifications"
	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
	"github.com/richardthorek/Station-Manager-sub004/internal/remote"
	"github.com/richardthorek/Station-Manager-sub004/internal/syncer"
	"github.com/richardthorek/Station-Manager-sub004/internal/testsupport"
)

type fakeReplayer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	gate  chan struct{}
}

func (f *fakeReplayer) Do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, endpoint)
	if err, ok := f.fail[endpoint]; ok {
		return nil, err
	}
	return []byte(`{}`), nil
}

func (f *fakeReplayer) endpoints() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]string, len(f.calls))
	copy(cp, f.calls)
	return cp
}

func connectivityErr() error {
	return &remote.ConnectivityError{Op: "POST /x", Err: context.DeadlineExceeded}
}

func rejectionErr(status int) error {
	return &remote.RejectionError{StatusCode: status, Body: "refused"}
}

func noopNotifier(t *testing.T) notifications.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	return notifications.NewService(cfg)
}

func TestDrainReplaysInEnqueueOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	replayer := &fakeReplayer{}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	ctx := context.Background()
	testsupport.Enqueue(t, store, queue.KindCheckIn, "/first")
	time.Sleep(2 * time.Millisecond)
	testsupport.Enqueue(t, store, queue.KindCheckOut, "/second")
	time.Sleep(2 * time.Millisecond)
	testsupport.Enqueue(t, store, queue.KindCreateEvent, "/third")

	outcome, err := engine.DrainAndWait(ctx)
	if err != nil {
		t.Fatalf("DrainAndWait failed: %v", err)
	}
	if outcome.Synced != 3 || outcome.Failed != 0 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if outcome.ErrDetail != "" {
		t.Fatalf("clean cycle must not carry a failure description, got %q", outcome.ErrDetail)
	}

	calls := replayer.endpoints()
	want := []string{"/first", "/second", "/third"}
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(calls))
	}
	for i, endpoint := range want {
		if calls[i] != endpoint {
			t.Fatalf("position %d: expected %s, got %s", i, endpoint, calls[i])
		}
	}

	synced, err := store.List(ctx, queue.StatusSynced)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(synced) != 3 {
		t.Fatalf("expected 3 synced actions inside grace window, got %d", len(synced))
	}
}

func TestConnectivityFailureDefersActionWithoutBlockingDrain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	replayer := &fakeReplayer{fail: map[string]error{"/second": connectivityErr()}}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	ctx := context.Background()
	testsupport.Enqueue(t, store, queue.KindCheckIn, "/first")
	time.Sleep(2 * time.Millisecond)
	second := testsupport.Enqueue(t, store, queue.KindCheckIn, "/second")
	time.Sleep(2 * time.Millisecond)
	third := testsupport.Enqueue(t, store, queue.KindCheckIn, "/third")

	outcome, err := engine.DrainAndWait(ctx)
	if err != nil {
		t.Fatalf("DrainAndWait failed: %v", err)
	}
	if outcome.Synced != 2 {
		t.Fatalf("expected 2 synced, got %d", outcome.Synced)
	}
	if !outcome.Unreachable {
		t.Fatal("expected cycle to report a transport failure")
	}
	if outcome.Remaining != 1 {
		t.Fatalf("expected 1 remaining, got %d", outcome.Remaining)
	}
	if outcome.ErrDetail == "" {
		t.Fatal("expected the transport failure to be described in the outcome")
	}

	calls := replayer.endpoints()
	if len(calls) != 3 {
		t.Fatalf("expected all actions attempted, calls: %v", calls)
	}

	fetched, err := store.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending || fetched.RetryCount != 1 {
		t.Fatalf("expected pending with one retry recorded, got %#v", fetched)
	}

	later, err := store.GetByID(ctx, third.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if later.Status != queue.StatusSynced {
		t.Fatalf("expected later action to sync despite earlier failure, got %#v", later)
	}
}

func TestAllAttemptsFailingExhaustOverThreeDrains(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	replayer := &fakeReplayer{fail: map[string]error{
		"/a": connectivityErr(),
		"/b": connectivityErr(),
		"/c": connectivityErr(),
	}}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	ctx := context.Background()
	actions := []*queue.Action{
		testsupport.Enqueue(t, store, queue.KindCheckIn, "/a"),
		testsupport.Enqueue(t, store, queue.KindCheckIn, "/b"),
		testsupport.Enqueue(t, store, queue.KindCheckIn, "/c"),
	}

	if _, err := engine.DrainAndWait(ctx); err != nil {
		t.Fatalf("first drain failed: %v", err)
	}
	for _, action := range actions {
		fetched, err := store.GetByID(ctx, action.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Status != queue.StatusPending || fetched.RetryCount != 1 {
			t.Fatalf("after one drain: expected pending with retry 1, got %#v", fetched)
		}
	}

	for i := 0; i < 2; i++ {
		if _, err := engine.DrainAndWait(ctx); err != nil {
			t.Fatalf("drain %d failed: %v", i+2, err)
		}
	}
	for _, action := range actions {
		fetched, err := store.GetByID(ctx, action.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if fetched.Status != queue.StatusFailed || fetched.RetryCount != 3 {
			t.Fatalf("after three drains: expected failed with retry 3, got %#v", fetched)
		}
	}
}

func TestRejectionFailsActionWithoutStoppingDrain(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	replayer := &fakeReplayer{fail: map[string]error{"/first": rejectionErr(409)}}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	ctx := context.Background()
	first := testsupport.Enqueue(t, store, queue.KindCheckIn, "/first")
	time.Sleep(2 * time.Millisecond)
	testsupport.Enqueue(t, store, queue.KindCheckIn, "/second")

	outcome, err := engine.DrainAndWait(ctx)
	if err != nil {
		t.Fatalf("DrainAndWait failed: %v", err)
	}
	if outcome.Failed != 1 || outcome.Synced != 1 {
		t.Fatalf("unexpected outcome: %#v", outcome)
	}
	if outcome.Unreachable {
		t.Fatal("a rejection is not a transport failure")
	}
	if outcome.ErrDetail == "" {
		t.Fatal("expected the rejection to be described in the outcome")
	}

	fetched, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", fetched.Status)
	}
	if fetched.RetryCount != 0 {
		t.Fatalf("rejection must not consume the retry budget, got %d", fetched.RetryCount)
	}
	if fetched.LastError == "" {
		t.Fatal("expected rejection reason to be recorded")
	}
}

func TestConnectivityRetriesExhaustToFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRetryLimit(2))
	store := testsupport.MustOpenStore(t, cfg)
	replayer := &fakeReplayer{fail: map[string]error{"/only": connectivityErr()}}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	ctx := context.Background()
	action := testsupport.Enqueue(t, store, queue.KindCheckIn, "/only")

	for i := 0; i < 2; i++ {
		if _, err := engine.DrainAndWait(ctx); err != nil {
			t.Fatalf("drain %d failed: %v", i, err)
		}
	}

	fetched, err := store.GetByID(ctx, action.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("expected failed after exhausting retries, got %s", fetched.Status)
	}
	if fetched.RetryCount != 2 {
		t.Fatalf("expected retry count 2, got %d", fetched.RetryCount)
	}
}

func TestTriggerDrainIsSingleFlight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	gate := make(chan struct{})
	replayer := &fakeReplayer{gate: gate}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	testsupport.Enqueue(t, store, queue.KindCheckIn, "/slow")

	ctx := context.Background()
	if !engine.TriggerDrain(ctx) {
		t.Fatal("expected first trigger to start a cycle")
	}
	// Let the cycle reach the blocked replayer.
	time.Sleep(20 * time.Millisecond)
	if engine.TriggerDrain(ctx) {
		t.Fatal("expected second trigger to coalesce into the running cycle")
	}

	close(gate)
	engine.Wait()
}

func TestTriggerDuringDrainQueuesFollowUpCycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	gate := make(chan struct{})
	replayer := &fakeReplayer{gate: gate}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	var mu sync.Mutex
	var outcomes []syncer.Outcome
	defer engine.OnSyncComplete(func(outcome syncer.Outcome) {
		mu.Lock()
		outcomes = append(outcomes, outcome)
		mu.Unlock()
	})()

	testsupport.Enqueue(t, store, queue.KindCheckIn, "/first")

	ctx := context.Background()
	engine.TriggerDrain(ctx)
	time.Sleep(20 * time.Millisecond)

	// Enqueued after the running cycle captured its snapshot.
	testsupport.Enqueue(t, store, queue.KindCheckIn, "/late")
	engine.TriggerDrain(ctx)

	close(gate)
	engine.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 2 {
		t.Fatalf("expected a follow-up cycle, got %d outcomes", len(outcomes))
	}

	remaining, err := store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected no stranded pending actions, got %d", len(remaining))
	}
}

func TestDrainPurgesSyncedBeyondGraceWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithGraceWindow(0))
	store := testsupport.MustOpenStore(t, cfg)
	replayer := &fakeReplayer{}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	testsupport.Enqueue(t, store, queue.KindCheckIn, "/gone")

	if _, err := engine.DrainAndWait(context.Background()); err != nil {
		t.Fatalf("DrainAndWait failed: %v", err)
	}

	all, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected synced action purged with zero grace, got %d", len(all))
	}
}

func TestDrainWithEmptyQueueCompletesQuietly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	replayer := &fakeReplayer{}
	engine := syncer.NewEngine(cfg, store, replayer, noopNotifier(t), logging.NewNop())

	outcome, err := engine.DrainAndWait(context.Background())
	if err != nil {
		t.Fatalf("DrainAndWait failed: %v", err)
	}
	if outcome.Synced != 0 || outcome.Failed != 0 || outcome.Unreachable {
		t.Fatalf("unexpected outcome for empty queue: %#v", outcome)
	}
	if len(replayer.endpoints()) != 0 {
		t.Fatal("expected no replay calls for empty queue")
	}
}
