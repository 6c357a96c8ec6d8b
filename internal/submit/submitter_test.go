package submit_test

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
	"github.com/richardthorek/Station-Manager-sub004/internal/remote"
	"github.com/richardthorek/Station-Manager-sub004/internal/submit"
	"github.com/richardthorek/Station-Manager-sub004/internal/testsupport"
)

type fakeOnline struct {
	online atomic.Bool
	probes atomic.Int32
}

func (f *fakeOnline) Online() bool  { return f.online.Load() }
func (f *fakeOnline) RequestProbe() { f.probes.Add(1) }

type fakeDrainer struct {
	triggers atomic.Int32
}

func (f *fakeDrainer) TriggerDrain(context.Context) bool {
	f.triggers.Add(1)
	return true
}

type fakeCaller struct {
	doErr    error
	doBody   []byte
	fetchErr error
	body     []byte
	calls    atomic.Int32
}

func (f *fakeCaller) Do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	f.calls.Add(1)
	if f.doErr != nil {
		return nil, f.doErr
	}
	return f.doBody, nil
}

func (f *fakeCaller) Fetch(ctx context.Context, endpoint string) ([]byte, error) {
	f.calls.Add(1)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.body, nil
}

func newSubmitter(t *testing.T, caller *fakeCaller, online *fakeOnline, drainer *fakeDrainer) (*submit.Submitter, *queue.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return submit.New(cfg, store, caller, online, drainer, logging.NewNop()), store
}

func TestSubmitDirectWhenOnline(t *testing.T) {
	online := &fakeOnline{}
	online.online.Store(true)
	caller := &fakeCaller{doBody: []byte(`{"id":1}`)}
	drainer := &fakeDrainer{}
	submitter, store := newSubmitter(t, caller, online, drainer)

	result, err := submitter.Submit(context.Background(), queue.KindCheckIn, "/members/1/checkin", "POST", []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.Local {
		t.Fatal("expected direct submission, got queued result")
	}
	if !bytes.Equal(result.Value, []byte(`{"id":1}`)) {
		t.Fatalf("unexpected response value: %s", result.Value)
	}

	pending, err := store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue after direct submission, got %d", len(pending))
	}
}

func TestSubmitQueuesWhenOffline(t *testing.T) {
	online := &fakeOnline{}
	caller := &fakeCaller{}
	drainer := &fakeDrainer{}
	submitter, store := newSubmitter(t, caller, online, drainer)

	placeholder := []byte(`{"id":"local"}`)
	result, err := submitter.Submit(context.Background(), queue.KindCheckIn, "/members/1/checkin", "POST", []byte(`{}`), placeholder)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.Local || result.ActionID == "" {
		t.Fatalf("expected queued result, got %#v", result)
	}
	if !bytes.Equal(result.Value, placeholder) {
		t.Fatalf("expected placeholder value, got %s", result.Value)
	}
	if caller.calls.Load() != 0 {
		t.Fatal("offline submission must not hit the server")
	}

	action, err := store.GetByID(context.Background(), result.ActionID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if action == nil || action.Status != queue.StatusPending {
		t.Fatalf("expected pending queued action, got %#v", action)
	}
	if drainer.triggers.Load() != 0 {
		t.Fatal("offline enqueue must not trigger a drain")
	}
}

func TestSubmitWithoutPlaceholderReportsQueuedAction(t *testing.T) {
	online := &fakeOnline{}
	caller := &fakeCaller{}
	submitter, store := newSubmitter(t, caller, online, &fakeDrainer{})

	result, err := submitter.Submit(context.Background(), queue.KindCheckIn, "/members/1/checkin", "POST", []byte(`{}`), nil)
	if err != submit.ErrQueuedWithoutResult {
		t.Fatalf("expected ErrQueuedWithoutResult, got %v", err)
	}
	if !result.Local || result.ActionID == "" {
		t.Fatalf("expected queued action reference, got %#v", result)
	}

	action, getErr := store.GetByID(context.Background(), result.ActionID)
	if getErr != nil {
		t.Fatalf("GetByID failed: %v", getErr)
	}
	if action == nil || action.Status != queue.StatusPending {
		t.Fatal("expected the action to be queued despite the missing placeholder")
	}
}

func TestSubmitFallsBackToQueueOnTransportFailure(t *testing.T) {
	online := &fakeOnline{}
	online.online.Store(true)
	caller := &fakeCaller{doErr: &remote.ConnectivityError{Op: "POST /x", Err: context.DeadlineExceeded}}
	drainer := &fakeDrainer{}
	submitter, store := newSubmitter(t, caller, online, drainer)

	result, err := submitter.Submit(context.Background(), queue.KindCheckOut, "/members/2/checkout", "POST", nil, []byte(`{}`))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.Local {
		t.Fatal("expected fallback to queue")
	}
	if online.probes.Load() == 0 {
		t.Fatal("expected a probe request after transport failure")
	}
	if drainer.triggers.Load() == 0 {
		t.Fatal("expected a drain trigger for the fallback enqueue")
	}

	pending, err := store.List(context.Background(), queue.StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one queued action, got %d", len(pending))
	}
}

func TestSubmitPropagatesRejectionWithoutQueueing(t *testing.T) {
	online := &fakeOnline{}
	online.online.Store(true)
	caller := &fakeCaller{doErr: &remote.RejectionError{StatusCode: 422, Body: "invalid member"}}
	drainer := &fakeDrainer{}
	submitter, store := newSubmitter(t, caller, online, drainer)

	_, err := submitter.Submit(context.Background(), queue.KindCreateMember, "/members", "POST", []byte(`{}`), nil)
	if err == nil {
		t.Fatal("expected rejection to propagate")
	}
	if !remote.IsRejection(err) {
		t.Fatalf("expected rejection error, got %T: %v", err, err)
	}

	all, listErr := store.List(context.Background())
	if listErr != nil {
		t.Fatalf("List failed: %v", listErr)
	}
	if len(all) != 0 {
		t.Fatal("rejected submission must not be queued")
	}
}

func TestReadThroughFetchesAndCaches(t *testing.T) {
	online := &fakeOnline{}
	online.online.Store(true)
	caller := &fakeCaller{body: []byte(`[{"id":1}]`)}
	submitter, store := newSubmitter(t, caller, online, &fakeDrainer{})

	ctx := context.Background()
	value, cached, err := submitter.ReadThrough(ctx, "activities", "/activities", time.Minute)
	if err != nil {
		t.Fatalf("ReadThrough failed: %v", err)
	}
	if cached {
		t.Fatal("fresh fetch must not report cached")
	}
	if !bytes.Equal(value, []byte(`[{"id":1}]`)) {
		t.Fatalf("unexpected value: %s", value)
	}

	stored, ok, err := store.CacheGet(ctx, "activities")
	if err != nil {
		t.Fatalf("CacheGet failed: %v", err)
	}
	if !ok || !bytes.Equal(stored, value) {
		t.Fatal("expected fetched value to be cached")
	}
}

func TestReadThroughServesCacheWhenOffline(t *testing.T) {
	online := &fakeOnline{}
	caller := &fakeCaller{}
	submitter, store := newSubmitter(t, caller, online, &fakeDrainer{})

	ctx := context.Background()
	if err := store.CacheSet(ctx, "activities", []byte(`[{"id":9}]`), time.Minute); err != nil {
		t.Fatalf("CacheSet failed: %v", err)
	}

	value, cached, err := submitter.ReadThrough(ctx, "activities", "/activities", time.Minute)
	if err != nil {
		t.Fatalf("ReadThrough failed: %v", err)
	}
	if !cached {
		t.Fatal("expected cached flag when served from cache")
	}
	if !bytes.Equal(value, []byte(`[{"id":9}]`)) {
		t.Fatalf("unexpected cached value: %s", value)
	}
	if caller.calls.Load() != 0 {
		t.Fatal("offline read must not hit the server")
	}
}

func TestReadThroughFallsBackToCacheOnTransportFailure(t *testing.T) {
	online := &fakeOnline{}
	online.online.Store(true)
	caller := &fakeCaller{fetchErr: &remote.ConnectivityError{Op: "GET /activities", Err: context.DeadlineExceeded}}
	submitter, store := newSubmitter(t, caller, online, &fakeDrainer{})

	ctx := context.Background()
	if err := store.CacheSet(ctx, "activities", []byte(`[]`), time.Minute); err != nil {
		t.Fatalf("CacheSet failed: %v", err)
	}

	value, cached, err := submitter.ReadThrough(ctx, "activities", "/activities", time.Minute)
	if err != nil {
		t.Fatalf("ReadThrough failed: %v", err)
	}
	if !cached || !bytes.Equal(value, []byte(`[]`)) {
		t.Fatalf("expected cached fallback, got cached=%v value=%s", cached, value)
	}
	if online.probes.Load() == 0 {
		t.Fatal("expected a probe request after fetch failure")
	}
}

func TestReadThroughPropagatesTransportFailureWhenCacheEmpty(t *testing.T) {
	online := &fakeOnline{}
	online.online.Store(true)
	caller := &fakeCaller{fetchErr: &remote.ConnectivityError{Op: "GET /events", Err: context.DeadlineExceeded}}
	submitter, _ := newSubmitter(t, caller, online, &fakeDrainer{})

	_, _, err := submitter.ReadThrough(context.Background(), "events", "/events", time.Minute)
	if err == submit.ErrNoCachedData {
		t.Fatal("a failed live fetch must surface the fetch error, not the offline miss")
	}
	if !remote.IsConnectivity(err) {
		t.Fatalf("expected the transport failure to propagate, got %v", err)
	}
	if online.probes.Load() == 0 {
		t.Fatal("expected a probe request after fetch failure")
	}
}

func TestReadThroughReportsNoCachedData(t *testing.T) {
	online := &fakeOnline{}
	caller := &fakeCaller{}
	submitter, _ := newSubmitter(t, caller, online, &fakeDrainer{})

	_, _, err := submitter.ReadThrough(context.Background(), "events", "/events", time.Minute)
	if err != submit.ErrNoCachedData {
		t.Fatalf("expected ErrNoCachedData, got %v", err)
	}
}

func TestReadThroughPropagatesRejection(t *testing.T) {
	online := &fakeOnline{}
	online.online.Store(true)
	caller := &fakeCaller{fetchErr: &remote.RejectionError{StatusCode: 403, Body: "forbidden"}}
	submitter, _ := newSubmitter(t, caller, online, &fakeDrainer{})

	_, _, err := submitter.ReadThrough(context.Background(), "events", "/events", time.Minute)
	if !remote.IsRejection(err) {
		t.Fatalf("expected rejection error, got %v", err)
	}
}
