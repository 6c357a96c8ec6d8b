package queue

import (
	"context"
	"testing"
	"time"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
)

func openOrderTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	store, err := Open(&cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return store
}

func insertActionAt(t *testing.T, store *Store, id string, enqueued time.Time) {
	t.Helper()

	_, err := store.db.ExecContext(
		context.Background(),
		`INSERT INTO actions (
            id, kind, endpoint, method, payload,
            enqueued_at, updated_at, retry_count, status, last_error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, NULL)`,
		id,
		string(KindCheckIn),
		"/members/1/checkin",
		"POST",
		nil,
		enqueued.UnixNano(),
		enqueued.UnixNano(),
		StatusPending,
	)
	if err != nil {
		t.Fatalf("insert action %s: %v", id, err)
	}
}

// Fractional seconds whose decimal renderings differ in digit count
// (.12 vs .123) sort wrong under text comparison. The integer encoding
// must keep enqueue order regardless of how the nanoseconds print.
func TestListKeepsEnqueueOrderWithinOneSecond(t *testing.T) {
	store := openOrderTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := base.Add(120 * time.Millisecond)
	second := base.Add(123 * time.Millisecond)

	insertActionAt(t, store, "first", first)
	insertActionAt(t, store, "second", second)

	actions, err := store.List(ctx, StatusPending)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].ID != "first" || actions[1].ID != "second" {
		t.Fatalf("enqueue order lost: listed %s at %s before %s at %s",
			actions[0].ID, actions[0].EnqueuedAt,
			actions[1].ID, actions[1].EnqueuedAt)
	}
	if !actions[0].EnqueuedAt.Equal(first) {
		t.Fatalf("enqueued_at did not round-trip: want %s, got %s", first, actions[0].EnqueuedAt)
	}
}

func TestPurgeSyncedComparesTimesNumerically(t *testing.T) {
	store := openOrderTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	insertActionAt(t, store, "stale", old)
	if _, err := store.db.ExecContext(ctx,
		`UPDATE actions SET status = ? WHERE id = ?`, StatusSynced, "stale"); err != nil {
		t.Fatalf("mark synced: %v", err)
	}

	purged, err := store.PurgeSynced(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("PurgeSynced failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected the stale action purged, got %d", purged)
	}
}
