package testsupport

import (
	"context"
	"testing"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Enqueue inserts a pending action for tests using the provided store.
func Enqueue(t testing.TB, store *queue.Store, kind queue.Kind, endpoint string) *queue.Action {
	t.Helper()

	action, err := store.Enqueue(context.Background(), kind, endpoint, "POST", []byte(`{}`))
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return action
}
