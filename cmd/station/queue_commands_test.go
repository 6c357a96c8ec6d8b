package main

import (
	"context"
	"testing"

	"github.com/richardthorek/Station-Manager-sub004/internal/queue"
	"github.com/richardthorek/Station-Manager-sub004/internal/testsupport"
)

func TestQueueListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	action := testsupport.Enqueue(t, env.store, queue.KindCheckIn, "/members/1/checkin")
	testsupport.Enqueue(t, env.store, queue.KindUpdateActivity, "/activities")

	out, _, err := runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Check In")
	requireContains(t, out, "Update Activity")
	requireContains(t, out, "POST /activities")

	out, _, err = runCLI(t, []string{"queue", "show", action.ID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, action.ID)
	requireContains(t, out, "pending")

	_, _, err = runCLI(t, []string{"queue", "show", "no-such-id"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown action id")
	}
}

func TestQueueListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueClearAndRemove(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	keep := testsupport.Enqueue(t, env.store, queue.KindCheckIn, "/keep")
	failed := testsupport.Enqueue(t, env.store, queue.KindCheckIn, "/failed")
	failed.SetFailed("server said no")
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "clear", "--failed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear --failed: %v", err)
	}
	requireContains(t, out, "Removed 1 actions")

	out, _, err = runCLI(t, []string{"queue", "remove", keep.ID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Action removed")

	_, _, err = runCLI(t, []string{"queue", "remove", keep.ID}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error removing an already removed action")
	}
}

func TestQueueRetryRequeuesFailed(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	failed := testsupport.Enqueue(t, env.store, queue.KindCheckIn, "/failed")
	failed.SetFailed("server said no")
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out, _, err := runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, out, "Requeued 1 actions")

	out, _, err = runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry (empty): %v", err)
	}
	requireContains(t, out, "No failed actions to retry")
}

func TestQueueHealthReportsDatabase(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.Enqueue(t, env.store, queue.KindCheckIn, "/members/1/checkin")

	out, _, err := runCLI(t, []string{"queue", "health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "Queue")
	requireContains(t, out, "Database")
	requireContains(t, out, "pending")
}

func TestShortID(t *testing.T) {
	if got := shortID("0e8dedc2-9c94-4f34-8a58-5f3642f2aee1"); got != "0e8dedc2" {
		t.Fatalf("shortID returned %q", got)
	}
	if got := shortID("plain"); got != "plain" {
		t.Fatalf("shortID returned %q", got)
	}
}

func TestKindLabel(t *testing.T) {
	cases := map[string]string{
		"check_in":        "Check In",
		"update_activity": "Update Activity",
		"other":           "Other",
	}
	for kind, want := range cases {
		if got := kindLabel(kind); got != want {
			t.Fatalf("kindLabel(%q) = %q, want %q", kind, got, want)
		}
	}
}
