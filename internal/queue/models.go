package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a queued action.
type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusSyncing,
	StatusSynced,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Kind labels the action category. Purely descriptive: replay dispatch uses
// only endpoint and method.
type Kind string

const (
	KindCheckIn        Kind = "check_in"
	KindCheckOut       Kind = "check_out"
	KindCreateMember   Kind = "create_member"
	KindCreateEvent    Kind = "create_event"
	KindEndEvent       Kind = "end_event"
	KindUpdateActivity Kind = "update_activity"
	KindOther          Kind = "other"
)

var allKinds = []Kind{
	KindCheckIn,
	KindCheckOut,
	KindCreateMember,
	KindCreateEvent,
	KindEndEvent,
	KindUpdateActivity,
	KindOther,
}

var kindSet = func() map[Kind]struct{} {
	set := make(map[Kind]struct{}, len(allKinds))
	for _, kind := range allKinds {
		set[kind] = struct{}{}
	}
	return set
}()

// Action represents a queued mutation persisted in SQLite.
type Action struct {
	ID         string
	Kind       Kind
	Endpoint   string
	Method     string
	Payload    []byte
	EnqueuedAt time.Time
	UpdatedAt  time.Time
	RetryCount int
	Status     Status
	LastError  string
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total   int
	Pending int
	Syncing int
	Synced  int
	Failed  int
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalActions     int
	Error            string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParseKind converts a string into a known Kind. Unknown values map to
// KindOther so records written by newer clients still load.
func ParseKind(value string) Kind {
	normalized := Kind(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := kindSet[normalized]; ok {
		return normalized
	}
	return KindOther
}

// SetFailed marks the action failed with a diagnostic message.
func (a *Action) SetFailed(message string) {
	a.Status = StatusFailed
	a.LastError = message
}

// IsTerminal reports whether the action will see no further automatic attempts.
func (a Action) IsTerminal() bool {
	return a.Status == StatusFailed || a.Status == StatusSynced
}

// newActionID builds a collision-resistant identifier from the enqueue time
// plus a random suffix, so rapid repeated enqueues stay unique and the id
// itself sorts roughly by age.
func newActionID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])
}
