package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
	"github.com/richardthorek/Station-Manager-sub004/internal/logging"
)

// Store manages queue and cache persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open initializes or connects to the queue database and applies migrations.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.QueueDatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   dbPath,
		logger: logging.NewComponentLogger(logger, "queue"),
	}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Enqueue inserts a new pending action and returns the stored record.
func (s *Store) Enqueue(ctx context.Context, kind Kind, endpoint, method string, payload []byte) (*Action, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, errors.New("method is required")
	}

	// Timestamps are stored as unix nanoseconds so ORDER BY enqueued_at
	// compares numerically; a text encoding would sort same-second
	// enqueues by string shape instead of by time.
	now := time.Now().UTC()
	timestamp := now.UnixNano()
	id := newActionID(now)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO actions (
            id, kind, endpoint, method, payload,
            enqueued_at, updated_at, retry_count, status, last_error
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		string(ParseKind(string(kind))),
		endpoint,
		method,
		payload,
		timestamp,
		timestamp,
		0,
		StatusPending,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert action: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an action by identifier. Returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Action, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM actions WHERE id = ?`, id)
	action, err := scanAction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	return action, nil
}

// List returns actions filtered by status set (or all actions when no status
// is provided), ordered by enqueue time ascending.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Action, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + actionColumns + ` FROM actions`
	orderClause := ` ORDER BY enqueued_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

// ListByStatus returns actions matching a single status ordered by enqueue time.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Action, error) {
	return s.List(ctx, status)
}

// Update persists the mutable fields of an existing action. An unknown id is
// logged and ignored: a record that vanished mid-cycle must never abort a
// drain.
func (s *Store) Update(ctx context.Context, action *Action) error {
	if action == nil {
		return errors.New("action is nil")
	}
	action.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE actions
         SET kind = ?, endpoint = ?, method = ?, payload = ?,
             updated_at = ?, retry_count = ?, status = ?, last_error = ?
         WHERE id = ?`,
		string(action.Kind),
		action.Endpoint,
		action.Method,
		action.Payload,
		action.UpdatedAt.UnixNano(),
		action.RetryCount,
		action.Status,
		nullableString(action.LastError),
		action.ID,
	)
	if err != nil {
		return fmt.Errorf("update action: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		s.logger.Warn("update for unknown action ignored",
			logging.String(logging.FieldActionID, action.ID),
			logging.String(logging.FieldEventType, "action_update_missing"),
			logging.String(logging.FieldErrorHint, "record was removed concurrently; no action needed"),
			logging.String(logging.FieldImpact, "update dropped"),
		)
	}
	return nil
}

// Remove deletes an action by identifier. Idempotent: removing an absent id
// is not an error.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete action: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// PurgeSynced deletes synced actions whose last update is older than the
// grace window, leaving recent ones enumerable for status surfaces.
func (s *Store) PurgeSynced(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-grace)
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM actions WHERE status = ? AND updated_at < ?`,
		StatusSynced,
		cutoff.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("purge synced actions: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed actions back to pending for another drain pass.
// With no ids, every failed action is requeued.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	timestamp := time.Now().UTC().UnixNano()
	if len(ids) == 0 {
		res, err := s.db.ExecContext(
			ctx,
			`UPDATE actions
            SET status = ?, retry_count = 0, last_error = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			timestamp,
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed actions: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, timestamp)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE actions
        SET status = ?, retry_count = 0, last_error = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected actions: %w", err)
	}
	return res.RowsAffected()
}

// ResetStuckSyncing returns actions left in syncing by a crashed process back
// to pending. Run once at daemon start before the first drain.
func (s *Store) ResetStuckSyncing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE actions SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().UnixNano(),
		StatusSyncing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck actions: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all actions from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed actions from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of actions grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM actions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusSyncing:
			health.Syncing += count
		case StatusSynced:
			health.Synced += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

const actionColumns = "id, kind, endpoint, method, payload, enqueued_at, updated_at, retry_count, status, last_error"

func scanAction(scanner interface{ Scan(dest ...any) error }) (*Action, error) {
	var (
		id          string
		kindStr     string
		endpoint    string
		method      string
		payload     []byte
		enqueuedRaw int64
		updatedRaw  int64
		retryCount  int
		statusStr   string
		lastError   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kindStr,
		&endpoint,
		&method,
		&payload,
		&enqueuedRaw,
		&updatedRaw,
		&retryCount,
		&statusStr,
		&lastError,
	); err != nil {
		return nil, err
	}

	return &Action{
		ID:         id,
		Kind:       ParseKind(kindStr),
		Endpoint:   endpoint,
		Method:     method,
		Payload:    payload,
		EnqueuedAt: time.Unix(0, enqueuedRaw).UTC(),
		UpdatedAt:  time.Unix(0, updatedRaw).UTC(),
		RetryCount: retryCount,
		Status:     Status(statusStr),
		LastError:  lastError.String,
	}, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
