package ipc

// ActionItem is the queue action DTO carried over IPC.
type ActionItem struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Endpoint   string `json:"endpoint"`
	Method     string `json:"method"`
	Payload    string `json:"payload"`
	EnqueuedAt string `json:"enqueued_at"`
	UpdatedAt  string `json:"updated_at"`
	RetryCount int    `json:"retry_count"`
	Status     string `json:"status"`
	LastError  string `json:"last_error"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running     bool   `json:"running"`
	PID         int    `json:"pid"`
	Online      bool   `json:"online"`
	Draining    bool   `json:"draining"`
	Total       int    `json:"total"`
	Pending     int    `json:"pending"`
	Syncing     int    `json:"syncing"`
	Synced      int    `json:"synced"`
	Failed      int    `json:"failed"`
	QueueDBPath string `json:"queue_db_path"`
	SocketPath  string `json:"socket_path"`
	LockPath    string `json:"lock_path"`
}

// SyncNowRequest triggers a drain cycle.
type SyncNowRequest struct{}

// SyncNowResponse reports the completed cycle.
type SyncNowResponse struct {
	Synced      int    `json:"synced"`
	Failed      int    `json:"failed"`
	Remaining   int    `json:"remaining"`
	DurationMS  int64  `json:"duration_ms"`
	Unreachable bool   `json:"unreachable"`
	Message     string `json:"message"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queued actions.
type QueueListResponse struct {
	Items []ActionItem `json:"items"`
}

// QueueGetRequest fetches a single action by id.
type QueueGetRequest struct {
	ID string `json:"id"`
}

// QueueGetResponse contains a single action.
type QueueGetResponse struct {
	Item ActionItem `json:"item"`
}

// QueueClearRequest removes all actions.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed actions.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed actions.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed actions.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueRetryRequest requeues failed actions. Empty list means all.
type QueueRetryRequest struct {
	IDs []string `json:"ids"`
}

// QueueRetryResponse reports number of requeued actions.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueRemoveRequest deletes a single action by id.
type QueueRemoveRequest struct {
	ID string `json:"id"`
}

// QueueRemoveResponse reports whether the action existed.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueHealthRequest fetches aggregate diagnostics.
type QueueHealthRequest struct{}

// QueueHealthResponse reports queue health information.
type QueueHealthResponse struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Syncing int `json:"syncing"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// DatabaseHealthRequest fetches detailed database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database health information.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    string   `json:"schema_version"`
	TableExists      bool     `json:"table_exists"`
	ColumnsPresent   []string `json:"columns_present"`
	MissingColumns   []string `json:"missing_columns"`
	IntegrityCheck   bool     `json:"integrity_check"`
	TotalActions     int      `json:"total_actions"`
	Error            string   `json:"error"`
}

// CacheClearRequest drops all cached read entries.
type CacheClearRequest struct{}

// CacheClearResponse reports number of removed entries.
type CacheClearResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}
