package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/richardthorek/Station-Manager-sub004/internal/config"
)

const userAgent = "Station-Go/0.1.0"

// Service defines the notification surface exposed to the sync engine and
// daemon components.
type Service interface {
	NotifySyncComplete(ctx context.Context, synced, failed int, duration time.Duration) error
	NotifyActionFailed(ctx context.Context, kind, endpoint, reason string) error
	NotifyOffline(ctx context.Context, pending int) error
	NotifyOnline(ctx context.Context) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		syncOutcomes: cfg.Notifications.SyncOutcomes,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	syncOutcomes bool
	errors       bool
}

func (n *ntfyService) NotifySyncComplete(ctx context.Context, synced, failed int, duration time.Duration) error {
	if !n.syncOutcomes {
		return nil
	}

	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Station - Sync Complete"
		message = fmt.Sprintf("Sync complete: %d actions replayed in %s", synced, durationText)
	} else {
		title = "Station - Sync Complete (with errors)"
		message = fmt.Sprintf("Sync complete: %d succeeded, %d failed in %s", synced, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"station", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyActionFailed(ctx context.Context, kind, endpoint, reason string) error {
	if !n.errors {
		return nil
	}

	kind = strings.TrimSpace(kind)
	endpoint = strings.TrimSpace(endpoint)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}

	data := payload{
		title:    "Station - Action Failed",
		message:  fmt.Sprintf("Action %s (%s) failed: %s\nManual retry required", kind, endpoint, reason),
		tags:     []string{"station", "action", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyOffline(ctx context.Context, pending int) error {
	if !n.syncOutcomes {
		return nil
	}

	data := payload{
		title:   "Station - Offline",
		message: fmt.Sprintf("Server unreachable, queueing locally (%d pending)", pending),
		tags:    []string{"station", "connectivity", "offline"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyOnline(ctx context.Context) error {
	if !n.syncOutcomes {
		return nil
	}

	data := payload{
		title:   "Station - Online",
		message: "Server reachable again, draining queued actions",
		tags:    []string{"station", "connectivity", "online"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}

	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Station - Error",
		message:  builder.String(),
		tags:     []string{"station", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Station - Test",
		message:  "Notification system test",
		tags:     []string{"station", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySyncComplete(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyActionFailed(context.Context, string, string, string) error  { return nil }
func (noopService) NotifyOffline(context.Context, int) error                          { return nil }
func (noopService) NotifyOnline(context.Context) error                                { return nil }
func (noopService) NotifyError(context.Context, error, string) error                  { return nil }
func (noopService) TestNotification(context.Context) error                            { return nil }
