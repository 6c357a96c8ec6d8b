// Package remote wraps the station server HTTP API. It distinguishes
// transport failures, which are retryable, from application rejections,
// which are not, so callers can decide whether an action should stay in
// the queue or be marked failed.
package remote
