// Package logging builds the slog loggers used across the daemon and CLI.
//
// It provides JSON and console handlers selected by configuration, attribute
// helper functions so call sites stay terse, standardized field keys for
// cross-cutting concerns (component, event_type, error_hint), and a no-op
// logger for tests.
package logging
