// Package notifications pushes sync outcomes and errors to an ntfy topic.
// With no topic configured every call is a no-op.
package notifications
