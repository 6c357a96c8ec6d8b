// Package ipc exposes daemon control over JSON-RPC on a Unix domain
// socket. The CLI is its only intended client.
package ipc
