// Package daemon wires the queue store, connectivity monitor, and sync
// engine into a single long-running process guarded by a file lock so
// only one instance ever owns the queue database.
package daemon
