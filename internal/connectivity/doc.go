// Package connectivity tracks whether the station server is reachable.
// A Monitor probes a health endpoint on an interval, exposes the current
// state, and notifies subscribers on the offline-to-online transition so
// queued work can resume promptly. On Linux a netlink watcher nudges the
// probe whenever a network interface changes state.
package connectivity
