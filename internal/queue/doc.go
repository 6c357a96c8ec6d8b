// Package queue persists the offline action queue and the read cache in
// SQLite.
//
// Two collections live side by side: actions awaiting replay against the
// remote API, enumerated strictly by enqueue time, and TTL-bounded cache
// entries backing read-through fallbacks. Per-record operations are atomic at
// single-row granularity; no multi-row transactions exist or are needed.
package queue
