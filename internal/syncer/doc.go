// Package syncer drains the durable action queue against the station
// server. Exactly one drain cycle runs at a time; triggers arriving while
// a cycle is active queue a follow-up cycle instead of overlapping, so no
// action enqueued mid-drain is stranded until the next reconnect.
package syncer
