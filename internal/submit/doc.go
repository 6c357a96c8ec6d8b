// Package submit is the facade station UI code talks to. A submission
// goes straight to the server when it is reachable and falls into the
// durable queue when it is not, so callers never block on a dead link.
// Reads go through a TTL cache backed by the same database.
package submit
