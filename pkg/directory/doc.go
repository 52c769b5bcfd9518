// Package directory maintains the in-memory directory of known
// configuration repositories and the backend health flag.
//
// Two background loops keep the state current: a health probe on a
// short interval and a repository listing refresh on a longer one. The
// first compute of each happens eagerly at startup so the process never
// serves an empty directory merely because no tick has fired yet.
// Mutating operations trigger one additional fire-and-forget refresh so
// a freshly bootstrapped repository shows up without waiting for the
// next tick.
//
// When a snapshot path is configured, the last good listing is
// persisted to SQLite and restored on startup; restored data is marked
// stale until the first live refresh succeeds.
package directory
