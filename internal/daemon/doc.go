// Package daemon supervises the long-running bot process.
//
// It holds a flock-based single-instance lock, runs the update poller that
// feeds the per-user dispatcher, and serves a small HTTP status page with
// health, session and staging directory figures. Stop cancels polling first,
// then lets the dispatcher drain before the lock is released.
package daemon
