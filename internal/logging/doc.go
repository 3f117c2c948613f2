// Package logging assembles structured slog loggers and formatting helpers used
// across subembed.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so handler code can tag log lines
// with user IDs, job IDs, and session stages. Console output is colored when it
// lands on a terminal. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
package logging
