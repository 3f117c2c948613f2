// Package staging owns the on-disk layout of per-user working files.
//
// Every download, subtitle, and remux output is namespaced by the Telegram
// user ID so concurrent sessions never share a path. Layout.CleanUser wipes a
// single user's files after delivery, cancel, or failure, and CleanStale sweeps
// artifacts left behind by crashes.
package staging
