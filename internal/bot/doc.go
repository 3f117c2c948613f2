// Package bot turns normalized chat events into session transitions, remux
// jobs and replies.
//
// The transport layer converts platform updates into Event values and submits
// them to a Dispatcher, which runs one user's events in order while other users
// proceed in parallel. Handler owns the interaction rules: the ban check runs
// first, input rejections leave the session untouched, and every other failure
// is reported to the user, logged with full detail and followed by removal of
// the user's staged files. Outbound traffic goes through the Messenger and
// Fetcher ports so tests can drive the whole flow without a network.
package bot
