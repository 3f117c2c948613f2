// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - StreamCounts: per codec type stream tallies used for remux verification
//   - Inspector: bounded probe runner with failure logging
//
// Failures are tagged with services markers so callers can classify them;
// the bot degrades every probe failure to a warning.
package ffprobe
