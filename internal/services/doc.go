// Package services defines shared utilities consumed by the bot handler and
// the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp user IDs, session stages, and job correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and Classify which sorts
//     failures into input, resource, toolchain, and verification kinds.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the bot.
package services
