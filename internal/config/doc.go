// Package config loads, normalizes, and validates subembed configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BOT_TOKEN, ADMINS, LOG_CHANNEL and PORT. The Config type centralizes every
// knob the bot daemon and CLI need: working directories, Telegram credentials,
// ffmpeg/ffprobe settings and timeouts, upload limits, and the status page.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
