// Package notifications pushes operator alerts to ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. New-user and
// failure alerts can be switched off individually.
package notifications
