// Package users persists per-account bot state in SQLite: registration time,
// ban flag and reason, caption template, and thumbnail reference.
//
// Session progress is not stored here; sessions live in memory and die with
// the process. Schema changes bump schemaVersion in schema.go and
// operators move the old database aside.
package users
