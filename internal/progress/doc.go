// Package progress carries progress updates from downloads, uploads, and
// remux runs to whatever displays them, at a bounded rate.
package progress
