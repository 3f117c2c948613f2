// Package language normalizes subtitle language codes and provides the
// selection keyboard's choices.
//
// Codes written into track metadata are 3-letter ISO 639-2 values with "und"
// for anything unknown. The small built-in table covers the keyboard; other
// codes fall back to golang.org/x/text for validation and display names.
package language
