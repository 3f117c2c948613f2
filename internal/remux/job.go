package remux

import (
	"path/filepath"
	"strings"
	"time"
)

// ContainerKind groups output containers by the subtitle codecs they accept.
type ContainerKind string

const (
	ContainerMP4   ContainerKind = "mp4"
	ContainerMKV   ContainerKind = "mkv"
	ContainerOther ContainerKind = "other"
)

// ContainerKindFor derives the container family from a file extension.
func ContainerKindFor(path string) ContainerKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".m4v":
		return ContainerMP4
	case ".mkv", ".webm":
		return ContainerMKV
	default:
		return ContainerOther
	}
}

// Job is the finalized input for one remux. Languages and Titles run parallel
// to SubtitlePaths; missing or blank entries take the defaults ("und" and the
// subtitle file stem).
type Job struct {
	VideoPath     string
	SubtitlePaths []string
	Languages     []string
	Titles        []string
	OutputPath    string
}

// CommandSpec is a fully resolved remux invocation. Nothing runs until it is
// handed to an Executor.
type CommandSpec struct {
	Binary     string
	Args       []string
	OutputPath string
	// ProgressPipe is set when Args ask ffmpeg to write progress to stdout.
	ProgressPipe bool
	// Duration of the source, when known, lets the executor report percentages.
	Duration time.Duration
}

// Argv returns the binary followed by its arguments.
func (s CommandSpec) Argv() []string {
	out := make([]string, 0, len(s.Args)+1)
	out = append(out, s.Binary)
	return append(out, s.Args...)
}

func subtitleStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isASS(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ass", ".ssa":
		return true
	}
	return false
}
