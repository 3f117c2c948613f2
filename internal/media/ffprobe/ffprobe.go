package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"subembed/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index       int               `json:"index"`
	CodecName   string            `json:"codec_name"`
	CodecType   string            `json:"codec_type"`
	Duration    string            `json:"duration"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Channels    int               `json:"channels"`
	Tags        map[string]string `json:"tags"`
	Disposition map[string]int    `json:"disposition"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// ProbeError carries the diagnostic text of a failed ffprobe run.
type ProbeError struct {
	Path     string
	ExitCode int
	Stderr   string
	err      error
}

func (e *ProbeError) Error() string {
	msg := fmt.Sprintf("ffprobe %s exited with code %d", e.Path, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ProbeError) Unwrap() error { return e.err }

// Inspect executes ffprobe against the provided path and decodes the JSON response.
// Errors carry services markers: ErrNotFound for a missing file, ErrTimeout when
// ctx expires, ErrExternalTool for a failed run and ErrValidation for output
// that is not valid JSON.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrValidation, "ffprobe", "inspect", "empty path", nil)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, services.Wrap(services.ErrNotFound, "ffprobe", "inspect", path, err)
		}
		return Result{}, services.Wrap(services.ErrResource, "ffprobe", "inspect", path, err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, services.Wrap(services.ErrTimeout, "ffprobe", "inspect", path, ctxErr)
		}
		probeErr := &ProbeError{Path: path, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			probeErr.ExitCode = exitErr.ExitCode()
		}
		return Result{}, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", "", probeErr)
	}

	return Parse(stdout.Bytes())
}

// Parse decodes raw ffprobe JSON output.
func Parse(output []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "ffprobe", "parse", "malformed output", err)
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// StreamCounts tallies streams by codec type.
type StreamCounts struct {
	Video      int
	Audio      int
	Subtitle   int
	Data       int
	Attachment int
}

// Total returns the number of counted streams.
func (c StreamCounts) Total() int {
	return c.Video + c.Audio + c.Subtitle + c.Data + c.Attachment
}

// Counts tallies the result's streams by codec type.
func (r Result) Counts() StreamCounts {
	var counts StreamCounts
	for _, stream := range r.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			counts.Video++
		case "audio":
			counts.Audio++
		case "subtitle":
			counts.Subtitle++
		case "data":
			counts.Data++
		case "attachment":
			counts.Attachment++
		}
	}
	return counts
}

// SubtitleStreams returns only the subtitle streams in container order.
func (r Result) SubtitleStreams() []Stream {
	var out []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "subtitle") {
			out = append(out, stream)
		}
	}
	return out
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
