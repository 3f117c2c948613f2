package remux

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"subembed/internal/language"
	"subembed/internal/logging"
	"subembed/internal/services"
)

// DefaultMuxQueueSize raises ffmpeg's packet queue so files with many tracks do not overflow.
const DefaultMuxQueueSize = 1024

// Options tune command construction.
type Options struct {
	Binary       string
	MuxQueueSize int
	// ProgressPipe adds "-progress pipe:1 -nostats" so the executor can parse progress.
	ProgressPipe bool
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Binary) == "" {
		o.Binary = "ffmpeg"
	}
	if o.MuxQueueSize <= 0 {
		o.MuxQueueSize = DefaultMuxQueueSize
	}
	return o
}

// NewCommand builds the ffmpeg invocation for job. It performs no I/O and is
// deterministic: equal jobs and options yield equal specs.
//
// Every original video and audio stream is copied; original subtitle streams
// are dropped and replaced by the job's subtitles in job order.
func NewCommand(job Job, opts Options) CommandSpec {
	opts = opts.withDefaults()
	kind := ContainerKindFor(job.VideoPath)
	n := len(job.SubtitlePaths)

	args := make([]string, 0, 32+n*12)
	args = append(args, "-hide_banner", "-nostdin", "-y")
	if opts.ProgressPipe {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}

	args = append(args, "-i", job.VideoPath)
	for _, sub := range job.SubtitlePaths {
		args = append(args, "-sub_charenc", "UTF-8", "-i", sub)
	}

	args = append(args, "-map", "0:v", "-map", "0:a?")
	for i := range n {
		args = append(args, "-map", strconv.Itoa(i+1)+":s")
	}

	args = append(args, "-c:v", "copy", "-c:a", "copy")
	args = append(args, subtitleCodecArgs(kind, job.SubtitlePaths)...)

	for i, sub := range job.SubtitlePaths {
		args = append(args,
			"-metadata:s:s:"+strconv.Itoa(i), "language="+trackLanguage(job.Languages, i),
			"-metadata:s:s:"+strconv.Itoa(i), "title="+trackTitle(job.Titles, i, sub),
		)
	}
	for i := range n {
		disposition := "0"
		if i == 0 {
			disposition = "default"
		}
		args = append(args, "-disposition:s:"+strconv.Itoa(i), disposition)
	}

	args = append(args, "-avoid_negative_ts", "make_zero", "-fps_mode", "passthrough")

	switch kind {
	case ContainerMP4:
		args = append(args, "-movflags", "+faststart", "-max_muxing_queue_size", strconv.Itoa(opts.MuxQueueSize))
	case ContainerMKV:
		args = append(args, "-max_muxing_queue_size", strconv.Itoa(opts.MuxQueueSize))
	}

	args = append(args, job.OutputPath)

	return CommandSpec{
		Binary:       opts.Binary,
		Args:         args,
		OutputPath:   job.OutputPath,
		ProgressPipe: opts.ProgressPipe,
	}
}

func subtitleCodecArgs(kind ContainerKind, subs []string) []string {
	switch kind {
	case ContainerMP4:
		return []string{"-c:s", "mov_text"}
	case ContainerMKV:
		out := make([]string, 0, len(subs)*2)
		for i, sub := range subs {
			codec := "srt"
			if isASS(sub) {
				codec = "ass"
			}
			out = append(out, "-c:s:"+strconv.Itoa(i), codec)
		}
		return out
	default:
		return []string{"-c:s", "srt"}
	}
}

func trackLanguage(languages []string, i int) string {
	if i < len(languages) {
		return language.Normalize(languages[i])
	}
	return language.Undefined
}

func trackTitle(titles []string, i int, sub string) string {
	if i < len(titles) {
		if title := strings.TrimSpace(titles[i]); title != "" {
			return title
		}
	}
	return subtitleStem(sub)
}

// Builder checks a job's preconditions on disk before building its command.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	return &Builder{opts: opts.withDefaults(), logger: logging.NewComponentLogger(logger, "remux")}
}

// Build resolves job paths to absolute form, verifies every input exists and
// the output directory can be created, then returns the pure command.
// Precondition failures carry ErrNotFound or ErrResource and spawn nothing.
func (b *Builder) Build(job Job) (CommandSpec, error) {
	if len(job.SubtitlePaths) == 0 {
		return CommandSpec{}, services.Wrap(services.ErrResource, "remux", "build", "at least one subtitle is required", nil)
	}
	if strings.TrimSpace(job.OutputPath) == "" {
		return CommandSpec{}, services.Wrap(services.ErrResource, "remux", "build", "output path is required", nil)
	}

	resolved := Job{
		Languages:     append([]string(nil), job.Languages...),
		Titles:        append([]string(nil), job.Titles...),
		SubtitlePaths: make([]string, len(job.SubtitlePaths)),
	}
	var err error
	if resolved.VideoPath, err = existingFile(job.VideoPath, "video"); err != nil {
		return CommandSpec{}, err
	}
	for i, sub := range job.SubtitlePaths {
		if resolved.SubtitlePaths[i], err = existingFile(sub, fmt.Sprintf("subtitle %d", i+1)); err != nil {
			return CommandSpec{}, err
		}
	}
	if resolved.OutputPath, err = filepath.Abs(job.OutputPath); err != nil {
		return CommandSpec{}, services.Wrap(services.ErrResource, "remux", "build", "resolve output path", err)
	}
	if resolved.OutputPath == resolved.VideoPath {
		return CommandSpec{}, services.Wrap(services.ErrResource, "remux", "build", "output path must differ from the source video", nil)
	}
	if err := os.MkdirAll(filepath.Dir(resolved.OutputPath), 0o755); err != nil {
		return CommandSpec{}, services.Wrap(services.ErrResource, "remux", "build", "create output directory", err)
	}

	spec := NewCommand(resolved, b.opts)
	b.logger.Debug("remux command built",
		logging.String("container", string(ContainerKindFor(resolved.VideoPath))),
		logging.Int("subtitle_count", len(resolved.SubtitlePaths)),
		logging.String("output_path", resolved.OutputPath),
		logging.String("args", strings.Join(spec.Args, " ")),
	)
	return spec, nil
}

func existingFile(path, label string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrNotFound, "remux", "build", label+" path is empty", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", services.Wrap(services.ErrResource, "remux", "build", "resolve "+label+" path", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "remux", "build", label+" not found", err)
		}
		return "", services.Wrap(services.ErrResource, "remux", "build", "stat "+label, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrResource, "remux", "build", label+" is a directory", nil)
	}
	return abs, nil
}
