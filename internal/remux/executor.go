package remux

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subembed/internal/logging"
	"subembed/internal/progress"
)

// DefaultTimeout bounds a single remux run.
const DefaultTimeout = time.Hour

// DefaultTailLines is how many stderr lines a failure keeps.
const DefaultTailLines = 20

// killGrace is how long a killed ffmpeg may keep its pipes open before Wait gives up.
const killGrace = 5 * time.Second

// Result reports a successful run.
type Result struct {
	OutputPath string
	OutputSize int64
	Elapsed    time.Duration
}

// Executor runs remux commands under a hard timeout.
type Executor struct {
	timeout   time.Duration
	tailLines int
	logger    *slog.Logger
}

// NewExecutor constructs an Executor. Non-positive values use the defaults.
func NewExecutor(timeout time.Duration, tailLines int, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if tailLines <= 0 {
		tailLines = DefaultTailLines
	}
	return &Executor{timeout: timeout, tailLines: tailLines, logger: logging.NewComponentLogger(logger, "remux")}
}

// Run executes spec. A zero exit is only a success when the output file exists.
// Failures are returned as *ExecError. reporter may be nil.
func (e *Executor) Run(ctx context.Context, spec CommandSpec, reporter progress.Reporter) (Result, error) {
	if reporter == nil {
		reporter = progress.Nop
	}
	logger := logging.WithContext(ctx, e.logger)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tail := newTailBuffer(e.tailLines)
	cmd := exec.CommandContext(runCtx, spec.Binary, spec.Args...)
	cmd.Stderr = tail
	cmd.WaitDelay = killGrace

	var stdout io.ReadCloser
	if spec.ProgressPipe {
		pipe, err := cmd.StdoutPipe()
		if err != nil {
			return Result{}, &ExecError{Kind: FailureStart, ExitCode: -1, OutputPath: spec.OutputPath, Err: err}
		}
		stdout = pipe
	}

	logger.Info("remux started",
		logging.String(logging.FieldEventType, "remux_started"),
		logging.String("output_path", spec.OutputPath),
		logging.Duration("timeout", e.timeout),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{}, &ExecError{Kind: FailureStart, ExitCode: -1, OutputPath: spec.OutputPath, Err: err}
	}
	if stdout != nil {
		readProgress(stdout, spec.Duration, reporter)
	}
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if waitErr != nil {
		execErr := &ExecError{
			Kind:       FailureExit,
			ExitCode:   -1,
			StderrTail: tail.Lines(),
			OutputPath: spec.OutputPath,
			Elapsed:    elapsed,
			Err:        waitErr,
		}
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			execErr.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			execErr.Kind = FailureTimeout
		}
		e.logFailure(logger, execErr)
		return Result{}, execErr
	}

	info, err := os.Stat(spec.OutputPath)
	if err != nil || info.IsDir() {
		execErr := &ExecError{
			Kind:       FailureMissingOutput,
			StderrTail: tail.Lines(),
			OutputPath: spec.OutputPath,
			Elapsed:    elapsed,
			Err:        err,
		}
		execErr.ParentExists, execErr.ParentWritable = parentStatus(spec.OutputPath)
		e.logFailure(logger, execErr)
		return Result{}, execErr
	}

	logger.Info("remux complete",
		logging.String(logging.FieldEventType, "remux_complete"),
		logging.String("output_path", spec.OutputPath),
		logging.Int64("output_bytes", info.Size()),
		logging.Duration("elapsed", elapsed),
	)
	return Result{OutputPath: spec.OutputPath, OutputSize: info.Size(), Elapsed: elapsed}, nil
}

func (e *Executor) logFailure(logger *slog.Logger, execErr *ExecError) {
	logging.ErrorWithContext(logger, "remux failed", "remux_failed",
		logging.String("failure_kind", execErr.ErrorKind()),
		logging.Int("exit_code", execErr.ExitCode),
		logging.String("output_path", execErr.OutputPath),
		logging.Bool("parent_exists", execErr.ParentExists),
		logging.Bool("parent_writable", execErr.ParentWritable),
		logging.Duration("elapsed", execErr.Elapsed),
		logging.String("stderr_tail", strings.Join(execErr.StderrTail, "\n")),
		logging.String(logging.FieldErrorHint, failureHint(execErr.Kind)),
	)
}

func failureHint(kind FailureKind) string {
	switch kind {
	case FailureTimeout:
		return "input may be corrupt or too large; retry with a smaller file"
	case FailureMissingOutput:
		return "check output directory permissions and free space"
	case FailureStart:
		return "check remux.ffmpeg_binary and PATH"
	default:
		return "inspect stderr_tail for the ffmpeg error"
	}
}

func parentStatus(path string) (exists, writable bool) {
	parent := filepath.Dir(path)
	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return false, false
	}
	return true, unix.Access(parent, unix.W_OK) == nil
}

// readProgress consumes ffmpeg "-progress" key=value output until EOF.
func readProgress(r io.Reader, duration time.Duration, reporter progress.Reporter) {
	total := duration.Microseconds()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok || key != "out_time_us" {
			continue
		}
		us, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || us < 0 {
			continue
		}
		reporter.Report(progress.Update{Action: "Embedding subtitles", Current: us, Total: total, Unit: progress.Microseconds})
	}
	// Drain so ffmpeg never blocks on a full pipe after a scan error.
	_, _ = io.Copy(io.Discard, r)
}
