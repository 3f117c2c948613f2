package remux

import (
	"fmt"
	"strings"
	"time"

	"subembed/internal/services"
)

// FailureKind distinguishes why a remux run failed.
type FailureKind string

const (
	// FailureExit means ffmpeg exited non-zero.
	FailureExit FailureKind = "exit"
	// FailureTimeout means the wall-clock bound expired. Callers may retry with smaller input.
	FailureTimeout FailureKind = "timeout"
	// FailureMissingOutput means ffmpeg reported success but wrote nothing at the output path.
	FailureMissingOutput FailureKind = "missing_output"
	// FailureStart means the process could not be spawned.
	FailureStart FailureKind = "start"
)

// ExecError describes a failed remux run. It matches services.ErrTimeout for
// timeouts and services.ErrExternalTool otherwise.
type ExecError struct {
	Kind       FailureKind
	ExitCode   int
	StderrTail []string
	OutputPath string
	// ParentExists and ParentWritable describe the output directory for missing_output failures.
	ParentExists   bool
	ParentWritable bool
	Elapsed        time.Duration
	Err            error
}

func (e *ExecError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case FailureTimeout:
		fmt.Fprintf(&b, "remux timed out after %s", e.Elapsed.Truncate(time.Second))
	case FailureMissingOutput:
		fmt.Fprintf(&b, "remux exited 0 but output %s is missing (parent exists=%t writable=%t)", e.OutputPath, e.ParentExists, e.ParentWritable)
	case FailureStart:
		b.WriteString("remux could not start")
	default:
		fmt.Fprintf(&b, "remux exited with code %d", e.ExitCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.StderrTail) > 0 {
		b.WriteString(": ")
		b.WriteString(e.StderrTail[len(e.StderrTail)-1])
	}
	return b.String()
}

// ErrorKind returns the failure kind as a string for logging.
func (e *ExecError) ErrorKind() string { return string(e.Kind) }

// Unwrap exposes both the services marker and the underlying cause.
func (e *ExecError) Unwrap() []error {
	marker := services.ErrExternalTool
	if e.Kind == FailureTimeout {
		marker = services.ErrTimeout
	}
	if e.Err == nil {
		return []error{marker}
	}
	return []error{marker, e.Err}
}
