package ffprobe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"subembed/internal/logging"
)

// DefaultTimeout bounds a single metadata-only probe.
const DefaultTimeout = 30 * time.Second

// Inspector runs bounded ffprobe queries and logs failures with their diagnostics.
type Inspector struct {
	binary  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewInspector constructs an Inspector. A non-positive timeout uses DefaultTimeout.
func NewInspector(binary string, timeout time.Duration, logger *slog.Logger) *Inspector {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Inspector{
		binary:  binary,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "ffprobe"),
	}
}

// Probe returns the full ffprobe result for path.
func (i *Inspector) Probe(ctx context.Context, path string) (Result, error) {
	probeCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	result, err := Inspect(probeCtx, i.binary, path)
	if err != nil {
		attrs := []logging.Attr{
			logging.String("path", path),
			logging.Duration("timeout", i.timeout),
			logging.Error(err),
		}
		var probeErr *ProbeError
		if errors.As(err, &probeErr) {
			attrs = append(attrs, logging.Int("exit_code", probeErr.ExitCode), logging.String("stderr", probeErr.Stderr))
		}
		logging.WithContext(ctx, i.logger).Debug("ffprobe failed", logging.Args(attrs...)...)
		return Result{}, err
	}
	return result, nil
}

// Counts returns the stream composition of path.
func (i *Inspector) Counts(ctx context.Context, path string) (StreamCounts, error) {
	result, err := i.Probe(ctx, path)
	if err != nil {
		return StreamCounts{}, err
	}
	return result.Counts(), nil
}
