package remux

import (
	"context"
	"log/slog"

	"subembed/internal/logging"
	"subembed/internal/media/ffprobe"
	"subembed/internal/services"
)

// StreamCounter reports a file's stream composition.
type StreamCounter interface {
	Counts(ctx context.Context, path string) (ffprobe.StreamCounts, error)
}

// Verification is the post-flight comparison of requested and produced subtitle tracks.
type Verification struct {
	Expected int
	Counts   ffprobe.StreamCounts
	// Err is set when the probe itself failed; the comparison was skipped.
	Err error
}

// Matches reports whether the probe succeeded and the subtitle count is as requested.
func (v Verification) Matches() bool {
	return v.Err == nil && v.Counts.Subtitle == v.Expected
}

// Verify probes path and compares its subtitle track count with expected.
// Neither a probe failure nor a mismatch is fatal; both are logged as warnings.
func Verify(ctx context.Context, counter StreamCounter, path string, expected int, logger *slog.Logger) Verification {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "remux"))
	v := Verification{Expected: expected}

	counts, err := counter.Counts(ctx, path)
	if err != nil {
		v.Err = err
		logging.WarnWithContext(logger, "output probe failed; skipping verification", "verify_probe_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "track counts of the delivered file are unverified"),
		)
		return v
	}
	v.Counts = counts

	if counts.Subtitle != expected {
		mismatch := services.Wrap(services.ErrVerification, "remux", "verify", "subtitle track count differs from request", nil)
		logging.WarnWithContext(logger, "subtitle track count mismatch", "verify_mismatch",
			logging.String("path", path),
			logging.Int("expected_subtitles", expected),
			logging.Int("actual_subtitles", counts.Subtitle),
			logging.Int("video_streams", counts.Video),
			logging.Int("audio_streams", counts.Audio),
			logging.Error(mismatch),
			logging.String(logging.FieldImpact, "job still delivered; some tracks may be missing"),
		)
		return v
	}

	logger.Debug("output verified",
		logging.String("path", path),
		logging.Int("subtitle_streams", counts.Subtitle),
		logging.Int("video_streams", counts.Video),
		logging.Int("audio_streams", counts.Audio),
	)
	return v
}
