package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"subembed/internal/logging"
	"subembed/internal/session"
)

// Deliverable is the finished file handed back to the user.
type Deliverable struct {
	Path     string
	FileName string
	Size     int64
	// AsVideo sends a native video; otherwise a generic file, echoing how the
	// source arrived.
	AsVideo   bool
	Caption   string
	Thumbnail string
}

// FormatCaption fills {file_name} and {file_size} in template.
func FormatCaption(template, fileName string, size int64) string {
	out := strings.ReplaceAll(template, "{file_name}", fileName)
	return strings.ReplaceAll(out, "{file_size}", formatMB(size))
}

func defaultCaption(tracks int, size int64, fileName string) string {
	return fmt.Sprintf("✅ Processed Successfully!\n\n📊 Subtitles: %d track(s) embedded\n📦 Size: %s\n🎬 File: %s",
		tracks, formatMB(size), fileName)
}

func (h *Handler) buildDeliverable(ctx context.Context, logger *slog.Logger, userID int64, video session.VideoDescriptor, outputPath string, size int64, tracks int) Deliverable {
	d := Deliverable{
		Path:     outputPath,
		FileName: video.Name,
		Size:     size,
		AsVideo:  !video.IsDocument,
	}

	template, err := h.users.Caption(ctx, userID)
	if err != nil {
		logging.WarnWithContext(logger, "caption lookup failed; using default caption", "caption_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the user database"),
			logging.String(logging.FieldImpact, "default caption used"),
		)
	}
	if strings.TrimSpace(template) != "" {
		d.Caption = FormatCaption(template, video.Name, size)
	} else {
		d.Caption = defaultCaption(tracks, size, video.Name)
	}

	d.Thumbnail = h.resolveThumbnail(ctx, logger, userID, video)
	return d
}

// resolveThumbnail prefers the user's saved thumbnail and falls back to the
// one the platform attached to the source video. Both are fetched into the
// staging area; an empty result sends no thumbnail.
func (h *Handler) resolveThumbnail(ctx context.Context, logger *slog.Logger, userID int64, video session.VideoDescriptor) string {
	ref, err := h.users.Thumbnail(ctx, userID)
	if err != nil {
		logger.Debug("thumbnail lookup failed", logging.Error(err))
	}
	if ref != "" {
		path := h.layout.CustomThumbPath(userID)
		_, err := h.fetcher.Fetch(ctx, ref, path, nil)
		if err == nil {
			return path
		}
		logging.WarnWithContext(logger, "custom thumbnail download failed; falling back to video thumbnail", "thumbnail_fetch_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "user can resend a photo to refresh the thumbnail"),
			logging.String(logging.FieldImpact, "video thumbnail used instead"),
		)
	}
	if video.ThumbRef == "" {
		return ""
	}
	path := h.layout.VideoThumbPath(userID)
	if _, err := h.fetcher.Fetch(ctx, video.ThumbRef, path, nil); err != nil {
		logger.Debug("video thumbnail download failed", logging.Error(err))
		return ""
	}
	return path
}
