package bot

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"subembed/internal/logging"
)

func (h *Handler) onPhoto(ctx context.Context, logger *slog.Logger, e PhotoUpload) {
	if err := h.users.SetThumbnail(ctx, e.UserID, e.File.ID); err != nil {
		h.storeFailed(logger, "thumbnail save failed", err)
		h.reply(ctx, logger, e.Sender, msgThumbFailed)
		return
	}
	// Drop the cached copy so the next delivery fetches the new photo.
	h.removeCachedThumb(logger, e.UserID)
	logger.Info("thumbnail saved", logging.String(logging.FieldEventType, "thumbnail_saved"))
	h.reply(ctx, logger, e.Sender, msgThumbSaved)
}

func (h *Handler) onSetCaption(ctx context.Context, logger *slog.Logger, e SetCaption) {
	caption := strings.TrimSpace(e.Text)
	if caption == "" {
		h.reply(ctx, logger, e.Sender, msgCaptionUsage)
		return
	}
	if err := h.users.SetCaption(ctx, e.UserID, caption); err != nil {
		h.storeFailed(logger, "caption save failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	h.reply(ctx, logger, e.Sender, captionSavedText(caption))
}

func (h *Handler) onSeeCaption(ctx context.Context, logger *slog.Logger, e SeeCaption) {
	caption, err := h.users.Caption(ctx, e.UserID)
	if err != nil {
		h.storeFailed(logger, "caption lookup failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	if caption == "" {
		h.reply(ctx, logger, e.Sender, msgNoCaption)
		return
	}
	h.reply(ctx, logger, e.Sender, currentCaptionText(caption))
}

func (h *Handler) onDeleteCaption(ctx context.Context, logger *slog.Logger, e DeleteCaption) {
	if err := h.users.SetCaption(ctx, e.UserID, ""); err != nil {
		h.storeFailed(logger, "caption delete failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	h.reply(ctx, logger, e.Sender, msgCaptionDeleted)
}

func (h *Handler) onViewThumb(ctx context.Context, logger *slog.Logger, e ViewThumb) {
	ref, err := h.users.Thumbnail(ctx, e.UserID)
	if err != nil {
		h.storeFailed(logger, "thumbnail lookup failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	if ref == "" {
		h.reply(ctx, logger, e.Sender, msgNoThumb)
		return
	}
	if err := h.messenger.SendPhoto(ctx, e.ChatID, ref, msgThumbCaption); err != nil {
		logger.Debug("thumbnail preview failed", logging.Error(err))
		h.reply(ctx, logger, e.Sender, msgNoThumb)
	}
}

func (h *Handler) onDeleteThumb(ctx context.Context, logger *slog.Logger, e DeleteThumb) {
	if err := h.users.SetThumbnail(ctx, e.UserID, ""); err != nil {
		h.storeFailed(logger, "thumbnail delete failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	h.removeCachedThumb(logger, e.UserID)
	h.reply(ctx, logger, e.Sender, msgThumbDeleted)
}

func (h *Handler) removeCachedThumb(logger *slog.Logger, userID int64) {
	if err := os.Remove(h.layout.CustomThumbPath(userID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Debug("cached thumbnail removal failed", logging.Error(err))
	}
}

func (h *Handler) storeFailed(logger *slog.Logger, msg string, err error) {
	logging.ErrorWithContext(logger, msg, "user_store_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the user database file and disk space"),
	)
}
