package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"subembed/internal/logging"
)

func (h *Handler) isAdmin(userID int64) bool {
	_, ok := h.admins[userID]
	return ok
}

// onAdmin runs an admin command. Non-admins get no reply so the commands
// stay undiscoverable.
func (h *Handler) onAdmin(ctx context.Context, logger *slog.Logger, ev Event) {
	from := ev.Origin()
	if !h.isAdmin(from.UserID) {
		logger.Debug("admin command from non-admin ignored")
		return
	}
	switch e := ev.(type) {
	case ListUsers:
		stats, err := h.users.Count(ctx)
		if err != nil {
			h.storeFailed(logger, "user count failed", err)
			h.reply(ctx, logger, from, msgStoreFailed)
			return
		}
		h.reply(ctx, logger, from, usersText(stats.Total, stats.Banned))
	case Ban:
		h.onBan(ctx, logger, e)
	case Unban:
		h.onUnban(ctx, logger, e)
	case Broadcast:
		h.onBroadcast(ctx, logger, e)
	}
}

// parseTarget splits "<id> [rest]".
func parseTarget(args string) (int64, string, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return id, strings.Join(fields[1:], " "), true
}

func (h *Handler) onBan(ctx context.Context, logger *slog.Logger, e Ban) {
	if strings.TrimSpace(e.Args) == "" {
		h.reply(ctx, logger, e.Sender, msgBanUsage)
		return
	}
	target, reason, ok := parseTarget(e.Args)
	if !ok {
		h.reply(ctx, logger, e.Sender, msgInvalidUserID)
		return
	}
	if reason == "" {
		reason = defaultBanReason
	}
	if err := h.users.Ban(ctx, target, reason); err != nil {
		h.storeFailed(logger, "ban failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	logger.Info("user banned",
		logging.String(logging.FieldEventType, "user_banned"),
		logging.Int64("target_user", target),
		logging.String("reason", reason),
	)
	h.reply(ctx, logger, e.Sender, banDoneText(target, reason))
	if _, err := h.messenger.Send(ctx, target, bannedNotice(reason), nil); err != nil {
		logger.Debug("ban notice not delivered", logging.Int64("target_user", target), logging.Error(err))
	}
}

func (h *Handler) onUnban(ctx context.Context, logger *slog.Logger, e Unban) {
	if strings.TrimSpace(e.Args) == "" {
		h.reply(ctx, logger, e.Sender, msgUnbanUsage)
		return
	}
	target, _, ok := parseTarget(e.Args)
	if !ok {
		h.reply(ctx, logger, e.Sender, msgInvalidUserID)
		return
	}
	wasBanned, err := h.users.Unban(ctx, target)
	if err != nil {
		h.storeFailed(logger, "unban failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	h.reply(ctx, logger, e.Sender, unbanDoneText(target, wasBanned))
	if !wasBanned {
		return
	}
	logger.Info("user unbanned",
		logging.String(logging.FieldEventType, "user_unbanned"),
		logging.Int64("target_user", target),
	)
	if _, err := h.messenger.Send(ctx, target, msgUnbannedNotice, nil); err != nil {
		logger.Debug("unban notice not delivered", logging.Int64("target_user", target), logging.Error(err))
	}
}

func (h *Handler) onBroadcast(ctx context.Context, logger *slog.Logger, e Broadcast) {
	if e.ReplyTo == 0 {
		h.reply(ctx, logger, e.Sender, msgBroadcastUsage)
		return
	}
	ids, err := h.users.IDs(ctx)
	if err != nil {
		h.storeFailed(logger, "broadcast recipient lookup failed", err)
		h.reply(ctx, logger, e.Sender, msgStoreFailed)
		return
	}
	statusID := h.reply(ctx, logger, e.Sender, msgBroadcasting)

	var ok, failed int
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := h.messenger.Copy(ctx, id, e.ChatID, e.ReplyTo); err != nil {
			failed++
			continue
		}
		ok++
	}
	logger.Info("broadcast finished",
		logging.String(logging.FieldEventType, "broadcast_complete"),
		logging.Int("recipients", len(ids)),
		logging.Int("delivered", ok),
		logging.Int("failed", failed),
	)
	text := broadcastDoneText(len(ids), ok, failed)
	if statusID == 0 {
		h.reply(ctx, logger, e.Sender, text)
		return
	}
	h.edit(ctx, logger, e.ChatID, statusID, text)
}
