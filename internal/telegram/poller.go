package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subembed/internal/bot"
	"subembed/internal/logging"
)

// Poll long-polls for updates and passes each converted event to submit until
// ctx is cancelled. submit must not block.
func (c *Client) Poll(ctx context.Context, submit func(bot.Event) bool) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = c.pollTimeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := c.api.GetUpdatesChan(cfg)
	defer c.api.StopReceivingUpdates()

	c.logger.Info("polling for updates",
		logging.String(logging.FieldEventType, "poll_started"),
		logging.String("bot", c.username),
		logging.Int("poll_timeout_seconds", c.pollTimeout),
	)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("polling stopped", logging.String(logging.FieldEventType, "poll_stopped"))
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			ev := ToEvent(update)
			if ev == nil {
				c.logger.Debug("update ignored", logging.Int("update_id", update.UpdateID))
				continue
			}
			if !submit(ev) {
				logging.WarnWithContext(c.logger, "event not queued", "event_dropped",
					logging.Int64(logging.FieldUserID, ev.Origin().UserID),
					logging.String("event", fmt.Sprintf("%T", ev)),
					logging.String(logging.FieldErrorHint, "dispatcher is closed or the user's mailbox is full"),
					logging.String(logging.FieldImpact, "user action ignored"),
				)
			}
		}
	}
}
