package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subembed/internal/bot"
	"subembed/internal/config"
	"subembed/internal/logging"
	"subembed/internal/services"
)

// maxCaptionRunes is Telegram's media caption limit.
const maxCaptionRunes = 1024

// botAPI is the subset of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(c tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(c tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client talks to the Bot API on behalf of the bot package.
type Client struct {
	api          botAPI
	token        string
	fileEndpoint string
	pollTimeout  int
	username     string
	http         *http.Client
	logger       *slog.Logger
}

// New connects to the Bot API with the configured token. The token is checked
// with getMe before New returns.
func New(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Telegram.APIEndpoint)
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	logger = logging.NewComponentLogger(logger, "telegram")
	if err := tgbotapi.SetLogger(botLogger{logger: logger}); err != nil {
		logger.Debug("bot api logger not installed", logging.Error(err))
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, endpoint, &http.Client{})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "telegram", "connect", "bot API rejected the token or endpoint", err)
	}
	api.Debug = cfg.Telegram.Debug

	c := newClient(api, cfg.Telegram.Token, fileEndpointFor(endpoint), cfg.Telegram.PollTimeout, logger)
	c.username = api.Self.UserName
	return c, nil
}

func newClient(api botAPI, token, fileEndpoint string, pollTimeout int, logger *slog.Logger) *Client {
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		api:          api,
		token:        token,
		fileEndpoint: fileEndpoint,
		pollTimeout:  pollTimeout,
		http:         &http.Client{},
		logger:       logger,
	}
}

// Username returns the bot's @handle, empty until connected.
func (c *Client) Username() string { return c.username }

// fileEndpointFor derives the file download URL template from an API
// endpoint such as "https://api.telegram.org/bot%s/%s".
func fileEndpointFor(apiEndpoint string) string {
	if apiEndpoint == tgbotapi.APIEndpoint {
		return tgbotapi.FileEndpoint
	}
	if i := strings.LastIndex(apiEndpoint, "/bot%s/%s"); i >= 0 {
		return apiEndpoint[:i] + "/file/bot%s/%s"
	}
	return tgbotapi.FileEndpoint
}

// Send implements bot.Messenger.
func (c *Client) Send(ctx context.Context, chatID int64, text string, kb bot.Keyboard) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if len(kb) > 0 {
		msg.ReplyMarkup = inlineKeyboard(kb)
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return sent.MessageID, nil
}

// Edit implements bot.Messenger. Editing to identical text is not an error.
func (c *Client) Edit(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

// Delete implements bot.Messenger.
func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

// Answer implements bot.Messenger.
func (c *Client) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// SendPhoto implements bot.Messenger for a previously uploaded photo.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileRef, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileRef))
	photo.Caption = caption
	if _, err := c.api.Send(photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

// Copy implements bot.Messenger.
func (c *Client) Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)); err != nil {
		return fmt.Errorf("copy message to %d: %w", toChatID, err)
	}
	return nil
}

func inlineKeyboard(kb bot.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncateCaption(caption string) string {
	runes := []rune(caption)
	if len(runes) <= maxCaptionRunes {
		return caption
	}
	return string(runes[:maxCaptionRunes-1]) + "…"
}

// botLogger routes the library's own log lines into slog at debug level.
type botLogger struct {
	logger *slog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintln(v...)), logging.String("source", "tgbotapi"))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), logging.String("source", "tgbotapi"))
}
