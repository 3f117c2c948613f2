package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"subembed/internal/bot"
)

// ToEvent converts an update into a bot event, or nil when the update carries
// nothing the bot acts on.
func ToEvent(u tgbotapi.Update) bot.Event {
	switch {
	case u.CallbackQuery != nil:
		return callbackEvent(u.CallbackQuery)
	case u.Message != nil:
		return messageEvent(u.Message)
	default:
		return nil
	}
}

func messageEvent(m *tgbotapi.Message) bot.Event {
	if m.From == nil || m.Chat == nil {
		return nil
	}
	base := bot.Base{Sender: sender(m.From, m.Chat.ID), MessageID: m.MessageID}

	switch {
	case m.IsCommand():
		replyTo := 0
		if m.ReplyToMessage != nil {
			replyTo = m.ReplyToMessage.MessageID
		}
		return bot.CommandEvent(base, m.Command(), m.CommandArguments(), replyTo)
	case m.Video != nil:
		v := m.Video
		return bot.VideoUpload{
			Base:     base,
			File:     bot.FileRef{ID: v.FileID, Name: v.FileName, Size: int64(v.FileSize), MimeType: v.MimeType},
			Duration: v.Duration,
			Thumb:    thumbRef(v.Thumbnail),
		}
	case m.Document != nil:
		d := m.Document
		file := bot.FileRef{ID: d.FileID, Name: d.FileName, Size: int64(d.FileSize), MimeType: d.MimeType}
		return bot.DocumentEvent(base, file, thumbRef(d.Thumbnail))
	case len(m.Photo) > 0:
		// Sizes are ordered smallest first.
		p := m.Photo[len(m.Photo)-1]
		return bot.PhotoUpload{Base: base, File: bot.FileRef{ID: p.FileID, Size: int64(p.FileSize)}}
	default:
		return nil
	}
}

func callbackEvent(q *tgbotapi.CallbackQuery) bot.Event {
	if q.From == nil {
		return nil
	}
	chatID := q.From.ID
	promptRef := 0
	if q.Message != nil {
		promptRef = q.Message.MessageID
		if q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
	}
	base := bot.Base{Sender: sender(q.From, chatID), MessageID: promptRef}

	index, code, err := bot.ParseCallbackData(q.Data)
	if err != nil {
		return bot.MalformedCallback{Base: base, CallbackID: q.ID}
	}
	return bot.LanguageSelected{Base: base, CallbackID: q.ID, Index: index, Code: code, PromptRef: promptRef}
}

func sender(u *tgbotapi.User, chatID int64) bot.Sender {
	return bot.Sender{
		UserID:    u.ID,
		ChatID:    chatID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.UserName,
	}
}

func thumbRef(p *tgbotapi.PhotoSize) *bot.FileRef {
	if p == nil || p.FileID == "" {
		return nil
	}
	return &bot.FileRef{ID: p.FileID, Size: int64(p.FileSize)}
}
