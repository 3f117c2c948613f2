package bot

import (
	"strings"

	"subembed/internal/session"
)

// Sender identifies who produced an event and where replies go.
type Sender struct {
	UserID    int64
	ChatID    int64
	FirstName string
	LastName  string
	Username  string
}

// DisplayName joins the sender's first and last name.
func (s Sender) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Event is a normalized inbound event. The transport layer converts raw
// platform updates into these.
type Event interface {
	Origin() Sender
}

// Base carries the fields every event has.
type Base struct {
	Sender
	// MessageID is the transport message that produced the event.
	MessageID int
}

// Origin implements Event.
func (b Base) Origin() Sender { return b.Sender }

// FileRef points at a file the Fetcher can download.
type FileRef struct {
	ID       string
	Name     string
	Size     int64
	MimeType string
}

// Start resets the session and registers the user.
type Start struct{ Base }

// Help asks for usage text.
type Help struct{ Base }

// Cancel discards the current collection.
type Cancel struct{ Base }

// Finalize runs the remux for the collected files.
type Finalize struct{ Base }

// VideoUpload carries a new source video.
type VideoUpload struct {
	Base
	File FileRef
	// IsDocument is true when the video came as a generic file attachment.
	IsDocument bool
	// Duration in seconds, 0 when the transport does not know.
	Duration int
	// Thumb is the platform-generated preview, when present.
	Thumb *FileRef
}

// SubtitleUpload carries one subtitle file.
type SubtitleUpload struct {
	Base
	File FileRef
}

// UnsupportedUpload is a document that is neither video nor subtitle.
type UnsupportedUpload struct {
	Base
	File FileRef
}

// LanguageSelected is a keyboard press choosing a subtitle's language.
type LanguageSelected struct {
	Base
	CallbackID string
	Index      int
	Code       string
	// PromptRef is the message that carried the keyboard.
	PromptRef int
}

// MalformedCallback is a keyboard press whose payload could not be parsed.
type MalformedCallback struct {
	Base
	CallbackID string
}

// PhotoUpload sets the user's custom thumbnail.
type PhotoUpload struct {
	Base
	File FileRef
}

// SetCaption stores a caption template.
type SetCaption struct {
	Base
	Text string
}

// SeeCaption shows the stored caption template.
type SeeCaption struct{ Base }

// DeleteCaption clears the caption template.
type DeleteCaption struct{ Base }

// ViewThumb shows the stored thumbnail.
type ViewThumb struct{ Base }

// DeleteThumb clears the stored thumbnail.
type DeleteThumb struct{ Base }

// ListUsers is the admin user count command.
type ListUsers struct{ Base }

// Ban is the admin ban command; Args is "<id> [reason]".
type Ban struct {
	Base
	Args string
}

// Unban is the admin unban command; Args is "<id>".
type Unban struct {
	Base
	Args string
}

// Broadcast copies the replied-to message to every user.
type Broadcast struct {
	Base
	// ReplyTo is the message to copy, 0 when the command was not a reply.
	ReplyTo int
}

// CommandEvent maps a chat command to its event. Unknown commands yield nil.
func CommandEvent(base Base, command, args string, replyTo int) Event {
	args = strings.TrimSpace(args)
	switch strings.ToLower(strings.TrimPrefix(command, "/")) {
	case "start":
		return Start{base}
	case "help":
		return Help{base}
	case "cancel":
		return Cancel{base}
	case "done":
		return Finalize{base}
	case "set_caption":
		return SetCaption{Base: base, Text: args}
	case "see_caption":
		return SeeCaption{base}
	case "del_caption":
		return DeleteCaption{base}
	case "view_thumb":
		return ViewThumb{base}
	case "del_thumb":
		return DeleteThumb{base}
	case "users":
		return ListUsers{base}
	case "ban":
		return Ban{Base: base, Args: args}
	case "unban":
		return Unban{Base: base, Args: args}
	case "broadcast":
		return Broadcast{Base: base, ReplyTo: replyTo}
	default:
		return nil
	}
}

// DocumentEvent routes a generic file attachment by extension: videos become
// VideoUpload, subtitles SubtitleUpload, anything else UnsupportedUpload.
func DocumentEvent(base Base, file FileRef, thumb *FileRef) Event {
	switch {
	case session.IsVideoFile(file.Name):
		return VideoUpload{Base: base, File: file, IsDocument: true, Thumb: thumb}
	case session.IsSubtitleFile(file.Name):
		return SubtitleUpload{Base: base, File: file}
	default:
		return UnsupportedUpload{Base: base, File: file}
	}
}
