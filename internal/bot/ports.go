package bot

import (
	"context"

	"subembed/internal/media/ffprobe"
	"subembed/internal/progress"
	"subembed/internal/remux"
	"subembed/internal/users"
)

// Messenger sends and edits chat messages.
type Messenger interface {
	// Send posts text to chatID and returns the new message ID. kb may be nil.
	Send(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	Edit(ctx context.Context, chatID int64, messageID int, text string) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	// Answer acknowledges a keyboard press, optionally as a modal alert.
	Answer(ctx context.Context, callbackID, text string, alert bool) error
	SendPhoto(ctx context.Context, chatID int64, fileRef, caption string) error
	Copy(ctx context.Context, toChatID, fromChatID int64, messageID int) error
	// Deliver uploads the finished file.
	Deliver(ctx context.Context, chatID int64, d Deliverable, reporter progress.Reporter) error
}

// Fetcher downloads a transport file to dest.
type Fetcher interface {
	Fetch(ctx context.Context, fileID, dest string, reporter progress.Reporter) (int64, error)
}

// UserStore holds the persisted per-user flags and preferences.
type UserStore interface {
	Add(ctx context.Context, id int64) (bool, error)
	BanStatus(ctx context.Context, id int64) (bool, string, error)
	Ban(ctx context.Context, id int64, reason string) error
	Unban(ctx context.Context, id int64) (bool, error)
	SetCaption(ctx context.Context, id int64, caption string) error
	Caption(ctx context.Context, id int64) (string, error)
	SetThumbnail(ctx context.Context, id int64, ref string) error
	Thumbnail(ctx context.Context, id int64) (string, error)
	Count(ctx context.Context) (users.Stats, error)
	IDs(ctx context.Context) ([]int64, error)
}

// Notifier raises operator alerts.
type Notifier interface {
	NotifyNewUser(ctx context.Context, userID int64, displayName string) error
	NotifyJobFailed(ctx context.Context, userID int64, kind string, err error) error
}

// CommandBuilder validates a job and produces its ffmpeg invocation.
type CommandBuilder interface {
	Build(job remux.Job) (remux.CommandSpec, error)
}

// Runner executes a remux command.
type Runner interface {
	Run(ctx context.Context, spec remux.CommandSpec, reporter progress.Reporter) (remux.Result, error)
}

// Inspector lists a media file's streams.
type Inspector interface {
	Probe(ctx context.Context, path string) (ffprobe.Result, error)
	Counts(ctx context.Context, path string) (ffprobe.StreamCounts, error)
}
