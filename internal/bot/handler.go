package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"subembed/internal/language"
	"subembed/internal/logging"
	"subembed/internal/progress"
	"subembed/internal/remux"
	"subembed/internal/services"
	"subembed/internal/session"
	"subembed/internal/staging"
)

// Options tune handler policy.
type Options struct {
	Admins           []int64
	LogChannel       int64
	MaxVideoBytes    int64
	MaxSubtitleBytes int64
	// ProgressInterval is the minimum gap between progress message edits.
	ProgressInterval time.Duration
	ReportProgress   bool
}

// Deps are the collaborators a Handler drives.
type Deps struct {
	Sessions  session.Store
	Layout    staging.Layout
	Messenger Messenger
	Fetcher   Fetcher
	Users     UserStore
	Notifier  Notifier
	Builder   CommandBuilder
	Runner    Runner
	Inspector Inspector
	Logger    *slog.Logger
}

// Handler applies one inbound event at a time to the sender's session. It is
// safe for concurrent use across users as long as events for the same user are
// serialized, which Dispatcher guarantees.
type Handler struct {
	opts      Options
	sessions  session.Store
	layout    staging.Layout
	messenger Messenger
	fetcher   Fetcher
	users     UserStore
	notifier  Notifier
	builder   CommandBuilder
	runner    Runner
	inspector Inspector
	logger    *slog.Logger
	admins    map[int64]struct{}
	newJobID  func() string
}

// NewHandler constructs a Handler.
func NewHandler(opts Options, deps Deps) *Handler {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 10 * time.Second
	}
	admins := make(map[int64]struct{}, len(opts.Admins))
	for _, id := range opts.Admins {
		admins[id] = struct{}{}
	}
	return &Handler{
		opts:      opts,
		sessions:  deps.Sessions,
		layout:    deps.Layout,
		messenger: deps.Messenger,
		fetcher:   deps.Fetcher,
		users:     deps.Users,
		notifier:  deps.Notifier,
		builder:   deps.Builder,
		runner:    deps.Runner,
		inspector: deps.Inspector,
		logger:    logging.NewComponentLogger(deps.Logger, "bot"),
		admins:    admins,
		newJobID:  uuid.NewString,
	}
}

// Handle processes ev to completion. Failures are reported to the user and
// logged; nothing is returned to the caller.
func (h *Handler) Handle(ctx context.Context, ev Event) {
	from := ev.Origin()
	ctx = services.WithUserID(ctx, from.UserID)
	logger := logging.WithContext(ctx, h.logger)

	if h.rejectBanned(ctx, logger, ev) {
		return
	}

	switch e := ev.(type) {
	case Start:
		h.onStart(ctx, logger, e)
	case Help:
		h.reply(ctx, logger, from, welcomeText)
	case Cancel:
		h.discard(ctx, logger, from.UserID)
		h.reply(ctx, logger, from, msgCancelled)
	case VideoUpload:
		h.onVideo(ctx, logger, e)
	case SubtitleUpload:
		h.onSubtitle(ctx, logger, e)
	case UnsupportedUpload:
		h.onUnsupported(ctx, logger, e)
	case LanguageSelected:
		h.onLanguage(ctx, logger, e)
	case MalformedCallback:
		h.answer(ctx, logger, e.CallbackID, msgInvalidSelection, true)
	case Finalize:
		h.onFinalize(ctx, logger, e)
	case PhotoUpload:
		h.onPhoto(ctx, logger, e)
	case SetCaption:
		h.onSetCaption(ctx, logger, e)
	case SeeCaption:
		h.onSeeCaption(ctx, logger, e)
	case DeleteCaption:
		h.onDeleteCaption(ctx, logger, e)
	case ViewThumb:
		h.onViewThumb(ctx, logger, e)
	case DeleteThumb:
		h.onDeleteThumb(ctx, logger, e)
	case ListUsers, Ban, Unban, Broadcast:
		h.onAdmin(ctx, logger, ev)
	default:
		logger.Debug("ignoring unhandled event", logging.String("event", fmt.Sprintf("%T", ev)))
	}
}

// rejectBanned reports whether ev came from a banned user. A store failure
// lets the event through.
func (h *Handler) rejectBanned(ctx context.Context, logger *slog.Logger, ev Event) bool {
	from := ev.Origin()
	banned, reason, err := h.users.BanStatus(ctx, from.UserID)
	if err != nil {
		logging.WarnWithContext(logger, "ban lookup failed; allowing event", "ban_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the user database"),
			logging.String(logging.FieldImpact, "ban list not enforced for this event"),
		)
		return false
	}
	if !banned {
		return false
	}
	logger.Info("event from banned user dropped", logging.String(logging.FieldEventType, "banned_user_event"))
	if cb, ok := ev.(LanguageSelected); ok {
		h.answer(ctx, logger, cb.CallbackID, "", false)
	}
	h.reply(ctx, logger, from, bannedText(reason))
	return true
}

func (h *Handler) onStart(ctx context.Context, logger *slog.Logger, e Start) {
	isNew, err := h.users.Add(ctx, e.UserID)
	if err != nil {
		logging.WarnWithContext(logger, "user registration failed", "user_register_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the user database"),
			logging.String(logging.FieldImpact, "user missing from broadcasts and counts"),
		)
	}
	if isNew {
		logger.Info("new user registered", logging.String(logging.FieldEventType, "user_registered"))
		if h.opts.LogChannel != 0 {
			if _, err := h.messenger.Send(ctx, h.opts.LogChannel, newUserLogText(e.Sender), nil); err != nil {
				logger.Debug("log channel announcement failed", logging.Error(err))
			}
		}
		if err := h.notifier.NotifyNewUser(ctx, e.UserID, e.DisplayName()); err != nil {
			logger.Debug("new user notification failed", logging.Error(err))
		}
	}
	h.discard(ctx, logger, e.UserID)
	h.reply(ctx, logger, e.Sender, welcomeText)
}

func (h *Handler) onVideo(ctx context.Context, logger *slog.Logger, e VideoUpload) {
	name := e.File.Name
	if name == "" {
		name = fmt.Sprintf("video_%d.mp4", e.UserID)
	}
	current := session.GetOrCreate(h.sessions, e.UserID)
	if current.Stage() == session.StageFinalizing {
		h.reply(ctx, logger, e.Sender, msgBusy)
		return
	}
	if !session.IsVideoFile(name) {
		h.reply(ctx, logger, e.Sender, msgUnsupportedVideo)
		return
	}
	if h.opts.MaxVideoBytes > 0 && e.File.Size > h.opts.MaxVideoBytes {
		h.reply(ctx, logger, e.Sender, tooLargeText("video", e.File.Size, h.opts.MaxVideoBytes))
		return
	}

	// A new video always replaces whatever was being collected.
	h.discard(ctx, logger, e.UserID)
	sess := session.GetOrCreate(h.sessions, e.UserID)

	statusID := h.reply(ctx, logger, e.Sender, msgDownloadingVideo)
	path := h.layout.VideoPath(e.UserID, name)
	size, err := h.fetcher.Fetch(ctx, e.File.ID, path, h.statusReporter(ctx, logger, e.ChatID, statusID, "Downloading video"))
	if err != nil {
		h.fail(ctx, logger, e.Sender, statusID, services.Wrap(services.ErrResource, "bot", "download video", "", err), msgVideoDownloadFailed)
		h.discard(ctx, logger, e.UserID)
		return
	}
	if size <= 0 {
		size = e.File.Size
	}

	video := session.VideoDescriptor{Path: path, Name: name, Size: size, IsDocument: e.IsDocument}
	if e.Thumb != nil {
		video.ThumbRef = e.Thumb.ID
	}
	if err := sess.AcceptVideo(video); err != nil {
		h.fail(ctx, logger, e.Sender, statusID, err, msgUnsupportedVideo)
		return
	}
	logger.Info("video accepted",
		logging.String(logging.FieldEventType, "video_accepted"),
		logging.String("file_name", name),
		logging.Int64("size_bytes", size),
		logging.Bool("as_document", e.IsDocument),
	)
	h.edit(ctx, logger, e.ChatID, statusID, videoReceivedText(name, size, e.Duration))
}

func (h *Handler) onSubtitle(ctx context.Context, logger *slog.Logger, e SubtitleUpload) {
	sess := session.GetOrCreate(h.sessions, e.UserID)
	collecting, ok := sess.State().(session.Collecting)
	if !ok {
		h.reply(ctx, logger, e.Sender, msgSendVideoFirst)
		return
	}
	if !session.IsSubtitleFile(e.File.Name) {
		h.reply(ctx, logger, e.Sender, msgUnsupportedFile)
		return
	}
	if h.opts.MaxSubtitleBytes > 0 && e.File.Size > h.opts.MaxSubtitleBytes {
		h.reply(ctx, logger, e.Sender, tooLargeText("subtitle", e.File.Size, h.opts.MaxSubtitleBytes))
		return
	}

	index := len(collecting.Subtitles())
	statusID := h.reply(ctx, logger, e.Sender, downloadingSubtitleText(index+1))
	path := h.layout.SubtitlePath(e.UserID, index, e.File.Name)
	size, err := h.fetcher.Fetch(ctx, e.File.ID, path, nil)
	if err != nil {
		h.fail(ctx, logger, e.Sender, statusID, services.Wrap(services.ErrResource, "bot", "download subtitle", "", err), msgSubDownloadFailed)
		h.discard(ctx, logger, e.UserID)
		return
	}
	desc, err := sess.AddSubtitle(path, e.File.Name)
	if err != nil {
		h.fail(ctx, logger, e.Sender, statusID, err, msgUnsupportedFile)
		return
	}
	logger.Info("subtitle accepted",
		logging.String(logging.FieldEventType, "subtitle_accepted"),
		logging.Int("index", desc.Index),
		logging.String("file_name", desc.Name),
	)

	h.remove(ctx, logger, e.ChatID, statusID)
	promptID, err := h.messenger.Send(ctx, e.ChatID, subtitleReceivedText(desc.Index+1, desc.Name, size), LanguageKeyboard(desc.Index))
	if err != nil {
		logger.Debug("language prompt failed", logging.Error(err))
		return
	}
	sess.MarkPrompt(desc.Index, promptID)
}

func (h *Handler) onUnsupported(ctx context.Context, logger *slog.Logger, e UnsupportedUpload) {
	sess := session.GetOrCreate(h.sessions, e.UserID)
	if sess.Stage() == session.StageCollecting {
		h.reply(ctx, logger, e.Sender, msgUnsupportedFile)
		return
	}
	h.reply(ctx, logger, e.Sender, msgUnsupportedVideo)
}

func (h *Handler) onLanguage(ctx context.Context, logger *slog.Logger, e LanguageSelected) {
	sess, ok := h.sessions.Get(e.UserID)
	if !ok {
		h.answer(ctx, logger, e.CallbackID, msgSessionExpired, true)
		return
	}
	// A keyboard from a replaced session can carry an index that exists again
	// in the new one; the prompt reference tells them apart.
	if collecting, ok := sess.State().(session.Collecting); ok {
		if ref, waiting := collecting.Pending()[e.Index]; waiting && ref != 0 && e.PromptRef != 0 && ref != e.PromptRef {
			h.answer(ctx, logger, e.CallbackID, msgSessionExpired, true)
			return
		}
	}

	desc, promptRef, err := sess.SelectLanguage(e.Index, e.Code)
	switch {
	case errors.Is(err, session.ErrLanguageAlreadySet):
		h.answer(ctx, logger, e.CallbackID, msgLanguageAlreadySet, false)
		return
	case err != nil:
		logger.Debug("language selection rejected", logging.Int("index", e.Index), logging.Error(err))
		h.answer(ctx, logger, e.CallbackID, msgSessionExpired, true)
		return
	}

	h.answer(ctx, logger, e.CallbackID, "", false)
	if promptRef == 0 {
		promptRef = e.PromptRef
	}
	h.edit(ctx, logger, e.ChatID, promptRef, languageSetText(desc.Index, language.Label(desc.Language)))
	logger.Info("subtitle language set",
		logging.String(logging.FieldEventType, "language_selected"),
		logging.Int("index", desc.Index),
		logging.String("language", desc.Language),
	)
}

func (h *Handler) onFinalize(ctx context.Context, logger *slog.Logger, e Finalize) {
	sess := session.GetOrCreate(h.sessions, e.UserID)
	job, err := sess.Finalize()
	switch {
	case errors.Is(err, session.ErrNoSubtitles):
		h.reply(ctx, logger, e.Sender, msgNeedSubtitle)
		return
	case err != nil:
		h.reply(ctx, logger, e.Sender, msgSendVideoFirst)
		return
	}

	ctx = services.WithRequestID(ctx, h.newJobID())
	ctx = services.WithStage(ctx, string(session.StageFinalizing))
	logger = logging.WithContext(ctx, h.logger)
	// Success or failure, the user's files go and the next event starts fresh.
	defer h.discard(ctx, logger, e.UserID)

	video := job.Video()
	subtitles := job.Subtitles()
	logger.Info("remux job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("video", video.Name),
		logging.Int("subtitle_count", len(subtitles)),
	)

	statusID := h.reply(ctx, logger, e.Sender, msgProcessing)
	spec, err := h.builder.Build(remux.Job{
		VideoPath:     video.Path,
		SubtitlePaths: job.SubtitlePaths(),
		Languages:     job.Languages(),
		Titles:        job.Titles(),
		OutputPath:    h.layout.OutputPath(e.UserID, video.Name),
	})
	if err != nil {
		h.fail(ctx, logger, e.Sender, statusID, err, msgPrepareFailed)
		return
	}

	h.preflightProbe(ctx, logger, video.Path, &spec)

	result, err := h.runner.Run(ctx, spec, h.statusReporter(ctx, logger, e.ChatID, statusID, "Processing"))
	if err != nil {
		userText := msgProcessFailed
		var execErr *remux.ExecError
		if errors.As(err, &execErr) && execErr.Kind == remux.FailureTimeout {
			userText = msgProcessTimedOut
		}
		h.fail(ctx, logger, e.Sender, statusID, err, userText)
		return
	}

	remux.Verify(ctx, h.inspector, result.OutputPath, len(subtitles), h.logger)

	h.edit(ctx, logger, e.ChatID, statusID, msgUploading)
	deliverable := h.buildDeliverable(ctx, logger, e.UserID, video, result.OutputPath, result.OutputSize, len(subtitles))
	if err := h.messenger.Deliver(ctx, e.ChatID, deliverable, h.statusReporter(ctx, logger, e.ChatID, statusID, "Uploading")); err != nil {
		h.fail(ctx, logger, e.Sender, statusID, services.Wrap(services.ErrResource, "bot", "deliver", "", err), msgDeliverFailed)
		return
	}

	h.remove(ctx, logger, e.ChatID, statusID)
	h.reply(ctx, logger, e.Sender, msgDone)
	logger.Info("remux job delivered",
		logging.String(logging.FieldEventType, "job_delivered"),
		logging.Int64("output_bytes", result.OutputSize),
		logging.Duration("remux_elapsed", result.Elapsed),
		logging.Bool("as_video", deliverable.AsVideo),
	)
}

// preflightProbe logs the source composition and gives the executor a
// duration for percentage progress. A probe failure only costs the percentage.
func (h *Handler) preflightProbe(ctx context.Context, logger *slog.Logger, path string, spec *remux.CommandSpec) {
	probe, err := h.inspector.Probe(ctx, path)
	if err != nil {
		logging.WarnWithContext(logger, "source probe failed; continuing without duration", "preflight_probe_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "progress shows processed time without a percentage"),
		)
		return
	}
	counts := probe.Counts()
	logger.Info("source inspected",
		logging.String(logging.FieldEventType, "preflight_probe"),
		logging.Int("video_streams", counts.Video),
		logging.Int("audio_streams", counts.Audio),
		logging.Int("subtitle_streams", counts.Subtitle),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)
	if secs := probe.DurationSeconds(); secs > 0 {
		spec.Duration = time.Duration(secs * float64(time.Second))
	}
}

// fail reports a session-fatal or input error to the user. Detail stays in
// the logs; the user sees userText.
func (h *Handler) fail(ctx context.Context, logger *slog.Logger, to Sender, statusID int, err error, userText string) {
	kind := services.Classify(err)
	if kind == services.KindInput {
		logger.Debug("input rejected", logging.Error(err))
	} else {
		attrs := []logging.Attr{
			logging.String("error_kind", string(kind)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, failureHint(kind)),
		}
		var execErr *remux.ExecError
		if errors.As(err, &execErr) {
			attrs = append(attrs, logging.String("failure", execErr.ErrorKind()), logging.Int("exit_code", execErr.ExitCode))
		}
		logging.ErrorWithContext(logger, "job failed", "job_failed", attrs...)
		if nerr := h.notifier.NotifyJobFailed(ctx, to.UserID, string(kind), err); nerr != nil {
			logger.Debug("failure notification failed", logging.Error(nerr))
		}
	}
	if statusID != 0 {
		h.edit(ctx, logger, to.ChatID, statusID, userText)
		return
	}
	h.reply(ctx, logger, to, userText)
}

func failureHint(kind services.Kind) string {
	switch kind {
	case services.KindToolchain:
		return "inspect the ffmpeg stderr tail; retry with a smaller file on timeout"
	case services.KindResource:
		return "check disk space, directory permissions and the Bot API connection"
	default:
		return "check logs for details"
	}
}

// discard deletes the user's staged files and installs a fresh idle session.
func (h *Handler) discard(ctx context.Context, logger *slog.Logger, userID int64) {
	removed, err := h.layout.CleanUser(userID)
	if err != nil {
		logging.WarnWithContext(logger, "session cleanup incomplete", "session_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "stale files are removed by the cleanup sweep"),
			logging.String(logging.FieldImpact, "disk space held until the next sweep"),
		)
	}
	if len(removed) > 0 {
		logger.Debug("session files removed", logging.Int("files", len(removed)))
	}
	h.sessions.Replace(userID, session.New(userID))
}

func (h *Handler) statusReporter(ctx context.Context, logger *slog.Logger, chatID int64, messageID int, action string) progress.Reporter {
	if !h.opts.ReportProgress || messageID == 0 {
		return progress.Nop
	}
	return progress.NewThrottle(progress.ReporterFunc(func(u progress.Update) {
		u.Action = action
		h.edit(ctx, logger, chatID, messageID, progress.Render(u))
	}), h.opts.ProgressInterval)
}

// reply sends text to the sender's chat and returns the message ID, 0 on failure.
func (h *Handler) reply(ctx context.Context, logger *slog.Logger, to Sender, text string) int {
	id, err := h.messenger.Send(ctx, to.ChatID, text, nil)
	if err != nil {
		logger.Debug("send failed", logging.Error(err))
		return 0
	}
	return id
}

func (h *Handler) edit(ctx context.Context, logger *slog.Logger, chatID int64, messageID int, text string) {
	if messageID == 0 {
		return
	}
	if err := h.messenger.Edit(ctx, chatID, messageID, text); err != nil {
		logger.Debug("edit failed", logging.Int("message_id", messageID), logging.Error(err))
	}
}

func (h *Handler) remove(ctx context.Context, logger *slog.Logger, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := h.messenger.Delete(ctx, chatID, messageID); err != nil {
		logger.Debug("delete failed", logging.Int("message_id", messageID), logging.Error(err))
	}
}

func (h *Handler) answer(ctx context.Context, logger *slog.Logger, callbackID, text string, alert bool) {
	if callbackID == "" {
		return
	}
	if err := h.messenger.Answer(ctx, callbackID, text, alert); err != nil {
		logger.Debug("callback answer failed", logging.Error(err))
	}
}
