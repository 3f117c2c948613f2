package bot

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"subembed/internal/remux"
	"subembed/internal/session"
)

func collectingState(t *testing.T, h *harness, userID int64) session.Collecting {
	t.Helper()
	s, ok := h.sessions.Get(userID)
	if !ok {
		t.Fatal("no session")
	}
	c, ok := s.State().(session.Collecting)
	if !ok {
		t.Fatalf("expected collecting, got %s", s.Stage())
	}
	return c
}

func statusMessageID(t *testing.T, h *harness, text string) int {
	t.Helper()
	for _, m := range h.messenger.sent {
		if m.Text == text {
			return m.ID
		}
	}
	t.Fatalf("no message %q was sent", text)
	return 0
}

func TestFinalizeEmbedsSubtitlesInUploadOrder(t *testing.T) {
	h := newHarness(t)
	h.video(7, "vid", "movie.mkv")
	h.subtitle(7, "s1", "first.srt")
	h.subtitle(7, "s2", "second.ass")

	// Only the second subtitle gets a language; the first stays undefined.
	prompt := h.messenger.lastKeyboardMessage()
	h.send(LanguageSelected{Base: base(7), CallbackID: "cb", Index: 1, Code: "eng", PromptRef: prompt.ID})
	if got := h.messenger.edits[prompt.ID]; !strings.Contains(got, "Subtitle 2 language set to") || !strings.Contains(got, "English") {
		t.Fatalf("unexpected prompt edit: %q", got)
	}

	h.send(Finalize{Base: base(7)})

	spec := h.runner.lastSpec(t)
	inputs := argValue(spec.Args, "-i")
	if len(inputs) != 3 || !strings.HasSuffix(inputs[1], "first.srt") || !strings.HasSuffix(inputs[2], "second.ass") {
		t.Fatalf("unexpected inputs: %v", inputs)
	}
	if got := argValue(spec.Args, "-metadata:s:s:0"); !reflect.DeepEqual(got, []string{"language=und", "title=first"}) {
		t.Fatalf("track 0 metadata: %v", got)
	}
	if got := argValue(spec.Args, "-metadata:s:s:1"); !reflect.DeepEqual(got, []string{"language=eng", "title=second"}) {
		t.Fatalf("track 1 metadata: %v", got)
	}
	if got := argValue(spec.Args, "-c:s:1"); !reflect.DeepEqual(got, []string{"ass"}) {
		t.Fatalf("expected ass passthrough for mkv, got %v", got)
	}
	if spec.Duration != 12500*time.Millisecond {
		t.Fatalf("expected probed duration, got %s", spec.Duration)
	}

	if len(h.messenger.delivered) != 1 {
		t.Fatalf("expected one delivery, got %d", len(h.messenger.delivered))
	}
	d := h.messenger.delivered[0]
	if !d.AsVideo || d.FileName != "movie.mkv" || !strings.Contains(d.Caption, "2 track(s)") {
		t.Fatalf("unexpected deliverable: %+v", d)
	}
	if h.messenger.lastText() != msgDone {
		t.Fatalf("expected done message, got %q", h.messenger.lastText())
	}
	if h.stage(t, 7) != session.StageIdle {
		t.Fatalf("expected idle after finalize, got %s", h.stage(t, 7))
	}
	if files := h.userFiles(t, 7); len(files) != 0 {
		t.Fatalf("expected staged files removed, got %v", files)
	}
}

func TestSubtitleWhileIdleIsRejectedWithoutDownload(t *testing.T) {
	h := newHarness(t)
	h.subtitle(7, "s1", "a.srt")
	if h.messenger.lastText() != msgSendVideoFirst {
		t.Fatalf("unexpected reply: %q", h.messenger.lastText())
	}
	if h.fetcher.count() != 0 {
		t.Fatal("subtitle was downloaded while idle")
	}
	if h.stage(t, 7) != session.StageIdle {
		t.Fatalf("session mutated to %s", h.stage(t, 7))
	}
}

func TestFinalizeWithoutSubtitlesKeepsCollecting(t *testing.T) {
	h := newHarness(t)
	h.video(7, "vid", "movie.mp4")
	h.send(Finalize{Base: base(7)})

	if h.messenger.lastText() != msgNeedSubtitle {
		t.Fatalf("unexpected reply: %q", h.messenger.lastText())
	}
	c := collectingState(t, h, 7)
	if c.Video().Name != "movie.mp4" {
		t.Fatalf("video descriptor lost: %+v", c.Video())
	}
	if len(h.runner.specs) != 0 {
		t.Fatal("runner invoked without subtitles")
	}
	if files := h.userFiles(t, 7); len(files) != 1 {
		t.Fatalf("expected video file kept, got %v", files)
	}
}

func TestFinalizeWhileIdleAsksForVideo(t *testing.T) {
	h := newHarness(t)
	h.send(Finalize{Base: base(7)})
	if h.messenger.lastText() != msgSendVideoFirst {
		t.Fatalf("unexpected reply: %q", h.messenger.lastText())
	}
}

func TestLanguageSelectionOutOfRangeIsExpired(t *testing.T) {
	h := newHarness(t)
	h.video(7, "vid", "movie.mkv")
	h.subtitle(7, "s1", "a.srt")

	h.send(LanguageSelected{Base: base(7), CallbackID: "cb", Index: 5, Code: "eng"})

	if len(h.messenger.answers) != 1 || h.messenger.answers[0] != msgSessionExpired || !h.messenger.alerts[0] {
		t.Fatalf("expected expired alert, got %v %v", h.messenger.answers, h.messenger.alerts)
	}
	sub := collectingState(t, h, 7).Subtitles()[0]
	if sub.LanguageSet || sub.Language != "und" {
		t.Fatalf("descriptor mutated: %+v", sub)
	}
}

func TestLanguageSelectionWithoutSessionIsExpired(t *testing.T) {
	h := newHarness(t)
	h.send(LanguageSelected{Base: base(7), CallbackID: "cb", Index: 0, Code: "eng"})
	if len(h.messenger.answers) != 1 || h.messenger.answers[0] != msgSessionExpired {
		t.Fatalf("expected expired answer, got %v", h.messenger.answers)
	}
}

func TestLanguageCanOnlyBeSetOnce(t *testing.T) {
	h := newHarness(t)
	h.video(7, "vid", "movie.mkv")
	h.subtitle(7, "s1", "a.srt")
	prompt := h.messenger.lastKeyboardMessage()

	h.send(LanguageSelected{Base: base(7), CallbackID: "cb1", Index: 0, Code: "eng", PromptRef: prompt.ID})
	h.send(LanguageSelected{Base: base(7), CallbackID: "cb2", Index: 0, Code: "spa", PromptRef: prompt.ID})

	if got := h.messenger.answers; len(got) != 2 || got[1] != msgLanguageAlreadySet {
		t.Fatalf("unexpected answers: %v", got)
	}
	if sub := collectingState(t, h, 7).Subtitles()[0]; sub.Language != "eng" {
		t.Fatalf("language overwritten: %+v", sub)
	}
}

func TestStaleKeyboardFromReplacedSessionIsExpired(t *testing.T) {
	h := newHarness(t)
	h.video(7, "vid1", "one.mkv")
	h.subtitle(7, "s1", "a.srt")
	oldPrompt := h.messenger.lastKeyboardMessage()

	h.video(7, "vid2", "two.mkv")
	h.subtitle(7, "s2", "b.srt")
	newPrompt := h.messenger.lastKeyboardMessage()

	h.send(LanguageSelected{Base: base(7), CallbackID: "old", Index: 0, Code: "eng", PromptRef: oldPrompt.ID})
	if h.messenger.answers[0] != msgSessionExpired {
		t.Fatalf("old keyboard accepted: %v", h.messenger.answers)
	}
	if collectingState(t, h, 7).Subtitles()[0].LanguageSet {
		t.Fatal("old keyboard changed the new session")
	}

	h.send(LanguageSelected{Base: base(7), CallbackID: "new", Index: 0, Code: "eng", PromptRef: newPrompt.ID})
	if !collectingState(t, h, 7).Subtitles()[0].LanguageSet {
		t.Fatal("current keyboard rejected")
	}
}

func TestNewVideoDiscardsCollectedSubtitles(t *testing.T) {
	h := newHarness(t)
	h.video(7, "vid1", "one.mkv")
	h.subtitle(7, "s1", "a.srt")
	h.subtitle(7, "s2", "b.srt")

	h.video(7, "vid2", "two.mp4")

	c := collectingState(t, h, 7)
	if len(c.Subtitles()) != 0 || c.Video().Name != "two.mp4" {
		t.Fatalf("old collection survived: video=%+v subs=%d", c.Video(), len(c.Subtitles()))
	}
	files := h.userFiles(t, 7)
	if len(files) != 1 || files[0] != "7_two.mp4" {
		t.Fatalf("expected only the new video on disk, got %v", files)
	}

	h.subtitle(7, "s3", "c.srt")
	prompt := h.messenger.lastKeyboardMessage()
	if !strings.HasPrefix(prompt.Keyboard[0][0].Data, "lang_0_") {
		t.Fatalf("new session did not restart at index 0: %q", prompt.Keyboard[0][0].Data)
	}
}

func TestOtherUsersSessionsAreIndependent(t *testing.T) {
	h := newHarness(t)
	h.video(7, "vid7", "seven.mkv")
	h.video(8, "vid8", "eight.mkv")
	h.subtitle(8, "s8", "a.srt")
	h.send(Cancel{Base: base(7)})

	if h.stage(t, 7) != session.StageIdle {
		t.Fatalf("user 7 not cancelled: %s", h.stage(t, 7))
	}
	if n := len(collectingState(t, h, 8).Subtitles()); n != 1 {
		t.Fatalf("user 8 affected by user 7 cancel: %d subtitles", n)
	}
	if files := h.userFiles(t, 8); len(files) != 2 {
		t.Fatalf("user 8 files touched: %v", files)
	}
}

func TestRemuxFailuresTearDownSession(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantText string
	}{
		{"exit", &remux.ExecError{Kind: remux.FailureExit, ExitCode: 1}, msgProcessFailed},
		{"timeout", &remux.ExecError{Kind: remux.FailureTimeout, ExitCode: -1}, msgProcessTimedOut},
		{"missing output", &remux.ExecError{Kind: remux.FailureMissingOutput}, msgProcessFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.runner.err = tt.err
			h.video(7, "vid", "movie.mkv")
			h.subtitle(7, "s1", "a.srt")
			h.send(Finalize{Base: base(7)})

			status := statusMessageID(t, h, msgProcessing)
			if got := h.messenger.edits[status]; got != tt.wantText {
				t.Fatalf("status edit = %q, want %q", got, tt.wantText)
			}
			if len(h.notifier.failures) != 1 || h.notifier.failures[0].Kind != "toolchain" {
				t.Fatalf("unexpected failure notifications: %+v", h.notifier.failures)
			}
			if len(h.messenger.delivered) != 0 {
				t.Fatal("failed job was delivered")
			}
			if h.stage(t, 7) != session.StageIdle {
				t.Fatalf("expected idle, got %s", h.stage(t, 7))
			}
			if files := h.userFiles(t, 7); len(files) != 0 {
				t.Fatalf("files left behind: %v", files)
			}
		})
	}
}

func TestDeliveryFailureIsReported(t *testing.T) {
	h := newHarness(t)
	h.messenger.deliverFn = func(Deliverable) error { return errors.New("upload refused") }
	h.video(7, "vid", "movie.mkv")
	h.subtitle(7, "s1", "a.srt")
	h.send(Finalize{Base: base(7)})

	status := statusMessageID(t, h, msgProcessing)
	if got := h.messenger.edits[status]; got != msgDeliverFailed {
		t.Fatalf("status edit = %q", got)
	}
	if h.notifier.failures[0].Kind != "resource" {
		t.Fatalf("unexpected kind: %+v", h.notifier.failures)
	}
	if h.stage(t, 7) != session.StageIdle {
		t.Fatalf("expected idle, got %s", h.stage(t, 7))
	}
}

func TestVideoDownloadFailureResetsSession(t *testing.T) {
	h := newHarness(t)
	h.fetcher.fail["vid"] = errors.New("connection reset")
	h.video(7, "vid", "movie.mkv")

	status := statusMessageID(t, h, msgDownloadingVideo)
	if got := h.messenger.edits[status]; got != msgVideoDownloadFailed {
		t.Fatalf("status edit = %q", got)
	}
	if h.stage(t, 7) != session.StageIdle {
		t.Fatalf("expected idle, got %s", h.stage(t, 7))
	}
	if len(h.notifier.failures) != 1 || h.notifier.failures[0].Kind != "resource" {
		t.Fatalf("unexpected notifications: %+v", h.notifier.failures)
	}
}

func TestSubtitleDownloadFailureResetsSession(t *testing.T) {
	h := newHarness(t)
	h.fetcher.fail["s2"] = errors.New("timeout")
	h.video(7, "vid", "movie.mkv")
	h.subtitle(7, "s1", "a.srt")
	h.subtitle(7, "s2", "b.srt")

	if h.stage(t, 7) != session.StageIdle {
		t.Fatalf("expected idle, got %s", h.stage(t, 7))
	}
	if files := h.userFiles(t, 7); len(files) != 0 {
		t.Fatalf("files left behind: %v", files)
	}
}

func TestOversizedUploadsAreRejectedWithoutMutation(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.MaxVideoBytes = 2048
		o.MaxSubtitleBytes = 32
	})
	h.video(7, "vid", "movie.mkv")
	h.send(SubtitleUpload{Base: base(7), File: FileRef{ID: "big", Name: "big.srt", Size: 64}})
	if !strings.Contains(h.messenger.lastText(), "too large") {
		t.Fatalf("unexpected reply: %q", h.messenger.lastText())
	}

	h.send(VideoUpload{Base: base(7), File: FileRef{ID: "huge", Name: "huge.mkv", Size: 4096}})
	if !strings.Contains(h.messenger.lastText(), "too large") {
		t.Fatalf("unexpected reply: %q", h.messenger.lastText())
	}
	if h.fetcher.count() != 1 {
		t.Fatalf("oversized files were downloaded: %v", h.fetcher.fetched)
	}
	if c := collectingState(t, h, 7); c.Video().Name != "movie.mkv" {
		t.Fatalf("existing session replaced: %+v", c.Video())
	}
}

func TestUnsupportedUploads(t *testing.T) {
	h := newHarness(t)
	h.send(UnsupportedUpload{Base: base(7), File: FileRef{ID: "x", Name: "notes.txt"}})
	if h.messenger.lastText() != msgUnsupportedVideo {
		t.Fatalf("idle reply = %q", h.messenger.lastText())
	}
	h.video(7, "vid", "movie.mkv")
	h.send(UnsupportedUpload{Base: base(7), File: FileRef{ID: "x", Name: "notes.txt"}})
	if h.messenger.lastText() != msgUnsupportedFile {
		t.Fatalf("collecting reply = %q", h.messenger.lastText())
	}
	if h.stage(t, 7) != session.StageCollecting {
		t.Fatalf("session mutated: %s", h.stage(t, 7))
	}
}

func TestBannedUserIsStoppedFirst(t *testing.T) {
	h := newHarness(t)
	h.users.banned[7] = "spam"
	h.video(7, "vid", "movie.mkv")

	if got := h.messenger.lastText(); !strings.Contains(got, "banned") || !strings.Contains(got, "Reason: spam") {
		t.Fatalf("unexpected reply: %q", got)
	}
	if h.fetcher.count() != 0 {
		t.Fatal("banned user's upload was downloaded")
	}
	if _, ok := h.sessions.Get(7); ok {
		t.Fatal("session created for banned user")
	}
}

func TestBanLookupFailureLetsEventThrough(t *testing.T) {
	h := newHarness(t)
	h.users.banErr = errors.New("database is locked")
	h.send(Help{Base: base(7)})
	if h.messenger.lastText() != welcomeText {
		t.Fatalf("unexpected reply: %q", h.messenger.lastText())
	}
}

func TestStartRegistersAndAnnouncesNewUsersOnce(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.LogChannel = -100 })
	h.send(Start{Base: base(7)})
	h.send(Start{Base: base(7)})

	if !reflect.DeepEqual(h.notifier.newUsers, []int64{7}) {
		t.Fatalf("unexpected new-user notifications: %v", h.notifier.newUsers)
	}
	announcements := h.messenger.sentTo(-100)
	if len(announcements) != 1 || !strings.Contains(announcements[0], "#NewUser") || !strings.Contains(announcements[0], "User ID: 7") {
		t.Fatalf("unexpected log channel messages: %v", announcements)
	}
	if h.messenger.lastText() != welcomeText {
		t.Fatalf("expected welcome text, got %q", h.messenger.lastText())
	}
}

func TestDeliverableUsesCaptionTemplateAndThumbnails(t *testing.T) {
	tests := []struct {
		name        string
		caption     string
		customThumb string
		videoThumb  *FileRef
		document    bool
		wantCaption string
		wantThumb   func(h *harness) string
		wantAsVideo bool
	}{
		{
			name:        "template and custom thumb",
			caption:     "{file_name} | {file_size}",
			customThumb: "photo-ref",
			wantCaption: "movie.mkv | 0.00 MB",
			wantThumb:   func(h *harness) string { return h.layout.CustomThumbPath(7) },
			wantAsVideo: true,
		},
		{
			name:        "video thumb fallback as document",
			videoThumb:  &FileRef{ID: "thumb-ref"},
			document:    true,
			wantThumb:   func(h *harness) string { return h.layout.VideoThumbPath(7) },
			wantAsVideo: false,
		},
		{
			name:        "no thumbnail",
			wantThumb:   func(*harness) string { return "" },
			wantAsVideo: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.users.captions[7] = tt.caption
			h.users.thumbs[7] = tt.customThumb
			h.send(VideoUpload{Base: base(7), File: FileRef{ID: "vid", Name: "movie.mkv", Size: 10}, IsDocument: tt.document, Thumb: tt.videoThumb})
			h.subtitle(7, "s1", "a.srt")
			h.send(Finalize{Base: base(7)})

			if len(h.messenger.delivered) != 1 {
				t.Fatalf("expected delivery, got %d", len(h.messenger.delivered))
			}
			d := h.messenger.delivered[0]
			if tt.wantCaption != "" && d.Caption != tt.wantCaption {
				t.Fatalf("caption = %q, want %q", d.Caption, tt.wantCaption)
			}
			if d.Thumbnail != tt.wantThumb(h) {
				t.Fatalf("thumbnail = %q, want %q", d.Thumbnail, tt.wantThumb(h))
			}
			if d.AsVideo != tt.wantAsVideo {
				t.Fatalf("AsVideo = %t, want %t", d.AsVideo, tt.wantAsVideo)
			}
		})
	}
}

func TestFormatCaption(t *testing.T) {
	got := FormatCaption("{file_name}\n{file_size}\n@chan", "a.mkv", 3*1024*1024/2)
	if got != "a.mkv\n1.50 MB\n@chan" {
		t.Fatalf("FormatCaption = %q", got)
	}
}

func TestCaptionAndThumbnailCommands(t *testing.T) {
	h := newHarness(t)

	h.send(SetCaption{Base: base(7)})
	if h.messenger.lastText() != msgCaptionUsage {
		t.Fatalf("empty set_caption reply = %q", h.messenger.lastText())
	}
	h.send(SetCaption{Base: base(7), Text: "{file_name}"})
	if h.users.captions[7] != "{file_name}" {
		t.Fatalf("caption not stored: %q", h.users.captions[7])
	}
	h.send(SeeCaption{Base: base(7)})
	if !strings.Contains(h.messenger.lastText(), "{file_name}") {
		t.Fatalf("see_caption reply = %q", h.messenger.lastText())
	}
	h.send(DeleteCaption{Base: base(7)})
	h.send(SeeCaption{Base: base(7)})
	if h.messenger.lastText() != msgNoCaption {
		t.Fatalf("caption not deleted: %q", h.messenger.lastText())
	}

	h.send(ViewThumb{Base: base(7)})
	if h.messenger.lastText() != msgNoThumb {
		t.Fatalf("view_thumb without thumb = %q", h.messenger.lastText())
	}
	h.send(PhotoUpload{Base: base(7), File: FileRef{ID: "photo"}})
	h.send(ViewThumb{Base: base(7)})
	if !reflect.DeepEqual(h.messenger.photos, []string{"photo"}) {
		t.Fatalf("unexpected photo previews: %v", h.messenger.photos)
	}
	h.send(DeleteThumb{Base: base(7)})
	if h.users.thumbs[7] != "" {
		t.Fatalf("thumbnail not cleared: %q", h.users.thumbs[7])
	}
}

func TestAdminCommandsIgnoreNonAdmins(t *testing.T) {
	h := newHarness(t)
	for _, ev := range []Event{ListUsers{base(7)}, Ban{Base: base(7), Args: "8"}, Unban{Base: base(7), Args: "8"}, Broadcast{Base: base(7), ReplyTo: 3}} {
		h.send(ev)
	}
	if len(h.messenger.sent) != 0 {
		t.Fatalf("non-admin got replies: %+v", h.messenger.sent)
	}
	if len(h.users.banned) != 0 {
		t.Fatal("non-admin ban applied")
	}
}

func TestAdminBanAndUnban(t *testing.T) {
	h := newHarness(t)
	admin := base(1)

	h.send(Ban{Base: admin, Args: "abc"})
	if h.messenger.lastText() != msgInvalidUserID {
		t.Fatalf("invalid id reply = %q", h.messenger.lastText())
	}
	h.send(Ban{Base: admin})
	if h.messenger.lastText() != msgBanUsage {
		t.Fatalf("usage reply = %q", h.messenger.lastText())
	}

	h.send(Ban{Base: admin, Args: "7 flooding the bot"})
	if h.users.banned[7] != "flooding the bot" {
		t.Fatalf("ban not stored: %v", h.users.banned)
	}
	if notices := h.messenger.sentTo(7); len(notices) != 1 || !strings.Contains(notices[0], "flooding the bot") {
		t.Fatalf("banned user not told: %v", notices)
	}

	h.send(Ban{Base: admin, Args: "9"})
	if h.users.banned[9] != defaultBanReason {
		t.Fatalf("default reason not applied: %q", h.users.banned[9])
	}

	h.send(Unban{Base: admin, Args: "7"})
	if _, ok := h.users.banned[7]; ok {
		t.Fatal("unban not applied")
	}
	h.send(Unban{Base: admin, Args: "7"})
	if !strings.Contains(h.messenger.lastText(), "was not banned") {
		t.Fatalf("second unban reply = %q", h.messenger.lastText())
	}

	h.send(ListUsers{admin})
	if h.messenger.lastText() != usersText(2, 1) {
		t.Fatalf("users reply = %q", h.messenger.lastText())
	}
}

func TestAdminBroadcastCountsFailures(t *testing.T) {
	h := newHarness(t)
	for _, id := range []int64{1, 2, 3} {
		h.users.known[id] = true
	}
	h.messenger.copyFail = map[int64]bool{3: true}

	h.send(Broadcast{Base: base(1)})
	if h.messenger.lastText() != msgBroadcastUsage {
		t.Fatalf("usage reply = %q", h.messenger.lastText())
	}

	h.send(Broadcast{Base: base(1), ReplyTo: 55})
	status := statusMessageID(t, h, msgBroadcasting)
	if got := h.messenger.edits[status]; got != broadcastDoneText(3, 2, 1) {
		t.Fatalf("broadcast summary = %q", got)
	}
}

func TestMalformedCallbackIsAnswered(t *testing.T) {
	h := newHarness(t)
	h.send(MalformedCallback{Base: base(7), CallbackID: "cb"})
	if len(h.messenger.answers) != 1 || h.messenger.answers[0] != msgInvalidSelection {
		t.Fatalf("unexpected answers: %v", h.messenger.answers)
	}
}
