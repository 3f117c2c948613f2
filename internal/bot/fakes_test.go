package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"subembed/internal/logging"
	"subembed/internal/media/ffprobe"
	"subembed/internal/progress"
	"subembed/internal/remux"
	"subembed/internal/session"
	"subembed/internal/staging"
	"subembed/internal/users"
)

type sentMessage struct {
	ChatID   int64
	ID       int
	Text     string
	Keyboard Keyboard
}

type fakeMessenger struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	edits     map[int]string
	deleted   []int
	answers   []string
	alerts    []bool
	photos    []string
	copies    []int64
	delivered []Deliverable
	deliverFn func(Deliverable) error
	copyFail  map[int64]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nextID: 100, edits: map[int]string{}}
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string, kb Keyboard) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sent = append(m.sent, sentMessage{ChatID: chatID, ID: m.nextID, Text: text, Keyboard: kb})
	return m.nextID, nil
}

func (m *fakeMessenger) Edit(_ context.Context, _ int64, messageID int, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits[messageID] = text
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) Answer(_ context.Context, _ string, text string, alert bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, text)
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *fakeMessenger) SendPhoto(_ context.Context, _ int64, ref, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, ref)
	return nil
}

func (m *fakeMessenger) Copy(_ context.Context, to, _ int64, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.copyFail[to] {
		return errors.New("blocked by user")
	}
	m.copies = append(m.copies, to)
	return nil
}

func (m *fakeMessenger) Deliver(_ context.Context, _ int64, d Deliverable, _ progress.Reporter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliverFn != nil {
		if err := m.deliverFn(d); err != nil {
			return err
		}
	}
	m.delivered = append(m.delivered, d)
	return nil
}

func (m *fakeMessenger) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	return m.sent[len(m.sent)-1].Text
}

func (m *fakeMessenger) sentTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s.Text)
		}
	}
	return out
}

func (m *fakeMessenger) lastKeyboardMessage() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Keyboard != nil {
			return m.sent[i]
		}
	}
	return sentMessage{}
}

// fakeFetcher writes a small file at dest for every known file ID.
type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, fileID, dest string, reporter progress.Reporter) (int64, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, fileID)
	err := f.fail[fileID]
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	body := []byte("data:" + fileID)
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return 0, err
	}
	if reporter != nil {
		reporter.Report(progress.Update{Current: int64(len(body)), Total: int64(len(body))})
	}
	return int64(len(body)), nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

type fakeUsers struct {
	mu       sync.Mutex
	known    map[int64]bool
	banned   map[int64]string
	captions map[int64]string
	thumbs   map[int64]string
	banErr   error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		known:    map[int64]bool{},
		banned:   map[int64]string{},
		captions: map[int64]string{},
		thumbs:   map[int64]string{},
	}
}

func (u *fakeUsers) Add(_ context.Context, id int64) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.known[id] {
		return false, nil
	}
	u.known[id] = true
	return true, nil
}

func (u *fakeUsers) BanStatus(_ context.Context, id int64) (bool, string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.banErr != nil {
		return false, "", u.banErr
	}
	reason, ok := u.banned[id]
	return ok, reason, nil
}

func (u *fakeUsers) Ban(_ context.Context, id int64, reason string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.known[id] = true
	u.banned[id] = reason
	return nil
}

func (u *fakeUsers) Unban(_ context.Context, id int64) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.banned[id]
	delete(u.banned, id)
	return ok, nil
}

func (u *fakeUsers) SetCaption(_ context.Context, id int64, caption string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.captions[id] = caption
	return nil
}

func (u *fakeUsers) Caption(_ context.Context, id int64) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.captions[id], nil
}

func (u *fakeUsers) SetThumbnail(_ context.Context, id int64, ref string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.thumbs[id] = ref
	return nil
}

func (u *fakeUsers) Thumbnail(_ context.Context, id int64) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.thumbs[id], nil
}

func (u *fakeUsers) Count(context.Context) (users.Stats, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return users.Stats{Total: len(u.known), Banned: len(u.banned)}, nil
}

func (u *fakeUsers) IDs(context.Context) ([]int64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]int64, 0, len(u.known))
	for id := range u.known {
		out = append(out, id)
	}
	return out, nil
}

type failureNote struct {
	UserID int64
	Kind   string
}

type fakeNotifier struct {
	mu       sync.Mutex
	newUsers []int64
	failures []failureNote
}

func (n *fakeNotifier) NotifyNewUser(_ context.Context, id int64, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newUsers = append(n.newUsers, id)
	return nil
}

func (n *fakeNotifier) NotifyJobFailed(_ context.Context, id int64, kind string, _ error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, failureNote{UserID: id, Kind: kind})
	return nil
}

// fakeRunner records the spec and writes the output file unless err is set.
type fakeRunner struct {
	mu    sync.Mutex
	specs []remux.CommandSpec
	err   error
}

func (r *fakeRunner) Run(_ context.Context, spec remux.CommandSpec, _ progress.Reporter) (remux.Result, error) {
	r.mu.Lock()
	r.specs = append(r.specs, spec)
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return remux.Result{}, err
	}
	if err := os.WriteFile(spec.OutputPath, []byte("muxed"), 0o644); err != nil {
		return remux.Result{}, err
	}
	return remux.Result{OutputPath: spec.OutputPath, OutputSize: 5, Elapsed: time.Second}, nil
}

func (r *fakeRunner) lastSpec(t *testing.T) remux.CommandSpec {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.specs) == 0 {
		t.Fatal("runner was never called")
	}
	return r.specs[len(r.specs)-1]
}

type fakeInspector struct {
	subtitles int
	duration  string
	err       error
}

func (i *fakeInspector) Probe(context.Context, string) (ffprobe.Result, error) {
	if i.err != nil {
		return ffprobe.Result{}, i.err
	}
	return ffprobe.Result{Format: ffprobe.Format{Duration: i.duration}}, nil
}

func (i *fakeInspector) Counts(context.Context, string) (ffprobe.StreamCounts, error) {
	if i.err != nil {
		return ffprobe.StreamCounts{}, i.err
	}
	return ffprobe.StreamCounts{Video: 1, Audio: 1, Subtitle: i.subtitles}, nil
}

type harness struct {
	handler   *Handler
	sessions  *session.MemoryStore
	layout    staging.Layout
	messenger *fakeMessenger
	fetcher   *fakeFetcher
	users     *fakeUsers
	notifier  *fakeNotifier
	runner    *fakeRunner
	inspector *fakeInspector
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	base := t.TempDir()
	layout := staging.Layout{
		DownloadDir: filepath.Join(base, "downloads"),
		OutputDir:   filepath.Join(base, "output"),
		ThumbDir:    filepath.Join(base, "thumbs"),
	}
	if err := layout.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	opts := Options{
		Admins:           []int64{1},
		MaxVideoBytes:    1 << 30,
		MaxSubtitleBytes: 1 << 20,
		ProgressInterval: time.Hour,
	}
	for _, fn := range mutate {
		fn(&opts)
	}
	h := &harness{
		sessions:  session.NewMemoryStore(),
		layout:    layout,
		messenger: newFakeMessenger(),
		fetcher:   &fakeFetcher{fail: map[string]error{}},
		users:     newFakeUsers(),
		notifier:  &fakeNotifier{},
		runner:    &fakeRunner{},
		inspector: &fakeInspector{subtitles: -1, duration: "12.5"},
	}
	logger := logging.NewNop()
	h.handler = NewHandler(opts, Deps{
		Sessions:  h.sessions,
		Layout:    layout,
		Messenger: h.messenger,
		Fetcher:   h.fetcher,
		Users:     h.users,
		Notifier:  h.notifier,
		Builder:   remux.NewBuilder(remux.Options{Binary: "ffmpeg"}, logger),
		Runner:    h.runner,
		Inspector: h.inspector,
		Logger:    logger,
	})
	h.handler.newJobID = func() string { return "job-1" }
	return h
}

func base(userID int64) Base {
	return Base{Sender: Sender{UserID: userID, ChatID: userID, FirstName: "Ada"}}
}

func (h *harness) send(ev Event) {
	h.handler.Handle(context.Background(), ev)
}

func (h *harness) video(userID int64, id, name string) {
	h.send(VideoUpload{Base: base(userID), File: FileRef{ID: id, Name: name, Size: 1024}})
}

func (h *harness) subtitle(userID int64, id, name string) {
	h.send(SubtitleUpload{Base: base(userID), File: FileRef{ID: id, Name: name, Size: 64}})
}

func (h *harness) stage(t *testing.T, userID int64) session.Stage {
	t.Helper()
	s, ok := h.sessions.Get(userID)
	if !ok {
		return session.StageIdle
	}
	return s.Stage()
}

func (h *harness) userFiles(t *testing.T, userID int64) []string {
	t.Helper()
	var out []string
	prefix := strings.TrimSpace(filepath.Base(h.layout.VideoPath(userID, "x")))
	prefix = strings.TrimSuffix(prefix, "x")
	for _, dir := range []string{h.layout.DownloadDir, h.layout.OutputDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("ReadDir %s: %v", dir, err)
		}
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), prefix) {
				out = append(out, e.Name())
			}
		}
	}
	return out
}

func argValue(args []string, flag string) []string {
	var out []string
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			out = append(out, args[i+1])
		}
	}
	return out
}
