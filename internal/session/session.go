package session

import (
	"maps"
	"time"

	"subembed/internal/language"
)

// Stage names the externally visible session phase.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageCollecting Stage = "collecting_subtitles"
	StageFinalizing Stage = "finalizing"
)

// VideoDescriptor describes the downloaded source video. It never changes
// after the session accepts it.
type VideoDescriptor struct {
	Path string
	Name string
	Size int64
	// IsDocument records that the video arrived as a generic file so the
	// result goes back the same way.
	IsDocument bool
	// ThumbRef is the transport's reference to the video's own thumbnail, if any.
	ThumbRef string
}

// SubtitleDescriptor describes one collected subtitle. Index is its position
// in upload order and becomes its track position in the output.
type SubtitleDescriptor struct {
	Index       int
	Path        string
	Name        string
	Language    string
	Title       string
	LanguageSet bool
}

// State is the sealed set of session states: Idle, Collecting, Finalizing.
type State interface {
	Stage() Stage
	sealed()
}

// Idle holds nothing; only a video upload is accepted.
type Idle struct{}

func (Idle) Stage() Stage { return StageIdle }
func (Idle) sealed()      {}

// Collecting holds an accepted video and the subtitles gathered so far.
type Collecting struct {
	video     VideoDescriptor
	subtitles []SubtitleDescriptor
	// pending maps subtitle index to the prompt awaiting its language (0 until sent).
	pending map[int]int
}

func (Collecting) Stage() Stage { return StageCollecting }
func (Collecting) sealed()      {}

// Video returns the accepted video.
func (c Collecting) Video() VideoDescriptor { return c.video }

// Subtitles returns a copy of the collected subtitles in upload order.
func (c Collecting) Subtitles() []SubtitleDescriptor {
	return append([]SubtitleDescriptor(nil), c.subtitles...)
}

// Pending returns a copy of the index to prompt-reference map.
func (c Collecting) Pending() map[int]int { return maps.Clone(c.pending) }

// Finalizing is the frozen snapshot handed to the remux pipeline.
type Finalizing struct {
	video     VideoDescriptor
	subtitles []SubtitleDescriptor
}

func (Finalizing) Stage() Stage { return StageFinalizing }
func (Finalizing) sealed()      {}

// Video returns the video being remuxed.
func (f Finalizing) Video() VideoDescriptor { return f.video }

// Subtitles returns a copy of the subtitles in track order.
func (f Finalizing) Subtitles() []SubtitleDescriptor {
	return append([]SubtitleDescriptor(nil), f.subtitles...)
}

// SubtitlePaths returns subtitle paths in track order.
func (f Finalizing) SubtitlePaths() []string {
	out := make([]string, len(f.subtitles))
	for i, s := range f.subtitles {
		out[i] = s.Path
	}
	return out
}

// Languages returns the per-track language codes, "und" where never set.
func (f Finalizing) Languages() []string {
	out := make([]string, len(f.subtitles))
	for i, s := range f.subtitles {
		out[i] = s.Language
	}
	return out
}

// Titles returns the per-track titles.
func (f Finalizing) Titles() []string {
	out := make([]string, len(f.subtitles))
	for i, s := range f.subtitles {
		out[i] = s.Title
	}
	return out
}

// Session is one user's collection state. A Session must only be mutated by
// the goroutine serving that user's events.
type Session struct {
	UserID    int64
	state     State
	CreatedAt time.Time
	UpdatedAt time.Time
	now       func() time.Time
}

// New returns an idle session for userID.
func New(userID int64) *Session {
	return newWithClock(userID, time.Now)
}

func newWithClock(userID int64, now func() time.Time) *Session {
	ts := now()
	return &Session{UserID: userID, state: Idle{}, CreatedAt: ts, UpdatedAt: ts, now: now}
}

// State returns the current state value.
func (s *Session) State() State { return s.state }

// Stage returns the current stage name.
func (s *Session) Stage() Stage { return s.state.Stage() }

func (s *Session) set(state State) {
	s.state = state
	s.UpdatedAt = s.now()
}

// AcceptVideo starts a fresh collection for video. Any previous collection is
// dropped; the caller owns deleting its files.
func (s *Session) AcceptVideo(video VideoDescriptor) error {
	if s.state.Stage() == StageFinalizing {
		return ErrWrongStage
	}
	if !IsVideoFile(video.Name) {
		return ErrUnsupportedExtension
	}
	s.set(Collecting{video: video, pending: map[int]int{}})
	return nil
}

// AddSubtitle appends a subtitle at the next index and marks it as awaiting a
// language. Only valid while collecting.
func (s *Session) AddSubtitle(path, name string) (SubtitleDescriptor, error) {
	c, ok := s.state.(Collecting)
	if !ok {
		return SubtitleDescriptor{}, ErrWrongStage
	}
	if !IsSubtitleFile(name) {
		return SubtitleDescriptor{}, ErrUnsupportedExtension
	}
	desc := SubtitleDescriptor{
		Index:    len(c.subtitles),
		Path:     path,
		Name:     name,
		Language: language.Undefined,
		Title:    stem(name),
	}
	next := Collecting{
		video:     c.video,
		subtitles: append(append([]SubtitleDescriptor(nil), c.subtitles...), desc),
		pending:   maps.Clone(c.pending),
	}
	next.pending[desc.Index] = 0
	s.set(next)
	return desc, nil
}

// MarkPrompt records the prompt reference sent for subtitle index.
func (s *Session) MarkPrompt(index, promptRef int) {
	c, ok := s.state.(Collecting)
	if !ok {
		return
	}
	if _, waiting := c.pending[index]; !waiting {
		return
	}
	c.pending[index] = promptRef
}

// SelectLanguage sets the language of subtitle index once. An index this
// session never issued reports ErrSessionExpired. It returns the updated
// descriptor and the prompt reference that asked for it.
func (s *Session) SelectLanguage(index int, code string) (SubtitleDescriptor, int, error) {
	c, ok := s.state.(Collecting)
	if !ok || index < 0 || index >= len(c.subtitles) {
		return SubtitleDescriptor{}, 0, ErrSessionExpired
	}
	if c.subtitles[index].LanguageSet {
		return SubtitleDescriptor{}, 0, ErrLanguageAlreadySet
	}
	subtitles := append([]SubtitleDescriptor(nil), c.subtitles...)
	subtitles[index].Language = language.Normalize(code)
	subtitles[index].LanguageSet = true
	pending := maps.Clone(c.pending)
	prompt := pending[index]
	delete(pending, index)
	s.set(Collecting{video: c.video, subtitles: subtitles, pending: pending})
	return subtitles[index], prompt, nil
}

// Finalize freezes the collection for remuxing. With no subtitles it returns
// ErrNoSubtitles and leaves the session as it was.
func (s *Session) Finalize() (Finalizing, error) {
	c, ok := s.state.(Collecting)
	if !ok {
		return Finalizing{}, ErrWrongStage
	}
	if len(c.subtitles) == 0 {
		return Finalizing{}, ErrNoSubtitles
	}
	f := Finalizing{video: c.video, subtitles: append([]SubtitleDescriptor(nil), c.subtitles...)}
	s.set(f)
	return f, nil
}

// Reset returns the session to idle.
func (s *Session) Reset() {
	s.set(Idle{})
}
