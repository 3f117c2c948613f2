package session

import "subembed/internal/services"

// Rejections are input errors: the user is told, the session is untouched.
var (
	ErrWrongStage           = services.Wrap(services.ErrInput, "session", "", "not valid at this stage", nil)
	ErrNoSubtitles          = services.Wrap(services.ErrInput, "session", "finalize", "no subtitles collected", nil)
	ErrSessionExpired       = services.Wrap(services.ErrInput, "session", "select language", "session expired", nil)
	ErrLanguageAlreadySet   = services.Wrap(services.ErrInput, "session", "select language", "language already set", nil)
	ErrUnsupportedExtension = services.Wrap(services.ErrInput, "session", "", "unsupported file type", nil)
)
