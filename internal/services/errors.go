package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInput         = errors.New("input rejected")
	ErrResource      = errors.New("resource failure")
	ErrNotFound      = errors.New("not found")
	ErrExternalTool  = errors.New("external tool error")
	ErrTimeout       = errors.New("timeout")
	ErrValidation    = errors.New("validation error")
	ErrVerification  = errors.New("verification mismatch")
	ErrConfiguration = errors.New("configuration error")
	ErrTransient     = errors.New("transient failure")
)

// Kind groups failures by how the bot reacts to them.
type Kind string

const (
	// KindInput is reported to the user without touching session state.
	KindInput Kind = "input"
	// KindResource tears the session down (download, missing file, unwritable dir).
	KindResource Kind = "resource"
	// KindToolchain tears the session down and keeps detail in logs only.
	KindToolchain Kind = "toolchain"
	// KindVerification is logged as a warning; the job still succeeds.
	KindVerification Kind = "verification"
	KindUnknown      Kind = "unknown"
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error onto the failure taxonomy. Markers are checked from the
// most specific to the least so a timeout wrapped in a resource error still
// reads as a toolchain failure.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrVerification):
		return KindVerification
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrExternalTool):
		return KindToolchain
	case errors.Is(err, ErrInput), errors.Is(err, ErrValidation):
		return KindInput
	case errors.Is(err, ErrResource), errors.Is(err, ErrNotFound), errors.Is(err, ErrConfiguration):
		return KindResource
	default:
		return KindUnknown
	}
}

// IsSessionFatal reports whether the failure requires tearing down the user's session.
func IsSessionFatal(err error) bool {
	switch Classify(err) {
	case KindInput, KindVerification:
		return false
	default:
		return err != nil
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
