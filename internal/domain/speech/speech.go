// Package speech provides the speech synthesis contract and its failure taxonomy.
package speech

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Synthesizer converts text into playable audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// Audio is a synthesized utterance.
type Audio struct {
	Data     []byte // Encoded audio bytes
	MimeType string // e.g. "audio/mpeg"
}

// FailureKind classifies why an utterance could not be spoken.
type FailureKind int

const (
	FailureNone           FailureKind = iota // No failure
	FailureAuthentication                    // Synthesis service rejected the credentials (401)
	FailureService                           // Synthesis service answered with any other non-2xx status
	FailureTransport                         // No response was obtained from the synthesis service
	FailurePlayback                          // The audio resource failed to open or play
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureAuthentication:
		return "authentication"
	case FailureService:
		return "service"
	case FailureTransport:
		return "transport"
	case FailurePlayback:
		return "playback"
	default:
		return "unknown"
	}
}

// Sentinels used as marks on failures. Match them with errors.Is.
var (
	ErrAuthentication = errors.New("speech: authentication failure")
	ErrService        = errors.New("speech: service failure")
	ErrTransport      = errors.New("speech: transport failure")
	ErrPlayback       = errors.New("speech: playback failure")
)

// Failure is an error carrying its FailureKind.
type Failure struct {
	Kind       FailureKind
	StatusCode int // HTTP status for service/authentication failures, 0 otherwise
	Err        error
}

// Error implements error.
func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("%s failure (status %d): %v", f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}

// NewFailure builds a failure of the given kind, marked with the matching sentinel.
func NewFailure(kind FailureKind, statusCode int, cause error) error {
	if cause == nil {
		cause = errors.New(kind.String())
	}
	f := &Failure{Kind: kind, StatusCode: statusCode, Err: cause}
	if mark := sentinel(kind); mark != nil {
		return errors.Mark(f, mark)
	}
	return f
}

// KindOf extracts the failure kind from err.
// Errors that carry no kind are treated as transport failures.
func KindOf(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	switch {
	case errors.Is(err, ErrAuthentication):
		return FailureAuthentication
	case errors.Is(err, ErrService):
		return FailureService
	case errors.Is(err, ErrPlayback):
		return FailurePlayback
	default:
		return FailureTransport
	}
}

// StatusCodeOf returns the HTTP status recorded on err, or 0.
func StatusCodeOf(err error) int {
	var f *Failure
	if errors.As(err, &f) {
		return f.StatusCode
	}
	return 0
}

func sentinel(kind FailureKind) error {
	switch kind {
	case FailureAuthentication:
		return ErrAuthentication
	case FailureService:
		return ErrService
	case FailureTransport:
		return ErrTransport
	case FailurePlayback:
		return ErrPlayback
	default:
		return nil
	}
}
