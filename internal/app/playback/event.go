package playback

import "github.com/osa030/falapai/internal/domain/speech"

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged EventType = iota // Status changed (request, pause, resume, stop, acknowledge)
	EventCompleted                     // Utterance finished playing
	EventFailed                        // Session failed, see Snapshot.Failure
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the controller.
type Snapshot struct {
	SessionID string
	Text      string
	Status    Status
	Failure   speech.FailureKind
	Message   string // User-facing message while in StatusError
}

// Event represents a playback event.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}
