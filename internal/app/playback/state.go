// Package playback provides the single-utterance playback state machine.
package playback

// Status represents the playback status.
type Status int

const (
	StatusIdle       Status = iota // Nothing requested or playing
	StatusRequesting               // Waiting for synthesis
	StatusPlaying                  // Audio is playing
	StatusPaused                   // Audio is paused
	StatusError                    // Last session failed, waiting for acknowledgment
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRequesting:
		return "requesting"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Active reports whether a session owns the controller in this status.
func (s Status) Active() bool {
	return s == StatusRequesting || s == StatusPlaying || s == StatusPaused
}
