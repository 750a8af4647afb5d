package speech

// Player turns synthesized audio into a playable resource.
type Player interface {
	Open(audio Audio) (Stream, error)
}

// Stream is one playable audio resource.
// onDone passed to Start is called at most once, from another goroutine,
// with nil when playback reached the end or the playback error otherwise.
// Release must be safe to call more than once and after onDone.
type Stream interface {
	Start(onDone func(err error)) error
	Pause() error
	Resume() error
	Release() error
}
