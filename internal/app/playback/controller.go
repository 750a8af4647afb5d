package playback

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/falapai/internal/domain/speech"
)

// Errors
var (
	ErrNotPlaying = errors.New("not playing")
	ErrNotPaused  = errors.New("not paused")
	ErrClosed     = errors.New("controller closed")
)

// Config holds controller configuration.
type Config struct {
	SynthesisTimeout time.Duration // Upper bound for one synthesis call (0 = none)
	Messages         Messages      // User-facing failure messages (empty entries use defaults)
}

// session is one playback attempt for a text.
type session struct {
	id         string
	text       string
	generation uint64
	cancel     context.CancelFunc // Cancels the in-flight synthesis
	stream     speech.Stream      // Audio resource, nil until synthesis succeeds
}

// Controller owns the single active playback session.
// The last request wins: every new request, stop or failure releases the
// previous session's audio, and results that belong to an older generation
// are discarded.
type Controller struct {
	mu sync.Mutex

	synth  speech.Synthesizer
	player speech.Player
	config Config

	current    *session
	generation uint64
	status     Status
	failure    speech.FailureKind
	message    string

	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
func NewController(synth speech.Synthesizer, player speech.Player, config Config) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	config.Messages = config.Messages.withDefaults()
	return &Controller{
		synth:   synth,
		player:  player,
		config:  config,
		status:  StatusIdle,
		eventCh: make(chan Event, 16),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Request starts speaking text, tearing down any active session first.
// Empty or whitespace-only text is ignored and false is returned.
func (c *Controller) Request(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.startLocked(text)
	return true
}

// Toggle pauses text if it is playing, resumes it if it is paused, and
// otherwise starts a new request for it. A toggle while text is still
// being synthesized is ignored.
func (c *Controller) Toggle(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if c.status.Active() && c.current.text == text {
		switch c.status {
		case StatusPlaying:
			return c.pauseLocked()
		case StatusPaused:
			return c.resumeLocked()
		case StatusRequesting:
			return nil
		}
	}

	c.startLocked(text)
	return nil
}

// Pause pauses the playing session.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.pauseLocked()
}

func (c *Controller) pauseLocked() error {
	if c.current == nil || c.status != StatusPlaying {
		return ErrNotPlaying
	}

	if err := c.current.stream.Pause(); err != nil {
		c.failLocked(speech.NewFailure(speech.FailurePlayback, 0, errors.Wrap(err, "failed to pause")))
		return err
	}

	c.status = StatusPaused
	c.sendEventLocked(EventStateChanged)
	return nil
}

// Resume resumes the paused session.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.resumeLocked()
}

func (c *Controller) resumeLocked() error {
	if c.current == nil || c.status != StatusPaused {
		return ErrNotPaused
	}

	if err := c.current.stream.Resume(); err != nil {
		c.failLocked(speech.NewFailure(speech.FailurePlayback, 0, errors.Wrap(err, "failed to resume")))
		return err
	}

	c.status = StatusPlaying
	c.sendEventLocked(EventStateChanged)
	return nil
}

// Stop tears down the active session, if any, and returns to idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil && c.status == StatusIdle {
		return
	}
	c.teardownLocked()
	c.sendEventLocked(EventStateChanged)
}

// Acknowledge clears a failure and returns to idle.
// It does nothing unless the controller is in StatusError.
func (c *Controller) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusError {
		return
	}
	c.teardownLocked()
	c.sendEventLocked(EventStateChanged)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

// InputLocked reports whether text entry should be disabled:
// true while a session is being synthesized or playing, false when paused.
func (c *Controller) InputLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status == StatusRequesting || c.status == StatusPlaying
}

// Close stops playback and closes the event channel.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.teardownLocked()
	c.cancel()
	c.closed = true
	close(c.eventCh)
}

// startLocked replaces the active session with a new one for text.
// Must be called with lock held.
func (c *Controller) startLocked(text string) {
	c.teardownLocked()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if c.config.SynthesisTimeout > 0 {
		ctx, cancel = context.WithTimeout(c.ctx, c.config.SynthesisTimeout)
	} else {
		ctx, cancel = context.WithCancel(c.ctx)
	}

	s := &session{
		id:         uuid.New().String(),
		text:       text,
		generation: c.generation,
		cancel:     cancel,
	}
	c.current = s
	c.status = StatusRequesting

	zlog.Debug().Msgf("playback: requesting synthesis: session=%s chars=%d", s.id, len(text))
	c.sendEventLocked(EventStateChanged)

	go c.synthesize(ctx, s)
}

// synthesize runs the synthesis call for s and starts playback on success.
func (c *Controller) synthesize(ctx context.Context, s *session) {
	audio, err := c.synth.Synthesize(ctx, s.text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrentLocked(s) {
		zlog.Debug().Msgf("playback: discarding superseded synthesis result: session=%s", s.id)
		return
	}
	s.cancel()

	if err != nil {
		c.failLocked(err)
		return
	}

	stream, err := c.player.Open(audio)
	if err != nil {
		c.failLocked(speech.NewFailure(speech.FailurePlayback, 0, errors.Wrap(err, "failed to open audio")))
		return
	}
	s.stream = stream

	if err := stream.Start(func(err error) { c.onStreamDone(s, err) }); err != nil {
		c.failLocked(speech.NewFailure(speech.FailurePlayback, 0, errors.Wrap(err, "failed to start audio")))
		return
	}

	c.status = StatusPlaying
	zlog.Debug().Msgf("playback: playing: session=%s bytes=%d", s.id, len(audio.Data))
	c.sendEventLocked(EventStateChanged)
}

// onStreamDone handles the end of s's audio.
func (c *Controller) onStreamDone(s *session, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCurrentLocked(s) || (c.status != StatusPlaying && c.status != StatusPaused) {
		return
	}

	if err != nil {
		c.failLocked(speech.NewFailure(speech.FailurePlayback, 0, err))
		return
	}

	zlog.Debug().Msgf("playback: completed: session=%s", s.id)
	snapshot := c.snapshotLocked()
	c.teardownLocked()
	c.sendLocked(Event{Type: EventCompleted, Snapshot: snapshot})
}

// failLocked moves the current session to StatusError and releases its audio.
// Must be called with lock held.
func (c *Controller) failLocked(err error) {
	s := c.current
	if s == nil {
		return
	}
	c.releaseLocked(s)

	kind := speech.KindOf(err)
	c.status = StatusError
	c.failure = kind
	c.message = c.config.Messages.For(kind, speech.StatusCodeOf(err))

	zlog.Error().Err(err).Msgf("playback: session failed: session=%s kind=%s", s.id, kind)
	c.sendEventLocked(EventFailed)
}

// teardownLocked releases the active session and invalidates its pending results.
// Must be called with lock held.
func (c *Controller) teardownLocked() {
	if c.current != nil {
		c.releaseLocked(c.current)
		c.current = nil
	}
	c.generation++
	c.status = StatusIdle
	c.failure = speech.FailureNone
	c.message = ""
}

// releaseLocked cancels synthesis and frees the audio resource of s.
func (c *Controller) releaseLocked(s *session) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stream != nil {
		if err := s.stream.Release(); err != nil {
			zlog.Warn().Msgf("playback: failed to release audio: session=%s error=%v", s.id, err)
		}
		s.stream = nil
	}
}

func (c *Controller) isCurrentLocked(s *session) bool {
	return c.current == s && s.generation == c.generation
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:  c.status,
		Failure: c.failure,
		Message: c.message,
	}
	if c.current != nil {
		snap.SessionID = c.current.id
		snap.Text = c.current.text
	}
	return snap
}

// sendEventLocked sends an event carrying the current snapshot.
// Must be called with lock held.
func (c *Controller) sendEventLocked(t EventType) {
	c.sendLocked(Event{Type: t, Snapshot: c.snapshotLocked()})
}

// sendLocked sends an event without blocking.
func (c *Controller) sendLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Warn().Msgf("playback: event channel full, dropping %s", e.Type)
	}
}
