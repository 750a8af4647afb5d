package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/falapai/internal/domain/speech"
)

const waitFor = 2 * time.Second

// synthCall is one pending Synthesize invocation.
type synthCall struct {
	ctx    context.Context
	text   string
	result chan synthResult
}

type synthResult struct {
	audio speech.Audio
	err   error
}

func (c *synthCall) succeed() {
	c.result <- synthResult{audio: speech.Audio{Data: []byte("mp3:" + c.text), MimeType: "audio/mpeg"}}
}

func (c *synthCall) fail(err error) {
	c.result <- synthResult{err: err}
}

// fakeSynth blocks every call until the test resolves it.
type fakeSynth struct {
	calls chan *synthCall
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{calls: make(chan *synthCall, 8)}
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) (speech.Audio, error) {
	call := &synthCall{ctx: ctx, text: text, result: make(chan synthResult, 1)}
	f.calls <- call
	r := <-call.result
	return r.audio, r.err
}

func (f *fakeSynth) next(t *testing.T) *synthCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for synthesis call")
		return nil
	}
}

// drain fails every call nobody resolved so their goroutines exit.
func (f *fakeSynth) drain() {
	for {
		select {
		case call := <-f.calls:
			call.fail(context.Canceled)
		default:
			return
		}
	}
}

type fakeStream struct {
	mu       sync.Mutex
	audio    speech.Audio
	onDone   func(error)
	started  bool
	paused   bool
	released bool
	startErr error
	pauseErr error
}

func (s *fakeStream) Start(onDone func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.onDone = onDone
	s.started = true
	return nil
}

func (s *fakeStream) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pauseErr != nil {
		return s.pauseErr
	}
	s.paused = true
	return nil
}

func (s *fakeStream) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
	return nil
}

func (s *fakeStream) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	return nil
}

func (s *fakeStream) finish(err error) {
	s.mu.Lock()
	onDone := s.onDone
	s.mu.Unlock()
	onDone(err)
}

func (s *fakeStream) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *fakeStream) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

type fakePlayer struct {
	mu       sync.Mutex
	streams  []*fakeStream
	openErr  error
	startErr error
}

func (p *fakePlayer) Open(audio speech.Audio) (speech.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.openErr != nil {
		return nil, p.openErr
	}
	s := &fakeStream{audio: audio, startErr: p.startErr}
	p.streams = append(p.streams, s)
	return s, nil
}

func (p *fakePlayer) opened() []*fakeStream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*fakeStream(nil), p.streams...)
}

// live counts streams opened and not yet released.
func (p *fakePlayer) live() int {
	n := 0
	for _, s := range p.opened() {
		if !s.isReleased() {
			n++
		}
	}
	return n
}

func newTestController(t *testing.T) (*Controller, *fakeSynth, *fakePlayer) {
	t.Helper()
	synth := newFakeSynth()
	player := &fakePlayer{}
	c := NewController(synth, player, Config{})
	t.Cleanup(func() {
		c.Close()
		synth.drain()
	})
	return c, synth, player
}

func waitStatus(t *testing.T, c *Controller, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return c.Snapshot().Status == want }, waitFor, 5*time.Millisecond,
		"status should become %s", want)
}

// startPlaying requests text and completes its synthesis.
func startPlaying(t *testing.T, c *Controller, synth *fakeSynth, text string) {
	t.Helper()
	require.True(t, c.Request(text))
	synth.next(t).succeed()
	waitStatus(t, c, StatusPlaying)
}

func TestRequest_IdleToRequestingToPlaying(t *testing.T) {
	c, synth, player := newTestController(t)

	require.True(t, c.Request("Estou com sede."))
	snap := c.Snapshot()
	assert.Equal(t, StatusRequesting, snap.Status)
	assert.Equal(t, "Estou com sede.", snap.Text)
	assert.NotEmpty(t, snap.SessionID)

	call := synth.next(t)
	assert.Equal(t, "Estou com sede.", call.text)
	call.succeed()

	waitStatus(t, c, StatusPlaying)
	streams := player.opened()
	require.Len(t, streams, 1)
	assert.Equal(t, []byte("mp3:Estou com sede."), streams[0].audio.Data)
	assert.Equal(t, 1, player.live())
}

func TestRequest_EmptyTextIsNoop(t *testing.T) {
	c, synth, _ := newTestController(t)

	assert.False(t, c.Request(""))
	assert.False(t, c.Request("   "))
	assert.NoError(t, c.Toggle(" \t"))

	assert.Equal(t, StatusIdle, c.Snapshot().Status)
	assert.Empty(t, synth.calls, "no synthesis should be requested")
}

func TestToggle_PauseResumeSymmetry(t *testing.T) {
	c, synth, player := newTestController(t)

	require.NoError(t, c.Toggle("Sim"))
	synth.next(t).succeed()
	waitStatus(t, c, StatusPlaying)
	stream := player.opened()[0]

	require.NoError(t, c.Toggle("Sim"))
	assert.Equal(t, StatusPaused, c.Snapshot().Status)
	assert.True(t, stream.isPaused())
	assert.False(t, c.InputLocked(), "input is editable while paused")

	require.NoError(t, c.Toggle("Sim"))
	assert.Equal(t, StatusPlaying, c.Snapshot().Status)
	assert.False(t, stream.isPaused())
	assert.True(t, c.InputLocked())

	assert.Len(t, player.opened(), 1, "toggling must not resynthesize")
}

func TestToggle_WhileRequestingIsIgnored(t *testing.T) {
	c, synth, _ := newTestController(t)

	require.NoError(t, c.Toggle("Não"))
	call := synth.next(t)
	require.NoError(t, c.Toggle("Não"))

	assert.Equal(t, StatusRequesting, c.Snapshot().Status)
	assert.Empty(t, synth.calls)
	assert.NoError(t, call.ctx.Err(), "in-flight synthesis must not be cancelled")
	call.succeed()
	waitStatus(t, c, StatusPlaying)
}

func TestToggle_OtherTextStartsNewSession(t *testing.T) {
	c, synth, player := newTestController(t)
	startPlaying(t, c, synth, "A")

	require.NoError(t, c.Toggle("B"))
	assert.Equal(t, StatusRequesting, c.Snapshot().Status)
	assert.Equal(t, "B", c.Snapshot().Text)
	assert.True(t, player.opened()[0].isReleased())
}

func TestRequest_SupersedesPlayingSession(t *testing.T) {
	c, synth, player := newTestController(t)
	startPlaying(t, c, synth, "A")
	first := player.opened()[0]

	require.True(t, c.Request("B"))
	assert.True(t, first.isReleased(), "previous audio must be released")
	assert.Equal(t, 0, player.live())

	snap := c.Snapshot()
	assert.Equal(t, StatusRequesting, snap.Status)
	assert.Equal(t, "B", snap.Text)

	synth.next(t).succeed()
	waitStatus(t, c, StatusPlaying)
	assert.Equal(t, 1, player.live())
	assert.Equal(t, "B", c.Snapshot().Text)

	// A late completion from the released stream changes nothing.
	first.finish(nil)
	assert.Equal(t, StatusPlaying, c.Snapshot().Status)
}

func TestRequest_LateSynthesisResultIsDiscarded(t *testing.T) {
	c, synth, player := newTestController(t)

	require.True(t, c.Request("A"))
	callA := synth.next(t)
	require.True(t, c.Request("B"))
	callB := synth.next(t)

	assert.Error(t, callA.ctx.Err(), "superseded synthesis should be cancelled")

	callA.succeed()
	assert.Never(t, func() bool { return len(player.opened()) > 0 }, 100*time.Millisecond, 5*time.Millisecond,
		"stale result must not open audio")
	assert.Equal(t, StatusRequesting, c.Snapshot().Status)
	assert.Equal(t, "B", c.Snapshot().Text)

	callB.succeed()
	waitStatus(t, c, StatusPlaying)
	require.Len(t, player.opened(), 1)
	assert.Equal(t, []byte("mp3:B"), player.opened()[0].audio.Data)
}

func TestCompletion_ReleasesAndReturnsToIdle(t *testing.T) {
	c, synth, player := newTestController(t)
	startPlaying(t, c, synth, "Obrigado(a)")
	stream := player.opened()[0]

	stream.finish(nil)

	waitStatus(t, c, StatusIdle)
	assert.True(t, stream.isReleased())
	assert.Empty(t, c.Snapshot().Text)
	assert.False(t, c.InputLocked())
}

func TestFailures(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(p *fakePlayer)
		resolve     func(call *synthCall, p *fakePlayer)
		wantKind    speech.FailureKind
		wantMessage string
	}{
		{
			name: "unauthorized",
			resolve: func(call *synthCall, _ *fakePlayer) {
				call.fail(speech.NewFailure(speech.FailureAuthentication, 401, errors.New("unauthorized")))
			},
			wantKind:    speech.FailureAuthentication,
			wantMessage: DefaultMessages().Authentication,
		},
		{
			name: "service error",
			resolve: func(call *synthCall, _ *fakePlayer) {
				call.fail(speech.NewFailure(speech.FailureService, 500, errors.New("boom")))
			},
			wantKind:    speech.FailureService,
			wantMessage: "Erro ao gerar a fala: 500. Por favor, tente novamente.",
		},
		{
			name: "transport error",
			resolve: func(call *synthCall, _ *fakePlayer) {
				call.fail(errors.New("dial tcp: no route to host"))
			},
			wantKind:    speech.FailureTransport,
			wantMessage: DefaultMessages().Transport,
		},
		{
			name:  "audio cannot be opened",
			setup: func(p *fakePlayer) { p.openErr = errors.New("not an mp3") },
			resolve: func(call *synthCall, _ *fakePlayer) {
				call.succeed()
			},
			wantKind:    speech.FailurePlayback,
			wantMessage: DefaultMessages().Playback,
		},
		{
			name:  "audio cannot be started",
			setup: func(p *fakePlayer) { p.startErr = errors.New("no device") },
			resolve: func(call *synthCall, _ *fakePlayer) {
				call.succeed()
			},
			wantKind:    speech.FailurePlayback,
			wantMessage: DefaultMessages().Playback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, synth, player := newTestController(t)
			if tt.setup != nil {
				tt.setup(player)
			}

			require.True(t, c.Request("Sim"))
			tt.resolve(synth.next(t), player)

			waitStatus(t, c, StatusError)
			snap := c.Snapshot()
			assert.Equal(t, tt.wantKind, snap.Failure)
			assert.Equal(t, tt.wantMessage, snap.Message)
			assert.Equal(t, 0, player.live(), "audio must be released on failure")

			c.Acknowledge()
			snap = c.Snapshot()
			assert.Equal(t, StatusIdle, snap.Status)
			assert.Equal(t, speech.FailureNone, snap.Failure)
			assert.Empty(t, snap.Message)
		})
	}
}

func TestPlaybackErrorWhilePlaying(t *testing.T) {
	c, synth, player := newTestController(t)
	startPlaying(t, c, synth, "Estou bem")
	stream := player.opened()[0]

	stream.finish(errors.New("decoder error"))

	waitStatus(t, c, StatusError)
	assert.Equal(t, speech.FailurePlayback, c.Snapshot().Failure)
	assert.True(t, stream.isReleased())
}

func TestPauseFailure(t *testing.T) {
	c, synth, player := newTestController(t)
	startPlaying(t, c, synth, "Sim")
	stream := player.opened()[0]
	stream.mu.Lock()
	stream.pauseErr = errors.New("device gone")
	stream.mu.Unlock()

	assert.Error(t, c.Pause())
	assert.Equal(t, StatusError, c.Snapshot().Status)
	assert.True(t, stream.isReleased())
}

func TestPauseResume_WrongState(t *testing.T) {
	c, synth, _ := newTestController(t)

	assert.ErrorIs(t, c.Pause(), ErrNotPlaying)
	assert.ErrorIs(t, c.Resume(), ErrNotPaused)

	startPlaying(t, c, synth, "Sim")
	assert.ErrorIs(t, c.Resume(), ErrNotPaused)
	require.NoError(t, c.Pause())
	assert.ErrorIs(t, c.Pause(), ErrNotPlaying)
	require.NoError(t, c.Resume())
}

func TestAcknowledge_OutsideErrorIsNoop(t *testing.T) {
	c, synth, _ := newTestController(t)
	startPlaying(t, c, synth, "Sim")

	c.Acknowledge()
	assert.Equal(t, StatusPlaying, c.Snapshot().Status)
}

func TestStop(t *testing.T) {
	c, synth, player := newTestController(t)
	startPlaying(t, c, synth, "Sim")

	c.Stop()
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
	assert.Equal(t, 0, player.live())

	// Stopping during synthesis discards the result.
	require.True(t, c.Request("Não"))
	call := synth.next(t)
	c.Stop()
	call.succeed()
	assert.Never(t, func() bool { return len(player.opened()) > 1 }, 100*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, StatusIdle, c.Snapshot().Status)
}

func TestEvents(t *testing.T) {
	c, synth, _ := newTestController(t)

	require.True(t, c.Request("Sim"))
	synth.next(t).fail(speech.NewFailure(speech.FailureAuthentication, 401, nil))
	waitStatus(t, c, StatusError)
	c.Acknowledge()

	var got []EventType
	for len(c.Events()) > 0 {
		got = append(got, (<-c.Events()).Type)
	}
	assert.Equal(t, []EventType{EventStateChanged, EventFailed, EventStateChanged}, got)
}

func TestClose(t *testing.T) {
	synth := newFakeSynth()
	player := &fakePlayer{}
	c := NewController(synth, player, Config{})
	startPlaying(t, c, synth, "Sim")

	c.Close()
	c.Close()

	assert.Equal(t, 0, player.live())
	assert.False(t, c.Request("Não"))
	assert.ErrorIs(t, c.Toggle("Não"), ErrClosed)

	for range c.Events() {
	}
}

func TestConfig_CustomMessages(t *testing.T) {
	synth := newFakeSynth()
	c := NewController(synth, &fakePlayer{}, Config{Messages: Messages{Service: "service down"}})
	defer c.Close()

	require.True(t, c.Request("Sim"))
	synth.next(t).fail(speech.NewFailure(speech.FailureService, 503, nil))
	waitStatus(t, c, StatusError)

	assert.Equal(t, "service down", c.Snapshot().Message)
}

func TestSynthesisTimeout(t *testing.T) {
	synth := newFakeSynth()
	c := NewController(synth, &fakePlayer{}, Config{SynthesisTimeout: 20 * time.Millisecond})
	defer c.Close()

	require.True(t, c.Request("Sim"))
	call := synth.next(t)
	<-call.ctx.Done()
	call.fail(speech.NewFailure(speech.FailureTransport, 0, call.ctx.Err()))

	waitStatus(t, c, StatusError)
	assert.Equal(t, speech.FailureTransport, c.Snapshot().Failure)
}

func TestToggle_AfterErrorRestarts(t *testing.T) {
	c, synth, player := newTestController(t)

	require.NoError(t, c.Toggle("Sim"))
	synth.next(t).fail(speech.NewFailure(speech.FailureService, 500, nil))
	waitStatus(t, c, StatusError)

	require.NoError(t, c.Toggle("Sim"))
	snap := c.Snapshot()
	assert.Equal(t, StatusRequesting, snap.Status)
	assert.Equal(t, "Sim", snap.Text)
	assert.Equal(t, speech.FailureNone, snap.Failure)

	synth.next(t).succeed()
	waitStatus(t, c, StatusPlaying)
	assert.Equal(t, 1, player.live())
}
