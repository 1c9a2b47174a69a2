package session

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBusy marks a chunk rejected because a request is already in flight
// for the session. The rejection changes no pipeline state.
var ErrBusy = errors.New("request already in flight")

// State is the pipeline's explicit position in the per-request cycle.
type State int32

const (
	StateIdle State = iota
	StateTranscoding
	StateTranscribing
	StateSynthesizing
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTranscoding:
		return "transcoding"
	case StateTranscribing:
		return "transcribing"
	case StateSynthesizing:
		return "synthesizing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Session holds one live connection's identity and mutable state. It is
// owned by the Manager and referenced by its Pipeline while processing.
type Session struct {
	id    string
	debug bool

	state atomic.Int32
	seq   atomic.Uint64

	mu    sync.Mutex
	voice string
}

func newSession(id, defaultVoice string, debug bool) *Session {
	s := &Session{id: id, debug: debug, voice: defaultVoice}
	s.state.Store(int32(StateIdle))
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Debug() bool { return s.debug }

// Voice returns the currently selected voice id.
func (s *Session) Voice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

// SetVoice changes the session voice. It takes effect on the next
// accepted request; an in-flight request keeps the voice captured at
// its start.
func (s *Session) SetVoice(id string) {
	s.mu.Lock()
	s.voice = id
	s.mu.Unlock()
}

// State reports the pipeline's current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// nextSequence assigns an arrival-order sequence number to a chunk.
func (s *Session) nextSequence() uint64 {
	return s.seq.Add(1)
}

// begin is the IDLE gate: it admits a request only when no other is in
// flight, moving the state machine into TRANSCODING atomically.
func (s *Session) begin() bool {
	return s.state.CompareAndSwap(int32(StateIdle), int32(StateTranscoding))
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}
