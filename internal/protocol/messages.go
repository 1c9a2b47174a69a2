package protocol

import "time"

// Client → server message types.
const (
	TypeAudio   = "audio"
	TypeControl = "control"
)

// Server → client message types.
const (
	TypeVoices = "voices"
	TypeResult = "result"
	TypeError  = "error"
)

// ErrorKind labels a request-scoped failure on the wire.
type ErrorKind string

const (
	KindDecodeError        ErrorKind = "decode_error"
	KindTranscriptionError ErrorKind = "transcription_error"
	KindUnknownVoice       ErrorKind = "unknown_voice"
	KindSynthesisError     ErrorKind = "synthesis_error"
	KindBusy               ErrorKind = "busy"
)

// ClientMessage is a JSON frame received from the client. Audio payloads
// are base64 (encoding/json handles []byte that way). A voice field on an
// audio message updates the session voice before the request is admitted.
type ClientMessage struct {
	Type   string `json:"type"`
	Audio  []byte `json:"audio,omitempty"`
	Format string `json:"format,omitempty"`
	Voice  string `json:"voice,omitempty"`
}

// VoicesMessage is sent once after the connection is accepted.
type VoicesMessage struct {
	Type    string   `json:"type"`
	Voices  []string `json:"voices"`
	Default string   `json:"default,omitempty"`
}

// ResultMessage carries one request's outcome. Audio is nil for an
// empty transcript, in which case the field is omitted entirely.
type ResultMessage struct {
	Type       string `json:"type"`
	Sequence   uint64 `json:"sequence"`
	Transcript string `json:"transcript"`
	Audio      []byte `json:"audio,omitempty"`
	Voice      string `json:"voice,omitempty"`
}

// ErrorMessage reports a request-scoped failure. Sequence is null for
// failures that never acquired a sequence number.
type ErrorMessage struct {
	Type     string    `json:"type"`
	Sequence *uint64   `json:"sequence"`
	Kind     ErrorKind `json:"kind"`
	Detail   string    `json:"detail"`
}

// Bus subjects for the optional NATS fan-out.
const (
	SubjectTranscriptFinal = "voice.transcript.final"
	SubjectSynthesisDone   = "voice.synthesis.done"
)

// TranscriptEvent is published on SubjectTranscriptFinal.
type TranscriptEvent struct {
	SessionID string    `json:"session_id"`
	Sequence  uint64    `json:"sequence"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// SynthesisEvent is published on SubjectSynthesisDone.
type SynthesisEvent struct {
	SessionID string    `json:"session_id"`
	Sequence  uint64    `json:"sequence"`
	Voice     string    `json:"voice"`
	Bytes     int       `json:"bytes"`
	Timestamp time.Time `json:"timestamp"`
}
