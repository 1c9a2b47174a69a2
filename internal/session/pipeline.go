package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/swagat-panda/VocalWeaver/internal/audio"
	"github.com/swagat-panda/VocalWeaver/internal/debugsink"
	"github.com/swagat-panda/VocalWeaver/internal/protocol"
	"github.com/swagat-panda/VocalWeaver/internal/stt"
	"github.com/swagat-panda/VocalWeaver/internal/tts"
	"github.com/swagat-panda/VocalWeaver/internal/voice"
)

// Result is one successful request's payload back to the client. Audio
// is nil when the transcript was empty and synthesis was skipped.
type Result struct {
	Sequence   uint64
	Transcript string
	Audio      []byte
	Voice      string
}

// Emitter delivers results and errors to the client. Implementations
// must tolerate emission after the connection is gone by discarding.
type Emitter interface {
	EmitResult(res Result)
	EmitError(sequence *uint64, kind protocol.ErrorKind, detail string)
}

// Observer receives request lifecycle notifications (event store, bus
// fan-out, metrics). All methods are best-effort from the pipeline's
// point of view.
type Observer interface {
	SessionOpened(sessionID, voiceID string)
	SessionClosed(sessionID string)
	RequestAccepted(sessionID string, sequence uint64)
	TranscriptReady(sessionID string, sequence uint64, text string)
	SynthesisDone(sessionID string, sequence uint64, voiceID string, audioBytes int)
	RequestFailed(sessionID string, sequence uint64, kind protocol.ErrorKind, detail string)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(string, string)                             {}
func (nopObserver) SessionClosed(string)                                     {}
func (nopObserver) RequestAccepted(string, uint64)                           {}
func (nopObserver) TranscriptReady(string, uint64, string)                   {}
func (nopObserver) SynthesisDone(string, uint64, string, int)                {}
func (nopObserver) RequestFailed(string, uint64, protocol.ErrorKind, string) {}

// NopObserver is used when no recorder is wired.
func NopObserver() Observer { return nopObserver{} }

// Pipeline drives one session's requests through transcode → transcribe
// → synthesize. At most one request is in flight at a time; overlapping
// chunks are rejected with ErrBusy.
type Pipeline struct {
	session    *Session
	transcoder audio.Transcoder
	recognizer stt.Recognizer
	synth      tts.Synthesizer
	voices     *voice.Registry
	sink       debugsink.Sink
	emitter    Emitter
	observer   Observer
	logger     *slog.Logger
	tracer     trace.Tracer
	duration   metric.Float64Histogram
	canonical  audio.Format
	timeout    time.Duration
	wg         sync.WaitGroup
}

// Session returns the session this pipeline serves.
func (p *Pipeline) Session() *Session { return p.session }

// Submit admits one audio chunk. It returns ErrBusy (with the chunk's
// arrival sequence number already reported to the client) when a request
// is in flight, and otherwise processes the chunk asynchronously so the
// caller's read loop stays responsive.
//
// connCtx is the connection's context: processing is deliberately NOT
// cancelled when it ends. Adapter calls run to completion and the
// result is discarded, since the underlying compute may not be safely
// preemptible.
func (p *Pipeline) Submit(connCtx context.Context, format string, data []byte) error {
	seq := p.session.nextSequence()
	if !p.session.begin() {
		p.emitter.EmitError(&seq, protocol.KindBusy, "a request is already being processed for this session")
		return fmt.Errorf("%w: sequence %d rejected", ErrBusy, seq)
	}

	voiceID := p.session.Voice()
	p.observer.RequestAccepted(p.session.ID(), seq)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.process(connCtx, seq, voiceID, format, data)
	}()
	return nil
}

// Wait blocks until any in-flight request finishes. Used on teardown.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) process(connCtx context.Context, seq uint64, voiceID, format string, data []byte) {
	defer p.session.setState(StateIdle)

	start := time.Now()
	outcome := "completed"
	defer func() {
		if p.duration != nil {
			p.duration.Record(context.Background(), time.Since(start).Seconds(),
				metric.WithAttributes(attribute.String("outcome", outcome)))
		}
	}()

	ctx := context.WithoutCancel(connCtx)
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ctx, span := p.tracer.Start(ctx, "session.request",
		trace.WithAttributes(
			attribute.String("session.id", p.session.ID()),
			attribute.Int64("request.sequence", int64(seq)),
			attribute.String("request.voice", voiceID),
		))
	defer span.End()

	p.sink.Capture(p.session.ID(), seq, debugsink.StageRaw, format, data)

	pcm, err := p.transcoder.Transcode(ctx, format, data)
	if err != nil {
		if !errors.Is(err, audio.ErrDecode) {
			err = fmt.Errorf("%w: %v", audio.ErrDecode, err)
		}
		outcome = string(p.fail(connCtx, seq, err))
		return
	}
	if converted, err := audio.EncodeWAV(pcm, p.canonical); err == nil {
		p.sink.Capture(p.session.ID(), seq, debugsink.StageConverted, "wav", converted)
	}

	p.session.setState(StateTranscribing)
	transcript, err := p.recognizer.Transcribe(ctx, pcm)
	if err != nil {
		if !errors.Is(err, stt.ErrTranscription) {
			err = fmt.Errorf("%w: %v", stt.ErrTranscription, err)
		}
		outcome = string(p.fail(connCtx, seq, err))
		return
	}

	text := strings.TrimSpace(transcript.Text)
	p.observer.TranscriptReady(p.session.ID(), seq, text)
	if text == "" {
		outcome = "empty_transcript"
		p.logger.Debug("no speech detected",
			slog.String("session_id", p.session.ID()),
			slog.Uint64("sequence", seq))
		p.emit(connCtx, Result{Sequence: seq, Transcript: ""})
		return
	}

	p.session.setState(StateSynthesizing)
	model, err := p.voices.Voice(voiceID)
	if err != nil {
		outcome = string(p.fail(connCtx, seq, err))
		return
	}
	synthesized, err := p.synth.Synthesize(ctx, text, model)
	if err != nil {
		if !errors.Is(err, tts.ErrSynthesis) {
			err = fmt.Errorf("%w: %v", tts.ErrSynthesis, err)
		}
		outcome = string(p.fail(connCtx, seq, err))
		return
	}
	p.sink.Capture(p.session.ID(), seq, debugsink.StageSynthesized, "wav", synthesized)

	p.observer.SynthesisDone(p.session.ID(), seq, voiceID, len(synthesized))
	p.emit(connCtx, Result{Sequence: seq, Transcript: text, Audio: synthesized, Voice: voiceID})
}

func (p *Pipeline) emit(connCtx context.Context, res Result) {
	if connCtx.Err() != nil {
		p.logger.Debug("discarding result for closed connection",
			slog.String("session_id", p.session.ID()),
			slog.Uint64("sequence", res.Sequence))
		return
	}
	p.emitter.EmitResult(res)
}

// fail handles a request-scoped error: the state machine passes through
// ERROR, the client gets an Error message, and the deferred transition
// in process returns the session to IDLE. The session stays usable.
func (p *Pipeline) fail(connCtx context.Context, seq uint64, err error) protocol.ErrorKind {
	p.session.setState(StateError)
	kind := classify(err)
	p.logger.Warn("request failed",
		slog.String("session_id", p.session.ID()),
		slog.Uint64("sequence", seq),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))
	p.observer.RequestFailed(p.session.ID(), seq, kind, err.Error())
	if connCtx.Err() != nil {
		return kind
	}
	p.emitter.EmitError(&seq, kind, err.Error())
	return kind
}

func classify(err error) protocol.ErrorKind {
	switch {
	case errors.Is(err, audio.ErrDecode):
		return protocol.KindDecodeError
	case errors.Is(err, stt.ErrTranscription):
		return protocol.KindTranscriptionError
	case errors.Is(err, voice.ErrUnknownVoice):
		return protocol.KindUnknownVoice
	case errors.Is(err, tts.ErrSynthesis):
		return protocol.KindSynthesisError
	case errors.Is(err, ErrBusy):
		return protocol.KindBusy
	default:
		return protocol.KindSynthesisError
	}
}
