package runtime

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/swagat-panda/VocalWeaver/internal/bus"
	"github.com/swagat-panda/VocalWeaver/internal/eventstore"
	"github.com/swagat-panda/VocalWeaver/internal/protocol"
)

// recorder observes the pipeline and fans its lifecycle out to the
// event store, the NATS bus, and the meter. Every write is best-effort:
// a failing store or bus is logged and never stalls a request.
type recorder struct {
	store *eventstore.Store
	bus   *bus.Client
	log   *slog.Logger

	requests   metric.Int64Counter
	failures   metric.Int64Counter
	synthBytes metric.Int64Histogram
}

const recorderWriteTimeout = 2 * time.Second

func newRecorder(store *eventstore.Store, busClient *bus.Client, log *slog.Logger) *recorder {
	r := &recorder{
		store: store,
		bus:   busClient,
		log:   log.With(slog.String("component", "recorder")),
	}

	meter := otel.Meter("github.com/swagat-panda/VocalWeaver/internal/runtime")
	if c, err := meter.Int64Counter("vocalweaver.requests.total",
		metric.WithDescription("Audio requests admitted into the pipeline")); err == nil {
		r.requests = c
	} else {
		r.log.Warn("failed to initialize request counter", slog.String("error", err.Error()))
	}
	if c, err := meter.Int64Counter("vocalweaver.requests.failed",
		metric.WithDescription("Requests that ended in a request-scoped error")); err == nil {
		r.failures = c
	} else {
		r.log.Warn("failed to initialize failure counter", slog.String("error", err.Error()))
	}
	if h, err := meter.Int64Histogram("vocalweaver.synthesis.bytes",
		metric.WithDescription("Size of synthesized audio payloads"),
		metric.WithUnit("By")); err == nil {
		r.synthBytes = h
	} else {
		r.log.Warn("failed to initialize synthesis histogram", slog.String("error", err.Error()))
	}

	return r
}

func (r *recorder) writeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), recorderWriteTimeout)
}

func (r *recorder) SessionOpened(sessionID, voiceID string) {
	if r.store == nil {
		return
	}
	ctx, cancel := r.writeCtx()
	defer cancel()
	if err := r.store.AppendSession(ctx, sessionID, voiceID); err != nil {
		r.log.Warn("failed to record session",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}
}

func (r *recorder) SessionClosed(string) {}

func (r *recorder) RequestAccepted(sessionID string, sequence uint64) {
	if r.requests != nil {
		r.requests.Add(context.Background(), 1)
	}
	r.appendEvent(eventstore.Event{
		SessionID: sessionID,
		Sequence:  sequence,
		Type:      eventstore.EventRequestAccepted,
	})
}

func (r *recorder) TranscriptReady(sessionID string, sequence uint64, text string) {
	r.appendEvent(eventstore.Event{
		SessionID: sessionID,
		Sequence:  sequence,
		Type:      eventstore.EventTranscriptReady,
		Detail:    text,
	})
	r.publish(protocol.SubjectTranscriptFinal, protocol.TranscriptEvent{
		SessionID: sessionID,
		Sequence:  sequence,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

func (r *recorder) SynthesisDone(sessionID string, sequence uint64, voiceID string, audioBytes int) {
	if r.synthBytes != nil {
		r.synthBytes.Record(context.Background(), int64(audioBytes),
			metric.WithAttributes(attribute.String("voice", voiceID)))
	}
	r.appendEvent(eventstore.Event{
		SessionID: sessionID,
		Sequence:  sequence,
		Type:      eventstore.EventSynthesisDone,
		Detail:    voiceID,
	})
	r.publish(protocol.SubjectSynthesisDone, protocol.SynthesisEvent{
		SessionID: sessionID,
		Sequence:  sequence,
		Voice:     voiceID,
		Bytes:     audioBytes,
		Timestamp: time.Now().UTC(),
	})
}

func (r *recorder) RequestFailed(sessionID string, sequence uint64, kind protocol.ErrorKind, detail string) {
	if r.failures != nil {
		r.failures.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("kind", string(kind))))
	}
	r.appendEvent(eventstore.Event{
		SessionID: sessionID,
		Sequence:  sequence,
		Type:      eventstore.EventRequestFailed,
		Detail:    string(kind) + ": " + detail,
	})
}

func (r *recorder) appendEvent(evt eventstore.Event) {
	if r.store == nil {
		return
	}
	ctx, cancel := r.writeCtx()
	defer cancel()
	if err := r.store.AppendEvent(ctx, evt); err != nil {
		r.log.Warn("failed to record event",
			slog.String("session_id", evt.SessionID),
			slog.String("event_type", evt.Type),
			slog.String("error", err.Error()))
	}
}

func (r *recorder) publish(subject string, v any) {
	if r.bus == nil || !r.bus.Healthy() {
		return
	}
	if err := r.bus.Publish(subject, v); err != nil {
		r.log.Warn("failed to publish event",
			slog.String("subject", subject),
			slog.String("error", err.Error()))
	}
}
