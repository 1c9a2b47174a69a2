package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/swagat-panda/VocalWeaver/internal/audio"
	"github.com/swagat-panda/VocalWeaver/internal/debugsink"
	"github.com/swagat-panda/VocalWeaver/internal/stt"
	"github.com/swagat-panda/VocalWeaver/internal/tts"
	"github.com/swagat-panda/VocalWeaver/internal/voice"
)

// Deps bundles the collaborators every pipeline shares. The registry and
// adapters are safe for concurrent use across sessions.
type Deps struct {
	Transcoder audio.Transcoder
	Recognizer stt.Recognizer
	Synth      tts.Synthesizer
	Voices     *voice.Registry
	Sink       debugsink.Sink
	Observer   Observer
	Canonical  audio.Format
	Timeout    time.Duration
	Debug      bool
}

// Manager owns all live sessions: one Session + one Pipeline per
// connection. A session's failure or slowness never touches another
// session; each pipeline runs its compute on its own goroutine.
type Manager struct {
	deps   Deps
	logger *slog.Logger
	tracer trace.Tracer

	mu        sync.Mutex
	pipelines map[string]*Pipeline

	sessionsGauge   metric.Int64UpDownCounter
	requestDuration metric.Float64Histogram
}

func NewManager(deps Deps, logger *slog.Logger) *Manager {
	if deps.Observer == nil {
		deps.Observer = NopObserver()
	}
	m := &Manager{
		deps:      deps,
		logger:    logger.With(slog.String("component", "session-manager")),
		tracer:    otel.Tracer("github.com/swagat-panda/VocalWeaver/internal/session"),
		pipelines: make(map[string]*Pipeline),
	}
	meter := otel.Meter("github.com/swagat-panda/VocalWeaver/internal/session")
	if gauge, err := meter.Int64UpDownCounter("vocalweaver.sessions.active",
		metric.WithDescription("Number of live sessions")); err == nil {
		m.sessionsGauge = gauge
	} else {
		m.logger.Warn("failed to initialize session gauge", slog.String("error", err.Error()))
	}
	if hist, err := meter.Float64Histogram("vocalweaver.request.duration",
		metric.WithDescription("End-to-end request processing time"),
		metric.WithUnit("s")); err == nil {
		m.requestDuration = hist
	} else {
		m.logger.Warn("failed to initialize duration histogram", slog.String("error", err.Error()))
	}
	return m
}

// Open creates a Session and its Pipeline for a new connection.
func (m *Manager) Open(emitter Emitter) *Pipeline {
	sess := newSession(uuid.NewString(), m.deps.Voices.Default(), m.deps.Debug)
	p := &Pipeline{
		session:    sess,
		transcoder: m.deps.Transcoder,
		recognizer: m.deps.Recognizer,
		synth:      m.deps.Synth,
		voices:     m.deps.Voices,
		sink:       m.deps.Sink,
		emitter:    emitter,
		observer:   m.deps.Observer,
		logger:     m.logger,
		tracer:     m.tracer,
		duration:   m.requestDuration,
		canonical:  m.deps.Canonical,
		timeout:    m.deps.Timeout,
	}

	m.mu.Lock()
	m.pipelines[sess.ID()] = p
	m.mu.Unlock()
	if m.sessionsGauge != nil {
		m.sessionsGauge.Add(context.Background(), 1)
	}
	m.deps.Observer.SessionOpened(sess.ID(), sess.Voice())

	m.logger.Info("session opened",
		slog.String("session_id", sess.ID()),
		slog.String("voice", sess.Voice()))
	return p
}

// Close releases a session after its connection is gone. Any in-flight
// request runs to completion with its result discarded; Close does not
// wait for it.
func (m *Manager) Close(sessionID string) {
	m.mu.Lock()
	_, ok := m.pipelines[sessionID]
	delete(m.pipelines, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}
	if m.sessionsGauge != nil {
		m.sessionsGauge.Add(context.Background(), -1)
	}
	m.deps.Observer.SessionClosed(sessionID)
	m.logger.Info("session closed", slog.String("session_id", sessionID))
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pipelines)
}

// Drain waits for every live pipeline's in-flight work. Used on shutdown.
func (m *Manager) Drain() {
	m.mu.Lock()
	pipelines := make([]*Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		pipelines = append(pipelines, p)
	}
	m.mu.Unlock()
	for _, p := range pipelines {
		p.Wait()
	}
}
