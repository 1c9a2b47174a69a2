package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/swagat-panda/VocalWeaver/internal/protocol"
	"github.com/swagat-panda/VocalWeaver/internal/session"
	"github.com/swagat-panda/VocalWeaver/internal/voice"
)

// Server upgrades client connections and pumps messages between the
// socket and the session pipeline. One connection = one session.
type Server struct {
	manager       *session.Manager
	voices        *voice.Registry
	defaultFormat string
	logger        *slog.Logger
	upgrader      websocket.Upgrader
}

func New(manager *session.Manager, voices *voice.Registry, defaultFormat string, logger *slog.Logger) *Server {
	return &Server{
		manager:       manager,
		voices:        voices,
		defaultFormat: defaultFormat,
		logger:        logger.With(slog.String("component", "ws-server")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local capture UI connects from file:// or another port.
				return true
			},
		},
	}
}

// HandleWS is the /ws endpoint.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	emitter := newConnEmitter(conn, s.logger)
	pipeline := s.manager.Open(emitter)
	sess := pipeline.Session()

	// The connection context outlives the HTTP handler's own context;
	// it ends only when the socket does.
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		emitter.shutdown()
		conn.Close()
		s.manager.Close(sess.ID())
	}()

	emitter.writeJSON(protocol.VoicesMessage{
		Type:    protocol.TypeVoices,
		Voices:  s.voices.IDs(),
		Default: s.voices.Default(),
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("connection lost",
					slog.String("session_id", sess.ID()),
					slog.String("error", err.Error()))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.submit(ctx, pipeline, s.defaultFormat, data)
		case websocket.TextMessage:
			s.dispatch(ctx, pipeline, data)
		}
	}
}

// dispatch routes one JSON frame: control messages apply to the session
// synchronously, audio messages go through the pipeline.
func (s *Server) dispatch(ctx context.Context, pipeline *session.Pipeline, data []byte) {
	sess := pipeline.Session()

	var msg protocol.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("failed to decode client message",
			slog.String("session_id", sess.ID()),
			slog.String("error", err.Error()))
		return
	}

	switch msg.Type {
	case protocol.TypeControl:
		if msg.Voice != "" {
			sess.SetVoice(msg.Voice)
			s.logger.Debug("voice selected",
				slog.String("session_id", sess.ID()),
				slog.String("voice", msg.Voice))
		}
	case protocol.TypeAudio:
		if msg.Voice != "" {
			sess.SetVoice(msg.Voice)
		}
		format := msg.Format
		if format == "" {
			format = s.defaultFormat
		}
		s.submit(ctx, pipeline, format, msg.Audio)
	default:
		s.logger.Warn("unknown message type",
			slog.String("session_id", sess.ID()),
			slog.String("type", msg.Type))
	}
}

func (s *Server) submit(ctx context.Context, pipeline *session.Pipeline, format string, data []byte) {
	if err := pipeline.Submit(ctx, format, data); err != nil {
		// Busy rejections were already reported to the client.
		if !errors.Is(err, session.ErrBusy) {
			s.logger.Warn("submit failed",
				slog.String("session_id", pipeline.Session().ID()),
				slog.String("error", err.Error()))
		}
	}
}

// connEmitter serializes writes to one websocket connection. After
// shutdown it silently discards, which is how results of in-flight work
// are dropped once the client is gone.
type connEmitter struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	logger *slog.Logger
}

func newConnEmitter(conn *websocket.Conn, logger *slog.Logger) *connEmitter {
	return &connEmitter{conn: conn, logger: logger}
}

func (e *connEmitter) EmitResult(res session.Result) {
	e.writeJSON(protocol.ResultMessage{
		Type:       protocol.TypeResult,
		Sequence:   res.Sequence,
		Transcript: res.Transcript,
		Audio:      res.Audio,
		Voice:      res.Voice,
	})
}

func (e *connEmitter) EmitError(sequence *uint64, kind protocol.ErrorKind, detail string) {
	e.writeJSON(protocol.ErrorMessage{
		Type:     protocol.TypeError,
		Sequence: sequence,
		Kind:     kind,
		Detail:   detail,
	})
}

func (e *connEmitter) writeJSON(v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	if err := e.conn.WriteJSON(v); err != nil {
		e.logger.Debug("write to client failed", slog.String("error", err.Error()))
		e.closed = true
	}
}

func (e *connEmitter) shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}
