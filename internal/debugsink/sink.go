package debugsink

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Stage names one step of a request whose artifact may be captured.
type Stage string

const (
	StageRaw         Stage = "raw"
	StageConverted   Stage = "converted"
	StageSynthesized Stage = "synthesized"
)

// Sink persists intermediate audio artifacts. Capture is best-effort:
// implementations log failures and never return them, so the pipeline's
// control flow is identical whether capture is on or off.
type Sink interface {
	Capture(sessionID string, sequence uint64, stage Stage, ext string, data []byte)
}

type nopSink struct{}

func (nopSink) Capture(string, uint64, Stage, string, []byte) {}

// NewNopSink returns a sink that discards everything. Used when debug
// capture is disabled.
func NewNopSink() Sink {
	return nopSink{}
}

type fileSink struct {
	dir string
	log *slog.Logger
}

// NewFileSink writes one file per (session, sequence, stage) under dir.
// Keys never collide across concurrent sessions, so writes need no
// coordination.
func NewFileSink(dir string, log *slog.Logger) (Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}
	return &fileSink{dir: dir, log: log.With(slog.String("component", "debug-sink"))}, nil
}

func (s *fileSink) Capture(sessionID string, sequence uint64, stage Stage, ext string, data []byte) {
	name := fmt.Sprintf("%s_%d_%s.%s", sessionID, sequence, stage, ext)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.log.Warn("failed to capture debug artifact",
			slog.String("session_id", sessionID),
			slog.Uint64("sequence", sequence),
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()))
	}
}
