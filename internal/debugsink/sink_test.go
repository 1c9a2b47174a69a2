package debugsink

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFileSinkNaming(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, newLogger())
	if err != nil {
		t.Fatalf("new file sink: %v", err)
	}
	sink.Capture("s1", 7, StageRaw, "webm", []byte("raw-bytes"))
	sink.Capture("s1", 7, StageConverted, "wav", []byte("converted-bytes"))
	sink.Capture("s1", 7, StageSynthesized, "wav", []byte("synth-bytes"))

	for _, name := range []string{"s1_7_raw.webm", "s1_7_converted.wav", "s1_7_synthesized.wav"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("expected artifact %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("artifact %s is empty", name)
		}
	}
}

func TestFileSinkConcurrentSessionsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, newLogger())
	if err != nil {
		t.Fatalf("new file sink: %v", err)
	}
	sink.Capture("a", 1, StageRaw, "webm", []byte("a"))
	sink.Capture("b", 1, StageRaw, "webm", []byte("b"))

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(entries))
	}
}

func TestFileSinkSwallowsWriteFailures(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSink(dir, newLogger())
	if err != nil {
		t.Fatalf("new file sink: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	// Must not panic or surface an error.
	sink.Capture("s1", 1, StageRaw, "webm", []byte("data"))
}

func TestNopSink(t *testing.T) {
	NewNopSink().Capture("s1", 1, StageRaw, "webm", []byte("data"))
}
