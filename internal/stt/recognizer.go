package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/swagat-panda/VocalWeaver/internal/config"
)

// ErrTranscription marks an STT engine failure. Request-scoped, never
// session-fatal.
var ErrTranscription = errors.New("transcription failed")

// Result captures recognizer output. An empty Text means no speech was
// detected in the clip.
type Result struct {
	Text       string
	Confidence float64
}

// Recognizer abstracts STT backends. Input is canonical PCM.
type Recognizer interface {
	Transcribe(ctx context.Context, pcm []byte) (Result, error)
}

// New builds a recognizer from config.
func New(cfg config.STTConfig, canonical config.AudioConfig) (Recognizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockRecognizer(), nil
	case "exec":
		return NewExecRecognizer(cfg, canonical)
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}
