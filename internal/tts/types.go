package tts

import (
	"context"
	"errors"
	"fmt"

	"github.com/swagat-panda/VocalWeaver/internal/config"
	"github.com/swagat-panda/VocalWeaver/internal/voice"
)

// ErrSynthesis marks a TTS engine failure. Request-scoped, never
// session-fatal.
var ErrSynthesis = errors.New("synthesis failed")

// Synthesizer is the contract for producing audio. The returned bytes
// are a complete encoded clip (WAV) in the synthesizer's output format.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, model voice.Model) ([]byte, error)
}

// New builds a synthesizer from config.
func New(cfg config.TTSConfig) (Synthesizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockSynth(cfg.SampleRate, cfg.Channels), nil
	case "exec":
		return NewExecSynth(cfg.Command, cfg.SampleRate, cfg.Channels)
	default:
		return nil, fmt.Errorf("unknown tts mode %q", cfg.Mode)
	}
}
