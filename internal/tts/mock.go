package tts

import (
	"context"
	"math"
	"time"

	"github.com/swagat-panda/VocalWeaver/internal/audio"
	"github.com/swagat-panda/VocalWeaver/internal/voice"
)

type mockSynth struct {
	sampleRate int
	channels   int
}

// NewMockSynth returns a synthesizer that produces a short tone instead
// of speech. Useful for wiring tests without a model.
func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels}
}

func (m *mockSynth) Synthesize(ctx context.Context, text string, _ voice.Model) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
	}

	// Clip length scales with the text so callers can tell outputs apart.
	frames := m.sampleRate / 10 * (1 + len(text)/20)
	samples := make([]int16, frames*m.channels)
	for i := 0; i < frames; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*330*float64(i)/float64(m.sampleRate)))
		for c := 0; c < m.channels; c++ {
			samples[i*m.channels+c] = v
		}
	}
	return audio.EncodeWAV(audio.Bytes(samples), audio.Format{
		SampleRate: m.sampleRate,
		Channels:   m.channels,
		BitDepth:   16,
	})
}
