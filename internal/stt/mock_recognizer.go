package stt

import (
	"context"
	"fmt"
)

type mockRecognizer struct{}

// NewMockRecognizer returns a recognizer that fabricates a transcript
// from the clip length. Useful for wiring tests without a model.
func NewMockRecognizer() Recognizer {
	return &mockRecognizer{}
}

func (m *mockRecognizer) Transcribe(_ context.Context, pcm []byte) (Result, error) {
	return Result{
		Text:       fmt.Sprintf("[mock transcript length=%d]", len(pcm)),
		Confidence: 0,
	}, nil
}
