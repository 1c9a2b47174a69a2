package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/swagat-panda/VocalWeaver/internal/voice"
)

type execSynth struct {
	cmd        []string
	sampleRate int
	channels   int
	mu         sync.Mutex
}

// NewExecSynth wraps an external TTS command (e.g. piper). Text goes in
// on stdin, the complete WAV clip comes back on stdout.
func NewExecSynth(command string, sampleRate, channels int) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynth{cmd: args, sampleRate: sampleRate, channels: channels}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, text string, model voice.Model) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	base := e.cmd[0]
	args := append([]string{}, e.cmd[1:]...)
	if model.ModelPath != "" {
		args = append(args, "--model", model.ModelPath)
	}
	if model.ConfigPath != "" {
		args = append(args, "--config", model.ConfigPath)
	}
	args = append(args, "--output_file", "-")

	cmd := exec.CommandContext(ctx, base, args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: tts command: %v: %s", ErrSynthesis, err, strings.TrimSpace(stderr.String()))
	}
	out := stdout.Bytes()
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: tts command produced no audio", ErrSynthesis)
	}
	return out, nil
}
