package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate 16000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.DefaultFormat != "webm" {
		t.Fatalf("expected default container webm, got %q", cfg.Audio.DefaultFormat)
	}
	if cfg.STT.Mode != "mock" || cfg.TTS.Mode != "mock" {
		t.Fatalf("expected mock adapters by default")
	}
	if cfg.Debug.Enabled {
		t.Fatal("debug capture should be off by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VW_AUDIO_SAMPLE_RATE", "8000")
	t.Setenv("VW_AUDIO_DEFAULT_FORMAT", "ogg")
	t.Setenv("VW_VOICES_DEFAULT", "amy")
	t.Setenv("VW_DEBUG_ENABLED", "true")
	t.Setenv("VW_DEBUG_DIR", "/tmp/vw-debug")
	t.Setenv("VW_PIPELINE_REQUEST_TIMEOUT_MS", "1000")
	t.Setenv("VW_BUS_ENABLED", "true")
	t.Setenv("VW_BUS_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Fatalf("expected sample rate override, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.DefaultFormat != "ogg" {
		t.Fatalf("expected format override, got %q", cfg.Audio.DefaultFormat)
	}
	if cfg.Voices.Default != "amy" {
		t.Fatalf("expected default voice override, got %q", cfg.Voices.Default)
	}
	if !cfg.Debug.Enabled || cfg.Debug.Dir != "/tmp/vw-debug" {
		t.Fatalf("expected debug overrides, got %+v", cfg.Debug)
	}
	if cfg.Pipeline.RequestTimeoutMS != 1000 {
		t.Fatalf("expected timeout override, got %d", cfg.Pipeline.RequestTimeoutMS)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 bus servers, got %v", cfg.Bus.Servers)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vocalweaver.yaml")
	data := []byte(`
audio:
  sample_rate: 16000
  default_format: wav
voices:
  default: amy
  models:
    - id: amy
      model_path: ./voices/en_US-amy-medium.onnx
      config_path: ./voices/en_US-amy-medium.onnx.json
    - id: ryan
      model_path: ./voices/en_US-ryan-high.onnx
      config_path: ./voices/en_US-ryan-high.onnx.json
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Voices.Models) != 2 {
		t.Fatalf("expected 2 voices, got %d", len(cfg.Voices.Models))
	}
	if cfg.Voices.Default != "amy" {
		t.Fatalf("expected default voice amy, got %q", cfg.Voices.Default)
	}
}

func TestValidateRejectsUnknownDefaultVoice(t *testing.T) {
	cfg := Default()
	cfg.Voices.Default = "ghost"
	cfg.Voices.Models = []VoiceModelConfig{{ID: "amy"}}
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for unknown default voice")
	}
}

func TestValidateRejectsExecWithoutCommand(t *testing.T) {
	cfg := Default()
	cfg.STT.Mode = "exec"
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for exec stt without command")
	}
	cfg = Default()
	cfg.TTS.Mode = "exec"
	if err := validate(cfg); err == nil {
		t.Fatal("expected validation error for exec tts without command")
	}
}
