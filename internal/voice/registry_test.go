package voice

import (
	"errors"
	"testing"

	"github.com/swagat-panda/VocalWeaver/internal/config"
)

func testVoices() config.VoicesConfig {
	return config.VoicesConfig{
		Default: "amy",
		Models: []config.VoiceModelConfig{
			{ID: "amy", ModelPath: "amy.onnx", ConfigPath: "amy.onnx.json"},
			{ID: "ryan", ModelPath: "ryan.onnx", ConfigPath: "ryan.onnx.json"},
		},
	}
}

func TestLookup(t *testing.T) {
	reg, err := NewRegistry(testVoices())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	model, err := reg.Voice("ryan")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if model.ModelPath != "ryan.onnx" {
		t.Fatalf("unexpected model path %q", model.ModelPath)
	}
}

func TestUnknownVoice(t *testing.T) {
	reg, err := NewRegistry(testVoices())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if _, err := reg.Voice("ghost"); !errors.Is(err, ErrUnknownVoice) {
		t.Fatalf("expected ErrUnknownVoice, got %v", err)
	}
}

func TestDefaultFallsBackToFirstModel(t *testing.T) {
	cfg := testVoices()
	cfg.Default = ""
	reg, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if reg.Default() != "amy" {
		t.Fatalf("expected first model as default, got %q", reg.Default())
	}
}

func TestIDsSorted(t *testing.T) {
	reg, err := NewRegistry(testVoices())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	ids := reg.IDs()
	if len(ids) != 2 || ids[0] != "amy" || ids[1] != "ryan" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestEmptyConfigRejected(t *testing.T) {
	if _, err := NewRegistry(config.VoicesConfig{}); err == nil {
		t.Fatal("expected error for empty voice set")
	}
}
