package voice

import (
	"errors"
	"fmt"
	"sort"

	"github.com/swagat-panda/VocalWeaver/internal/config"
)

// ErrUnknownVoice marks a lookup for a voice id that was never loaded.
// Request-scoped, never session-fatal.
var ErrUnknownVoice = errors.New("unknown voice")

// Model identifies one loaded synthesis model. Immutable once built and
// shared read-only across all sessions.
type Model struct {
	ID         string
	ModelPath  string
	ConfigPath string
}

// Registry maps voice ids to loaded models. It is constructed once at
// startup and never mutated, so concurrent reads need no locking.
type Registry struct {
	models       map[string]Model
	defaultVoice string
}

// NewRegistry builds the registry from config. The default voice falls
// back to the first configured model when unset.
func NewRegistry(cfg config.VoicesConfig) (*Registry, error) {
	if len(cfg.Models) == 0 {
		return nil, errors.New("no voices configured")
	}
	models := make(map[string]Model, len(cfg.Models))
	for _, vm := range cfg.Models {
		if _, exists := models[vm.ID]; exists {
			return nil, fmt.Errorf("duplicate voice id %q", vm.ID)
		}
		models[vm.ID] = Model{ID: vm.ID, ModelPath: vm.ModelPath, ConfigPath: vm.ConfigPath}
	}
	defaultVoice := cfg.Default
	if defaultVoice == "" {
		defaultVoice = cfg.Models[0].ID
	}
	if _, ok := models[defaultVoice]; !ok {
		return nil, fmt.Errorf("default voice %q is not configured", defaultVoice)
	}
	return &Registry{models: models, defaultVoice: defaultVoice}, nil
}

// Voice looks up a loaded model by id.
func (r *Registry) Voice(id string) (Model, error) {
	model, ok := r.models[id]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q", ErrUnknownVoice, id)
	}
	return model, nil
}

// Default returns the configured default voice id.
func (r *Registry) Default() string {
	return r.defaultVoice
}

// IDs returns all registered voice ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
