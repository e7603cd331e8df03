package provider

import (
	"fmt"

	"github.com/Dieugene/agentic-doc-processing/pkg/config"
)

// Registry maps model ids to their configured invokers. Selection happens at
// construction time from configuration, never per request.
type Registry struct {
	invokers map[string]Invoker
}

// NewRegistry builds one invoker per configured model.
func NewRegistry(cfgs []config.ModelConfig) (*Registry, error) {
	r := &Registry{invokers: make(map[string]Invoker, len(cfgs))}
	for _, mc := range cfgs {
		inv, err := build(mc)
		if err != nil {
			return nil, fmt.Errorf("model %q: %w", mc.ID, err)
		}
		r.invokers[mc.ID] = inv
	}
	return r, nil
}

func build(mc config.ModelConfig) (Invoker, error) {
	switch mc.Provider {
	case "", "openai":
		return NewOpenAI(mc.APIKey, mc.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", mc.Provider)
	}
}

// Register installs (or replaces) the invoker for a model id.
func (r *Registry) Register(modelID string, inv Invoker) {
	r.invokers[modelID] = inv
}

// Lookup returns the invoker for a model id.
func (r *Registry) Lookup(modelID string) (Invoker, bool) {
	inv, ok := r.invokers[modelID]
	return inv, ok
}
