package models

import (
	"firecircle/internal/openrouter"
)

// Registry holds the pool of models a circle can seat as voices.
type Registry struct {
	free []openrouter.Model
}

// NewRegistry creates a registry, keeping only free models (Prompt == "0" and Completion == "0").
// Models with nil Pricing are excluded.
func NewRegistry(models []openrouter.Model) *Registry {
	var free []openrouter.Model
	for _, m := range models {
		if m.Pricing == nil {
			continue
		}
		if m.Pricing.Prompt == "0" && m.Pricing.Completion == "0" {
			free = append(free, m)
		}
	}
	return &Registry{free: free}
}

// FreeModels returns all free models in the registry.
func (r *Registry) FreeModels() []openrouter.Model {
	return r.free
}

// SelectVoices returns up to n distinct models for seating around the
// circle. Every participant must be a distinct voice, so the list never
// cycles: if fewer than n free models exist, all of them are returned.
func (r *Registry) SelectVoices(n int) []openrouter.Model {
	if len(r.free) == 0 {
		return nil
	}
	if n > len(r.free) {
		n = len(r.free)
	}
	selected := make([]openrouter.Model, n)
	copy(selected, r.free[:n])
	return selected
}

// DefaultVoices returns a hardcoded fallback list of known free models,
// used when the model catalog cannot be fetched.
func DefaultVoices() []openrouter.Model {
	return []openrouter.Model{
		{ID: "qwen/qwen3-235b-a22b:free", Name: "Qwen3 235B A22B", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
		{ID: "google/gemma-3n-e2b-it:free", Name: "Gemma 3n 2B", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
		{ID: "nvidia/nemotron-nano-9b-v2:free", Name: "Nemotron Nano 9B V2", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
		{ID: "qwen/qwen3-coder:free", Name: "Qwen3 Coder 480B A35B", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
		{ID: "openai/gpt-oss-120b:free", Name: "GPT OSS 120B", Pricing: &openrouter.Pricing{Prompt: "0", Completion: "0"}},
	}
}

// structuredVoices lists model families known to return clean JSON when
// asked. Anything else goes through the regex fallback path first.
var structuredVoices = map[string]bool{
	"qwen/qwen3-235b-a22b:free": true,
	"qwen/qwen3-coder:free":     true,
	"openai/gpt-oss-120b:free":  true,
}

// Structured reports whether a model is trusted to honor a JSON-only
// response instruction.
func Structured(id string) bool {
	return structuredVoices[id]
}
