// Package conceptmap holds the prompts for the structured concept-map
// phase of document generation.
package conceptmap

import (
	_ "embed"

	"github.com/latticedocs/lattice/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

// Hierarchical keys for these prompts.
const (
	SystemKey = "stages.conceptmap.system"
	UserKey   = "stages.conceptmap.user"
)

// SystemPrompt returns the default concept-map system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the concept-map prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Concept-map system prompt - requests a single JSON object describing the topic graph",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Concept-map user prompt - names the topic and audience",
	})
}
