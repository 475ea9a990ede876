// Package narrative holds the prompts for the markdown-writing phase of
// document generation, including the continuation prompt used when a
// stream ends mid-document.
package narrative

import (
	_ "embed"

	"github.com/latticedocs/lattice/internal/prompts"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPrompt string

//go:embed continuation.tmpl
var continuationPrompt string

// Hierarchical keys for these prompts.
const (
	SystemKey       = "stages.narrative.system"
	UserKey         = "stages.narrative.user"
	ContinuationKey = "stages.narrative.continuation"
)

// SystemPrompt returns the default narrative system prompt.
func SystemPrompt() string {
	return systemPrompt
}

// RegisterPrompts registers the narrative prompts with the resolver.
func RegisterPrompts(r *prompts.Resolver) {
	r.Register(prompts.EmbeddedPrompt{
		Key:         SystemKey,
		Text:        systemPrompt,
		Description: "Narrative system prompt - structured markdown chapter accompanying the concept map",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         UserKey,
		Text:        userPrompt,
		Description: "Narrative user prompt - topic plus the concept map JSON to cover",
	})
	r.Register(prompts.EmbeddedPrompt{
		Key:         ContinuationKey,
		Text:        continuationPrompt,
		Description: "Continuation prompt - resumes a narrative that was cut off mid-stream",
	})
}
