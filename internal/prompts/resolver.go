package prompts

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Resolver resolves prompt keys with file-based overrides.
// Resolution order: overrides directory > embedded default.
type Resolver struct {
	embedded  map[string]EmbeddedPrompt
	overrides map[string]string
	mu        sync.RWMutex
	logger    *slog.Logger
}

// NewResolver creates a new prompt resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedded:  make(map[string]EmbeddedPrompt),
		overrides: make(map[string]string),
		logger:    logger,
	}
}

// Register registers an embedded prompt. Called during initialization
// by each stage package.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}
	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "vars", prompt.Variables)
}

// LoadOverrides loads override templates from dir. Each file named
// <key>.tmpl overrides the embedded prompt with that key. A missing
// directory is not an error.
func (r *Resolver) LoadOverrides(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read prompt overrides: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		key := strings.TrimSuffix(name, ".tmpl")
		if _, ok := r.embedded[key]; !ok {
			r.logger.Warn("prompt override has no embedded counterpart", "key", key)
			continue
		}
		text, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read prompt override %s: %w", name, err)
		}
		r.overrides[key] = string(text)
		r.logger.Info("loaded prompt override", "key", key)
	}
	return nil
}

// Resolve returns the prompt text for a key, preferring overrides.
func (r *Resolver) Resolve(key string) (*ResolvedPrompt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolveLocked(key)
}

// Render resolves a key and executes its template against data.
func (r *Resolver) Render(key string, data any) (string, error) {
	resolved, err := r.Resolve(key)
	if err != nil {
		return "", err
	}
	return Render(key, resolved.Text, data)
}

// List returns all registered prompts sorted by key.
func (r *Resolver) List() []ResolvedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ResolvedPrompt, 0, len(r.embedded))
	for key := range r.embedded {
		p, _ := r.resolveLocked(key)
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r *Resolver) resolveLocked(key string) (*ResolvedPrompt, error) {
	if text, ok := r.overrides[key]; ok {
		return &ResolvedPrompt{
			Key:        key,
			Text:       text,
			Variables:  ExtractVariables(text),
			IsOverride: true,
			Hash:       HashText(text),
		}, nil
	}
	if p, ok := r.embedded[key]; ok {
		return &ResolvedPrompt{
			Key:       key,
			Text:      p.Text,
			Variables: p.Variables,
			Hash:      p.Hash,
		}, nil
	}
	return nil, fmt.Errorf("unknown prompt key: %s", key)
}
