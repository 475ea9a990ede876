package producer

import (
	"fmt"
	"log/slog"
	"sync"
)

// Spec describes one configured producer for Reload.
type Spec struct {
	Type      string
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit int // Requests per minute
	Enabled   bool
}

// Registry holds named producers. It supports config-driven
// instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu        sync.RWMutex
	producers map[string]Producer
	failures  map[string]error
	logger    *slog.Logger
}

// NewRegistry creates a new empty producer registry.
func NewRegistry() *Registry {
	return &Registry{
		producers: make(map[string]Producer),
		failures:  make(map[string]error),
		logger:    slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers a producer by name.
func (r *Registry) Register(name string, p Producer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producers[name] = p
	if r.logger != nil {
		r.logger.Info("registered producer", "name", name)
	}
}

// Unregister removes a producer by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.producers, name)
	if r.logger != nil {
		r.logger.Info("unregistered producer", "name", name)
	}
}

// Get returns a producer by name. If the producer failed to build
// during the last Reload, the construction error is returned so
// misconfiguration surfaces to the caller instead of a bare not-found.
func (r *Registry) Get(name string) (Producer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.producers[name]
	if !ok {
		if err, failed := r.failures[name]; failed {
			return nil, err
		}
		return nil, fmt.Errorf("producer not found: %s", name)
	}
	return p, nil
}

// Reload rebuilds the registry from configuration. Producers present
// in cfg are created or replaced; producers absent from cfg are
// removed. Construction failures are remembered and reported by Get.
func (r *Registry) Reload(cfg map[string]Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, spec := range cfg {
		if !spec.Enabled {
			continue
		}
		want[name] = true

		p, err := buildProducer(spec)
		if err != nil {
			delete(r.producers, name)
			r.failures[name] = err
			r.logger.Warn("producer unavailable", "name", name, "error", err)
			continue
		}
		delete(r.failures, name)
		r.producers[name] = p
		r.logger.Info("registered producer", "name", name, "type", spec.Type)
	}

	for name := range r.producers {
		if !want[name] {
			delete(r.producers, name)
			r.logger.Info("unregistered producer", "name", name)
		}
	}
	for name := range r.failures {
		if !want[name] {
			delete(r.failures, name)
		}
	}
}

func buildProducer(spec Spec) (Producer, error) {
	switch spec.Type {
	case GeminiName, "":
		return NewGeminiClient(GeminiConfig{
			APIKey:       spec.APIKey,
			BaseURL:      spec.BaseURL,
			DefaultModel: spec.Model,
			RateLimit:    spec.RateLimit,
		})
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       spec.APIKey,
			BaseURL:      spec.BaseURL,
			DefaultModel: spec.Model,
			RateLimit:    spec.RateLimit,
		}), nil
	default:
		return nil, fmt.Errorf("unknown producer type: %s", spec.Type)
	}
}

// List returns all registered producer names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.producers))
	for name := range r.producers {
		names = append(names, name)
	}
	return names
}
