package llm

import (
	"fmt"
	"log"
	"sort"
	"sync"
)

// Registry holds the mapping between provider names and their Generator
// implementations.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Register adds a generator under name, replacing any previous one.
func (r *Registry) Register(name string, g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.generators[name]; exists {
		log.Printf("WARN [LLMRegistry] Provider '%s' is already registered. Overwriting.", name)
	}
	r.generators[name] = g
	log.Printf("[LLMRegistry] Registered provider: %s", name)
}

// Get retrieves a generator by provider name.
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, exists := r.generators[name]
	if !exists {
		return nil, fmt.Errorf("no LLM provider registered under name: %s", name)
	}
	return g, nil
}

// Names lists registered providers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
