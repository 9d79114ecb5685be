package grammar

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/shapefmt/internal/engine"
	"github.com/roach88/shapefmt/internal/grammar/stmt"
	"github.com/roach88/shapefmt/internal/ir"
)

// Registry routes Parse calls to the provider registered for a language.
// It implements engine.TreeProvider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]engine.TreeProvider
}

// NewRegistry returns a registry holding the stmt parser and every
// tree-sitter grammar.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]engine.TreeProvider)}
	r.Register(stmt.Language, stmt.Parser{})
	ts := NewTreeSitter()
	for _, id := range ts.Languages() {
		r.Register(id, ts)
	}
	return r
}

// Register binds language to p, replacing any previous provider.
func (r *Registry) Register(language string, p engine.TreeProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[language] = p
}

// Languages returns the registered language ids, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Parse implements engine.TreeProvider. An unregistered language is a
// READING error.
func (r *Registry) Parse(ctx context.Context, source []byte, language string) (*ir.Tree, error) {
	r.mu.RLock()
	p, ok := r.providers[language]
	r.mu.RUnlock()
	if !ok {
		return nil, engine.NewReadingError(fmt.Sprintf("no grammar for language %q", language), nil)
	}
	return p.Parse(ctx, source, language)
}
