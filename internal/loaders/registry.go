// Package loaders provides the document loader registry and the
// built-in format loaders.
package loaders

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/aska-cli/internal/core/domain"
	"github.com/custodia-labs/aska-cli/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.LoaderRegistry = (*Registry)(nil)

// Registry maps file extensions to loaders. A later registration for
// an already-claimed extension replaces the earlier one.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]driven.Loader
}

// NewRegistry creates an empty loader registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[string]driven.Loader),
	}
}

// DefaultRegistry creates a registry with the built-in loaders.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPlaintext())
	r.Register(NewMarkdown())
	return r
}

// Register adds a loader for its declared extensions.
func (r *Registry) Register(l driven.Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range l.Extensions() {
		r.loaders[strings.ToLower(ext)] = l
	}
}

// Load parses path using the loader registered for its extension.
func (r *Registry) Load(ctx context.Context, path string) (*driven.LoadResult, error) {
	ext := strings.ToLower(filepath.Ext(path))

	r.mu.RLock()
	l, ok := r.loaders[ext]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: no loader for extension %q", domain.ErrInvalidInput, ext)
	}
	return l.Load(ctx, path)
}

// titleFromPath derives a human-readable title from a file path.
func titleFromPath(path string) string {
	name := filepath.Base(path)
	if ext := filepath.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}
