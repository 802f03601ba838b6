package parsers

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps each format to exactly one parser. Registering a second
// parser for a format replaces the first.
type Registry struct {
	mu      sync.RWMutex
	parsers map[domain.Format]driven.Parser
}

// NewRegistry creates a registry with the given parsers.
func NewRegistry(parsers ...driven.Parser) *Registry {
	r := &Registry{parsers: make(map[domain.Format]driven.Parser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Register adds a parser for each of its formats.
func (r *Registry) Register(p driven.Parser) {
	if p == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range p.Formats() {
		r.parsers[f] = p
	}
}

// Supports reports whether a parser is registered for the format.
func (r *Registry) Supports(format domain.Format) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parsers[format]
	return ok
}

// Parse dispatches to the parser for req.Source.Format.
func (r *Registry) Parse(ctx context.Context, req driven.ParseRequest) (*domain.ParsedDocument, error) {
	r.mu.RLock()
	p, ok := r.parsers[req.Source.Format]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, req.Source.Format)
	}
	return p.Parse(ctx, req)
}
