package httpapi

import (
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	// Builder runs and reports corpus builds.
	Builder driving.CorpusBuilder

	// Retriever answers queries.
	Retriever driving.Retriever

	// Viewer serves read-only corpus browsing.
	Viewer driving.CorpusViewer

	// Glossary manages glossary files.
	Glossary driving.GlossaryService
}

// Validate ensures all ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Builder == nil:
		return ErrMissingBuilder
	case p.Retriever == nil:
		return ErrMissingRetriever
	case p.Viewer == nil:
		return ErrMissingViewer
	case p.Glossary == nil:
		return ErrMissingGlossary
	}
	return nil
}
