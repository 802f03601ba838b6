package mcp

import (
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Retriever answers retrieve_corpus calls.
	Retriever driving.Retriever

	// Viewer backs the corpus://files resources. Optional.
	Viewer driving.CorpusViewer

	// Glossary backs the corpus://glossary resource. Optional.
	Glossary driving.GlossaryService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}
