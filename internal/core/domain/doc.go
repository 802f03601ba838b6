// Package domain defines the core entities of the corpus subsystem.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceDocument: A file discovered in the ingestion directory
//   - ParsedDocument: Normalised Markdown plus extracted images
//   - Chunk: The atomic retrieval unit, scoped to a heading section
//   - GlossaryEntry / SynonymGroup: Expert terminology
//   - RetrievalResult: Cited chunks or the "no evidence" outcome
//   - BuildReport: The outcome of one corpus rebuild
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
