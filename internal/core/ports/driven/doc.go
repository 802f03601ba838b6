// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Parser: Converts one source file into normalised Markdown
//   - ParserRegistry: Dispatches a file to its parser variant by format
//   - Chunker: Splits normalised Markdown into heading-scoped chunks
//   - VectorIndex: Builds and atomically swaps searchable index generations
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Without it, VectorIndex uses the deterministic hash fallback.
//   - RerankService: Without it, retrieval keeps the vector ranking and skips the rejection gate.
//   - IndexStore: Without it, index generations live in memory only.
//   - LayoutEngine: Without it, Word/PDF/PPT files are skipped as unsupported.
//   - AIConfigValidator: Only used by `corpus config check`.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, parser, or postprocessor package
package driven
