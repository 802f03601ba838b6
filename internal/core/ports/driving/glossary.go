package driving

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// GlossaryService manages expert terminology and synonym mappings.
// Reads are lock-free against an immutable snapshot; writes are serialised.
type GlossaryService interface {
	// Load replaces the in-memory glossary with the files in the glossary directory.
	Load(ctx context.Context) error

	// Upload validates and stores a glossary file, replacing any file with
	// the same name. Malformed files return *domain.GlossaryFormatError and
	// change nothing.
	Upload(ctx context.Context, filename string, data []byte) (*domain.GlossaryDelta, error)

	// Delete removes a glossary file. Returns domain.ErrNotFound if absent.
	Delete(ctx context.Context, filename string) error

	// List describes the loaded glossary files.
	List() []domain.GlossaryFileInfo

	// Entries returns all term definitions, sorted by term.
	Entries() []domain.GlossaryEntry

	// MatchTerms returns the canonical terms that appear in text
	// (case-insensitive substring match on terms and synonym variants).
	MatchTerms(text string) map[string]struct{}

	// ExpandSynonyms returns the term, its canonical form and all variants.
	ExpandSynonyms(term string) map[string]struct{}
}
