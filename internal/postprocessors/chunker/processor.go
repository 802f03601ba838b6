// Package chunker splits normalised Markdown into heading-scoped, overlapping
// chunks for the vector index.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"unicode/utf8"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultMaxChunkSize is the default maximum number of characters per chunk.
const DefaultMaxChunkSize = 1200

// DefaultChunkOverlap is the default number of characters copied from the
// tail of a chunk into the next chunk of the same section.
const DefaultChunkOverlap = 100

// DefaultMinChunkSize is the size below which a split chunk takes trailing
// paragraphs from the previous chunk of its section.
const DefaultMinChunkSize = 200

// paragraphSeparator joins paragraphs inside a chunk.
const paragraphSeparator = "\n\n"

var imageRefPattern = regexp.MustCompile(`!\[[^\]]*\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)

// Processor splits Markdown by headings, then by paragraphs when a section
// exceeds the maximum chunk size. Sizes are counted in characters (runes).
type Processor struct {
	maxSize int
	minSize int
	overlap int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChunkSize sets the maximum chunk size in characters.
func WithMaxChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.maxSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMinChunkSize sets the size under which a split chunk is filled from
// the previous chunk of the same section.
func WithMinChunkSize(size int) Option {
	return func(p *Processor) {
		if size >= 0 {
			p.minSize = size
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxSize: DefaultMaxChunkSize,
		minSize: DefaultMinChunkSize,
		overlap: DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.maxSize {
		p.overlap = p.maxSize / 4
	}
	if p.minSize >= p.maxSize {
		p.minSize = p.maxSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "semantic-chunker"
}

// Chunk splits the document into chunks with indexes starting at 0.
func (p *Processor) Chunk(doc *domain.ParsedDocument) []domain.Chunk {
	if doc == nil {
		return nil
	}

	docID := doc.Source.ID
	if docID == "" {
		docID = domain.DocumentID(doc.Source.RelPath)
	}

	var chunks []domain.Chunk
	for _, sec := range splitSections(doc.Markdown) {
		for _, piece := range p.splitSection(sec.text) {
			chunks = append(chunks, newChunk(docID, len(chunks), doc.Source.RelPath, sec.path, piece))
		}
	}
	return chunks
}

func newChunk(docID string, index int, sourcePath string, path []string, piece piece) domain.Chunk {
	sum := sha256.Sum256([]byte(piece.content))

	var refs []string
	for _, m := range imageRefPattern.FindAllStringSubmatch(piece.content, -1) {
		refs = append(refs, m[1])
	}

	headingPath := make([]string, len(path))
	copy(headingPath, path)

	return domain.Chunk{
		ID:          domain.ChunkID(docID, index),
		DocumentID:  docID,
		Index:       index,
		SourcePath:  sourcePath,
		HeadingPath: headingPath,
		Content:     piece.content,
		ContentHash: hex.EncodeToString(sum[:]),
		Overlap:     piece.overlap,
		HasImages:   len(refs) > 0,
		ImageRefs:   refs,
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
