package domain

import (
	"fmt"
	"strings"
)

// HeadingSeparator joins heading titles for display.
const HeadingSeparator = " > "

// Chunk is the atomic retrieval unit, scoped to one heading section of a
// source document.
type Chunk struct {
	// ID is the synthetic key in the vector index, see ChunkID.
	ID string `json:"id"`

	// DocumentID links to the parent document.
	DocumentID string `json:"document_id"`

	// Index is the ordinal within the document, starting at 0.
	Index int `json:"chunk_index"`

	// SourcePath is the source-relative path of the parent document.
	SourcePath string `json:"source_path"`

	// HeadingPath lists ancestor heading titles, outermost first.
	// Empty for text that precedes any heading.
	HeadingPath []string `json:"heading_path"`

	// Content is the chunk text, at most the configured max length.
	Content string `json:"content"`

	// ContentHash is the hex SHA-256 of Content.
	ContentHash string `json:"content_hash"`

	// Overlap is the number of leading characters (runes) of Content copied
	// from the previous chunk of the same section, separator included.
	Overlap int `json:"overlap"`

	// HasImages is true when an image link falls within Content.
	HasImages bool `json:"has_images"`

	// ImageRefs are the image link targets found in Content.
	ImageRefs []string `json:"image_refs,omitempty"`
}

// Heading returns the heading path joined for display.
func (c Chunk) Heading() string {
	return strings.Join(c.HeadingPath, HeadingSeparator)
}

// ChunkID builds the synthetic index key of a chunk.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}
