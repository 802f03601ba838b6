package domain

import (
	"crypto/sha1" //nolint:gosec // G505: path digest, not a credential
	"encoding/hex"
	"path/filepath"
	"time"
)

// DocumentIDLength is the number of hex characters kept from the path digest.
const DocumentIDLength = 12

// SourceDocument is one file in the ingestion directory. It is discovered at
// build start and never mutated.
type SourceDocument struct {
	// ID is derived from RelPath, see DocumentID.
	ID string

	// Path is the absolute path on disk.
	Path string

	// RelPath is the path relative to the source directory, slash separated.
	RelPath string

	// Format selects the parser variant.
	Format Format

	// Size is the file size in bytes.
	Size int64

	// ModTime is the file modification time.
	ModTime time.Time
}

// Name returns the base file name.
func (d SourceDocument) Name() string {
	return filepath.Base(d.Path)
}

// ExtractedImage is an image pulled out of a document by a layout engine.
type ExtractedImage struct {
	// RefID is stable within the document and appears in the Markdown link.
	RefID string

	// FilePath is where the image was written.
	FilePath string

	// Link is the relative path used in the Markdown (images/<doc>/<ref>.<ext>).
	Link string
}

// ParsedDocument is the normalised output of parsing one SourceDocument.
type ParsedDocument struct {
	// Source is the document this was parsed from.
	Source SourceDocument

	// Markdown is the normalised text.
	Markdown string

	// Images are in the order their placeholders appear in Markdown.
	Images []ExtractedImage
}

// DocumentInfo describes an indexed document for the corpus viewer.
type DocumentInfo struct {
	// ID is the document id, also used as the viewer file id.
	ID string `json:"id"`

	// SourcePath is the path relative to the source directory.
	SourcePath string `json:"source_path"`

	// Format is the source format.
	Format Format `json:"format"`

	// MarkdownPath is the persisted Markdown, relative to the output directory.
	MarkdownPath string `json:"markdown_path"`

	// Size is the source file size in bytes.
	Size int64 `json:"size"`

	// ChunkCount is the number of chunks produced from the document.
	ChunkCount int `json:"chunk_count"`

	// ImageCount is the number of extracted images.
	ImageCount int `json:"image_count"`
}

// DocumentID derives a stable identifier from a source-relative path.
func DocumentID(relPath string) string {
	sum := sha1.Sum([]byte(filepath.ToSlash(relPath))) //nolint:gosec // G401: path digest
	return hex.EncodeToString(sum[:])[:DocumentIDLength]
}
