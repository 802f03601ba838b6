package domain

import (
	"path/filepath"
	"strings"
)

// GlossaryFormat identifies the encoding of a glossary file.
type GlossaryFormat string

// Supported glossary encodings.
const (
	GlossaryFormatJSON GlossaryFormat = "json"
	GlossaryFormatCSV  GlossaryFormat = "csv"
	GlossaryFormatYAML GlossaryFormat = "yaml"
)

// GlossaryEntry is one expert term with its definition.
type GlossaryEntry struct {
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}

// SynonymGroup maps a canonical term to its variants.
type SynonymGroup struct {
	Canonical string
	Variants  []string
}

// GlossaryFile is the parsed content of one glossary file.
type GlossaryFile struct {
	// Name is the file name inside the glossary directory.
	Name string

	// Format is the file encoding.
	Format GlossaryFormat

	// Entries are the term definitions.
	Entries []GlossaryEntry

	// Synonyms are the synonym groups.
	Synonyms []SynonymGroup
}

// GlossaryFileInfo summarises a loaded glossary file.
type GlossaryFileInfo struct {
	Name          string         `json:"filename"`
	Format        GlossaryFormat `json:"format"`
	TermCount     int            `json:"term_count"`
	SynonymGroups int            `json:"synonym_groups"`
}

// GlossaryDelta reports the effect of an upload.
type GlossaryDelta struct {
	// Filename is the stored file name.
	Filename string `json:"filename"`

	// Replaced is true when a file with the same name existed.
	Replaced bool `json:"replaced"`

	// TermsAdded counts term entries in the uploaded file.
	TermsAdded int `json:"terms_added"`

	// SynonymGroupsAdded counts synonym groups in the uploaded file.
	SynonymGroupsAdded int `json:"synonym_groups_added"`

	// TotalTerms is the number of distinct known terms after the upload.
	TotalTerms int `json:"total_terms"`
}

// GlossaryFormatFromName classifies a glossary file by its extension.
func GlossaryFormatFromName(name string) (GlossaryFormat, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return GlossaryFormatJSON, true
	case ".csv":
		return GlossaryFormatCSV, true
	case ".yaml", ".yml":
		return GlossaryFormatYAML, true
	default:
		return "", false
	}
}
