package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

func TestGlossaryUpload(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.glossary.delta = &domain.GlossaryDelta{
		Filename:           "terms.csv",
		TermsAdded:         3,
		SynonymGroupsAdded: 1,
		TotalTerms:         10,
	}

	path := filepath.Join(t.TempDir(), "terms.csv")
	require.NoError(t, os.WriteFile(path, []byte("term,definition\nMTBF,mean time between failures\n"), 0o600))

	out, err := execute("glossary", "upload", path)

	require.NoError(t, err)
	assert.Equal(t, "terms.csv", ts.glossary.uploadedName)
	assert.Contains(t, string(ts.glossary.uploadedData), "MTBF")
	assert.Contains(t, out, "Added terms.csv: 3 terms, 1 synonym groups (10 terms total)")
}

func TestGlossaryUpload_Replaced(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.glossary.delta = &domain.GlossaryDelta{Filename: "terms.csv", Replaced: true}

	path := filepath.Join(t.TempDir(), "terms.csv")
	require.NoError(t, os.WriteFile(path, []byte("term,definition\n"), 0o600))

	out, err := execute("glossary", "upload", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Replaced terms.csv")
}

func TestGlossaryUpload_MissingFile(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("glossary", "upload", filepath.Join(t.TempDir(), "nope.csv"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading")
}

func TestGlossaryUpload_FormatError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.glossary.err = &domain.GlossaryFormatError{Filename: "bad.csv", Line: 2, Reason: "missing definition"}

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("term,definition\nMTBF\n"), 0o600))

	_, err := execute("glossary", "upload", path)

	var fe *domain.GlossaryFormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 2, fe.Line)
}

func TestGlossaryList(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.glossary.files = []domain.GlossaryFileInfo{
		{Name: "terms.csv", Format: domain.GlossaryFormatCSV, TermCount: 12, SynonymGroups: 2},
	}
	ts.glossary.entries = []domain.GlossaryEntry{{Term: "MTBF", Definition: "mean time between failures"}}

	out, err := execute("glossary", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "terms.csv")
	assert.Contains(t, out, "12 terms")
	assert.NotContains(t, out, "MTBF")

	out, err = execute("glossary", "list", "--entries")
	require.NoError(t, err)
	assert.Contains(t, out, "MTBF: mean time between failures")
}

func TestGlossaryList_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("glossary", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No glossary files loaded.")
}

func TestGlossaryDelete(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("glossary", "delete", "terms.csv")

	require.NoError(t, err)
	assert.Equal(t, "terms.csv", ts.glossary.deleted)
	assert.Contains(t, out, "Deleted terms.csv")
}

func TestGlossaryDelete_NotFound(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.glossary.err = domain.ErrNotFound

	_, err := execute("glossary", "delete", "missing.csv")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGlossary_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer clearServices()()

	for _, args := range [][]string{
		{"glossary", "list"},
		{"glossary", "delete", "x.csv"},
		{"glossary", "upload", "x.csv"},
	} {
		_, err := execute(args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "glossary service not configured")
	}
}
