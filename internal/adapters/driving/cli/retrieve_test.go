package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

func TestRetrieveCmd_RequiresQuery(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("retrieve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestRetrieveCmd_JoinsArgs(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("retrieve", "torque", "spec", "for", "M8")

	require.NoError(t, err)
	assert.Equal(t, "torque spec for M8", ts.retriever.lastQuery)
}

func TestRetrieveCmd_NoEvidence(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("retrieve", "unrelated question")

	require.NoError(t, err)
	assert.Contains(t, out, domain.NoEvidenceMessage)
	assert.Contains(t, out, "(no candidates)")
}

func TestRetrieveCmd_PrintsCitations(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retriever.result = &domain.RetrievalResult{
		Query: "torque",
		Found: true,
		Items: []domain.RetrievedChunk{{
			Content:       "Tighten M8 bolts to 25 Nm.\nUse a calibrated wrench.",
			FinalScore:    0.912,
			GlossaryBoost: true,
			Citation: domain.Citation{
				DocumentID:  "abc123",
				SourcePath:  "manuals/assembly.docx",
				HeadingPath: []string{"Assembly", "Fasteners"},
				ChunkIndex:  4,
			},
		}},
	}

	out, err := execute("retrieve", "torque")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] manuals/assembly.docx (0.912)")
	assert.Contains(t, out, "Assembly > Fasteners")
	assert.Contains(t, out, "corpus show abc123 --anchor 4")
	assert.Contains(t, out, "glossary match")
	assert.Contains(t, out, "    Use a calibrated wrench.")
}

func TestRetrieveCmd_DegradedWarnings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	result := domain.NoEvidence("q", "below threshold")
	result.DegradedReasons = []string{domain.DegradedRerankUnavailable}
	ts.retriever.result = result

	out, err := execute("retrieve", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning: "+domain.DegradedRerankUnavailable)
}

func TestRetrieveCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("retrieve", "--json", "q")

	require.NoError(t, err)
	assert.Contains(t, out, `"found": false`)
}

func TestRetrieveCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retriever.err = domain.ErrIndexNotBuilt

	_, err := execute("retrieve", "q")

	assert.True(t, errors.Is(err, domain.ErrIndexNotBuilt))
}

func TestRetrieveCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer clearServices()()

	_, err := execute("retrieve", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval service not configured")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  a\n  b", indent("a\nb\n", "  "))
	assert.Equal(t, "  ", indent("", "  "))
}
