package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoEvidence(t *testing.T) {
	r := NoEvidence("what is RSRP", "best score 0.12 below threshold 0.30")

	assert.True(t, r.IsNoEvidence())
	assert.False(t, r.Found)
	assert.Empty(t, r.Items)
	assert.NotNil(t, r.Items)
	assert.Equal(t, "what is RSRP", r.Query)
}

func TestRetrievalResult_IsNoEvidence_Nil(t *testing.T) {
	var r *RetrievalResult
	assert.True(t, r.IsNoEvidence())
}

func TestRetrievalResult_AddDegradation(t *testing.T) {
	r := &RetrievalResult{Found: true}

	r.AddDegradation("")
	assert.False(t, r.Degraded)

	r.AddDegradation(DegradedRerankFailed)
	r.AddDegradation(DegradedRerankFailed)
	r.AddDegradation(DegradedFallbackEmbedding)

	assert.True(t, r.Degraded)
	assert.Equal(t, []string{DegradedRerankFailed, DegradedFallbackEmbedding}, r.DegradedReasons)
}
