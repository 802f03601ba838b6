package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "words", in: "RSRP threshold, -110 dBm", want: []string{"rsrp", "threshold", "110", "dbm"}},
		{name: "cjk bigrams", in: "参考信号", want: []string{"参考", "考信", "信号"}},
		{name: "mixed", in: "RSRP是参考信号", want: []string{"rsrp", "是参", "参考", "考信", "信号"}},
		{name: "lone cjk", in: "a 字 b", want: []string{"a", "字", "b"}},
		{name: "empty", in: "  ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.in))
		})
	}
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	s := NewEmbeddingService(0)
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, ModelName, s.ModelName())

	a, err := s.Embed(context.Background(), "coverage drop in cell 12")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "coverage drop in cell 12")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestEmbed_Empty(t *testing.T) {
	v, err := NewEmbeddingService(16).Embed(context.Background(), "...")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), v)
}

func TestEmbed_LexicalSimilarity(t *testing.T) {
	s := NewEmbeddingService(512)
	vecs, err := s.EmbedBatch(context.Background(), []string{
		"RSRP coverage threshold",
		"coverage threshold for RSRP",
		"quarterly revenue spreadsheet",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
	assert.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, s.Close())
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
