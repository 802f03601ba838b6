package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrMissingBaseURL)

	s, err := New(Config{BaseURL: "http://reranker:8080/"})
	require.NoError(t, err)
	assert.Equal(t, "http://reranker:8080/v1/rerank", s.endpoint)
	assert.Equal(t, DefaultModel, s.ModelName())

	s, err = New(Config{BaseURL: "https://api.jina.ai/v1/rerank", Model: "jina-reranker-v2"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.jina.ai/v1/rerank", s.endpoint)
	assert.Equal(t, "jina-reranker-v2", s.ModelName())
}

func TestScore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req rerankRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "RSRP threshold", req.Query)
		assert.Equal(t, 3, req.TopN)
		assert.Len(t, req.Documents, 3)

		// Results sorted by score, as servers do; index 1 omitted.
		_, _ = w.Write([]byte(`{"results":[{"index":2,"relevance_score":0.9},{"index":0,"score":0.1}]}`))
	}))
	defer server.Close()

	s, err := New(Config{BaseURL: server.URL, APIKey: "key"})
	require.NoError(t, err)

	scores, err := s.Score(context.Background(), "RSRP threshold", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0, 0.9}, scores)
}

func TestScore_Empty(t *testing.T) {
	s, err := New(Config{BaseURL: "http://unused"})
	require.NoError(t, err)

	scores, err := s.Score(context.Background(), "q", nil)
	assert.NoError(t, err)
	assert.Nil(t, scores)
}

func TestScore_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   int
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", code: 500},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", code: 429},
		{name: "bad json", status: http.StatusOK, body: "not json", code: 200},
		{name: "bad index", status: http.StatusOK, body: `{"results":[{"index":9,"score":1}]}`, code: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, err := New(Config{BaseURL: server.URL})
			require.NoError(t, err)

			_, err = s.Score(context.Background(), "q", []string{"a"})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRerankService)

			var rerankErr *domain.RerankServiceError
			require.ErrorAs(t, err, &rerankErr)
			assert.Equal(t, tt.code, rerankErr.StatusCode)
		})
	}
}

func TestScore_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	s, err := New(Config{BaseURL: url})
	require.NoError(t, err)

	_, err = s.Score(context.Background(), "q", []string{"a"})
	var rerankErr *domain.RerankServiceError
	require.ErrorAs(t, err, &rerankErr)
	assert.Zero(t, rerankErr.StatusCode)
}
