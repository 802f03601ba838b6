package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/ratelimit"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	s, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, 1536, s.Dimensions())

	s, err = NewEmbeddingService(Config{BaseURL: "http://tei:8080/v1/", Model: "bge-m3"})
	require.NoError(t, err)
	assert.Equal(t, 1024, s.Dimensions())
	assert.Equal(t, "http://tei:8080/v1", s.baseURL)
}

// embedServer answers with one-hot vectors whose hot position is the
// input's length, in reverse index order to exercise reordering.
func embedServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var items []string
		for i := len(req.Input) - 1; i >= 0; i-- {
			vec := make([]string, 4)
			for j := range vec {
				vec[j] = "0"
			}
			vec[len(req.Input[i])%4] = "1"
			items = append(items, fmt.Sprintf(`{"index":%d,"embedding":[%s]}`, i, strings.Join(vec, ",")))
		}
		_, _ = w.Write([]byte(`{"data":[` + strings.Join(items, ",") + `]}`))
	}))
}

func TestEmbedBatch_SplitsAndOrders(t *testing.T) {
	var calls atomic.Int32
	server := embedServer(t, &calls)
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "secret", BaseURL: server.URL, Model: "bge-m3", Dimensions: 4, BatchSize: 2})
	require.NoError(t, err)

	got, err := s.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, [][]float32{{0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}, got)

	one, err := s.Embed(context.Background(), "dddd")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0}, one)
}

func TestEmbedBatch_DimensionsOnlyForV3(t *testing.T) {
	var sent embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sent = embeddingRequest{}
		_ = json.NewDecoder(r.Body).Decode(&sent)
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL, Dimensions: 256})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 256, sent.Dimensions)

	s, err = NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL, Model: "bge-m3", Dimensions: 256})
	require.NoError(t, err)
	_, err = s.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Zero(t, sent.Dimensions)
}

func TestEmbedBatch_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, transient: true},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", transient: true},
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"invalid key"}}`},
		{name: "missing item", status: http.StatusOK, body: `{"data":[]}`},
		{name: "bad index", status: http.StatusOK, body: `{"data":[{"index":5,"embedding":[1]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, err := NewEmbeddingService(Config{
				APIKey:  "k",
				BaseURL: server.URL,
				Limiter: ratelimit.New(ratelimit.DefaultConfig),
			})
			require.NoError(t, err)

			_, err = s.EmbedBatch(context.Background(), []string{"a"})
			require.Error(t, err)
			assert.Equal(t, tt.transient, domain.IsTransient(err))
		})
	}
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	s, err = NewEmbeddingService(Config{APIKey: "wrong", BaseURL: server.URL})
	require.NoError(t, err)
	assert.Error(t, s.Ping(context.Background()))
}
