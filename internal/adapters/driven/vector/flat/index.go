// Package flat implements the vector index as an exact cosine search over
// an immutable in-memory snapshot. Each build produces a new snapshot that
// is persisted through an IndexStore and then swapped in with a single
// atomic pointer store, so readers never observe a half-built index.
package flat

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/embedding/hash"
	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultBatchSize    = 32
	DefaultEmbedTimeout = 60 * time.Second
)

// Index is the swappable vector index.
type Index struct {
	embedder  driven.EmbeddingService
	store     driven.IndexStore
	batchSize int
	timeout   time.Duration
	now       func() time.Time

	buildMu sync.Mutex
	current atomic.Pointer[snapshot]
}

// Option configures an Index.
type Option func(*Index)

// WithStore persists generations. Without a store the index lives in memory only.
func WithStore(store driven.IndexStore) Option {
	return func(i *Index) {
		i.store = store
	}
}

// WithBatchSize sets how many chunks are embedded per request.
func WithBatchSize(n int) Option {
	return func(i *Index) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithEmbedTimeout bounds each embedding request.
func WithEmbedTimeout(d time.Duration) Option {
	return func(i *Index) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// New creates an index. A nil embedder selects the hash fallback and marks
// every generation as degraded.
func New(embedder driven.EmbeddingService, opts ...Option) *Index {
	i := &Index{
		embedder:  embedder,
		batchSize: DefaultBatchSize,
		timeout:   DefaultEmbedTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Snapshot returns the live generation, or nil before the first build.
func (i *Index) Snapshot() driven.IndexSnapshot {
	if s := i.current.Load(); s != nil {
		return s
	}
	return nil
}

// Build embeds chunks into a new generation, persists it and swaps it in.
func (i *Index) Build(
	ctx context.Context,
	docs []domain.DocumentInfo,
	chunks []domain.Chunk,
) (*domain.IndexInfo, error) {
	i.buildMu.Lock()
	defer i.buildMu.Unlock()

	embedder, degraded := i.buildEmbedder()
	logger.Debug("Embedding %d chunks with %s", len(chunks), embedder.ModelName())

	vectors, err := i.embedAll(ctx, embedder, chunks)
	if err != nil {
		return nil, &domain.IndexBuildError{Stage: "embed", Err: err}
	}

	dims := embedder.Dimensions()
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	for n, v := range vectors {
		if len(v) != dims {
			return nil, &domain.IndexBuildError{
				Stage: "embed",
				Err:   fmt.Errorf("chunk %s has %d dimensions, expected %d", chunks[n].ID, len(v), dims),
			}
		}
	}

	info := domain.IndexInfo{
		Generation: uuid.NewString(),
		Model:      embedder.ModelName(),
		Dimensions: dims,
		Documents:  len(docs),
		Chunks:     len(chunks),
		Degraded:   degraded,
		BuiltAt:    i.now().UTC(),
	}

	records := make([]driven.IndexRecord, len(chunks))
	for n := range chunks {
		records[n] = driven.IndexRecord{Chunk: chunks[n], Vector: vectors[n]}
	}
	gen := &driven.IndexGeneration{Info: info, Documents: docs, Records: records}

	if i.store != nil {
		if err := i.store.Save(ctx, gen); err != nil {
			return nil, &domain.IndexBuildError{Stage: "persist", Err: err}
		}
	}

	i.current.Store(newSnapshot(gen, embedder, i.timeout))
	logger.Info("Index generation %s committed: %d documents, %d chunks", info.Generation, info.Documents, info.Chunks)
	return &info, nil
}

// Load restores the committed generation from the store.
func (i *Index) Load(ctx context.Context) error {
	if i.store == nil {
		return domain.ErrIndexNotBuilt
	}

	gen, err := i.store.Load(ctx)
	if err != nil {
		return err
	}

	embedder := i.queryEmbedder(gen.Info)
	i.current.Store(newSnapshot(gen, embedder, i.timeout))
	logger.Debug("Loaded index generation %s (%d chunks)", gen.Info.Generation, gen.Info.Chunks)
	return nil
}

// Close releases the store.
func (i *Index) Close() error {
	if i.store != nil {
		return i.store.Close()
	}
	return nil
}

func (i *Index) buildEmbedder() (driven.EmbeddingService, bool) {
	if i.embedder == nil {
		return hash.NewEmbeddingService(hash.DefaultDimensions), true
	}
	return i.embedder, false
}

// queryEmbedder picks the embedder matching a persisted generation. Returns
// nil when the configured backend differs from the one used at build time.
func (i *Index) queryEmbedder(info domain.IndexInfo) driven.EmbeddingService {
	if info.Degraded || info.Model == hash.ModelName {
		return hash.NewEmbeddingService(info.Dimensions)
	}
	if i.embedder == nil || i.embedder.ModelName() != info.Model {
		logger.Warn("Index was built with %s but that model is not configured; rebuild the corpus", info.Model)
		return nil
	}
	return i.embedder
}

func (i *Index) embedAll(
	ctx context.Context,
	embedder driven.EmbeddingService,
	chunks []domain.Chunk,
) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += i.batchSize {
		end := min(start+i.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, embeddingText(c))
		}

		batch, err := embedWithTimeout(ctx, i.timeout, func(ctx context.Context) ([][]float32, error) {
			return embedder.EmbedBatch(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("batch %d-%d: got %d vectors", start, end, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embeddingText prefixes the heading path so section context reaches the
// vector even when the body does not repeat it.
func embeddingText(c domain.Chunk) string {
	if len(c.HeadingPath) == 0 {
		return c.Content
	}
	return c.Heading() + "\n\n" + c.Content
}

func embedWithTimeout[T any](
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
