package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
)

// Ensure ViewerService implements the interface.
var _ driving.CorpusViewer = (*ViewerService)(nil)

// ViewerService serves read-only corpus browsing from the serving generation.
type ViewerService struct {
	index driven.VectorIndex
}

// NewViewerService creates a viewer over index.
func NewViewerService(index driven.VectorIndex) *ViewerService {
	return &ViewerService{index: index}
}

// ListFiles returns indexed documents ordered by source path.
// An unbuilt corpus has no files.
func (v *ViewerService) ListFiles(_ context.Context) ([]domain.DocumentInfo, error) {
	snap := v.index.Snapshot()
	if snap == nil {
		return []domain.DocumentInfo{}, nil
	}
	return snap.Documents(), nil
}

// Chunks returns one page of a document's chunks.
func (v *ViewerService) Chunks(_ context.Context, fileID string, req domain.PageRequest) (*domain.ChunkPage, error) {
	snap, doc, err := v.document(fileID)
	if err != nil {
		return nil, err
	}
	if req.Offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
	}
	if req.Anchor != nil && *req.Anchor < 0 {
		return nil, fmt.Errorf("%w: anchor must not be negative", domain.ErrInvalidInput)
	}

	limit := req.Limit
	switch {
	case limit <= 0:
		limit = domain.DefaultPageLimit
	case limit > domain.MaxPageLimit:
		limit = domain.MaxPageLimit
	}

	chunks := snap.Chunks(doc.ID)
	total := len(chunks)

	offset := req.Offset
	if req.Anchor != nil {
		offset = anchoredOffset(*req.Anchor, limit, total)
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]domain.Chunk, end-offset)
	copy(page, chunks[offset:end])
	return &domain.ChunkPage{
		Document: doc,
		Offset:   offset,
		Limit:    limit,
		Total:    total,
		HasMore:  end < total,
		Chunks:   page,
	}, nil
}

// Meta returns the distinct heading paths of a document, each with the first
// chunk under it, in document order.
func (v *ViewerService) Meta(_ context.Context, fileID string) (*domain.DocumentMeta, error) {
	snap, doc, err := v.document(fileID)
	if err != nil {
		return nil, err
	}

	meta := &domain.DocumentMeta{Document: doc, Headings: []domain.HeadingRef{}}
	seen := make(map[string]struct{})
	for _, c := range snap.Chunks(doc.ID) {
		if len(c.HeadingPath) == 0 {
			continue
		}
		key := c.Heading()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		path := make([]string, len(c.HeadingPath))
		copy(path, c.HeadingPath)
		meta.Headings = append(meta.Headings, domain.HeadingRef{
			Path:       path,
			Title:      path[len(path)-1],
			Level:      len(path),
			ChunkIndex: c.Index,
		})
	}
	return meta, nil
}

func (v *ViewerService) document(fileID string) (driven.IndexSnapshot, domain.DocumentInfo, error) {
	snap := v.index.Snapshot()
	if snap == nil {
		return nil, domain.DocumentInfo{}, fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
	}
	doc, ok := snap.Document(fileID)
	if !ok {
		return nil, domain.DocumentInfo{}, fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
	}
	return snap, doc, nil
}

// anchoredOffset centres a page of size limit on anchor.
func anchoredOffset(anchor, limit, total int) int {
	if anchor >= total {
		anchor = total - 1
	}
	offset := anchor - limit/2
	if maxOffset := total - limit; offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}
