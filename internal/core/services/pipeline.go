package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// Ensure CorpusPipeline implements the interface.
var _ driving.CorpusBuilder = (*CorpusPipeline)(nil)

// Pipeline defaults.
const (
	DefaultRetryBackoff = 500 * time.Millisecond
	DefaultFileTimeout  = 10 * time.Minute

	imagesDir = "images"
)

// PipelineConfig holds the directories and limits of a build.
type PipelineConfig struct {
	// SourceDir is scanned recursively for supported files.
	SourceDir string

	// OutputDir receives <document id>/<name>.md and images/<document id>/.
	OutputDir string

	// Workers is the number of files parsed concurrently.
	Workers int

	// Retries is the number of extra attempts for transient parse failures.
	Retries int

	// RetryBackoff is the first retry delay; it doubles per attempt.
	RetryBackoff time.Duration

	// FileTimeout bounds parsing of one file, retries included.
	FileTimeout time.Duration
}

// CorpusPipeline rebuilds the corpus: discover, parse, chunk, index.
type CorpusPipeline struct {
	registry driven.ParserRegistry
	chunker  driven.Chunker
	index    driven.VectorIndex
	cfg      PipelineConfig

	// buildMu is held for the whole build; TryLock rejects overlapping builds.
	buildMu sync.Mutex

	mu         sync.RWMutex
	stage      domain.BuildStage
	building   bool
	filesTotal int
	lastReport *domain.BuildReport
	processed  atomic.Int64

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	publish func(src, dst string) error
}

// NewCorpusPipeline creates a pipeline.
func NewCorpusPipeline(
	registry driven.ParserRegistry,
	chunker driven.Chunker,
	index driven.VectorIndex,
	cfg PipelineConfig,
) *CorpusPipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = DefaultFileTimeout
	}
	return &CorpusPipeline{
		registry: registry,
		chunker:  chunker,
		index:    index,
		cfg:      cfg,
		stage:    domain.BuildStageIdle,
		now:      time.Now,
		sleep:    sleepContext,
		publish:  replaceDir,
	}
}

// Build runs a full rebuild and blocks until it finishes.
func (p *CorpusPipeline) Build(ctx context.Context) (*domain.BuildReport, error) {
	if !p.buildMu.TryLock() {
		return nil, domain.ErrBuildInProgress
	}
	defer p.buildMu.Unlock()
	return p.run(ctx)
}

// Start runs a rebuild in the background. The build is detached from ctx
// cancellation so it outlives the request that triggered it.
func (p *CorpusPipeline) Start(ctx context.Context) error {
	if !p.buildMu.TryLock() {
		return domain.ErrBuildInProgress
	}
	bctx := context.WithoutCancel(ctx)
	go func() {
		defer p.buildMu.Unlock()
		if _, err := p.run(bctx); err != nil {
			logger.Warn("background build failed: %v", err)
		}
	}()
	return nil
}

// Status returns the current build progress and index state.
func (p *CorpusPipeline) Status() driving.BuildStatus {
	p.mu.RLock()
	status := driving.BuildStatus{
		Stage:          p.stage,
		Building:       p.building,
		FilesTotal:     p.filesTotal,
		FilesProcessed: int(p.processed.Load()),
		LastReport:     p.lastReport,
	}
	p.mu.RUnlock()

	if snap := p.index.Snapshot(); snap != nil {
		info := snap.Info()
		status.IndexLoaded = true
		status.IndexedChunks = info.Chunks
		status.Generation = info.Generation
	}
	return status
}

//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *CorpusPipeline) run(ctx context.Context) (*domain.BuildReport, error) {
	report := &domain.BuildReport{
		StartedAt: p.now(),
		Skipped:   []domain.SkippedFile{},
	}
	p.processed.Store(0)
	p.setStage(domain.BuildStageDiscovering, true, 0)
	logger.Section("Corpus Build")

	// 1. Discover
	files, err := p.discover()
	if err != nil {
		return p.fail(report, &domain.IndexBuildError{Stage: "discover", Err: err})
	}
	report.FilesDiscovered = len(files)
	logger.Info("Discovered %d supported files in %s", len(files), p.cfg.SourceDir)

	// 2. Parse into a staging directory next to the output.
	p.setStage(domain.BuildStageParsing, true, len(files))
	staging := p.stagingDir()
	if err := os.RemoveAll(staging); err != nil {
		return p.fail(report, &domain.IndexBuildError{Stage: "output", Err: err})
	}
	if err := os.MkdirAll(staging, 0o750); err != nil {
		return p.fail(report, &domain.IndexBuildError{Stage: "output", Err: err})
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	parsed, skipped := p.parseAll(ctx, files, staging)
	if err := ctx.Err(); err != nil {
		return p.fail(report, &domain.IndexBuildError{Stage: "parse", Err: err})
	}
	report.FilesParsed = len(parsed)
	report.Skipped = append(report.Skipped, skipped...)

	// 3. Chunk and write Markdown.
	p.setStage(domain.BuildStageChunking, true, len(files))
	var (
		docs   []domain.DocumentInfo
		chunks []domain.Chunk
	)
	for _, doc := range parsed {
		docChunks := p.chunker.Chunk(doc)
		mdPath := markdownPath(doc.Source)
		if err := writeMarkdown(staging, mdPath, doc.Markdown); err != nil {
			return p.fail(report, &domain.IndexBuildError{Stage: "output", Err: err})
		}
		docs = append(docs, domain.DocumentInfo{
			ID:           doc.Source.ID,
			SourcePath:   doc.Source.RelPath,
			Format:       doc.Source.Format,
			MarkdownPath: mdPath,
			Size:         doc.Source.Size,
			ChunkCount:   len(docChunks),
			ImageCount:   len(doc.Images),
		})
		chunks = append(chunks, docChunks...)
		logger.Debug("Chunked %s: %d chunks", doc.Source.RelPath, len(docChunks))
	}
	report.ChunksProduced = len(chunks)

	// 4. Index. The new generation is swapped in only on success.
	p.setStage(domain.BuildStageIndexing, true, len(files))
	indexStart := p.now()
	info, err := p.index.Build(ctx, docs, chunks)
	report.IndexDuration = p.now().Sub(indexStart)
	if err != nil {
		return p.fail(report, err)
	}
	report.Generation = info.Generation
	report.Degraded = info.Degraded
	if info.Degraded {
		logger.Warn("Index built with the fallback embedding; retrieval quality is degraded")
	}

	// The index is already committed, so a publish failure only leaves the
	// previous Markdown in place for the viewer.
	if err := p.publish(staging, p.cfg.OutputDir); err != nil {
		logger.Warn("Failed to publish Markdown output: %v", err)
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("markdown output not published to %s: %v", p.cfg.OutputDir, err))
	} else {
		committed = true
	}

	report.Outcome = domain.BuildOutcomeSucceeded
	report.FinishedAt = p.now()
	p.finish(report)
	logger.Info("Build complete: %d parsed, %d skipped, %d chunks, generation %s",
		report.FilesParsed, report.FilesSkipped(), report.ChunksProduced, report.Generation)
	return report, nil
}

func (p *CorpusPipeline) fail(report *domain.BuildReport, err error) (*domain.BuildReport, error) {
	report.Outcome = domain.BuildOutcomeFailed
	report.Error = err.Error()
	report.FinishedAt = p.now()
	p.finish(report)
	logger.Warn("Build failed: %v", err)
	return report, err
}

func (p *CorpusPipeline) setStage(stage domain.BuildStage, building bool, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = stage
	p.building = building
	p.filesTotal = total
}

func (p *CorpusPipeline) finish(report *domain.BuildReport) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = domain.BuildStageIdle
	p.building = false
	p.lastReport = report
}

// discover walks the source directory in lexical order. Hidden entries,
// Office lock files and formats without a parser are ignored.
func (p *CorpusPipeline) discover() ([]domain.SourceDocument, error) {
	root := p.cfg.SourceDir
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source directory %s: not a directory", root)
	}

	var files []domain.SourceDocument
	err = filepath.WalkDir(root, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if fpath != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || strings.HasPrefix(name, "~$") {
			return nil
		}

		format := domain.FormatFromPath(name)
		if !p.registry.Supports(format) {
			logger.Debug("Ignoring unsupported file %s", fpath)
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, fpath)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		files = append(files, domain.SourceDocument{
			ID:      domain.DocumentID(rel),
			Path:    fpath,
			RelPath: rel,
			Format:  format,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source directory: %w", err)
	}
	return files, nil
}

// parseAll parses files with bounded concurrency. Results keep discovery
// order; failures become skipped entries.
func (p *CorpusPipeline) parseAll(
	ctx context.Context,
	files []domain.SourceDocument,
	staging string,
) ([]*domain.ParsedDocument, []domain.SkippedFile) {
	results := make([]*domain.ParsedDocument, len(files))
	failures := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, f := range files {
		g.Go(func() error {
			defer p.processed.Add(1)
			req := driven.ParseRequest{
				Source:          f,
				ImageDir:        filepath.Join(staging, imagesDir, f.ID),
				ImageLinkPrefix: path.Join(imagesDir, f.ID),
			}
			doc, err := p.parseWithRetry(gctx, req)
			if err != nil {
				failures[i] = &domain.ParseError{Path: f.RelPath, Err: err}
				logger.Warn("Skipping %s: %v", f.RelPath, err)
				return nil
			}
			results[i] = doc
			logger.Debug("Parsed %s", f.RelPath)
			return nil
		})
	}
	_ = g.Wait()

	var parsed []*domain.ParsedDocument
	var skipped []domain.SkippedFile
	for i := range files {
		if failures[i] != nil {
			skipped = append(skipped, domain.SkippedFile{Path: files[i].RelPath, Reason: failureReason(failures[i])})
			continue
		}
		parsed = append(parsed, results[i])
	}
	sort.SliceStable(skipped, func(a, b int) bool { return skipped[a].Path < skipped[b].Path })
	return parsed, skipped
}

// parseWithRetry retries transient failures with exponential backoff.
func (p *CorpusPipeline) parseWithRetry(ctx context.Context, req driven.ParseRequest) (*domain.ParsedDocument, error) {
	fctx, cancel := context.WithTimeout(ctx, p.cfg.FileTimeout)
	defer cancel()

	backoff := p.cfg.RetryBackoff
	for attempt := 0; ; attempt++ {
		doc, err := p.registry.Parse(fctx, req)
		if err == nil {
			return doc, nil
		}
		if !domain.IsTransient(err) || attempt >= p.cfg.Retries || fctx.Err() != nil {
			return nil, err
		}
		logger.Debug("Retrying %s after transient failure (attempt %d): %v", req.Source.RelPath, attempt+1, err)
		if serr := p.sleep(fctx, backoff); serr != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (p *CorpusPipeline) stagingDir() string {
	out := filepath.Clean(p.cfg.OutputDir)
	return filepath.Join(filepath.Dir(out), "."+filepath.Base(out)+".building")
}

func failureReason(err error) string {
	var perr *domain.ParseError
	if errors.As(err, &perr) {
		err = perr.Err
	}
	switch {
	case errors.Is(err, domain.ErrUnsupportedType):
		return "unsupported type: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	default:
		return err.Error()
	}
}

// markdownPath is <document id>/<file stem>.md, slash separated.
func markdownPath(src domain.SourceDocument) string {
	base := path.Base(src.RelPath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" {
		stem = src.ID
	}
	return path.Join(src.ID, stem+".md")
}

func writeMarkdown(root, rel, content string) error {
	target := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	return os.WriteFile(target, []byte(content), 0o600)
}

// replaceDir moves src into place at dst, removing the previous dst.
func replaceDir(src, dst string) error {
	old := dst + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if _, err := os.Stat(dst); err == nil {
		if err := os.Rename(dst, old); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err != nil {
		_ = os.Rename(old, dst)
		return err
	}
	return os.RemoveAll(old)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
