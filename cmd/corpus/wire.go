package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/core/services"
	"github.com/custodia-labs/corpus-rag/internal/logger"
	"github.com/custodia-labs/corpus-rag/internal/parsers"
	"github.com/custodia-labs/corpus-rag/internal/parsers/excel"
	"github.com/custodia-labs/corpus-rag/internal/parsers/html"
	"github.com/custodia-labs/corpus-rag/internal/parsers/layout"
	"github.com/custodia-labs/corpus-rag/internal/parsers/markdown"
	"github.com/custodia-labs/corpus-rag/internal/postprocessors/chunker"
)

// bootstrap wires the services rooted at dataDir.
func bootstrap(ctx context.Context, dataDir string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, dataDir)
	settings, err := settingsService.Get()
	if err != nil {
		// Keep going so `corpus config set` can repair the value.
		logger.Warn("Invalid settings: %v", err)
		settings = domain.DefaultSettings(dataDir)
	}

	limiters := ai.NewLimiters()

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding, limiters.Embedding)
	if err != nil {
		logger.Warn("%v", err)
		// Queries surface the outage per request instead of blocking startup.
		embedder, err = ai.CreateEmbeddingService(ctx, &settings.Embedding, limiters.Embedding)
		if err != nil {
			return nil, err
		}
	}
	if embedder == nil {
		logger.Debug("No embedding provider configured, using the hash fallback")
	}

	engine, err := ai.CreateLayoutEngine(&settings.Layout, limiters.Layout)
	if err != nil {
		return nil, err
	}
	registry := parsers.NewRegistry(
		layout.New(engine),
		excel.New(),
		html.New(),
		markdown.New(),
	)

	chunk := chunker.New(
		chunker.WithMaxChunkSize(settings.Chunker.MaxChunkSize),
		chunker.WithOverlap(settings.Chunker.Overlap),
	)

	store, err := sqlite.NewStore(settings.Corpus.IndexDir)
	if err != nil {
		closeQuietly(embedder)
		return nil, fmt.Errorf("opening index store: %w", err)
	}
	index := flat.New(embedder,
		flat.WithStore(store),
		flat.WithBatchSize(settings.Embedding.BatchSize),
		flat.WithEmbedTimeout(settings.Embedding.Timeout),
	)
	if err := index.Load(ctx); err != nil && !errors.Is(err, domain.ErrIndexNotBuilt) {
		logger.Warn("Could not load the index, rebuild with 'corpus build': %v", err)
	}

	glossary := services.NewGlossaryStore(settings.Corpus.GlossaryDir)
	if err := glossary.Load(ctx); err != nil {
		logger.Warn("Glossary not loaded: %v", err)
	}

	rerankService, err := ai.CreateRerankService(&settings.Rerank, limiters.Rerank)
	if err != nil {
		return nil, err
	}
	reranker := services.NewReranker(rerankService, glossary, services.RerankerConfig{
		TopK:      settings.Retrieval.TopK,
		Threshold: settings.Rerank.Threshold,
		Boost:     settings.Rerank.Boost,
	})

	retriever := services.NewCorpusRetriever(index, reranker, glossary, services.RetrieverConfig{
		RecallK:        settings.Retrieval.RecallK,
		ExpandSynonyms: settings.Retrieval.ExpandSynonyms,
	})

	pipeline := services.NewCorpusPipeline(registry, chunk, index, services.PipelineConfig{
		SourceDir: settings.Corpus.SourceDir,
		OutputDir: settings.Corpus.OutputDir,
		Workers:   settings.Parser.Workers,
		Retries:   settings.Parser.Retries,
	})

	return &cli.Services{
		Builder:     pipeline,
		Retriever:   retriever,
		Viewer:      services.NewViewerService(index),
		Glossary:    glossary,
		Settings:    settingsService,
		Validator:   ai.NewConfigValidator(),
		GlossaryDir: glossary.Dir(),
		ServerPort:  settings.Server.Port,
		Close: func() error {
			closeQuietly(embedder)
			return index.Close()
		},
	}, nil
}

func closeQuietly(svc driven.EmbeddingService) {
	if svc == nil {
		return
	}
	if err := svc.Close(); err != nil {
		logger.Debug("closing embedding service: %v", err)
	}
}
