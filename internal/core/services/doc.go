// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The corpus services are CorpusPipeline (build), CorpusRetriever with its
// Reranker (query), GlossaryStore (terminology) and ViewerService (browsing).
// None of them know which layout engine, embedding backend or rerank model
// sits behind the ports.
package services
