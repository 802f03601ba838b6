package driving

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// CorpusBuilder rebuilds the corpus: parse, chunk and index every source file.
type CorpusBuilder interface {
	// Build runs a full rebuild. At most one build runs at a time; a call
	// made while a build is in flight returns domain.ErrBuildInProgress.
	// Per-file failures are reported in the BuildReport, not returned.
	Build(ctx context.Context) (*domain.BuildReport, error)

	// Start runs a rebuild in the background and returns once it has been
	// accepted. Returns domain.ErrBuildInProgress like Build. The outcome
	// is available from Status().LastReport.
	Start(ctx context.Context) error

	// Status returns the current build progress and index state.
	Status() BuildStatus
}

// BuildStatus represents the current state of the build pipeline.
type BuildStatus struct {
	// Stage is the current state machine stage.
	Stage domain.BuildStage `json:"stage"`

	// Building indicates if a build is currently in progress.
	Building bool `json:"is_building"`

	// FilesTotal is the number of files discovered by the running build.
	FilesTotal int `json:"files_total"`

	// FilesProcessed is the number of files parsed or skipped so far.
	FilesProcessed int `json:"files_processed"`

	// IndexLoaded is true when a generation is serving queries.
	IndexLoaded bool `json:"index_loaded"`

	// IndexedChunks is the chunk count of the serving generation.
	IndexedChunks int `json:"indexed_chunks"`

	// Generation is the serving generation id.
	Generation string `json:"generation,omitempty"`

	// LastReport is the report of the last finished build, if any.
	LastReport *domain.BuildReport `json:"last_report,omitempty"`
}
