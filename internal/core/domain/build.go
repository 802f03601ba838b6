package domain

import "time"

// BuildStage is a state of the corpus build state machine:
// Idle → Discovering → Parsing → Chunking → Indexing → Idle.
type BuildStage string

// Build stages.
const (
	BuildStageIdle        BuildStage = "idle"
	BuildStageDiscovering BuildStage = "discovering"
	BuildStageParsing     BuildStage = "parsing"
	BuildStageChunking    BuildStage = "chunking"
	BuildStageIndexing    BuildStage = "indexing"
)

// BuildOutcome records how the last build ended.
type BuildOutcome string

// Build outcomes.
const (
	BuildOutcomeNone      BuildOutcome = ""
	BuildOutcomeSucceeded BuildOutcome = "succeeded"
	BuildOutcomeFailed    BuildOutcome = "failed"
)

// SkippedFile is a source file that did not make it into the index.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// BuildReport summarises one corpus rebuild.
type BuildReport struct {
	// Generation identifies the committed index generation.
	Generation string `json:"generation"`

	// Outcome is succeeded or failed.
	Outcome BuildOutcome `json:"outcome"`

	// Error is set for failed builds.
	Error string `json:"error,omitempty"`

	// FilesDiscovered counts supported files found in the source directory.
	FilesDiscovered int `json:"files_discovered"`

	// FilesParsed counts files that produced a ParsedDocument.
	FilesParsed int `json:"files_parsed"`

	// Skipped lists files that failed with their reasons.
	Skipped []SkippedFile `json:"skipped"`

	// ChunksProduced counts chunks handed to the index.
	ChunksProduced int `json:"chunks_produced"`

	// IndexDuration is the time spent embedding and committing the index.
	IndexDuration time.Duration `json:"index_duration"`

	// Degraded is true when the index was built with the fallback embedding.
	Degraded bool `json:"degraded"`

	// Warnings lists problems that did not fail the build.
	Warnings []string `json:"warnings,omitempty"`

	// StartedAt is when the build was accepted.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the build returned.
	FinishedAt time.Time `json:"finished_at"`
}

// FilesSkipped returns the number of skipped files.
func (r *BuildReport) FilesSkipped() int {
	return len(r.Skipped)
}

// Duration returns the wall time of the build.
func (r *BuildReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// IndexInfo describes a committed index generation.
type IndexInfo struct {
	// Generation is a unique id per build.
	Generation string

	// Model names the embedding model used at build time.
	Model string

	// Dimensions is the vector size.
	Dimensions int

	// Documents is the number of indexed documents.
	Documents int

	// Chunks is the number of indexed chunks.
	Chunks int

	// Degraded is true for the fallback embedding.
	Degraded bool

	// BuiltAt is the commit time.
	BuiltAt time.Time
}
