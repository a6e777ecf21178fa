package store

import "io"

// Artifact file names inside a run directory.
const (
	ArtifactToolpath = "toolpath.gcode"
	ArtifactPreview  = "preview.png"
	ArtifactResidual = "residual.png"
	ArtifactTrace    = "trace.jsonl"
)

// Store defines the interface for run persistence operations.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveRun atomically saves the run record, overwriting any previous one
	// with the same ID.
	SaveRun(run *Run) error

	// LoadRun retrieves the run record.
	// Returns ErrNotFound if no run exists for this ID.
	LoadRun(runID string) (*Run, error)

	// ListRuns returns metadata for all stored runs, newest first.
	ListRuns() ([]RunInfo, error)

	// DeleteRun removes the run record and all its artifacts:
	//   - run.json
	//   - toolpath.gcode
	//   - preview.png
	//   - residual.png
	//   - trace.jsonl
	//
	// Returns ErrNotFound if no run exists for this ID.
	DeleteRun(runID string) error

	// WriteArtifact atomically stores one artifact produced by write.
	WriteArtifact(runID, name string, write func(io.Writer) error) error

	// ArtifactPath returns the location of an artifact. It does not check
	// that the file exists.
	ArtifactPath(runID, name string) string

	// OpenTrace starts a fresh epoch trace for the run.
	OpenTrace(runID string) (*TraceWriter, error)

	// LoadTrace returns every entry of the run's trace.
	// Returns ErrNotFound if the run has no trace.
	LoadTrace(runID string) ([]TraceEntry, error)
}

// ErrNotFound is returned when a requested run does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run not found: " + e.RunID
	}
	return "run not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
