package store

import (
	"time"

	"github.com/cwbudde/laserlines/internal/fit"
	"github.com/cwbudde/laserlines/internal/gcode"
	"github.com/cwbudde/laserlines/internal/geometry"
	"github.com/cwbudde/laserlines/internal/scan"
)

// Algorithm names.
const (
	AlgorithmScan = "scan"
	AlgorithmFit  = "fit"
)

// Run status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// RunConfig holds the settings a run was started with (copy of the engrave
// configuration). This avoids import cycles with the engrave package.
type RunConfig struct {
	Image     string       `json:"image"`
	Algorithm string       `json:"algorithm"`
	WidthMM   float64      `json:"widthMm"`
	Scan      scan.Config  `json:"scan"`
	Fit       fit.Config   `json:"fit"`
	Device    gcode.Config `json:"device"`
}

// Extent is the bounding box of the engraved segments in millimetres.
type Extent struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Run is the persisted record of one engraving run.
type Run struct {
	ID     string    `json:"id"`
	Config RunConfig `json:"config"`

	Status string `json:"status"`
	Error  string `json:"error,omitempty"`

	Canvas   geometry.Canvas `json:"canvas"`
	Segments int             `json:"segments"`
	Extent   *Extent         `json:"extent,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// Exactly one of Scan and Fit is set on a completed run.
	Scan *scan.Result `json:"scan,omitempty"`
	Fit  *fit.Result  `json:"fit,omitempty"`
}

// RunInfo contains metadata about a run without the per-algorithm results.
type RunInfo struct {
	ID         string    `json:"id"`
	Algorithm  string    `json:"algorithm"`
	Image      string    `json:"image"`
	Status     string    `json:"status"`
	Segments   int       `json:"segments"`
	FinishedAt time.Time `json:"finishedAt"`
}

// ToInfo converts a full Run to RunInfo.
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		ID:         r.ID,
		Algorithm:  r.Config.Algorithm,
		Image:      r.Config.Image,
		Status:     r.Status,
		Segments:   r.Segments,
		FinishedAt: r.FinishedAt,
	}
}

// Validate checks if the run record has valid data.
func (r *Run) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if r.Config.Image == "" {
		return &ValidationError{Field: "Config.Image", Reason: "cannot be empty"}
	}
	if r.Config.Algorithm != AlgorithmScan && r.Config.Algorithm != AlgorithmFit {
		return &ValidationError{Field: "Config.Algorithm", Reason: "must be scan or fit"}
	}
	switch r.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
	default:
		return &ValidationError{Field: "Status", Reason: "unknown value " + r.Status}
	}
	if r.Segments < 0 {
		return &ValidationError{Field: "Segments", Reason: "cannot be negative"}
	}
	if r.StartedAt.IsZero() {
		return &ValidationError{Field: "StartedAt", Reason: "cannot be zero"}
	}
	if r.FinishedAt.Before(r.StartedAt) {
		return &ValidationError{Field: "FinishedAt", Reason: "before StartedAt"}
	}
	return nil
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
