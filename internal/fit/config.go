package fit

import (
	"fmt"
)

// SearchKind selects how candidate shapes are found.
type SearchKind string

const (
	// SearchGreedy is rejection sampling followed by a hill climb.
	SearchGreedy SearchKind = "greedy"
	// SearchMayfly runs the Mayfly optimiser over line endpoints.
	SearchMayfly SearchKind = "mayfly"
)

// Config holds the fitter parameters.
type Config struct {
	// ApproxLevel downscales the image by this integer factor before fitting.
	ApproxLevel int `json:"approxLevel"`

	EpochSize  int `json:"epochSize"`
	EpochCount int `json:"epochCount"`

	// MaxIter bounds the hill climb of a single search.
	MaxIter int `json:"maxIter"`
	// Eps stops a hill climb once a proposal scores above 1-Eps.
	Eps float64 `json:"eps"`
	// MinThreshold is the score a random start must reach.
	MinThreshold float64 `json:"minThreshold"`
	// ApplyThreshold is the score a search result needs to be engraved.
	ApplyThreshold float64 `json:"applyThreshold"`
	// MaxRejections bounds the random starts of one search. 0 is unbounded.
	MaxRejections int `json:"maxRejections"`

	Seed   int64      `json:"seed"`
	Search SearchKind `json:"search"`

	// Mayfly settings, used with SearchMayfly only.
	MayflyIterations int `json:"mayflyIterations,omitempty"`
	MayflyPopulation int `json:"mayflyPopulation,omitempty"`

	Convergence ConvergenceConfig `json:"convergence"`
}

// DefaultConfig returns the settings used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		ApproxLevel:      1,
		EpochSize:        2000,
		EpochCount:       10,
		MaxIter:          300,
		Eps:              0.001,
		MinThreshold:     0.01,
		ApplyThreshold:   0.8,
		MaxRejections:    10000,
		Seed:             1,
		Search:           SearchGreedy,
		MayflyIterations: 30,
		MayflyPopulation: 20,
		Convergence:      DisabledConvergenceConfig(),
	}
}

// ConfigError reports an invalid fitter setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "fit config: " + e.Field + " " + e.Reason
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.ApproxLevel < 1 {
		return &ConfigError{Field: "approxLevel", Reason: "must be at least 1"}
	}
	if c.EpochSize <= 0 {
		return &ConfigError{Field: "epochSize", Reason: "must be positive"}
	}
	if c.EpochCount <= 0 {
		return &ConfigError{Field: "epochCount", Reason: "must be positive"}
	}
	if c.MaxIter < 0 {
		return &ConfigError{Field: "maxIter", Reason: "cannot be negative"}
	}
	if c.Eps < 0 || c.Eps >= 1 {
		return &ConfigError{Field: "eps", Reason: "must be in [0, 1)"}
	}
	if c.MinThreshold > 1 {
		return &ConfigError{Field: "minThreshold", Reason: "cannot exceed 1"}
	}
	if c.MaxRejections < 0 {
		return &ConfigError{Field: "maxRejections", Reason: "cannot be negative"}
	}
	switch c.Search {
	case SearchGreedy, "":
	case SearchMayfly:
		if c.MayflyIterations <= 0 {
			return &ConfigError{Field: "mayflyIterations", Reason: "must be positive"}
		}
		if c.MayflyPopulation <= 0 {
			return &ConfigError{Field: "mayflyPopulation", Reason: "must be positive"}
		}
	default:
		return &ConfigError{Field: "search", Reason: fmt.Sprintf("unknown kind %q", c.Search)}
	}
	if c.Convergence.Enabled && c.Convergence.Patience <= 0 {
		return &ConfigError{Field: "convergence.patience", Reason: "must be positive"}
	}
	return nil
}
