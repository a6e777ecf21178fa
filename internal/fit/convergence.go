package fit

import (
	"log/slog"
)

// ConvergenceConfig controls early stopping of the epoch loop. An epoch is
// stale when it applies fewer than Threshold times the number of searches it
// ran.
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool `json:"enabled"`

	// Patience is the number of consecutive stale epochs before stopping
	Patience int `json:"patience"`

	// Threshold is the minimum applied fraction for an epoch to count as
	// progress. Example: 0.01 = one shape in a hundred searches.
	Threshold float64 `json:"threshold"`
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  3,
		Threshold: 0.01,
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// ConvergenceTracker records the applied fraction of every epoch and detects
// when the residual has stopped accepting shapes.
type ConvergenceTracker struct {
	config     ConvergenceConfig
	history    []float64
	best       float64
	staleCount int
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{config: config}
}

// Update records one epoch and returns true if convergence is detected.
func (c *ConvergenceTracker) Update(applied, searches int) bool {
	if !c.config.Enabled {
		return false
	}

	var ratio float64
	if searches > 0 {
		ratio = float64(applied) / float64(searches)
	}
	c.history = append(c.history, ratio)
	c.best = max(c.best, ratio)

	if ratio >= c.config.Threshold {
		c.staleCount = 0
		slog.Debug("Epoch made progress", "applied_ratio", ratio)
		return false
	}

	c.staleCount++
	slog.Debug("Stale epoch",
		"applied_ratio", ratio,
		"threshold", c.config.Threshold,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)

	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_ratio", c.best,
		)
		return true
	}
	return false
}

// BestRatio returns the highest applied fraction seen so far.
func (c *ConvergenceTracker) BestRatio() float64 {
	return c.best
}

// History returns the applied fraction of every recorded epoch.
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the current number of consecutive stale epochs.
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state
func (c *ConvergenceTracker) Reset() {
	c.history = nil
	c.best = 0
	c.staleCount = 0
}
