package engrave

import (
	"fmt"
	"sort"

	"github.com/cwbudde/laserlines/internal/fit"
	"github.com/cwbudde/laserlines/internal/gcode"
	"github.com/cwbudde/laserlines/internal/scan"
	"github.com/cwbudde/laserlines/internal/store"
)

// Config describes one engraving run. It is shared by the CLI and the HTTP
// job API.
type Config struct {
	Image     string  `json:"image"`
	Algorithm string  `json:"algorithm"` // scan or fit
	WidthMM   float64 `json:"widthMm"`

	Scan   scan.Config  `json:"scan"`
	Fit    fit.Config   `json:"fit"`
	Device gcode.Config `json:"device"`
}

// Defaults returns a scan run 149 mm wide with default machine settings.
func Defaults() Config {
	return Config{
		Algorithm: store.AlgorithmScan,
		WidthMM:   149,
		Scan:      scan.DefaultConfig(),
		Fit:       fit.DefaultConfig(),
		Device:    gcode.DefaultConfig(),
	}
}

// ValidationError reports an invalid run setting.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return "validation error: " + e.Field + ": " + e.Err.Error()
	}
	return "validation error: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks the settings that can be checked without the image.
func (c Config) Validate() error {
	if c.Image == "" {
		return &ValidationError{Field: "image", Reason: "cannot be empty"}
	}
	if c.WidthMM <= 0 {
		return &ValidationError{Field: "widthMm", Reason: "must be positive"}
	}
	switch c.Algorithm {
	case store.AlgorithmScan:
		if err := c.Scan.Validate(); err != nil {
			return &ValidationError{Field: "scan", Err: err}
		}
	case store.AlgorithmFit:
		if err := c.Fit.Validate(); err != nil {
			return &ValidationError{Field: "fit", Err: err}
		}
	default:
		return &ValidationError{Field: "algorithm", Reason: fmt.Sprintf("must be %q or %q", store.AlgorithmScan, store.AlgorithmFit)}
	}
	if err := c.Device.Validate(); err != nil {
		return &ValidationError{Field: "device", Err: err}
	}
	return nil
}

// RunConfig converts the settings to their persisted form.
func (c Config) RunConfig() store.RunConfig {
	return store.RunConfig{
		Image:     c.Image,
		Algorithm: c.Algorithm,
		WidthMM:   c.WidthMM,
		Scan:      c.Scan,
		Fit:       c.Fit,
		Device:    c.Device,
	}
}

// FromRunConfig restores the settings of a stored run.
func FromRunConfig(rc store.RunConfig) Config {
	return Config{
		Image:     rc.Image,
		Algorithm: rc.Algorithm,
		WidthMM:   rc.WidthMM,
		Scan:      rc.Scan,
		Fit:       rc.Fit,
		Device:    rc.Device,
	}
}

// Preset adjusts a config for a known machine and job setup.
type Preset func(*Config)

var presets = map[string]Preset{
	// Full desk engraving in three tone steps on the reference machine.
	"desk-3-step": func(c *Config) {
		c.Algorithm = store.AlgorithmScan
		c.WidthMM = 149
		c.Scan.Levels = 3
		c.Scan.DistanceMM = 1
		c.Device.CornerX = 15 - 9.3
		c.Device.CornerY = 65 - 4
		c.Device.DefaultZ = 67.2
		c.Device.Speed = 500
		c.Device.Power = 100
	},
	// Line fitting of a portrait at half resolution.
	"fit-portrait": func(c *Config) {
		c.Algorithm = store.AlgorithmFit
		c.WidthMM = 149
		c.Fit.ApproxLevel = 2
		c.Fit.EpochCount = 1
		c.Fit.EpochSize = 2000
	},
}

// ApplyPreset applies the named preset to c.
func ApplyPreset(c *Config, name string) error {
	p, ok := presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q (have %v)", name, PresetNames())
	}
	p(c)
	return nil
}

// PresetNames lists the known presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
