package gcode

// Config describes the laser head and the machine bed.
type Config struct {
	// MoveSpeed is the feed rate for travel moves with the laser off.
	MoveSpeed int `json:"moveSpeed"`
	// PauseSeconds is the dwell after switching the laser on.
	PauseSeconds float64 `json:"pauseSeconds"`
	// DefaultZ is the focus height set during initialisation.
	DefaultZ float64 `json:"defaultZ"`
	AutoHome bool    `json:"autoHome"`
	// CornerX and CornerY are the machine coordinates the laser points at
	// for the smallest X and Y of the work area.
	CornerX float64 `json:"cornerX"`
	CornerY float64 `json:"cornerY"`
	// CornerMargin is added to both corner coordinates.
	CornerMargin float64 `json:"cornerMargin"`
	// Speed is the default engraving feed rate.
	Speed float64 `json:"speed"`
	// Power is the default fan/laser PWM value passed to M106.
	Power int `json:"power"`
}

// DefaultConfig returns the settings of the reference machine.
func DefaultConfig() Config {
	return Config{
		MoveSpeed:    3000,
		PauseSeconds: 0.3,
		DefaultZ:     60,
		AutoHome:     true,
		CornerX:      55,
		CornerY:      40,
		CornerMargin: 5,
		Speed:        100,
		Power:        100,
	}
}

// Validate reports settings the machine cannot execute.
func (c Config) Validate() error {
	if c.MoveSpeed <= 0 {
		return &ConfigError{Field: "moveSpeed", Reason: "must be positive"}
	}
	if c.PauseSeconds < 0 {
		return &ConfigError{Field: "pauseSeconds", Reason: "cannot be negative"}
	}
	if c.Speed <= 0 {
		return &ConfigError{Field: "speed", Reason: "must be positive"}
	}
	if c.Power < 0 || c.Power > 255 {
		return &ConfigError{Field: "power", Reason: "must be in 0..255"}
	}
	return nil
}

// ConfigError reports an invalid machine setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "gcode config: " + e.Field + " " + e.Reason
}
