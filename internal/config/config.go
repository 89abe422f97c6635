package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/san-kum/braketilt/internal/braketilt"
	"gopkg.in/yaml.v3"
)

const (
	LoopHz            = 832.0
	DefaultDt         = 1.0 / LoopHz
	DefaultScenario   = "level-stop"
	DefaultStrength   = 10.0
	DefaultLingering  = 2.0
	DefaultIncline    = 2.0
	DefaultMinTarget  = 1.0
	DefaultTimeWindow = 0.25
	DefaultPitchDelta = 2.5
	DefaultHoldAngle  = 3.0
	DefaultTimeout    = 500
	DefaultATROn      = 5.0
	DefaultATROff     = 3.0

	DefaultClientID = "braketilt-sim"
	DefaultTopic    = "braketilt/ticks"
	DefaultEvery    = 8

	MaxStrength = 20.0
)

// ErrParameterBounds indicates a profile value outside its valid range.
var ErrParameterBounds = errors.New("config: parameter out of valid bounds")

type Config struct {
	Name       string          `yaml:"name"`
	Scenario   string          `yaml:"scenario"`
	Dt         float64         `yaml:"dt"`
	Seed       int64           `yaml:"seed"`
	PitchNoise float64         `yaml:"pitch_noise"`
	BrakeTilt  BrakeTiltConfig `yaml:"brake_tilt"`
	HoldTilt   HoldTiltConfig  `yaml:"hold_tilt"`
	ATR        ATRConfig       `yaml:"atr"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
}

type BrakeTiltConfig struct {
	Strength         float64 `yaml:"strength"`
	Lingering        float64 `yaml:"lingering"`
	InclineThreshold float64 `yaml:"incline_threshold"`
}

type HoldTiltConfig struct {
	MinTarget  float64 `yaml:"min_target"`
	TimeWindow float64 `yaml:"time_window"`
	PitchDelta float64 `yaml:"pitch_delta"`
	Angle      float64 `yaml:"angle"`
	Timeout    int     `yaml:"timeout"`
}

// ATRConfig holds the adaptive torque response setpoint speeds in degrees
// per second. The per-tick step sizes are derived from the loop dt.
type ATRConfig struct {
	OnSpeed  float64 `yaml:"on_speed"`
	OffSpeed float64 `yaml:"off_speed"`
}

// TelemetryConfig enables publishing of tick samples over MQTT. An empty
// broker disables it.
type TelemetryConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Every    int    `yaml:"every"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:     "default",
		Scenario: DefaultScenario,
		Dt:       DefaultDt,
		BrakeTilt: BrakeTiltConfig{
			Strength:         DefaultStrength,
			Lingering:        DefaultLingering,
			InclineThreshold: DefaultIncline,
		},
		HoldTilt: HoldTiltConfig{
			MinTarget:  DefaultMinTarget,
			TimeWindow: DefaultTimeWindow,
			PitchDelta: DefaultPitchDelta,
			Angle:      DefaultHoldAngle,
			Timeout:    DefaultTimeout,
		},
		ATR: ATRConfig{
			OnSpeed:  DefaultATROn,
			OffSpeed: DefaultATROff,
		},
		Telemetry: TelemetryConfig{
			ClientID: DefaultClientID,
			Topic:    DefaultTopic,
			Every:    DefaultEvery,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	checks := []struct {
		ok   bool
		name string
		val  float64
	}{
		{c.Dt > 0, "dt", c.Dt},
		{c.BrakeTilt.Strength >= 0 && c.BrakeTilt.Strength <= MaxStrength, "brake_tilt.strength", c.BrakeTilt.Strength},
		{c.BrakeTilt.Lingering > 0, "brake_tilt.lingering", c.BrakeTilt.Lingering},
		{c.BrakeTilt.InclineThreshold >= 0, "brake_tilt.incline_threshold", c.BrakeTilt.InclineThreshold},
		{c.HoldTilt.MinTarget >= 0, "hold_tilt.min_target", c.HoldTilt.MinTarget},
		{c.HoldTilt.TimeWindow > 0, "hold_tilt.time_window", c.HoldTilt.TimeWindow},
		{c.HoldTilt.PitchDelta >= 0, "hold_tilt.pitch_delta", c.HoldTilt.PitchDelta},
		{c.HoldTilt.Timeout >= 1, "hold_tilt.timeout", float64(c.HoldTilt.Timeout)},
		{c.ATR.OnSpeed >= 0, "atr.on_speed", c.ATR.OnSpeed},
		{c.ATR.OffSpeed >= 0, "atr.off_speed", c.ATR.OffSpeed},
		{c.PitchNoise >= 0, "pitch_noise", c.PitchNoise},
		{c.Telemetry.Every >= 1, "telemetry.every", float64(c.Telemetry.Every)},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s=%g", ErrParameterBounds, ch.name, ch.val)
		}
	}
	return nil
}

// Controller returns the fields the brake-tilt controller reads each tick.
func (c *Config) Controller() braketilt.Config {
	return braketilt.Config{
		BrakeTiltStrength:           c.BrakeTilt.Strength,
		InclineThresholdDefault:     c.BrakeTilt.InclineThreshold,
		HoldTiltMinTarget:           c.HoldTilt.MinTarget,
		HoldTiltTimeWindow:          c.HoldTilt.TimeWindow,
		HoldTiltPitchDeltaThreshold: c.HoldTilt.PitchDelta,
		HoldTiltAngle:               c.HoldTilt.Angle,
		HoldTiltTimeout:             c.HoldTilt.Timeout,
		BrakeTiltLingering:          c.BrakeTilt.Lingering,
	}
}

// StepSizes converts the ATR speeds into per-tick setpoint steps.
func (c *Config) StepSizes() (on, off float64) {
	return c.ATR.OnSpeed * c.Dt, c.ATR.OffSpeed * c.Dt
}

// GetParams returns tunable parameters for live adjustment
func (c *Config) GetParams() map[string]float64 {
	return map[string]float64{
		"strength":    c.BrakeTilt.Strength,
		"lingering":   c.BrakeTilt.Lingering,
		"incline":     c.BrakeTilt.InclineThreshold,
		"min_target":  c.HoldTilt.MinTarget,
		"window":      c.HoldTilt.TimeWindow,
		"pitch_delta": c.HoldTilt.PitchDelta,
		"hold_angle":  c.HoldTilt.Angle,
		"atr_on":      c.ATR.OnSpeed,
		"atr_off":     c.ATR.OffSpeed,
	}
}

// ParamNames lists the tunable parameters in display order.
func (c *Config) ParamNames() []string {
	params := c.GetParams()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetParam adjusts a parameter and rejects out of range values.
func (c *Config) SetParam(name string, value float64) error {
	next := *c
	switch name {
	case "strength":
		next.BrakeTilt.Strength = value
	case "lingering":
		next.BrakeTilt.Lingering = value
	case "incline":
		next.BrakeTilt.InclineThreshold = value
	case "min_target":
		next.HoldTilt.MinTarget = value
	case "window":
		next.HoldTilt.TimeWindow = value
	case "pitch_delta":
		next.HoldTilt.PitchDelta = value
	case "hold_angle":
		next.HoldTilt.Angle = value
	case "atr_on":
		next.ATR.OnSpeed = value
	case "atr_off":
		next.ATR.OffSpeed = value
	default:
		return fmt.Errorf("config: unknown parameter %q", name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
