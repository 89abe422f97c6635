// Package scenario describes scripted rides used to exercise the brake-tilt
// controller: a sequence of segments over which speed, braking, terrain and
// pitch change linearly.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyScenario = errors.New("scenario: no segments")
	ErrBadSegment    = errors.New("scenario: invalid segment")
	ErrUnknown       = errors.New("scenario: unknown scenario")
)

// Range is a value that moves linearly from From to To across a segment.
// In YAML it is either a scalar (constant) or a one or two element list.
type Range struct {
	From float64
	To   float64
}

func Const(v float64) Range       { return Range{From: v, To: v} }
func Ramp(from, to float64) Range { return Range{From: from, To: to} }

// At interpolates at frac in [0, 1].
func (r Range) At(frac float64) float64 {
	return r.From + (r.To-r.From)*frac
}

func (r *Range) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		*r = Const(v)
		return nil
	case yaml.SequenceNode:
		var vs []float64
		if err := value.Decode(&vs); err != nil {
			return err
		}
		switch len(vs) {
		case 1:
			*r = Const(vs[0])
		case 2:
			*r = Ramp(vs[0], vs[1])
		default:
			return fmt.Errorf("line %d: range needs 1 or 2 values, got %d", value.Line, len(vs))
		}
		return nil
	}
	return fmt.Errorf("line %d: range must be a number or a list", value.Line)
}

func (r Range) MarshalYAML() (interface{}, error) {
	if r.From == r.To {
		return r.From, nil
	}
	return []float64{r.From, r.To}, nil
}

// Segment is one phase of a ride. Dismount segments fade the controller out
// instead of updating it.
type Segment struct {
	Label         string  `yaml:"label,omitempty"`
	Duration      float64 `yaml:"duration"`
	Erpm          Range   `yaml:"erpm"`
	Braking       bool    `yaml:"braking"`
	BalanceOffset Range   `yaml:"balance_offset"`
	AccelDiff     Range   `yaml:"accel_diff"`
	Pitch         Range   `yaml:"pitch"`
	BalancePitch  Range   `yaml:"balance_pitch"`
	Wheelslip     bool    `yaml:"wheelslip"`
	Dismount      bool    `yaml:"dismount"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Segments    []Segment `yaml:"segments"`
}

// Duration returns the total ride time in seconds.
func (s *Scenario) Duration() float64 {
	total := 0.0
	for _, seg := range s.Segments {
		total += seg.Duration
	}
	return total
}

func (s *Scenario) Validate() error {
	if len(s.Segments) == 0 {
		return ErrEmptyScenario
	}
	for i, seg := range s.Segments {
		if seg.Duration <= 0 {
			return fmt.Errorf("%w: segment %d duration %g", ErrBadSegment, i+1, seg.Duration)
		}
	}
	return nil
}

// Load reads a scenario from a YAML file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scn Scenario
	if err := yaml.Unmarshal(data, &scn); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := scn.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &scn, nil
}

func Save(path string, scn *Scenario) error {
	data, err := yaml.Marshal(scn)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve returns a built-in scenario by name, or loads it from disk when
// the name is not a built-in.
func Resolve(name string) (*Scenario, error) {
	if scn, err := Builtin(name); err == nil {
		return scn, nil
	}
	if _, err := os.Stat(name); err == nil {
		return Load(name)
	}
	return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknown, name, List())
}
