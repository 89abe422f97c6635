package metrics

import (
	"math"

	"github.com/san-kum/braketilt/internal/ride"
)

// SetpointEffort is the mean absolute setpoint offset over a ride.
type SetpointEffort struct {
	name    string
	sum     float64
	samples int
}

func NewSetpointEffort() *SetpointEffort {
	return &SetpointEffort{
		name: "setpoint_effort",
	}
}

func (c *SetpointEffort) Name() string {
	return c.name
}

func (c *SetpointEffort) Observe(s ride.Sample) {
	c.sum += math.Abs(s.Setpoint)
	c.samples++
}

func (c *SetpointEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *SetpointEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

type PeakSetpoint struct {
	name string
	peak float64
}

func NewPeakSetpoint() *PeakSetpoint {
	return &PeakSetpoint{name: "peak_setpoint"}
}

func (p *PeakSetpoint) Name() string { return p.name }

func (p *PeakSetpoint) Observe(s ride.Sample) {
	p.peak = math.Max(p.peak, math.Abs(s.Setpoint))
}

func (p *PeakSetpoint) Value() float64 { return p.peak }

func (p *PeakSetpoint) Reset() { p.peak = 0 }

// MaxSlew tracks the largest setpoint change between consecutive ticks.
type MaxSlew struct {
	name    string
	prev    float64
	max     float64
	samples int
}

func NewMaxSlew() *MaxSlew {
	return &MaxSlew{name: "max_slew"}
}

func (m *MaxSlew) Name() string { return m.name }

func (m *MaxSlew) Observe(s ride.Sample) {
	if m.samples > 0 {
		m.max = math.Max(m.max, math.Abs(s.Setpoint-m.prev))
	}
	m.prev = s.Setpoint
	m.samples++
}

func (m *MaxSlew) Value() float64 { return m.max }

func (m *MaxSlew) Reset() {
	m.prev = 0
	m.max = 0
	m.samples = 0
}

// TrackingError is the mean distance between target and setpoint.
type TrackingError struct {
	name    string
	sum     float64
	samples int
}

func NewTrackingError() *TrackingError {
	return &TrackingError{name: "tracking_error"}
}

func (e *TrackingError) Name() string { return e.name }

func (e *TrackingError) Observe(s ride.Sample) {
	e.sum += math.Abs(s.Target - s.Setpoint)
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *TrackingError) Reset() {
	e.sum = 0
	e.samples = 0
}
