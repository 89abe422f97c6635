package metrics

import "github.com/san-kum/braketilt/internal/ride"

// HoldTime is the fraction of ticks spent with hold-tilt engaged.
type HoldTime struct {
	name    string
	held    int
	samples int
}

func NewHoldTime() *HoldTime {
	return &HoldTime{
		name: "hold_time",
	}
}

func (h *HoldTime) Name() string {
	return h.name
}

func (h *HoldTime) Observe(s ride.Sample) {
	h.samples++
	if s.Holding {
		h.held++
	}
}

func (h *HoldTime) Value() float64 {
	if h.samples == 0 {
		return 0
	}
	return float64(h.held) / float64(h.samples)
}

func (h *HoldTime) Reset() {
	h.held = 0
	h.samples = 0
}

// HoldTicks counts ticks spent with hold-tilt engaged.
type HoldTicks struct {
	held int
}

func NewHoldTicks() *HoldTicks { return &HoldTicks{} }

func (h *HoldTicks) Name() string { return "hold_ticks" }

func (h *HoldTicks) Observe(s ride.Sample) {
	if s.Holding {
		h.held++
	}
}

func (h *HoldTicks) Value() float64 { return float64(h.held) }
func (h *HoldTicks) Reset()         { h.held = 0 }

// HoldActivations counts how often hold-tilt engaged.
type HoldActivations struct {
	count int
}

func NewHoldActivations() *HoldActivations { return &HoldActivations{} }

func (h *HoldActivations) Name() string { return "hold_activations" }

func (h *HoldActivations) Observe(s ride.Sample) {
	if s.HoldEngaged {
		h.count++
	}
}

func (h *HoldActivations) Value() float64 { return float64(h.count) }

func (h *HoldActivations) Reset() { h.count = 0 }

// Default returns a fresh set of the metrics recorded for every run.
func Default() []ride.Metric {
	return []ride.Metric{
		NewSetpointEffort(),
		NewPeakSetpoint(),
		NewMaxSlew(),
		NewTrackingError(),
		NewHoldTime(),
		NewHoldTicks(),
		NewHoldActivations(),
	}
}
