package ride

import (
	"errors"
	"fmt"

	"github.com/san-kum/braketilt/internal/braketilt"
)

var (
	// ErrFinished indicates Next was called after the last tick.
	ErrFinished = errors.New("ride: scenario finished")
)

// Sample is what the controller saw and produced on one tick.
type Sample struct {
	Tick          int             `json:"tick"`
	Time          float64         `json:"time"`
	Segment       string          `json:"segment"`
	Erpm          float64         `json:"erpm"`
	Braking       bool            `json:"braking"`
	AccelDiff     float64         `json:"accel_diff"`
	BalanceOffset float64         `json:"balance_offset"`
	Pitch         float64         `json:"pitch"`
	BalancePitch  float64         `json:"balance_pitch"`
	Wheelslip     bool            `json:"wheelslip"`
	Target        float64         `json:"target"`
	Setpoint      float64         `json:"setpoint"`
	Phase         braketilt.Phase `json:"-"`
	PhaseName     string          `json:"phase"`
	HoldCounter   int             `json:"hold_counter"`
	HoldEngaged   bool            `json:"hold_engaged"`
	Holding       bool            `json:"holding"`
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(s Sample)
}

type Result struct {
	Scenario        string             `json:"scenario"`
	Profile         string             `json:"profile"`
	Dt              float64            `json:"dt"`
	Samples         []Sample           `json:"samples"`
	Metrics         map[string]float64 `json:"metrics"`
	Ticks           int                `json:"ticks"`
	HoldActivations int                `json:"hold_activations"`
}

// Series extracts one value per sample, for plotting.
func (r *Result) Series(field func(Sample) float64) []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = field(s)
	}
	return out
}

// TickError wraps a rejected tick with its position in the ride.
type TickError struct {
	Tick    int
	Time    float64
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d (t=%.4f): %v", e.Tick, e.Time, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
