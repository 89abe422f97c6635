package braketilt

import (
	"fmt"
	"math"
)

// Motor is the motor telemetry snapshot for one tick.
type Motor struct {
	Braking  bool
	Erpm     float64
	AbsErpm  float64
	ErpmSign int
}

// MotorFromErpm fills the derived speed fields from a signed ERPM reading.
func MotorFromErpm(erpm float64, braking bool) Motor {
	s := 0
	switch {
	case erpm > 0:
		s = 1
	case erpm < 0:
		s = -1
	}
	return Motor{
		Braking:  braking,
		Erpm:     erpm,
		AbsErpm:  math.Abs(erpm),
		ErpmSign: s,
	}
}

// Incline is the adaptive torque response snapshot. AccelDiff is positive
// uphill in the direction of travel; the step sizes are the ATR's own
// per-tick setpoint slew limits.
type Incline struct {
	AccelDiff   float64
	OnStepSize  float64
	OffStepSize float64
}

// IMU carries the fused pitch readings, in degrees.
type IMU struct {
	Pitch        float64
	BalancePitch float64
}

// Tick bundles everything Update consumes for one control-loop iteration.
// IMU and Dt are required: there is no code path that runs without them.
type Tick struct {
	Motor         Motor
	Incline       Incline
	BalanceOffset float64
	IMU           IMU
	Dt            float64 // seconds since the previous tick
	Wheelslip     bool
}

// Validate rejects ticks the controller cannot meaningfully consume.
func (t Tick) Validate() error {
	if t.Dt < 0 {
		return &InputError{Field: "dt", Value: t.Dt, Wrapped: ErrNegativeDt}
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"dt", t.Dt},
		{"erpm", t.Motor.Erpm},
		{"abs_erpm", t.Motor.AbsErpm},
		{"accel_diff", t.Incline.AccelDiff},
		{"on_step_size", t.Incline.OnStepSize},
		{"off_step_size", t.Incline.OffStepSize},
		{"balance_offset", t.BalanceOffset},
		{"pitch", t.IMU.Pitch},
		{"balance_pitch", t.IMU.BalancePitch},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &InputError{Field: f.name, Value: f.v, Wrapped: ErrNonFinite}
		}
	}
	return nil
}

// Config is the subset of the rider profile read by the controller. It is
// treated as immutable for the duration of a call.
type Config struct {
	BrakeTiltStrength           float64
	InclineThresholdDefault     float64
	HoldTiltMinTarget           float64
	HoldTiltTimeWindow          float64 // seconds
	HoldTiltPitchDeltaThreshold float64 // degrees
	HoldTiltAngle               float64 // degrees
	HoldTiltTimeout             int     // ticks
	BrakeTiltLingering          float64
}

// Phase is the controller's externally visible mode.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBrakeTilt
	PhaseHoldTilt
	PhaseWindingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBrakeTilt:
		return "brake-tilt"
	case PhaseHoldTilt:
		return "hold-tilt"
	case PhaseWindingDown:
		return "winding-down"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(name string) (Phase, error) {
	for p := PhaseIdle; p <= PhaseWindingDown; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return PhaseIdle, fmt.Errorf("braketilt: unknown phase %q", name)
}

// State is a copy of the controller internals, used for recording and display.
type State struct {
	Phase             Phase
	Factor            float64
	Target            float64
	Setpoint          float64
	HoldTiltValue     float64
	HoldCounter       int
	PitchTimer        float64
	PitchAtTrigger    float64
	PitchDropDetected bool
	HoldEngagements   int
}
