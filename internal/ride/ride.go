package ride

import (
	"math"
	"math/rand"

	"github.com/san-kum/braketilt/internal/braketilt"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/scenario"
)

// Ride steps a controller through a scenario one tick at a time.
type Ride struct {
	cfg   *config.Config
	bt    braketilt.Config
	scn   *scenario.Scenario
	ctrl  *braketilt.Controller
	rng   *rand.Rand
	ticks []segmentTicks

	tick  int
	seg   int
	pos   int
	holds int
}

type segmentTicks struct {
	seg *scenario.Segment
	n   int
}

// NewRide validates its inputs and returns a ride positioned at the first tick.
func NewRide(cfg *config.Config, scn *scenario.Scenario) (*Ride, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := scn.Validate(); err != nil {
		return nil, err
	}

	r := &Ride{
		cfg:  cfg,
		scn:  scn,
		ctrl: braketilt.New(),
	}
	for i := range scn.Segments {
		seg := &scn.Segments[i]
		n := int(math.Round(seg.Duration / cfg.Dt))
		if n < 1 {
			n = 1
		}
		r.ticks = append(r.ticks, segmentTicks{seg: seg, n: n})
	}
	r.Reset()
	return r, nil
}

// Reset rewinds to the first tick and reinitializes the controller from the
// current profile.
func (r *Ride) Reset() {
	r.bt = r.cfg.Controller()
	r.ctrl.Init()
	r.ctrl.Configure(r.bt.BrakeTiltStrength)
	r.rng = rand.New(rand.NewSource(r.cfg.Seed))
	r.tick, r.seg, r.pos = 0, 0, 0
	r.holds = 0
}

// Reconfigure applies profile changes between ticks.
func (r *Ride) Reconfigure() error {
	if err := r.cfg.Validate(); err != nil {
		return err
	}
	r.bt = r.cfg.Controller()
	r.ctrl.Configure(r.bt.BrakeTiltStrength)
	return nil
}

func (r *Ride) Controller() *braketilt.Controller { return r.ctrl }
func (r *Ride) Scenario() *scenario.Scenario      { return r.scn }
func (r *Ride) HoldActivations() int              { return r.holds }
func (r *Ride) Time() float64                     { return float64(r.tick) * r.cfg.Dt }

func (r *Ride) Done() bool {
	return r.seg >= len(r.ticks)
}

// TotalTicks is the number of ticks the whole scenario takes.
func (r *Ride) TotalTicks() int {
	total := 0
	for _, st := range r.ticks {
		total += st.n
	}
	return total
}

// Next builds the inputs for the current tick, steps the controller and
// returns the resulting sample.
func (r *Ride) Next() (Sample, error) {
	if r.Done() {
		return Sample{}, ErrFinished
	}
	st := r.ticks[r.seg]
	seg := st.seg
	frac := 0.0
	if st.n > 1 {
		frac = float64(r.pos) / float64(st.n-1)
	}

	in := r.input(seg, frac)
	t := r.Time()
	if err := in.Validate(); err != nil {
		return Sample{}, &TickError{Tick: r.tick, Time: t, Wrapped: err}
	}

	if seg.Dismount {
		r.ctrl.WindDown()
	} else {
		r.ctrl.Update(in, r.bt)
	}

	phase := r.ctrl.Phase()
	engaged := r.ctrl.HoldEngaged()
	holding := r.ctrl.Holding()
	if engaged {
		r.holds++
	}

	s := Sample{
		Tick:          r.tick,
		Time:          t,
		Segment:       seg.Label,
		Erpm:          in.Motor.Erpm,
		Braking:       in.Motor.Braking,
		AccelDiff:     in.Incline.AccelDiff,
		BalanceOffset: in.BalanceOffset,
		Pitch:         in.IMU.Pitch,
		BalancePitch:  in.IMU.BalancePitch,
		Wheelslip:     in.Wheelslip,
		Target:        r.ctrl.Target(),
		Setpoint:      r.ctrl.Setpoint(),
		Phase:         phase,
		PhaseName:     phase.String(),
		HoldCounter:   r.ctrl.HoldCounter(),
		HoldEngaged:   engaged,
		Holding:       holding,
	}

	r.tick++
	r.pos++
	if r.pos >= st.n {
		r.seg++
		r.pos = 0
	}
	return s, nil
}

func (r *Ride) input(seg *scenario.Segment, frac float64) braketilt.Tick {
	on, off := r.cfg.StepSizes()
	pitch := seg.Pitch.At(frac)
	if r.cfg.PitchNoise > 0 {
		pitch += r.rng.NormFloat64() * r.cfg.PitchNoise
	}
	return braketilt.Tick{
		Motor: braketilt.MotorFromErpm(seg.Erpm.At(frac), seg.Braking),
		Incline: braketilt.Incline{
			AccelDiff:   seg.AccelDiff.At(frac),
			OnStepSize:  on,
			OffStepSize: off,
		},
		BalanceOffset: seg.BalanceOffset.At(frac),
		IMU: braketilt.IMU{
			Pitch:        pitch,
			BalancePitch: seg.BalancePitch.At(frac),
		},
		Dt:        r.cfg.Dt,
		Wheelslip: seg.Wheelslip,
	}
}
