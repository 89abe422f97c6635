package braketilt

import "math"

const (
	activationErpm   = 2000.0
	downhillErpm     = 1000.0
	downhillAccel    = 1.0
	maxDownhillDamp  = 2.0
	slowErpm         = 800.0
	crawlErpm        = 500.0
	riseStepScale    = 1.5
	holdConvergeGain = 0.5

	setpointDecay = 0.995
	targetDecay   = 0.99
)

type holdTilt struct {
	value   float64
	counter int
}

// pitchWindow watches for a pitch drop while brake-tilt is lifting the nose.
// timer <= 0 means no window is open.
type pitchWindow struct {
	timer     float64
	atTrigger float64
	detected  bool
}

func (w *pitchWindow) clear() {
	w.timer = 0
	w.detected = false
}

// Controller holds the brake-tilt state for one riding session.
type Controller struct {
	factor   float64
	target   float64
	setpoint float64
	phase    Phase
	hold     holdTilt
	window   pitchWindow

	// what the last Update did with hold-tilt; a hold with a timeout of one
	// tick engages and releases inside a single call
	engaged     bool
	holding     bool
	engagements int
}

// New returns an initialized controller with brake-tilt disabled until
// Configure is called.
func New() *Controller {
	c := &Controller{}
	c.Init()
	return c
}

// Init zeroes the gain and all transient state.
func (c *Controller) Init() {
	c.factor = 0
	c.Reset()
}

// Reset clears transient state but keeps the configured gain.
func (c *Controller) Reset() {
	c.target = 0
	c.setpoint = 0
	c.phase = PhaseIdle
	c.hold = holdTilt{}
	c.window = pitchWindow{}
	c.engaged, c.holding = false, false
	c.engagements = 0
}

// Configure derives the gain from the profile strength. Zero disables
// brake-tilt, as does any strength too large to give a negative factor;
// the factor is never positive, so dividing the balance offset by it flips
// the sign once, here.
func (c *Controller) Configure(strength float64) {
	factor := -(0.5 + (20-strength)/5)
	if strength == 0 || factor >= 0 {
		factor = 0
	}
	c.factor = factor
}

// Update advances the controller by one tick.
func (c *Controller) Update(in Tick, cfg Config) {
	c.engaged, c.holding = false, false
	if c.suppressed(in, cfg) {
		c.target = 0
		if c.phase == PhaseHoldTilt {
			c.releaseHold()
		}
		c.settlePhase()
		return
	}

	c.target = c.brakeTarget(in)
	c.watchPitch(in, cfg)

	if c.phase != PhaseHoldTilt && c.window.detected {
		c.engageHold(cfg)
	}

	switch c.phase {
	case PhaseHoldTilt:
		c.holdStep(in.IMU)
	default:
		c.approach(in, cfg)
	}
	c.settlePhase()
}

// WindDown fades the setpoint and target instead of zeroing them. It is
// meant to be called once per tick in place of Update.
func (c *Controller) WindDown() {
	c.setpoint *= setpointDecay
	c.target *= targetDecay
	c.hold.counter = 0
	c.phase = PhaseWindingDown
	c.engaged, c.holding = false, false
}

// suppressed reports whether the tick is off level ground or slipping.
func (c *Controller) suppressed(in Tick, cfg Config) bool {
	return in.Wheelslip || math.Abs(in.Incline.AccelDiff) > cfg.InclineThresholdDefault
}

func (c *Controller) brakeTarget(in Tick) float64 {
	m := in.Motor
	// factor < 0 must be checked first: it guards the division below.
	if c.factor >= 0 || !m.Braking || m.AbsErpm <= activationErpm {
		return 0
	}
	// negative current alone is not braking, the balance offset has to
	// oppose the direction of travel
	if sign(in.BalanceOffset) == m.ErpmSign {
		return 0
	}

	accel := in.Incline.AccelDiff
	damper := 1.0
	if (m.Erpm > downhillErpm && accel < -downhillAccel) ||
		(m.Erpm < -downhillErpm && accel > downhillAccel) {
		damper += math.Abs(accel) / 2
	}
	if damper > maxDownhillDamp {
		return 0
	}
	return in.BalanceOffset / c.factor / damper
}

func (c *Controller) watchPitch(in Tick, cfg Config) {
	if c.phase == PhaseHoldTilt || math.Abs(c.target) <= cfg.HoldTiltMinTarget || in.Wheelslip {
		c.window.clear()
		return
	}

	w := &c.window
	if w.timer <= 0 {
		w.atTrigger = in.IMU.Pitch
		w.timer = cfg.HoldTiltTimeWindow
		w.detected = false
		return
	}
	if w.atTrigger-in.IMU.Pitch > cfg.HoldTiltPitchDeltaThreshold {
		w.detected = true
	}
	w.timer -= in.Dt
}

func (c *Controller) engageHold(cfg Config) {
	c.phase = PhaseHoldTilt
	c.hold = holdTilt{value: cfg.HoldTiltAngle, counter: cfg.HoldTiltTimeout}
	c.window.clear()
	c.engaged = true
	c.engagements++
}

func (c *Controller) releaseHold() {
	c.hold.counter = 0
	c.phase = PhaseIdle
}

func (c *Controller) holdStep(imu IMU) {
	c.holding = true
	c.setpoint = c.hold.value
	if imu.BalancePitch < c.hold.value {
		c.setpoint += holdConvergeGain * (c.hold.value - imu.BalancePitch)
	}
	c.hold.counter--
	if c.hold.counter <= 0 {
		c.releaseHold()
	}
}

func (c *Controller) approach(in Tick, cfg Config) {
	step := in.Incline.OffStepSize / cfg.BrakeTiltLingering
	if math.Abs(c.target) > math.Abs(c.setpoint) {
		step = in.Incline.OnStepSize * riseStepScale
	} else if in.Motor.AbsErpm < slowErpm {
		step = in.Incline.OnStepSize
	}
	if in.Motor.AbsErpm < crawlErpm {
		step /= 2
	}
	c.setpoint = rateLimit(c.setpoint, c.target, step)
}

// settlePhase derives the phase after a tick. Hold-tilt is sticky until
// released by its counter or the suppression gate.
func (c *Controller) settlePhase() {
	switch {
	case c.phase == PhaseHoldTilt:
	case c.target != 0:
		c.phase = PhaseBrakeTilt
	default:
		c.phase = PhaseIdle
	}
}

func (c *Controller) Setpoint() float64       { return c.setpoint }
func (c *Controller) Target() float64         { return c.target }
func (c *Controller) Factor() float64         { return c.factor }
func (c *Controller) Phase() Phase            { return c.phase }
func (c *Controller) HoldTiltActive() bool    { return c.phase == PhaseHoldTilt }
func (c *Controller) HoldCounter() int        { return c.hold.counter }
func (c *Controller) PitchTimer() float64     { return c.window.timer }
func (c *Controller) PitchDropDetected() bool { return c.window.detected }

// HoldEngaged reports whether the last Update engaged hold-tilt.
func (c *Controller) HoldEngaged() bool { return c.engaged }

// Holding reports whether the last Update ran a hold-tilt tick, including
// the tick that released it.
func (c *Controller) Holding() bool { return c.holding }

// HoldEngagements counts hold-tilt engagements since the last Reset.
func (c *Controller) HoldEngagements() int { return c.engagements }

// State returns a snapshot of the controller internals.
func (c *Controller) State() State {
	return State{
		Phase:             c.phase,
		Factor:            c.factor,
		Target:            c.target,
		Setpoint:          c.setpoint,
		HoldTiltValue:     c.hold.value,
		HoldCounter:       c.hold.counter,
		PitchTimer:        c.window.timer,
		PitchAtTrigger:    c.window.atTrigger,
		PitchDropDetected: c.window.detected,
		HoldEngagements:   c.engagements,
	}
}
