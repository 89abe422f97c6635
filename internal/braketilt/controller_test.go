package braketilt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/braketilt/internal/braketilt"
)

func testConfig() braketilt.Config {
	return braketilt.Config{
		BrakeTiltStrength:           15,
		InclineThresholdDefault:     5,
		HoldTiltMinTarget:           1,
		HoldTiltTimeWindow:          0.2,
		HoldTiltPitchDeltaThreshold: 3,
		HoldTiltAngle:               4,
		HoldTiltTimeout:             5,
		BrakeTiltLingering:          2,
	}
}

// brakingTick is a forward hard stop on level ground: sign(offset) != erpm sign.
func brakingTick() braketilt.Tick {
	return braketilt.Tick{
		Motor:         braketilt.Motor{Braking: true, Erpm: 2500, AbsErpm: 2500, ErpmSign: 1},
		Incline:       braketilt.Incline{OnStepSize: 0.1, OffStepSize: 0.05},
		BalanceOffset: -5,
		Dt:            0.1,
	}
}

func coastTick(erpm float64) braketilt.Tick {
	return braketilt.Tick{
		Motor:   braketilt.MotorFromErpm(erpm, false),
		Incline: braketilt.Incline{OnStepSize: 0.1, OffStepSize: 0.05},
		Dt:      0.1,
	}
}

// engageHold opens a pitch window and then drops the nose past the threshold.
func engageHold(c *braketilt.Controller, cfg braketilt.Config) {
	in := brakingTick()
	c.Update(in, cfg)
	in.IMU.Pitch = -5
	c.Update(in, cfg)
}

var _ = Describe("Controller", func() {
	var (
		c   *braketilt.Controller
		cfg braketilt.Config
	)

	BeforeEach(func() {
		cfg = testConfig()
		c = braketilt.New()
		c.Configure(cfg.BrakeTiltStrength)
	})

	Describe("Configure", func() {
		It("disables brake-tilt at zero strength", func() {
			c.Configure(0)
			Expect(c.Factor()).To(Equal(0.0))
		})

		DescribeTable("folds the sign into the factor",
			func(strength, factor float64) {
				c.Configure(strength)
				Expect(c.Factor()).To(BeNumerically("~", factor, 1e-9))
				Expect(c.Factor()).To(BeNumerically("<", 0))
			},
			Entry("weakest", 1.0, -4.3),
			Entry("mid", 15.0, -1.5),
			Entry("strongest", 20.0, -0.5),
		)

		DescribeTable("disables brake-tilt when the strength leaves no negative gain",
			func(strength float64) {
				c.Configure(strength)
				Expect(c.Factor()).To(Equal(0.0))
				c.Update(brakingTick(), cfg)
				Expect(c.Target()).To(Equal(0.0))
			},
			Entry("at the zero crossing", 22.5),
			Entry("beyond it", 25.0),
		)

		It("does not touch transient state", func() {
			c.Update(brakingTick(), cfg)
			before := c.State()
			c.Configure(10)
			after := c.State()
			Expect(after.Setpoint).To(Equal(before.Setpoint))
			Expect(after.Target).To(Equal(before.Target))
			Expect(after.Factor).NotTo(Equal(before.Factor))
		})
	})

	Describe("Init and Reset", func() {
		It("starts idle at zero", func() {
			s := braketilt.New().State()
			Expect(s).To(Equal(braketilt.State{}))
		})

		It("keeps the gain across Reset but not across Init", func() {
			c.Update(brakingTick(), cfg)
			c.Reset()
			Expect(c.Setpoint()).To(Equal(0.0))
			Expect(c.Target()).To(Equal(0.0))
			Expect(c.Factor()).To(BeNumerically("~", -1.5, 1e-9))

			c.Init()
			Expect(c.Factor()).To(Equal(0.0))
		})
	})

	Describe("brake-tilt target", func() {
		It("lifts in proportion to the balance offset while braking", func() {
			c.Update(brakingTick(), cfg)
			Expect(c.Target()).To(BeNumerically("~", 10.0/3.0, 1e-9))
			Expect(c.Phase()).To(Equal(braketilt.PhaseBrakeTilt))
		})

		It("damps the lift on a moderate downhill", func() {
			in := brakingTick()
			in.Motor.Erpm = 1500
			in.Incline.AccelDiff = -2
			c.Update(in, cfg)
			Expect(c.Target()).To(BeNumerically("~", 10.0/6.0, 1e-9))
		})

		It("switches off entirely on a steep downhill", func() {
			in := brakingTick()
			in.Motor.Erpm = 1500
			in.Incline.AccelDiff = -3
			c.Update(in, cfg)
			Expect(c.Target()).To(Equal(0.0))
			Expect(c.Phase()).To(Equal(braketilt.PhaseIdle))
		})

		It("damps reverse braking on a downhill too", func() {
			in := brakingTick()
			in.Motor = braketilt.MotorFromErpm(-2500, true)
			in.BalanceOffset = 5
			in.Incline.AccelDiff = 2
			c.Update(in, cfg)
			Expect(c.Target()).To(BeNumerically("~", 5.0/-1.5/2.0, 1e-9))
		})

		It("ignores negative current without a proportional braking signature", func() {
			in := brakingTick()
			in.BalanceOffset = 5
			c.Update(in, cfg)
			Expect(c.Target()).To(Equal(0.0))
		})

		It("stays off below the activation speed", func() {
			in := brakingTick()
			in.Motor = braketilt.MotorFromErpm(2000, true)
			c.Update(in, cfg)
			Expect(c.Target()).To(Equal(0.0))
		})

		It("never produces a target when disabled", func() {
			c.Configure(0)
			for i := 0; i < 20; i++ {
				c.Update(brakingTick(), cfg)
				Expect(c.Target()).To(Equal(0.0))
			}
		})

		It("converges monotonically to zero once disabled", func() {
			for i := 0; i < 10; i++ {
				c.Update(brakingTick(), cfg)
			}
			Expect(c.Setpoint()).To(BeNumerically(">", 0))

			c.Configure(0)
			prev := c.Setpoint()
			for i := 0; i < 200; i++ {
				c.Update(coastTick(3000), cfg)
				Expect(c.Setpoint()).To(BeNumerically("<=", prev))
				Expect(c.Setpoint()).To(BeNumerically(">=", -1e-9))
				prev = c.Setpoint()
			}
			Expect(c.Setpoint()).To(Equal(0.0))
		})
	})

	Describe("suppression gate", func() {
		It("zeroes the target on wheelslip", func() {
			c.Update(brakingTick(), cfg)
			in := brakingTick()
			in.Wheelslip = true
			c.Update(in, cfg)
			Expect(c.Target()).To(Equal(0.0))
		})

		It("bypasses the rate limiter", func() {
			c.Update(brakingTick(), cfg)
			sp := c.Setpoint()
			in := brakingTick()
			in.Wheelslip = true
			c.Update(in, cfg)
			Expect(c.Setpoint()).To(Equal(sp))
		})

		DescribeTable("zeroes the target off level ground",
			func(accel float64) {
				c.Update(brakingTick(), cfg)
				in := brakingTick()
				in.Incline.AccelDiff = accel
				c.Update(in, cfg)
				Expect(c.Target()).To(Equal(0.0))
				Expect(c.Phase()).To(Equal(braketilt.PhaseIdle))
			},
			Entry("incline", 5.5),
			Entry("decline", -5.5),
		)

		DescribeTable("lets an incline exactly at the threshold through",
			func(accel, erpm, offset, target float64) {
				in := brakingTick()
				in.Motor = braketilt.MotorFromErpm(erpm, true)
				in.BalanceOffset = offset
				in.Incline.AccelDiff = accel
				c.Update(in, cfg)
				Expect(c.Target()).To(BeNumerically("~", target, 1e-9))
				Expect(c.Phase()).To(Equal(braketilt.PhaseBrakeTilt))
			},
			Entry("uphill forward", 5.0, 2500.0, -5.0, 10.0/3.0),
			Entry("downhill reverse", -5.0, -2500.0, 5.0, -10.0/3.0),
		)

		It("releases hold-tilt", func() {
			engageHold(c, cfg)
			Expect(c.HoldTiltActive()).To(BeTrue())

			in := brakingTick()
			in.Wheelslip = true
			c.Update(in, cfg)
			Expect(c.HoldTiltActive()).To(BeFalse())
			Expect(c.HoldCounter()).To(Equal(0))
		})
	})

	Describe("pitch-drop window", func() {
		It("opens a window at the current pitch", func() {
			in := brakingTick()
			in.IMU.Pitch = 1.5
			c.Update(in, cfg)
			s := c.State()
			Expect(s.PitchTimer).To(Equal(cfg.HoldTiltTimeWindow))
			Expect(s.PitchAtTrigger).To(Equal(1.5))
			Expect(s.PitchDropDetected).To(BeFalse())
		})

		It("counts the window down by dt", func() {
			c.Update(brakingTick(), cfg)
			c.Update(brakingTick(), cfg)
			Expect(c.PitchTimer()).To(BeNumerically("~", 0.1, 1e-9))
		})

		It("does not open below the minimum target", func() {
			cfg.HoldTiltMinTarget = 4
			c.Update(brakingTick(), cfg)
			Expect(c.PitchTimer()).To(Equal(0.0))
		})

		It("clears the window when brake-tilt ends", func() {
			c.Update(brakingTick(), cfg)
			c.Update(coastTick(2500), cfg)
			Expect(c.PitchTimer()).To(Equal(0.0))
			Expect(c.PitchDropDetected()).To(BeFalse())
		})

		It("rebases after the window expires", func() {
			in := brakingTick()
			for i := 0; i < 3; i++ {
				c.Update(in, cfg)
			}
			Expect(c.PitchTimer()).To(BeNumerically("<=", 0))

			in.IMU.Pitch = -5
			c.Update(in, cfg)
			Expect(c.HoldTiltActive()).To(BeFalse())
			Expect(c.State().PitchAtTrigger).To(Equal(-5.0))
		})

		It("ignores drops smaller than the threshold", func() {
			in := brakingTick()
			c.Update(in, cfg)
			in.IMU.Pitch = -2.5
			c.Update(in, cfg)
			Expect(c.HoldTiltActive()).To(BeFalse())
		})
	})

	Describe("hold-tilt", func() {
		It("engages on the tick the drop is detected", func() {
			engageHold(c, cfg)
			s := c.State()
			Expect(s.Phase).To(Equal(braketilt.PhaseHoldTilt))
			Expect(s.HoldTiltValue).To(Equal(cfg.HoldTiltAngle))
			Expect(s.HoldCounter).To(Equal(cfg.HoldTiltTimeout - 1))
			Expect(s.PitchTimer).To(Equal(0.0))
			Expect(s.PitchDropDetected).To(BeFalse())
		})

		It("pulls the setpoint past the held angle while the board is below it", func() {
			engageHold(c, cfg)
			Expect(c.Setpoint()).To(Equal(6.0))

			in := brakingTick()
			in.IMU.BalancePitch = 5
			c.Update(in, cfg)
			Expect(c.Setpoint()).To(Equal(4.0))
		})

		It("releases after exactly the configured number of ticks", func() {
			engageHold(c, cfg)
			held := 1
			for c.HoldTiltActive() {
				c.Update(brakingTick(), cfg)
				held++
				Expect(c.HoldCounter()).To(BeNumerically(">=", 0))
			}
			Expect(held).To(Equal(cfg.HoldTiltTimeout))
			Expect(c.HoldCounter()).To(Equal(0))
			Expect(c.Phase()).To(Equal(braketilt.PhaseBrakeTilt))
		})

		It("reports each engagement", func() {
			c.Update(brakingTick(), cfg)
			Expect(c.HoldEngaged()).To(BeFalse())
			Expect(c.Holding()).To(BeFalse())

			in := brakingTick()
			in.IMU.Pitch = -5
			c.Update(in, cfg)
			Expect(c.HoldEngaged()).To(BeTrue())
			Expect(c.Holding()).To(BeTrue())
			Expect(c.HoldEngagements()).To(Equal(1))

			c.Update(in, cfg)
			Expect(c.HoldEngaged()).To(BeFalse())
			Expect(c.Holding()).To(BeTrue())
			Expect(c.State().HoldEngagements).To(Equal(1))

			c.Reset()
			Expect(c.HoldEngagements()).To(Equal(0))
		})

		It("reports a one tick hold that engages and releases in the same update", func() {
			cfg.HoldTiltTimeout = 1
			engageHold(c, cfg)
			Expect(c.Phase()).NotTo(Equal(braketilt.PhaseHoldTilt))
			Expect(c.HoldEngaged()).To(BeTrue())
			Expect(c.Holding()).To(BeTrue())
			Expect(c.HoldEngagements()).To(Equal(1))
			Expect(c.Setpoint()).To(Equal(6.0))
		})

		It("resumes rate limiting after release", func() {
			cfg.HoldTiltTimeout = 1
			engageHold(c, cfg)
			Expect(c.HoldTiltActive()).To(BeFalse())
			sp := c.Setpoint()
			c.Update(coastTick(3000), cfg)
			Expect(c.Setpoint()).To(BeNumerically("~", sp-0.025, 1e-9))
		})
	})

	Describe("rate limiter", func() {
		It("rises at one and a half times the on step", func() {
			c.Update(brakingTick(), cfg)
			Expect(c.Setpoint()).To(BeNumerically("~", 0.15, 1e-9))
		})

		It("never overshoots the target", func() {
			for i := 0; i < 50; i++ {
				c.Update(brakingTick(), cfg)
				Expect(c.Setpoint()).To(BeNumerically("<=", c.Target()+1e-12))
			}
			Expect(c.Setpoint()).To(BeNumerically("~", 10.0/3.0, 1e-9))
		})

		DescribeTable("decays at a speed dependent rate",
			func(erpm, step float64) {
				for i := 0; i < 10; i++ {
					c.Update(brakingTick(), cfg)
				}
				sp := c.Setpoint()
				c.Update(coastTick(erpm), cfg)
				Expect(sp - c.Setpoint()).To(BeNumerically("~", step, 1e-9))
			},
			Entry("lingering at speed", 3000.0, 0.025),
			Entry("on step when slow", 700.0, 0.1),
			Entry("halved near standstill", 400.0, 0.05),
			Entry("reverse lingering", -3000.0, 0.025),
		)
	})

	Describe("WindDown", func() {
		It("decays geometrically", func() {
			for i := 0; i < 10; i++ {
				c.Update(brakingTick(), cfg)
			}
			sp, tg := c.Setpoint(), c.Target()
			for i := 0; i < 50; i++ {
				c.WindDown()
				Expect(c.Setpoint()).To(BeNumerically("~", sp*0.995, 1e-12))
				Expect(c.Target()).To(BeNumerically("~", tg*0.99, 1e-12))
				sp, tg = c.Setpoint(), c.Target()
			}
			Expect(c.Phase()).To(Equal(braketilt.PhaseWindingDown))
		})

		It("clears hold-tilt", func() {
			engageHold(c, cfg)
			c.WindDown()
			Expect(c.HoldTiltActive()).To(BeFalse())
			Expect(c.HoldCounter()).To(Equal(0))
		})

		It("is left by the next Update", func() {
			c.WindDown()
			c.Update(brakingTick(), cfg)
			Expect(c.Phase()).To(Equal(braketilt.PhaseBrakeTilt))
		})
	})
})
