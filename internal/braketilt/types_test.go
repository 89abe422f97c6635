package braketilt_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/braketilt/internal/braketilt"
)

var _ = Describe("Tick", func() {
	It("accepts a zero dt", func() {
		Expect(braketilt.Tick{}.Validate()).To(Succeed())
	})

	It("rejects negative dt", func() {
		err := braketilt.Tick{Dt: -0.01}.Validate()
		Expect(errors.Is(err, braketilt.ErrNegativeDt)).To(BeTrue())
	})

	It("names the non-finite field", func() {
		in := braketilt.Tick{IMU: braketilt.IMU{Pitch: math.NaN()}}
		err := in.Validate()
		Expect(errors.Is(err, braketilt.ErrNonFinite)).To(BeTrue())

		var ie *braketilt.InputError
		Expect(errors.As(err, &ie)).To(BeTrue())
		Expect(ie.Field).To(Equal("pitch"))
	})
})

var _ = Describe("MotorFromErpm", func() {
	DescribeTable("derives speed and direction",
		func(erpm, abs float64, sign int) {
			m := braketilt.MotorFromErpm(erpm, true)
			Expect(m.AbsErpm).To(Equal(abs))
			Expect(m.ErpmSign).To(Equal(sign))
			Expect(m.Braking).To(BeTrue())
		},
		Entry("forward", 1200.0, 1200.0, 1),
		Entry("reverse", -800.0, 800.0, -1),
		Entry("stopped", 0.0, 0.0, 0),
	)
})

var _ = Describe("Phase", func() {
	It("has readable names", func() {
		Expect(braketilt.PhaseIdle.String()).To(Equal("idle"))
		Expect(braketilt.PhaseHoldTilt.String()).To(Equal("hold-tilt"))
		Expect(braketilt.Phase(42).String()).To(Equal("unknown"))
	})

	It("parses its own names", func() {
		for _, p := range []braketilt.Phase{braketilt.PhaseIdle, braketilt.PhaseBrakeTilt, braketilt.PhaseHoldTilt, braketilt.PhaseWindingDown} {
			got, err := braketilt.ParsePhase(p.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(p))
		}
		_, err := braketilt.ParsePhase("sideways")
		Expect(err).To(HaveOccurred())
	})
})
