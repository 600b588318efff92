package integrators

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/newton"
)

type factory func(dynamo.Function) (dynamo.Stepper, error)

var (
	explicitFactory = func(rhs dynamo.Function) (dynamo.Stepper, error) { return NewExplicitEuler(rhs) }
	implicitFactory = func(rhs dynamo.Function) (dynamo.Stepper, error) { return NewImplicitEuler(rhs) }
	crankFactory    = func(rhs dynamo.Function) (dynamo.Stepper, error) { return NewCrankNicolson(rhs) }
	improvedFactory = func(rhs dynamo.Function) (dynamo.Stepper, error) { return NewImprovedEuler(rhs) }
	rk4Factory      = func(rhs dynamo.Function) (dynamo.Stepper, error) { return NewRK4(rhs) }
)

func integrate(newStepper factory, rhs dynamo.Function, y0 dynamo.State, tEnd float64, steps int) dynamo.State {
	st, err := newStepper(rhs)
	Expect(err).NotTo(HaveOccurred())
	y := y0.Clone()
	tau := tEnd / float64(steps)
	for i := 0; i < steps; i++ {
		Expect(st.Step(tau, y)).To(Succeed())
	}
	return y
}

func decayError(newStepper factory, steps int) float64 {
	y := integrate(newStepper, decay{}, dynamo.State{1}, 1, steps)
	return math.Abs(y[0] - math.Exp(-1))
}

var _ = Describe("Steppers", func() {
	DescribeTable("convergence order on y' = -y",
		func(newStepper factory, order float64) {
			coarse := decayError(newStepper, 40)
			fine := decayError(newStepper, 80)
			Expect(math.Log2(coarse / fine)).To(BeNumerically("~", order, 0.15))
		},
		Entry("explicit euler is first order", explicitFactory, 1.0),
		Entry("implicit euler is first order", implicitFactory, 1.0),
		Entry("crank-nicolson is second order", crankFactory, 2.0),
		Entry("improved euler is second order", improvedFactory, 2.0),
		Entry("rk4 is fourth order", rk4Factory, 4.0),
	)

	Describe("energy behaviour on the harmonic oscillator", func() {
		const steps = 200
		tau := 2 * math.Pi / steps
		osc := harmonicOscillator{}

		energies := func(newStepper factory) []float64 {
			st, err := newStepper(osc)
			Expect(err).NotTo(HaveOccurred())
			y := dynamo.State{1, 0}
			out := []float64{osc.Energy(y)}
			for i := 0; i < steps; i++ {
				Expect(st.Step(tau, y)).To(Succeed())
				out = append(out, osc.Energy(y))
			}
			return out
		}

		It("grows strictly under explicit euler", func() {
			e := energies(explicitFactory)
			for i := 1; i < len(e); i++ {
				Expect(e[i]).To(BeNumerically(">", e[i-1]))
			}
		})

		It("decays strictly under implicit euler", func() {
			e := energies(implicitFactory)
			for i := 1; i < len(e); i++ {
				Expect(e[i]).To(BeNumerically("<", e[i-1]))
			}
		})

		It("is preserved by crank-nicolson over one period", func() {
			e := energies(crankFactory)
			for _, ei := range e {
				Expect(ei).To(BeNumerically("~", 0.5, 1e-10))
			}
			y := integrate(crankFactory, osc, dynamo.State{1, 0}, 2*math.Pi, 1000)
			Expect(y[0]).To(BeNumerically("~", 1, 1e-4))
			Expect(y[1]).To(BeNumerically("~", 0, 1e-4))
		})
	})

	DescribeTable("tau = 0 leaves the state unchanged",
		func(newStepper factory) {
			st, err := newStepper(harmonicOscillator{})
			Expect(err).NotTo(HaveOccurred())
			y := dynamo.State{0.3, -1.7}
			Expect(st.Step(0, y)).To(Succeed())
			Expect(y).To(Equal(dynamo.State{0.3, -1.7}))
		},
		Entry("explicit euler", explicitFactory),
		Entry("implicit euler", implicitFactory),
		Entry("crank-nicolson", crankFactory),
	)

	DescribeTable("large states converge",
		func(newStepper factory, want float64) {
			st, err := newStepper(decay{})
			Expect(err).NotTo(HaveOccurred())
			y := dynamo.State{1e8}
			Expect(st.Step(0.013, y)).To(Succeed())
			Expect(y[0]).To(BeNumerically("~", want, 1e-4))
		},
		Entry("implicit euler", implicitFactory, 1e8/1.013),
		Entry("crank-nicolson", crankFactory, 1e8*(1-0.0065)/(1+0.0065)),
	)

	It("needs no newton iteration for tau = 0", func() {
		st, err := NewCrankNicolson(harmonicOscillator{})
		Expect(err).NotTo(HaveOccurred())
		Expect(st.Step(0, dynamo.State{1, 2})).To(Succeed())
		Expect(st.LastStats().Iterations).To(Equal(0))
	})

	DescribeTable("steps are deterministic",
		func(newStepper factory) {
			st, err := newStepper(harmonicOscillator{})
			Expect(err).NotTo(HaveOccurred())
			a := dynamo.State{0.8, 0.1}
			b := a.Clone()
			Expect(st.Step(0.05, a)).To(Succeed())
			Expect(st.Step(0.05, b)).To(Succeed())
			Expect(math.Float64bits(a[0])).To(Equal(math.Float64bits(b[0])))
			Expect(math.Float64bits(a[1])).To(Equal(math.Float64bits(b[1])))
		},
		Entry("explicit euler", explicitFactory),
		Entry("implicit euler", implicitFactory),
		Entry("crank-nicolson", crankFactory),
	)

	Describe("failures", func() {
		DescribeTable("non-square right-hand sides are rejected at construction",
			func(newStepper factory) {
				_, err := newStepper(lopsided{})
				Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			},
			Entry("explicit euler", explicitFactory),
			Entry("implicit euler", implicitFactory),
			Entry("crank-nicolson", crankFactory),
			Entry("improved euler", improvedFactory),
			Entry("rk4", rk4Factory),
		)

		DescribeTable("invalid tau is rejected",
			func(tau float64) {
				st, err := NewImplicitEuler(decay{})
				Expect(err).NotTo(HaveOccurred())
				y := dynamo.State{1}
				Expect(st.Step(tau, y)).To(MatchError(dynamo.ErrInvalidStep))
				Expect(y[0]).To(Equal(1.0))
			},
			Entry("negative", -0.1),
			Entry("NaN", math.NaN()),
			Entry("+Inf", math.Inf(1)),
		)

		DescribeTable("an overflowing update is rejected and the state kept",
			func(newStepper factory) {
				st, err := newStepper(growth{})
				Expect(err).NotTo(HaveOccurred())
				y := dynamo.State{1e308}
				Expect(st.Step(10, y)).To(MatchError(dynamo.ErrInvalidState))
				Expect(y[0]).To(Equal(1e308))
			},
			Entry("explicit euler", explicitFactory),
			Entry("improved euler", improvedFactory),
			Entry("rk4", rk4Factory),
		)

		It("rejects a state of the wrong length", func() {
			st, err := NewExplicitEuler(decay{})
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Step(0.1, dynamo.State{1, 2})).To(MatchError(dynamo.ErrDimensionMismatch))
		})

		It("reports newton non-convergence and keeps the state", func() {
			st, err := NewImplicitEuler(riccati{})
			Expect(err).NotTo(HaveOccurred())
			y := dynamo.State{1}
			err = st.Step(1, y)
			Expect(err).To(MatchError(dynamo.ErrNotConverged))
			Expect(y[0]).To(Equal(1.0))
			Expect(st.LastStats().Iterations).To(Equal(newton.DefaultMaxIterations))
		})

		It("honours the configured iteration bound", func() {
			st, err := NewCrankNicolson(riccati{}, newton.WithMaxIterations(3))
			Expect(err).NotTo(HaveOccurred())
			y := dynamo.State{2}
			Expect(st.Step(1, y)).To(MatchError(dynamo.ErrNotConverged))
			Expect(st.LastStats().Iterations).To(Equal(3))
			Expect(y[0]).To(Equal(2.0))
		})

		It("reports a singular jacobian and keeps the state", func() {
			st, err := NewImplicitEuler(growth{})
			Expect(err).NotTo(HaveOccurred())
			y := dynamo.State{1}
			Expect(st.Step(1, y)).To(MatchError(dynamo.ErrSingularJacobian))
			Expect(y[0]).To(Equal(1.0))
		})

		It("recovers on the next call after a failed step", func() {
			st, err := NewImplicitEuler(riccati{})
			Expect(err).NotTo(HaveOccurred())
			y := dynamo.State{1}
			Expect(st.Step(1, y)).NotTo(Succeed())
			Expect(st.Step(0.1, y)).To(Succeed())
			// y1 solves y1 - 1 - 0.1 y1^2 = 0 on the branch near 1.
			Expect(y[0]).To(BeNumerically("~", (1-math.Sqrt(0.6))/0.2, 1e-10))
		})
	})
})
