package physics

import (
	"math"
	"testing"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/newton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func assertJacobian(t *testing.T, fn dynamo.Function, x dynamo.State, tol float64) {
	t.Helper()
	exact := mat.NewDense(fn.DimF(), fn.DimX(), nil)
	approx := mat.NewDense(fn.DimF(), fn.DimX(), nil)
	fn.EvaluateDeriv(x, exact)
	dynamo.CentralDifference(fn, x, 1e-6, approx)
	assert.Less(t, dynamo.MaxAbsDiff(exact, approx), tol, "jacobian at %v", x)
}

func TestJacobians(t *testing.T) {
	rc := NewRCCircuit()
	rc.R, rc.C, rc.Frequency = 1, 1, 1

	tests := []struct {
		name   string
		fn     dynamo.Function
		points []dynamo.State
	}{
		{"decay", &Decay{Rate: 0.7}, []dynamo.State{{1}, {-3}}},
		{"rc", rc, []dynamo.State{{0, 0}, {0.3, 0.1}, {-1, 0.77}}},
		{"mass_spring", NewMassSpring(2, 5), []dynamo.State{{1, 0}, {-0.2, 3}}},
		{"pendulum", &Pendulum{Mass: 1, Length: 2, Damping: 0.3, Gravity: 9.81}, []dynamo.State{{0.1, 0}, {math.Pi / 3, -1}, {3, 2}}},
		{"vanderpol", &VanDerPol{Mu: 3}, []dynamo.State{{2, 0}, {-0.5, 1.5}}},
		{"lorenz", NewLorenz(), []dynamo.State{{1, 1, 1}, {-8, 3, 27}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, x := range tt.points {
				assertJacobian(t, tt.fn, x, 1e-5)
			}
		})
	}
}

func TestRCJacobianClosedForm(t *testing.T) {
	rc := NewRCCircuit()
	rcc := rc.R * rc.C
	w := 2 * math.Pi * rc.Frequency
	tm := 0.0031

	df := mat.NewDense(2, 2, nil)
	rc.EvaluateDeriv(dynamo.State{0.5, tm}, df)

	assert.InDelta(t, -1/rcc, df.At(0, 0), 1e-9)
	assert.InDelta(t, -w*math.Sin(w*tm)/rcc, df.At(0, 1), 1e-6)
	assert.Equal(t, 0.0, df.At(1, 0))
	assert.Equal(t, 0.0, df.At(1, 1))
}

func TestRCCircuitImplicitEulerTrace(t *testing.T) {
	rc := NewRCCircuit()
	stepper, err := integrators.NewImplicitEuler(rc)
	require.NoError(t, err)

	const (
		tend  = 0.05
		steps = 50
	)
	tau := tend / steps
	a := tau / (rc.R * rc.C)

	y := dynamo.State{0, 0}
	uc := 0.0
	for i := 1; i <= steps; i++ {
		require.NoError(t, stepper.Step(tau, y), "step %d", i)
		tn := float64(i) * tau
		uc = (uc + a*math.Cos(100*math.Pi*tn)) / (1 + a)

		assert.InDelta(t, tn, y[1], 1e-12)
		assert.InDelta(t, uc, y[0], 1e-9, "step %d", i)
	}
}

func TestMassSpringExactAndEnergy(t *testing.T) {
	s := NewMassSpring(1, 4)
	y0 := dynamo.State{1, 0}

	y := s.Exact(math.Pi, y0)
	assert.InDelta(t, 1.0, y[0], 1e-12)
	assert.InDelta(t, 0.0, y[1], 1e-12)

	e0 := s.Energy(y0)
	assert.InDelta(t, 2.0, e0, 1e-12)
	assert.InDelta(t, e0, s.Energy(s.Exact(0.37, y0)), 1e-12)
}

func TestPendulumEnergy(t *testing.T) {
	p := NewPendulum()
	assert.Equal(t, 0.0, p.Energy(dynamo.State{0, 0}))
	assert.InDelta(t, 2*p.Gravity, p.Energy(dynamo.State{math.Pi, 0}), 1e-12)

	stepper, err := integrators.NewCrankNicolson(p)
	require.NoError(t, err)
	y := dynamo.State{1, 0}
	e0 := p.Energy(y)
	for i := 0; i < 1000; i++ {
		require.NoError(t, stepper.Step(0.01, y))
	}
	assert.InDelta(t, e0, p.Energy(y), 1e-2)
}

func newTriangle() *SpringNetwork {
	net := NewSpringNetwork(2)
	net.SetGravity([]float64{0, -9.81})
	a := net.AddAnchor([]float64{0, 0})
	b := net.AddAnchor([]float64{2, 0})
	m1 := net.AddMass(PointMass{Mass: 1, Pos: []float64{0.8, -1.1}})
	m2 := net.AddMass(PointMass{Mass: 2, Pos: []float64{1.5, -0.9}, Vel: []float64{0.2, 0.1}})
	net.AddSpring(Spring{Length: 1, Stiffness: 20, Ends: [2]Connector{a, m1}})
	net.AddSpring(Spring{Length: 0.8, Stiffness: 35, Ends: [2]Connector{m1, m2}})
	net.AddSpring(Spring{Length: 1.2, Stiffness: 15, Ends: [2]Connector{m2, b}})
	return net
}

func TestSpringNetworkLayout(t *testing.T) {
	net := newTriangle()
	require.NoError(t, net.Validate())
	assert.Equal(t, 8, net.DimX())

	x := net.InitialState()
	assert.Equal(t, dynamo.State{0.8, -1.1, 1.5, -0.9, 0, 0, 0.2, 0.1}, x)

	f := make(dynamo.State, 8)
	net.Evaluate(x, f)
	assert.Equal(t, x[4:], f[:4])
}

func TestSpringNetworkJacobian(t *testing.T) {
	net := newTriangle()
	x := net.InitialState()
	assertJacobian(t, net, x, 1e-4)

	x[0], x[1] = 0.3, 0.6
	assertJacobian(t, net, x, 1e-4)

	chain := NewHangingChain(3, 50)
	y := chain.InitialState()
	y[3] = -0.4
	assertJacobian(t, chain, y, 1e-4)
}

func TestSpringNetworkEquilibrium(t *testing.T) {
	net := NewSpringNetwork(1)
	net.SetGravity([]float64{-10})
	top := net.AddAnchor([]float64{0})
	m := net.AddMass(PointMass{Mass: 2, Pos: []float64{-1.5}})
	net.AddSpring(Spring{Length: 1, Stiffness: 40, Ends: [2]Connector{top, m}})

	// stretch 0.5 * k = m g
	f := make(dynamo.State, 2)
	net.Evaluate(net.InitialState(), f)
	assert.InDelta(t, 0.0, f[1], 1e-12)
}

func TestSpringNetworkEnergyConservedByCrankNicolson(t *testing.T) {
	net := newTriangle()
	stepper, err := integrators.NewCrankNicolson(net)
	require.NoError(t, err)

	x := net.InitialState()
	e0 := net.Energy(x)
	for i := 0; i < 500; i++ {
		require.NoError(t, stepper.Step(0.002, x))
	}
	assert.InDelta(t, e0, net.Energy(x), 1e-2*math.Abs(e0)+1e-3)

	net.Apply(x)
	assert.Equal(t, []float64(x[0:2]), net.Masses[0].Pos)
	assert.Equal(t, []float64(x[6:8]), net.Masses[1].Vel)
}

func TestSpringNetworkValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SpringNetwork)
		want   error
	}{
		{"bad gravity", func(n *SpringNetwork) { n.Gravity = []float64{1} }, dynamo.ErrDimensionMismatch},
		{"bad anchor", func(n *SpringNetwork) { n.Anchors[0].Pos = []float64{0, 0, 0} }, dynamo.ErrDimensionMismatch},
		{"zero mass", func(n *SpringNetwork) { n.Masses[1].Mass = 0 }, dynamo.ErrParameterBounds},
		{"dangling", func(n *SpringNetwork) { n.Springs[0].Ends[1].Index = 7 }, dynamo.ErrParameterBounds},
		{"no kind", func(n *SpringNetwork) { n.Springs[2].Ends[0] = Connector{} }, dynamo.ErrParameterBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := newTriangle()
			tt.mutate(net)
			assert.ErrorIs(t, net.Validate(), tt.want)
		})
	}
}

func TestVanDerPolLorenzJacobianEntries(t *testing.T) {
	df := mat.NewDense(2, 2, nil)
	(&VanDerPol{Mu: 2}).EvaluateDeriv(dynamo.State{3, 0.5}, df)
	// d/dx [mu (1 - x^2) y - x] = -2 mu x y - 1, d/dy = mu (1 - x^2)
	assert.Equal(t, []float64{0, 1, -2*2*3*0.5 - 1, 2 * (1 - 9)}, df.RawMatrix().Data)

	dl := mat.NewDense(3, 3, nil)
	l := NewLorenz()
	l.EvaluateDeriv(dynamo.State{1, 2, 3}, dl)
	want := []float64{
		-l.Sigma, l.Sigma, 0,
		l.Rho - 3, -1, -1,
		2, 1, -l.Beta,
	}
	for i, w := range want {
		assert.InDelta(t, w, dl.RawMatrix().Data[i], 1e-15, "entry %d", i)
	}
}

func TestVanDerPolStiff(t *testing.T) {
	const (
		tau   = 0.01
		steps = 50
	)
	vdp := &VanDerPol{Mu: 1000}

	explicit, err := integrators.NewExplicitEuler(vdp)
	require.NoError(t, err)
	x := dynamo.State{2, 0}
	blewUp := false
	for range steps {
		if err := explicit.Step(tau, x); err != nil {
			assert.ErrorIs(t, err, dynamo.ErrInvalidState)
			blewUp = true
			break
		}
	}
	assert.True(t, blewUp || x.MaxAbs() > 1e6, "explicit euler should blow up, got %v", x)

	implicit, err := integrators.NewImplicitEuler(vdp, newton.WithMaxIterations(50))
	require.NoError(t, err)
	x = dynamo.State{2, 0}
	for i := range steps {
		require.NoError(t, implicit.Step(tau, x), "step %d", i+1)
	}
	assert.True(t, x.IsValid())
	assert.Less(t, math.Abs(x[0]), 2.01)
	assert.Greater(t, x[0], 1.9)
}

func TestParams(t *testing.T) {
	models := []dynamo.Configurable{
		NewDecay(), NewRCCircuit(), NewMassSpring(1, 1), NewPendulum(), NewHangingChain(2, 10),
		NewVanDerPol(), NewLorenz(),
	}
	for _, m := range models {
		for name, v := range m.GetParams() {
			assert.NoError(t, m.SetParam(name, v), name)
			assert.Equal(t, v, m.GetParams()[name], name)
		}
		assert.ErrorIs(t, m.SetParam("nope", 1), dynamo.ErrParameterBounds)
	}

	rc := NewRCCircuit()
	assert.ErrorIs(t, rc.SetParam("r", -1), dynamo.ErrParameterBounds)
	assert.Equal(t, 100.0, rc.R)

	assert.ErrorIs(t, NewVanDerPol().SetParam("mu", -1), dynamo.ErrParameterBounds)

	chain := NewHangingChain(2, 10)
	require.NoError(t, chain.SetParam("stiffness", 99))
	for _, sp := range chain.Springs {
		assert.Equal(t, 99.0, sp.Stiffness)
	}
	require.NoError(t, chain.SetParam("gravity", 1.62))
	assert.Equal(t, -1.62, chain.Gravity[1])
}
