package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// ConnectorKind tells whether a spring end is pinned or free.
type ConnectorKind int

const (
	AnchorEnd ConnectorKind = iota + 1
	MassEnd
)

func (k ConnectorKind) String() string {
	switch k {
	case AnchorEnd:
		return "anchor"
	case MassEnd:
		return "mass"
	default:
		return fmt.Sprintf("ConnectorKind(%d)", int(k))
	}
}

// Connector references an anchor or a mass by index.
type Connector struct {
	Kind  ConnectorKind
	Index int
}

type Anchor struct {
	Pos []float64
}

type PointMass struct {
	Mass float64
	Pos  []float64
	Vel  []float64
}

type Spring struct {
	Length    float64
	Stiffness float64
	Ends      [2]Connector
}

// SpringNetwork is a set of point masses joined to each other and to fixed
// anchors by linear springs, under uniform gravity. The first-order state
// stacks all positions then all velocities:
//
//	x = (p_0, ..., p_{n-1}, v_0, ..., v_{n-1}),  each block of width Dim
type SpringNetwork struct {
	Dim     int
	Anchors []Anchor
	Masses  []PointMass
	Springs []Spring
	Gravity []float64
}

func NewSpringNetwork(dim int) *SpringNetwork {
	return &SpringNetwork{
		Dim:     dim,
		Gravity: make([]float64, dim),
	}
}

// NewHangingChain builds a 2-D chain of n unit masses hanging sideways
// from an anchor at the origin, each link at rest length 1.
func NewHangingChain(n int, stiffness float64) *SpringNetwork {
	net := NewSpringNetwork(2)
	net.SetGravity([]float64{0, -9.81})
	prev := net.AddAnchor([]float64{0, 0})
	for i := 1; i <= n; i++ {
		c := net.AddMass(PointMass{Mass: 1, Pos: []float64{float64(i), 0}})
		net.AddSpring(Spring{Length: 1, Stiffness: stiffness, Ends: [2]Connector{prev, c}})
		prev = c
	}
	return net
}

func (s *SpringNetwork) SetGravity(g []float64) {
	s.Gravity = append(s.Gravity[:0], g...)
}

func (s *SpringNetwork) AddAnchor(pos []float64) Connector {
	s.Anchors = append(s.Anchors, Anchor{Pos: pos})
	return Connector{Kind: AnchorEnd, Index: len(s.Anchors) - 1}
}

func (s *SpringNetwork) AddMass(m PointMass) Connector {
	if m.Vel == nil {
		m.Vel = make([]float64, len(m.Pos))
	}
	s.Masses = append(s.Masses, m)
	return Connector{Kind: MassEnd, Index: len(s.Masses) - 1}
}

func (s *SpringNetwork) AddSpring(sp Spring) int {
	s.Springs = append(s.Springs, sp)
	return len(s.Springs) - 1
}

// Validate checks vector widths, connector references and masses.
func (s *SpringNetwork) Validate() error {
	if s.Dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d: %w", s.Dim, dynamo.ErrParameterBounds)
	}
	if len(s.Gravity) != s.Dim {
		return fmt.Errorf("gravity has %d components, want %d: %w", len(s.Gravity), s.Dim, dynamo.ErrDimensionMismatch)
	}
	for i, a := range s.Anchors {
		if len(a.Pos) != s.Dim {
			return fmt.Errorf("anchor %d: %w", i, dynamo.ErrDimensionMismatch)
		}
	}
	for i, m := range s.Masses {
		if len(m.Pos) != s.Dim || len(m.Vel) != s.Dim {
			return fmt.Errorf("mass %d: %w", i, dynamo.ErrDimensionMismatch)
		}
		if m.Mass <= 0 {
			return fmt.Errorf("mass %d: weight %g: %w", i, m.Mass, dynamo.ErrParameterBounds)
		}
	}
	for i, sp := range s.Springs {
		for _, c := range sp.Ends {
			var n int
			switch c.Kind {
			case AnchorEnd:
				n = len(s.Anchors)
			case MassEnd:
				n = len(s.Masses)
			default:
				return fmt.Errorf("spring %d: bad connector %v: %w", i, c.Kind, dynamo.ErrParameterBounds)
			}
			if c.Index < 0 || c.Index >= n {
				return fmt.Errorf("spring %d: %s %d out of range: %w", i, c.Kind, c.Index, dynamo.ErrParameterBounds)
			}
		}
	}
	return nil
}

func (s *SpringNetwork) DimX() int { return 2 * s.Dim * len(s.Masses) }
func (s *SpringNetwork) DimF() int { return s.DimX() }

func (s *SpringNetwork) posOffset(i int) int { return i * s.Dim }
func (s *SpringNetwork) velOffset(i int) int { return (len(s.Masses) + i) * s.Dim }

// InitialState packs the masses' positions and velocities.
func (s *SpringNetwork) InitialState() dynamo.State {
	x := make(dynamo.State, s.DimX())
	for i, m := range s.Masses {
		copy(x[s.posOffset(i):], m.Pos)
		copy(x[s.velOffset(i):], m.Vel)
	}
	return x
}

// Apply writes a state back into the masses.
func (s *SpringNetwork) Apply(x dynamo.State) {
	for i := range s.Masses {
		copy(s.Masses[i].Pos, x[s.posOffset(i):s.posOffset(i)+s.Dim])
		copy(s.Masses[i].Vel, x[s.velOffset(i):s.velOffset(i)+s.Dim])
	}
}

func (s *SpringNetwork) endPos(x dynamo.State, c Connector) []float64 {
	if c.Kind == AnchorEnd {
		return s.Anchors[c.Index].Pos
	}
	off := s.posOffset(c.Index)
	return x[off : off+s.Dim]
}

// geometry returns d = p2 - p1 and its length.
func (s *SpringNetwork) geometry(x dynamo.State, sp Spring, d []float64) float64 {
	p1, p2 := s.endPos(x, sp.Ends[0]), s.endPos(x, sp.Ends[1])
	var l2 float64
	for k := range d {
		d[k] = p2[k] - p1[k]
		l2 += d[k] * d[k]
	}
	return math.Sqrt(l2)
}

func (s *SpringNetwork) Evaluate(x, f dynamo.State) {
	n := len(s.Masses)
	copy(f[:n*s.Dim], x[n*s.Dim:])

	acc := f[n*s.Dim:]
	for i := range s.Masses {
		copy(acc[i*s.Dim:(i+1)*s.Dim], s.Gravity)
	}

	d := make([]float64, s.Dim)
	for _, sp := range s.Springs {
		l := s.geometry(x, sp, d)
		if l == 0 {
			continue
		}
		// force on the first end, pointing toward the second
		scale := sp.Stiffness * (l - sp.Length) / l
		for side, sign := range [2]float64{1, -1} {
			c := sp.Ends[side]
			if c.Kind != MassEnd {
				continue
			}
			inv := sign * scale / s.Masses[c.Index].Mass
			a := acc[c.Index*s.Dim : (c.Index+1)*s.Dim]
			for k := range a {
				a[k] += inv * d[k]
			}
		}
	}
}

// EvaluateDeriv fills the closed-form Jacobian. For a spring with
// direction u and length l, the force on its first end has derivative
// K = k (u u^T + (l-L)/l (I - u u^T)) with respect to the second end.
func (s *SpringNetwork) EvaluateDeriv(x dynamo.State, df *mat.Dense) {
	df.Zero()
	for i := range s.Masses {
		p, v := s.posOffset(i), s.velOffset(i)
		for k := 0; k < s.Dim; k++ {
			df.Set(p+k, v+k, 1)
		}
	}

	dim := s.Dim
	d := make([]float64, dim)
	stiff := mat.NewDense(dim, dim, nil)
	for _, sp := range s.Springs {
		l := s.geometry(x, sp, d)
		if l < 1e-12 {
			continue
		}
		ratio := (l - sp.Length) / l
		for r := 0; r < dim; r++ {
			for c := 0; c < dim; c++ {
				uu := d[r] * d[c] / (l * l)
				id := 0.0
				if r == c {
					id = 1
				}
				stiff.Set(r, c, sp.Stiffness*(uu+ratio*(id-uu)))
			}
		}

		for side := 0; side < 2; side++ {
			row := sp.Ends[side]
			if row.Kind != MassEnd {
				continue
			}
			w := 1 / s.Masses[row.Index].Mass
			r0 := s.velOffset(row.Index)
			// own position: -K/m, the other end: +K/m
			for _, col := range [2]Connector{row, sp.Ends[1-side]} {
				if col.Kind != MassEnd {
					continue
				}
				sgn := -w
				if col != row {
					sgn = w
				}
				c0 := s.posOffset(col.Index)
				for r := 0; r < dim; r++ {
					for c := 0; c < dim; c++ {
						df.Set(r0+r, c0+c, df.At(r0+r, c0+c)+sgn*stiff.At(r, c))
					}
				}
			}
		}
	}
}

// Energy sums kinetic, elastic and gravitational potential energy.
func (s *SpringNetwork) Energy(x dynamo.State) float64 {
	var e float64
	for i, m := range s.Masses {
		p, v := s.posOffset(i), s.velOffset(i)
		for k := 0; k < s.Dim; k++ {
			e += 0.5 * m.Mass * x[v+k] * x[v+k]
			e -= m.Mass * s.Gravity[k] * x[p+k]
		}
	}
	d := make([]float64, s.Dim)
	for _, sp := range s.Springs {
		stretch := s.geometry(x, sp, d) - sp.Length
		e += 0.5 * sp.Stiffness * stretch * stretch
	}
	return e
}

func (s *SpringNetwork) GetParams() map[string]float64 {
	params := map[string]float64{
		"gravity": 0,
	}
	if s.Dim > 0 && len(s.Gravity) == s.Dim {
		params["gravity"] = -s.Gravity[s.Dim-1]
	}
	if len(s.Springs) > 0 {
		params["stiffness"] = s.Springs[0].Stiffness
	}
	return params
}

// SetParam supports "gravity" (magnitude along the last axis, pointing
// down) and "stiffness" (applied to every spring).
func (s *SpringNetwork) SetParam(name string, value float64) error {
	switch name {
	case "gravity":
		if len(s.Gravity) != s.Dim || s.Dim == 0 {
			return fmt.Errorf("gravity: %w", dynamo.ErrDimensionMismatch)
		}
		s.Gravity[s.Dim-1] = -value
	case "stiffness":
		for i := range s.Springs {
			s.Springs[i].Stiffness = value
		}
	default:
		return unknownParam(name)
	}
	return nil
}
