package integrators

import (
	"testing"

	"github.com/san-kum/odestep/internal/dynamo"
)

func benchStepper(b *testing.B, st dynamo.Stepper, err error) {
	if err != nil {
		b.Fatal(err)
	}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := st.Step(0.01, x); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExplicitEuler(b *testing.B) {
	st, err := NewExplicitEuler(harmonicOscillator{})
	benchStepper(b, st, err)
}

func BenchmarkImplicitEuler(b *testing.B) {
	st, err := NewImplicitEuler(harmonicOscillator{})
	benchStepper(b, st, err)
}

func BenchmarkCrankNicolson(b *testing.B) {
	st, err := NewCrankNicolson(harmonicOscillator{})
	benchStepper(b, st, err)
}

func BenchmarkRK4(b *testing.B) {
	st, err := NewRK4(harmonicOscillator{})
	benchStepper(b, st, err)
}
