package tui

import (
	"errors"
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/integrators"
	"github.com/san-kum/odestep/internal/physics"
)

type failAfter struct {
	inner dynamo.Stepper
	ok    int
}

func (f *failAfter) Step(tau float64, y dynamo.State) error {
	if f.ok == 0 {
		return dynamo.ErrNotConverged
	}
	f.ok--
	return f.inner.Step(tau, y)
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func ticks(n int) []tea.Msg {
	out := make([]tea.Msg, n)
	for i := range out {
		out[i] = TickMsg{}
	}
	return out
}

func decayModel(t *testing.T, limit int) Model {
	t.Helper()
	rhs := physics.NewDecay()
	st, err := integrators.NewExplicitEuler(rhs)
	require.NoError(t, err)
	return NewModel(rhs, st, dynamo.State{1}, Options{Name: "decay", Stepper: "explicit_euler", Tau: 0.1, Limit: limit})
}

func TestCanvasDots(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)
	assert.Equal(t, string([]rune{0x2801, 0x2880})+"\n", c.String())

	c.Clear()
	assert.Equal(t, string([]rune{brailleBlank, brailleBlank})+"\n", c.String())
}

func TestCanvasWindow(t *testing.T) {
	c := NewCanvas(10, 5)
	c.SetWindow(-1, 1, -1, 1)

	x, y := c.Dot(0, 0)
	assert.InDelta(t, 10, x, 1)
	assert.InDelta(t, 10, y, 1)

	_, top := c.Dot(0, 1)
	_, bottom := c.Dot(0, -1)
	assert.Less(t, top, bottom, "y grows upward")

	c.Line(-1, 0, 1, 0)
	assert.NotEqual(t, strings.Repeat(string(rune(brailleBlank)), 10), strings.Split(c.String(), "\n")[2])
}

func TestLiveAdvancesUntilLimit(t *testing.T) {
	m := decayModel(t, 5)
	require.True(t, m.Running())

	m = send(m, ticks(8)...)
	assert.Equal(t, 5, m.Steps())
	assert.False(t, m.Running())
	assert.InDelta(t, 0.5, m.Time(), 1e-15)
	assert.InDelta(t, math.Pow(0.9, 5), m.State()[0], 1e-15)
	assert.Contains(t, m.View(), "FINISHED")

	// Finished sessions ignore pause toggles.
	m = send(m, key(" "))
	assert.False(t, m.Running())
}

func TestLivePauseAndSpeed(t *testing.T) {
	m := decayModel(t, 0)
	m = send(m, key(" "))
	assert.False(t, m.Running())
	m = send(m, ticks(3)...)
	assert.Equal(t, 0, m.Steps())
	assert.Contains(t, m.View(), "PAUSED")

	m = send(m, key(" "), key("+"), TickMsg{})
	assert.Equal(t, 2, m.Steps())
	m = send(m, key("-"), key("-"), TickMsg{})
	assert.Equal(t, 3, m.Steps())
}

func TestLiveStopsOnFailure(t *testing.T) {
	rhs := physics.NewDecay()
	inner, err := integrators.NewExplicitEuler(rhs)
	require.NoError(t, err)
	m := NewModel(rhs, &failAfter{inner: inner, ok: 2}, dynamo.State{1}, Options{Name: "decay", Tau: 0.1})

	m = send(m, ticks(5)...)
	assert.False(t, m.Running())
	assert.Equal(t, 2, m.Steps())

	var se *dynamo.SimulationError
	require.True(t, errors.As(m.Err(), &se))
	assert.Equal(t, 3, se.Step)
	assert.ErrorIs(t, m.Err(), dynamo.ErrNotConverged)
	assert.InDelta(t, 0.81, se.State[0], 1e-15)
	assert.InDelta(t, 0.81, m.State()[0], 1e-15)
	assert.Contains(t, m.View(), "FAILED")

	m = send(m, key(" "))
	assert.False(t, m.Running(), "failed session stays paused")
}

func TestLiveTuneAndReset(t *testing.T) {
	rhs := physics.NewMassSpring(1, 1)
	st, err := integrators.NewCrankNicolson(rhs)
	require.NoError(t, err)
	m := NewModel(rhs, st, dynamo.State{1, 0}, Options{Name: "mass_spring", Tau: 0.01})

	// Keys sort as mass, stiffness.
	m = send(m, key("up"))
	assert.InDelta(t, 1.05, rhs.Mass, 1e-15)
	m = send(m, key("tab"), key("j"))
	assert.InDelta(t, 0.95, rhs.Stiffness, 1e-15)

	m = send(m, ticks(10)...)
	require.Equal(t, 10, m.Steps())

	m = send(m, key("r"))
	assert.Equal(t, 0, m.Steps())
	assert.Equal(t, dynamo.State{1, 0}, m.State())
	assert.Equal(t, 1.0, rhs.Mass)
	assert.Equal(t, 1.0, rhs.Stiffness)
	assert.True(t, m.Running())
}

func TestLiveQuit(t *testing.T) {
	m := decayModel(t, 0)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestLiveViews(t *testing.T) {
	chain := physics.NewHangingChain(3, 50)
	tests := []struct {
		name string
		rhs  dynamo.Function
		x0   dynamo.State
	}{
		{"pendulum", physics.NewPendulum(), dynamo.State{math.Pi / 4, 0}},
		{"mass_spring", physics.NewMassSpring(1, 1), dynamo.State{1, 0}},
		{"spring_network", chain, chain.InitialState()},
		{"rc_circuit", physics.NewRCCircuit(), dynamo.State{0, 0}},
		{"decay", physics.NewDecay(), dynamo.State{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := integrators.NewImplicitEuler(tt.rhs)
			require.NoError(t, err)
			m := NewModel(tt.rhs, st, tt.x0, Options{Name: tt.name, Tau: 1e-4})
			m = send(m, ticks(20)...)
			require.NoError(t, m.Err())

			view := m.View()
			assert.Contains(t, view, strings.ToUpper(tt.name))
			assert.Contains(t, view, "RUNNING")
			assert.Contains(t, view, "x[0]")
		})
	}
}

func TestCompareTable(t *testing.T) {
	rows := []CompareRow{
		{Name: "rk4", StepsTaken: 100, Final: dynamo.State{1, 2, 3, 4, 5}, EnergyDrift: 1e-9},
		{Name: "implicit_euler", StepsTaken: 7, Final: dynamo.State{0.5}, Newton: 14, Err: dynamo.ErrNotConverged},
	}
	out := CompareTable(rows, true)
	for _, want := range []string{"stepper", "energy drift", "rk4", "implicit_euler", "...", "did not converge", "1.000e-09"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, CompareTable(rows[:1], false), "energy drift")
}
