package tui

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/physics"
)

const (
	canvasCols      = 60
	canvasRows      = 20
	historyCapacity = 600
	trailCapacity   = 400
	defaultFrame    = time.Second / 30
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(48)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	runningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88")).Bold(true)
	pausedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00")).Bold(true)
	failedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Options configures a live session.
type Options struct {
	Name    string
	Stepper string
	Tau     float64
	// Limit stops the session after this many steps; 0 runs until quit.
	Limit        int
	StepsPerTick int
	Frame        time.Duration
}

type point struct{ x, y float64 }

// Model is a bubbletea model that advances a stepper on every tick and
// draws the state on a braille canvas.
type Model struct {
	opts    Options
	rhs     dynamo.Function
	stepper dynamo.Stepper

	x0, state dynamo.State
	t         float64
	step      int
	running   bool
	err       error
	note      string

	canvas *Canvas
	trail  []point
	energy []float64
	e0     float64

	params        map[string]float64
	initialParams map[string]float64
	paramKeys     []string
	selected      int
}

// NewModel starts a running session from x0. The stepper must have been
// built for rhs.
func NewModel(rhs dynamo.Function, stepper dynamo.Stepper, x0 dynamo.State, opts Options) Model {
	if opts.StepsPerTick < 1 {
		opts.StepsPerTick = 1
	}
	if opts.Frame <= 0 {
		opts.Frame = defaultFrame
	}
	params := map[string]float64{}
	initial := map[string]float64{}
	if c, ok := rhs.(dynamo.Configurable); ok {
		for k, v := range c.GetParams() {
			params[k] = v
			initial[k] = v
		}
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	m := Model{
		opts:          opts,
		rhs:           rhs,
		stepper:       stepper,
		x0:            x0.Clone(),
		state:         x0.Clone(),
		running:       true,
		canvas:        NewCanvas(canvasCols, canvasRows),
		trail:         make([]point, 0, trailCapacity),
		energy:        make([]float64, 0, historyCapacity),
		params:        params,
		initialParams: initial,
		paramKeys:     keys,
	}
	m.record()
	return m
}

func (m Model) Init() tea.Cmd { return m.tick() }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil && !m.finished() {
				m.running = !m.running
			}
		case "r":
			m.reset()
		case "tab":
			m.cycleParam()
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		case "+", "=":
			m.opts.StepsPerTick *= 2
		case "-", "_":
			m.opts.StepsPerTick = max(1, m.opts.StepsPerTick/2)
		}
	case TickMsg:
		if m.running {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) finished() bool {
	return m.opts.Limit > 0 && m.step >= m.opts.Limit
}

// advance performs up to StepsPerTick steps. A failed step pauses the
// session and keeps the last accepted state on screen.
func (m *Model) advance() {
	for range m.opts.StepsPerTick {
		if m.finished() {
			m.running = false
			return
		}
		if err := m.stepper.Step(m.opts.Tau, m.state); err != nil {
			m.err = &dynamo.SimulationError{
				Step:    m.step + 1,
				Time:    float64(m.step+1) * m.opts.Tau,
				State:   m.state.Clone(),
				Wrapped: err,
			}
			m.running = false
			return
		}
		m.step++
		m.t = float64(m.step) * m.opts.Tau
		m.record()
	}
}

func (m *Model) record() {
	if h, ok := m.rhs.(dynamo.Hamiltonian); ok {
		e := h.Energy(m.state)
		if len(m.energy) == 0 && m.step == 0 {
			m.e0 = e
		}
		m.energy = append(m.energy, e)
		if len(m.energy) > historyCapacity {
			m.energy = m.energy[1:]
		}
	}
	m.trail = append(m.trail, m.trailPoint())
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

func (m *Model) trailPoint() point {
	switch sys := m.rhs.(type) {
	case *physics.Pendulum:
		return point{sys.Length * math.Sin(m.state[0]), -sys.Length * math.Cos(m.state[0])}
	case *physics.SpringNetwork:
		if len(sys.Masses) == 0 {
			return point{}
		}
		last := (len(sys.Masses) - 1) * sys.Dim
		if sys.Dim == 1 {
			return point{m.state[last], 0}
		}
		return point{m.state[last], m.state[last+1]}
	}
	if len(m.state) >= 2 {
		if _, ok := m.rhs.(*physics.RCCircuit); !ok {
			return point{m.state[0], m.state[1]}
		}
	}
	return point{m.t, m.state[0]}
}

func (m *Model) cycleParam() {
	if len(m.paramKeys) == 0 {
		return
	}
	m.selected = (m.selected + 1) % len(m.paramKeys)
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	c, ok := m.rhs.(dynamo.Configurable)
	if !ok {
		return
	}
	key := m.paramKeys[m.selected]
	next := m.params[key] * factor
	if err := c.SetParam(key, next); err != nil {
		m.note = err.Error()
		return
	}
	m.params[key] = next
	m.note = ""
}

// reset restores parameters and the initial state.
func (m *Model) reset() {
	if c, ok := m.rhs.(dynamo.Configurable); ok {
		for k, v := range m.initialParams {
			if err := c.SetParam(k, v); err == nil {
				m.params[k] = v
			}
		}
	}
	copy(m.state, m.x0)
	m.t, m.step = 0, 0
	m.err, m.note = nil, ""
	m.running = true
	m.trail = m.trail[:0]
	m.energy = m.energy[:0]
	m.record()
}

// State returns a copy of the displayed state.
func (m Model) State() dynamo.State { return m.state.Clone() }

func (m Model) Time() float64 { return m.t }

func (m Model) Steps() int { return m.step }

func (m Model) Running() bool { return m.running }

func (m Model) Err() error { return m.err }

func (m Model) status() string {
	switch {
	case m.err != nil:
		return failedStyle.Render("FAILED")
	case m.finished():
		return pausedStyle.Render("FINISHED")
	case m.running:
		return runningStyle.Render("RUNNING")
	default:
		return pausedStyle.Render("PAUSED")
	}
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	title := strings.ToUpper(m.opts.Name)
	if m.opts.Stepper != "" {
		title += " / " + m.opts.Stepper
	}
	s.WriteString(headerStyle.Render(title) + "\n")
	s.WriteString(m.status() + "\n\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}
	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.4g", m.t))
	row("Step", fmt.Sprintf("%d", m.step))
	row("Tau", fmt.Sprintf("%g", m.opts.Tau))
	row("Speed", fmt.Sprintf("%d/tick", m.opts.StepsPerTick))
	if n := len(m.energy); n > 0 {
		e := m.energy[n-1]
		row("Energy", fmt.Sprintf("%.6g", e))
		if m.e0 != 0 {
			row("Drift", fmt.Sprintf("%.3e", math.Abs(e-m.e0)/math.Abs(m.e0)))
		}
	}
	for i, v := range m.state {
		if i == 6 {
			row("", fmt.Sprintf("... %d more", len(m.state)-i))
			break
		}
		row(fmt.Sprintf("x[%d]", i), fmt.Sprintf("% .6f", v))
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-10s %s %.4g", k, bar(m.params[k], m.initialParams[k]), m.params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	if m.err != nil {
		var se *dynamo.SimulationError
		msg := m.err.Error()
		if errors.As(m.err, &se) {
			msg = fmt.Sprintf("step %d failed: %v", se.Step, se.Wrapped)
		}
		s.WriteString("\n" + failedStyle.Render(msg) + "\n")
	}
	if m.note != "" {
		s.WriteString("\n" + pausedStyle.Render(m.note) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause R:Reset Q:Quit\nTab:Param Up/Down:Tune +/-:Speed"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}

func bar(val, initial float64) string {
	const width = 10
	ratio := 0.5
	if initial != 0 {
		ratio = val / (2 * initial)
	}
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(ratio * width)
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

func (m Model) draw() {
	m.canvas.Clear()
	switch sys := m.rhs.(type) {
	case *physics.Pendulum:
		m.drawPendulum(sys)
	case *physics.MassSpring:
		m.drawMassSpring()
	case *physics.SpringNetwork:
		m.drawNetwork(sys)
	default:
		m.drawTrail()
	}
}

func (m Model) drawPendulum(p *physics.Pendulum) {
	l := p.Length * 1.2
	m.canvas.SetWindow(-l, l, -l, l)
	for _, pt := range m.trail {
		m.canvas.Point(pt.x, pt.y)
	}
	bob := m.trail[len(m.trail)-1]
	m.canvas.Line(0, 0, bob.x, bob.y)
	m.canvas.Blob(0, 0, 0)
	m.canvas.Blob(bob.x, bob.y, 1)
}

func (m Model) drawMassSpring() {
	amp := math.Max(1, m.x0.MaxAbs()) * 1.5
	wall := -2 * amp
	m.canvas.SetWindow(wall-0.2*amp, amp*1.5, -amp, amp)
	m.canvas.Line(wall, -0.5*amp, wall, 0.5*amp)
	m.canvas.Coil(wall, 0, m.state[0], 0, 8, 0.15*amp)
	m.canvas.Blob(m.state[0], 0, 3)
}

func (m Model) drawNetwork(n *physics.SpringNetwork) {
	pos := func(c physics.Connector) point {
		var p []float64
		if c.Kind == physics.AnchorEnd {
			p = n.Anchors[c.Index].Pos
		} else {
			off := c.Index * n.Dim
			p = m.state[off : off+n.Dim]
		}
		if n.Dim == 1 {
			return point{p[0], 0}
		}
		return point{p[0], p[1]}
	}
	var pts []point
	for i := range n.Anchors {
		pts = append(pts, pos(physics.Connector{Kind: physics.AnchorEnd, Index: i}))
	}
	for i := range n.Masses {
		pts = append(pts, pos(physics.Connector{Kind: physics.MassEnd, Index: i}))
	}
	m.fitWindow(append(pts, m.trail...))
	for _, pt := range m.trail {
		m.canvas.Point(pt.x, pt.y)
	}
	for _, sp := range n.Springs {
		a, b := pos(sp.Ends[0]), pos(sp.Ends[1])
		m.canvas.Line(a.x, a.y, b.x, b.y)
	}
	for i := range n.Anchors {
		p := pos(physics.Connector{Kind: physics.AnchorEnd, Index: i})
		m.canvas.Blob(p.x, p.y, 0)
	}
	for i := range n.Masses {
		p := pos(physics.Connector{Kind: physics.MassEnd, Index: i})
		m.canvas.Blob(p.x, p.y, 1)
	}
}

// drawTrail plots the recorded trail on axes fitted to it.
func (m Model) drawTrail() {
	m.fitWindow(m.trail)
	for i := 1; i < len(m.trail); i++ {
		a, b := m.trail[i-1], m.trail[i]
		m.canvas.Line(a.x, a.y, b.x, b.y)
	}
	last := m.trail[len(m.trail)-1]
	m.canvas.Blob(last.x, last.y, 1)
}

func (m Model) fitWindow(pts []point) {
	if len(pts) == 0 {
		return
	}
	minX, maxX, minY, maxY := pts[0].x, pts[0].x, pts[0].y, pts[0].y
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.x), math.Max(maxX, p.x)
		minY, maxY = math.Min(minY, p.y), math.Max(maxY, p.y)
	}
	padX := math.Max((maxX-minX)*0.1, 1e-3)
	padY := math.Max((maxY-minY)*0.1, 1e-3)
	m.canvas.SetWindow(minX-padX, maxX+padX, minY-padY, maxY+padY)
}

// Run drives the model in a terminal until the user quits.
func Run(m Model, opts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
