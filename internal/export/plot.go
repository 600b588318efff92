// Package export renders trajectories, phase portraits and convergence
// studies as PNG, SVG or PDF images.
package export

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/san-kum/odestep/internal/analysis"
	"github.com/san-kum/odestep/internal/dynamo"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// TrajectoryPlot draws every state component against time. labels name
// the components; missing labels default to x0, x1, ...
func TrajectoryPlot(title string, states []dynamo.State, times []float64, labels []string) (*plot.Plot, error) {
	if len(states) == 0 {
		return nil, fmt.Errorf("no states to plot")
	}
	if len(states) != len(times) {
		return nil, fmt.Errorf("%d states but %d times: %w", len(states), len(times), dynamo.ErrDimensionMismatch)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t"
	p.Add(plotter.NewGrid())

	var lines []any
	for k := range states[0] {
		xys := make(plotter.XYs, len(states))
		for i, x := range states {
			xys[i].X = times[i]
			xys[i].Y = x[k]
		}
		name := fmt.Sprintf("x%d", k)
		if k < len(labels) && labels[k] != "" {
			name = labels[k]
		}
		lines = append(lines, name, xys)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// PhasePlot draws a phase portrait as a line in the (x, y) plane.
func PhasePlot(title string, portrait *analysis.PhasePortrait2D, xLabel, yLabel string) (*plot.Plot, error) {
	if len(portrait.Points) == 0 {
		return nil, fmt.Errorf("empty phase portrait")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(portrait.Points))
	for i, pt := range portrait.Points {
		xys[i].X, xys[i].Y = pt.X, pt.Y
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	return p, nil
}

// ConvergencePlot draws error against step size on log-log axes; a method
// of order p shows up as a line of slope p.
func ConvergencePlot(title string, studies map[string]*analysis.Study) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "tau"
	p.Y.Label.Text = "error"
	p.X.Scale = plot.LogScale{}
	p.Y.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	names := make([]string, 0, len(studies))
	for name := range studies {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []any
	for _, name := range names {
		var xys plotter.XYs
		for _, s := range studies[name].Samples {
			// log axes cannot show an exact zero
			if s.Error > 0 {
				xys = append(xys, plotter.XY{X: s.Tau, Y: s.Error})
			}
		}
		if len(xys) == 0 {
			continue
		}
		lines = append(lines, name, xys)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("no positive errors to plot")
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes p to path; the extension (.png, .svg, .pdf, ...) picks the
// format.
func Save(p *plot.Plot, path string) error {
	return p.Save(DefaultWidth, DefaultHeight, path)
}

// Write renders p in the given format ("png", "svg", ...) to w.
func Write(p *plot.Plot, w io.Writer, format string) error {
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, strings.ToLower(format))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// FormatOf returns the image format implied by a file name.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
