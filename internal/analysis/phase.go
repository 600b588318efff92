package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/odestep/internal/dynamo"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds two components of a trajectory.
type PhasePortrait2D struct {
	XIndex, YIndex int
	Points         []Point
}

// NewPhasePortrait projects recorded states onto components xIdx and yIdx.
func NewPhasePortrait(states []dynamo.State, xIdx, yIdx int) (*PhasePortrait2D, error) {
	portrait := &PhasePortrait2D{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, len(states)),
	}
	for i, x := range states {
		if xIdx < 0 || yIdx < 0 || xIdx >= len(x) || yIdx >= len(x) {
			return nil, fmt.Errorf("state %d has %d components, need %d and %d: %w",
				i, len(x), xIdx, yIdx, dynamo.ErrDimensionMismatch)
		}
		portrait.Points = append(portrait.Points, Point{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait, nil
}

// Bounds returns the extent of the points.
func (p *PhasePortrait2D) Bounds() (minX, maxX, minY, maxY float64) {
	if len(p.Points) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = p.Points[0].X, p.Points[0].X
	minY, maxY = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX = min(minX, pt.X)
		maxX = max(maxX, pt.X)
		minY = min(minY, pt.Y)
		maxY = max(maxY, pt.Y)
	}
	return minX, maxX, minY, maxY
}

// ASCII renders the portrait on a width x height character grid with the
// axes drawn where they cross the visible area.
func (p *PhasePortrait2D) ASCII(width, height int) string {
	if len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX, minY, maxY := p.Bounds()

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
