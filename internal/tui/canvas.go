package tui

import (
	"math"
	"strings"
)

// Braille cells hold a 2x4 dot grid:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// The empty cell is U+2800.
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a braille raster of Cols x Rows terminal cells, giving a dot
// resolution of 2*Cols x 4*Rows. World coordinates are mapped onto the dots
// through the window set by SetWindow; y grows upward.
type Canvas struct {
	Cols, Rows int
	cells      [][]rune

	minX, maxX float64
	minY, maxY float64
}

func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{Cols: cols, Rows: rows, cells: make([][]rune, rows)}
	for i := range c.cells {
		c.cells[i] = make([]rune, cols)
	}
	c.Clear()
	c.SetWindow(-1, 1, -1, 1)
	return c
}

// SetWindow sets the world rectangle shown by the canvas. The shorter axis is
// widened so that one world unit spans the same number of dots on both axes
// in terminal cells of roughly 1:2 aspect.
func (c *Canvas) SetWindow(minX, maxX, minY, maxY float64) {
	w, h := maxX-minX, maxY-minY
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	dotsX, dotsY := float64(c.Cols*2), float64(c.Rows*4)
	scale := math.Min(dotsX/w, dotsY/h)
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	hw, hh := dotsX/scale/2, dotsY/scale/2
	c.minX, c.maxX = cx-hw, cx+hw
	c.minY, c.maxY = cy-hh, cy+hh
}

// Dot maps a world point to dot coordinates.
func (c *Canvas) Dot(x, y float64) (int, int) {
	dotsX, dotsY := float64(c.Cols*2-1), float64(c.Rows*4-1)
	px := (x - c.minX) / (c.maxX - c.minX) * dotsX
	py := (c.maxY - y) / (c.maxY - c.minY) * dotsY
	return int(math.Round(px)), int(math.Round(py))
}

// Set lights the dot at (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Cols || row >= c.Rows {
		return
	}
	c.cells[row][col] |= dotBits[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		for j := range c.cells[i] {
			c.cells[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a dot line with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Point lights the dot nearest to a world point.
func (c *Canvas) Point(x, y float64) {
	c.Set(c.Dot(x, y))
}

// Line draws a segment between two world points.
func (c *Canvas) Line(x0, y0, x1, y1 float64) {
	ax, ay := c.Dot(x0, y0)
	bx, by := c.Dot(x1, y1)
	c.DrawLine(ax, ay, bx, by)
}

// Blob fills a square of side 2r+1 dots around a world point.
func (c *Canvas) Blob(x, y float64, r int) {
	px, py := c.Dot(x, y)
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			c.Set(px+dx, py+dy)
		}
	}
}

// Coil draws a zig-zag spring between two world points.
func (c *Canvas) Coil(x0, y0, x1, y1 float64, turns int, amp float64) {
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 || turns < 1 {
		c.Line(x0, y0, x1, y1)
		return
	}
	nx, ny := -dy/l*amp, dx/l*amp
	px, py := x0, y0
	for i := 1; i <= 2*turns; i++ {
		f := float64(i) / float64(2*turns+1)
		qx, qy := x0+f*dx, y0+f*dy
		if i%2 == 0 {
			qx, qy = qx-nx, qy-ny
		} else {
			qx, qy = qx+nx, qy+ny
		}
		c.Line(px, py, qx, qy)
		px, py = qx, qy
	}
	c.Line(px, py, x1, y1)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.cells {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
