package viz

import (
	"math"
	"strings"
)

// braille dot bits, unicode offset 0x2800
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = rune(0x2800)

// Canvas is a braille pixel grid. It holds Width*2 by Height*4 dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at (x, y). Dots outside the grid are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
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
			break
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

// DrawBoard draws the deck side on, pivoting on the hub and raised at the
// nose by tilt degrees. Positive tilt lifts the nose on the right. The tilt
// is exaggerated so a few degrees are visible at terminal resolution.
func (c *Canvas) DrawBoard(tilt float64) {
	w, h := c.Width*2, c.Height*4
	cx, cy := w/2, h*2/3
	half := float64(w) * 0.35
	rad := tilt * 4 * math.Pi / 180
	dx, dy := int(half*math.Cos(rad)), int(half*math.Sin(rad))

	c.DrawLine(0, h-1, w-1, h-1)
	c.DrawLine(cx-dx, cy+dy, cx+dx, cy-dy)

	r := h - 1 - cy
	for a := 0; a < 360; a += 10 {
		t := float64(a) * math.Pi / 180
		c.Set(cx+int(float64(r)*math.Cos(t)), cy+int(float64(r)*math.Sin(t)))
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
