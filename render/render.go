// Package render implements the pure ASCII/Unicode chart primitives used by
// render/section to embed charts in report sections. Every function here
// runs in O(N*W*H), allocates only the output buffer, and returns "" for
// empty input.
package render

import (
	"fmt"
	"math"
	"strings"
)

// shadeRamp is the 4-level shading ramp used by Bar and Heatmap, quantized
// by value quantile.
var shadeRamp = []rune{'░', '▒', '▓', '█'}

// BarPoint is one labeled value in a horizontal bar chart.
type BarPoint struct {
	Label string
	Value float64
}

// Bar renders a horizontal bar chart. width is the total character width
// including the label area; labelWidth reserves space for (possibly
// truncated) labels.
func Bar(points []BarPoint, width, labelWidth int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}
	if labelWidth >= width {
		labelWidth = width / 3
	}
	barWidth := width - labelWidth - 1
	if barWidth <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, p := range points {
		if p.Value > maxVal {
			maxVal = p.Value
		}
	}

	var b strings.Builder
	for i, p := range points {
		label := truncateLabel(p.Label, labelWidth)
		bar := barString(p.Value, maxVal, barWidth)
		fmt.Fprintf(&b, "%-*s %s", labelWidth, label, bar)
		if i < len(points)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func barString(value, maxVal float64, width int) string {
	if maxVal <= 0 {
		return strings.Repeat(" ", width)
	}
	fraction := value / maxVal
	if fraction > 1 {
		fraction = 1
	}
	if fraction < 0 {
		fraction = 0
	}
	full := int(fraction * float64(width))
	shade := shadeForQuantile(fraction)
	var b strings.Builder
	for i := 0; i < width; i++ {
		if i >= full {
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(shade)
	}
	return b.String()
}

func shadeForQuantile(q float64) rune {
	idx := int(q * float64(len(shadeRamp)))
	if idx >= len(shadeRamp) {
		idx = len(shadeRamp) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return shadeRamp[idx]
}

func truncateLabel(label string, width int) string {
	if width <= 0 {
		return ""
	}
	if len(label) <= width {
		return label
	}
	if width <= 1 {
		return label[:width]
	}
	return label[:width-1] + "…"
}

// Point is one (x, y) sample in a line chart.
type Point struct {
	X, Y float64
}

// Line renders a point series into a w x h grid, plotting points with '*'
// and connecting adjacent points with '/', '\', or '-' chosen by slope.
func Line(points []Point, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	labelWidth := 10
	plotWidth := width - labelWidth
	if plotWidth <= 1 {
		return ""
	}

	minY, maxY := points[0].Y, points[0].Y
	minX, maxX := points[0].X, points[0].X
	for _, p := range points {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	if maxY == minY {
		maxY = minY + 1
	}
	if maxX == minX {
		maxX = minX + 1
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = make([]rune, plotWidth)
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}

	colFor := func(x float64) int {
		c := int((x - minX) / (maxX - minX) * float64(plotWidth-1))
		return clampInt(c, 0, plotWidth-1)
	}
	rowFor := func(y float64) int {
		r := int((maxY - y) / (maxY - minY) * float64(height-1))
		return clampInt(r, 0, height-1)
	}

	prevCol, prevRow := -1, -1
	for _, p := range points {
		col, row := colFor(p.X), rowFor(p.Y)
		if prevCol >= 0 {
			drawSegment(grid, prevCol, prevRow, col, row)
		}
		grid[row][col] = '*'
		prevCol, prevRow = col, row
	}

	var b strings.Builder
	for r := 0; r < height; r++ {
		yVal := maxY - (maxY-minY)*float64(r)/float64(height-1)
		fmt.Fprintf(&b, "%*.1f |%s", labelWidth-2, yVal, string(grid[r]))
		if r < height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func drawSegment(grid [][]rune, c0, r0, c1, r1 int) {
	if c1 == c0 {
		return
	}
	glyph := '-'
	switch {
	case r1 < r0:
		glyph = '/'
	case r1 > r0:
		glyph = '\\'
	}
	step := 1
	if c1 < c0 {
		step = -1
	}
	for c := c0 + step; c != c1; c += step {
		if grid[r0][c] == ' ' {
			grid[r0][c] = glyph
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Heatmap renders a 2-D numeric matrix with row/column labels, quantized
// into the same 4-shade ramp, with a legend printed underneath.
func Heatmap(matrix [][]float64, rowLabels, colLabels []string) string {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return ""
	}

	maxVal := 0.0
	for _, row := range matrix {
		for _, v := range row {
			if v > maxVal {
				maxVal = v
			}
		}
	}

	rowLabelWidth := 0
	for _, l := range rowLabels {
		if len(l) > rowLabelWidth {
			rowLabelWidth = len(l)
		}
	}

	var b strings.Builder
	for r, row := range matrix {
		label := ""
		if r < len(rowLabels) {
			label = rowLabels[r]
		}
		fmt.Fprintf(&b, "%-*s ", rowLabelWidth, label)
		for _, v := range row {
			b.WriteRune(shadeForValue(v, maxVal))
		}
		b.WriteByte('\n')
	}

	if len(colLabels) > 0 {
		fmt.Fprintf(&b, "%-*s ", rowLabelWidth, "")
		b.WriteString(strings.Join(colLabels, ""))
		b.WriteByte('\n')
	}

	if maxVal > 0 {
		fmt.Fprintf(&b, "legend: %c 0-%.0f%%  %c %.0f-%.0f%%  %c %.0f-%.0f%%  %c %.0f-%.0f%%",
			shadeRamp[0], 25.0,
			shadeRamp[1], 25.0, 50.0,
			shadeRamp[2], 50.0, 75.0,
			shadeRamp[3], 75.0, 100.0)
	}

	return strings.TrimRight(b.String(), "\n")
}

func shadeForValue(v, maxVal float64) rune {
	if maxVal <= 0 {
		return ' '
	}
	fraction := v / maxVal
	idx := int(fraction * float64(len(shadeRamp)))
	if idx >= len(shadeRamp) {
		idx = len(shadeRamp) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return shadeRamp[idx]
}

// TrendSummary is the textual summary appended below a Trend chart.
type TrendSummary struct {
	Direction string
	Current   float64
	Peak      float64
	Average   float64
}

// Trend renders a line chart plus a textual summary line.
func Trend(points []Point, width, height int, summary TrendSummary) string {
	if len(points) == 0 {
		return ""
	}
	chart := Line(points, width, height)
	if chart == "" {
		return ""
	}
	return fmt.Sprintf("%s\n%s: current=%.2f peak=%.2f avg=%.2f",
		chart, summary.Direction, summary.Current, summary.Peak, summary.Average)
}
