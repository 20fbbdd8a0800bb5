package render

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBarEmpty(t *testing.T) {
	require.Equal(t, "", Bar(nil, 60, 10))
}

func TestBarRendersProportionalLength(t *testing.T) {
	out := Bar([]BarPoint{{Label: "alice", Value: 10}, {Label: "bob", Value: 5}}, 40, 10)
	require.NotEmpty(t, out)
	require.Contains(t, out, "alice")
	require.Contains(t, out, "bob")
}

func TestLineEmpty(t *testing.T) {
	require.Equal(t, "", Line(nil, 60, 15))
}

func TestLineDeterministic(t *testing.T) {
	points := []Point{{X: 0, Y: 1}, {X: 1, Y: 3}, {X: 2, Y: 2}}
	a := Line(points, 40, 10)
	b := Line(points, 40, 10)
	require.Equal(t, a, b)
	require.NotEmpty(t, a)
}

func TestHeatmapEmpty(t *testing.T) {
	require.Equal(t, "", Heatmap(nil, nil, nil))
}

func TestHeatmapRenders(t *testing.T) {
	matrix := [][]float64{{0, 1}, {2, 3}}
	out := Heatmap(matrix, []string{"mon", "tue"}, nil)
	require.Contains(t, out, "mon")
	require.Contains(t, out, "legend")
}

func TestTrendEmpty(t *testing.T) {
	require.Equal(t, "", Trend(nil, 60, 15, TrendSummary{}))
}
