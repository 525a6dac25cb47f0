package heatmap

import (
	"errors"
	"math"
	"testing"

	"github.com/model-collapse/heat-serv/geom"
	"github.com/stretchr/testify/require"
)

func points(w, h int, pts ...geom.Polygon) geom.Set {
	return geom.Set{Width: w, Height: h, Polygons: pts}
}

func kp(class int, x, y float64) geom.Polygon {
	return geom.Polygon{Label: class, Exterior: []geom.Point{geom.Pt(x, y)}}
}

func TestEmpty(t *testing.T) {
	h, err := New().Render(3, 20, 30, points(30, 20))
	require.NoError(t, err)
	require.Equal(t, []int{3, 20, 30}, h.Shape)
	for _, v := range h.Data {
		require.Zero(t, v)
	}
}

func TestSinglePeak(t *testing.T) {
	h, err := New().Render(2, 64, 64, points(64, 64, kp(1, 20.7, 30.2)))
	require.NoError(t, err)

	for _, v := range h.Plane(0) {
		require.Zero(t, v)
	}
	// truncated to (20, 30)
	require.InDelta(t, 1.0, h.At(1, 30, 20), 1e-6)
	require.InDelta(t, math.Exp(-0.5), h.At(1, 30, 30), 1e-6)

	v, at := h.Max()
	require.InDelta(t, 1.0, v, 1e-6)
	require.Equal(t, 1*64*64+30*64+20, at)

	// strictly decays with distance from the peak
	prev := float32(2)
	for x := 20; x < 64; x++ {
		cur := h.At(1, 30, x)
		require.Less(t, cur, prev)
		prev = cur
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			d2 := float64((x-20)*(x-20) + (y-30)*(y-30))
			require.InDelta(t, math.Exp(-d2/200), h.At(1, y, x), 1e-6)
		}
	}
}

func TestInvalidClass(t *testing.T) {
	_, err := New().Render(2, 8, 8, points(8, 8, kp(2, 1, 1)))
	require.True(t, errors.Is(err, ErrInvalidClass))
	_, err = New().Render(2, 8, 8, points(8, 8, kp(-1, 1, 1)))
	require.ErrorIs(t, err, ErrInvalidClass)
}

func TestDegenerateSkipped(t *testing.T) {
	// an empty polygon with a bad class is still skipped
	h, err := New().Render(1, 8, 8, points(8, 8, geom.Polygon{Label: 5}))
	require.NoError(t, err)
	v, _ := h.Max()
	require.Zero(t, v)
}

func TestDuplicates(t *testing.T) {
	g := points(100, 20, kp(0, 10, 10), kp(0, 80, 10))

	over, err := New().Render(1, 20, 100, g)
	require.NoError(t, err)
	require.InDelta(t, 1.0, over.At(0, 10, 80), 1e-6)
	require.Less(t, over.At(0, 10, 10), float32(1e-6))

	s := New()
	s.Duplicates = DuplicateMax
	mx, err := s.Render(1, 20, 100, g)
	require.NoError(t, err)
	require.InDelta(t, 1.0, mx.At(0, 10, 80), 1e-6)
	require.InDelta(t, 1.0, mx.At(0, 10, 10), 1e-6)

	d, err := ParseDuplicates("max")
	require.NoError(t, err)
	require.Equal(t, DuplicateMax, d)
	require.Equal(t, "max", d.String())
	_, err = ParseDuplicates("sum")
	require.Error(t, err)
}

func TestRadiusWindow(t *testing.T) {
	g := points(120, 90, kp(0, 40, 50), kp(1, 119, 0))
	full, err := New().Render(2, 90, 120, g)
	require.NoError(t, err)

	s := New()
	s.Radius = 4
	win, err := s.Render(2, 90, 120, g)
	require.NoError(t, err)

	for i := range full.Data {
		require.InDelta(t, full.Data[i], win.Data[i], 4e-4)
	}
	require.Zero(t, win.At(0, 0, 0))
}

func TestPointOutsideImage(t *testing.T) {
	h, err := New().Render(1, 10, 10, points(10, 10, kp(0, -5, 12)))
	require.NoError(t, err)
	v, _ := h.Max()
	require.Less(t, v, float32(1))
	require.Greater(t, v, float32(0))
}
