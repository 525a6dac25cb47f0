package augment

import (
	"image"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/model-collapse/heat-serv/geom"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func blank(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
}

// dot paints a 3x3 white square centered on (x, y).
func dot(m gocv.Mat, x, y int) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			for c := 0; c < 3; c++ {
				m.SetUCharAt(y+dy, (x+dx)*3+c, 255)
			}
		}
	}
}

// centroid is the intensity weighted center of channel 0.
func centroid(t *testing.T, m gocv.Mat) geom.Point {
	var sx, sy, sw float64
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			v := float64(m.GetUCharAt(y, x*3))
			sx += v * float64(x)
			sy += v * float64(y)
			sw += v
		}
	}
	require.Greater(t, sw, 0.0, "blob vanished")
	return geom.Pt(sx/sw, sy/sw)
}

func single(x, y float64, w, h int) geom.Set {
	return geom.Set{
		Width:    w,
		Height:   h,
		Polygons: []geom.Polygon{{Label: 0, Exterior: []geom.Point{geom.Pt(x, y)}}},
	}
}

func TestOutputSize(t *testing.T) {
	sizes := []image.Point{{100, 50}, {50, 100}, {64, 64}, {7, 300}, {640, 480}}
	for _, rect := range []bool{false, true} {
		c := NewCoordinator(image.Pt(64, 48), rect, nil)
		for _, s := range sizes {
			img := blank(s.X, s.Y)
			out, g, err := c.Apply(nil, img, single(1, 1, s.X, s.Y))
			img.Close()
			require.NoError(t, err)
			require.Equal(t, 64, out.Cols(), "rect=%v src=%v", rect, s)
			require.Equal(t, 48, out.Rows(), "rect=%v src=%v", rect, s)
			require.Equal(t, image.Pt(64, 48), g.Size())
			out.Close()
		}
	}
}

func TestStretchGeometry(t *testing.T) {
	c := NewCoordinator(image.Pt(64, 64), false, nil)
	img := blank(100, 50)
	defer img.Close()
	out, g, err := c.Apply(nil, img, single(10, 20, 0, 0))
	require.NoError(t, err)
	defer out.Close()
	p := g.Polygons[0].Exterior[0]
	require.InDelta(t, 6.4, p.X, 1e-9)
	require.InDelta(t, 25.6, p.Y, 1e-9)
}

func TestRectPadding(t *testing.T) {
	c := NewCoordinator(image.Pt(64, 64), true, nil)
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(9, 9, 9, 0), 50, 100, gocv.MatTypeCV8UC3)
	defer img.Close()
	out, g, err := c.Apply(nil, img, single(10, 20, 100, 50))
	require.NoError(t, err)
	defer out.Close()

	// 100x50 scales to 64x32, centered with 16 rows of padding on top
	p := g.Polygons[0].Exterior[0]
	require.InDelta(t, 6.4, p.X, 1e-9)
	require.InDelta(t, 28.8, p.Y, 1e-9)

	require.Equal(t, uint8(124), out.GetUCharAt(0, 0))
	require.Equal(t, uint8(116), out.GetUCharAt(0, 1))
	require.Equal(t, uint8(104), out.GetUCharAt(0, 2))
	require.Equal(t, uint8(9), out.GetUCharAt(32, 32*3))
	require.Equal(t, uint8(124), out.GetUCharAt(63, 0))
}

func TestNoAugmentIsPure(t *testing.T) {
	c := NewCoordinator(image.Pt(40, 30), true, nil)
	img := blank(120, 70)
	defer img.Close()
	dot(img, 50, 30)
	in := single(50, 30, 120, 70)

	a, ga, err := c.Apply(rand.New(rand.NewSource(1)), img, in)
	require.NoError(t, err)
	defer a.Close()
	b, gb, err := c.Apply(rand.New(rand.NewSource(2)), img, in)
	require.NoError(t, err)
	defer b.Close()

	require.Equal(t, a.ToBytes(), b.ToBytes())
	if diff := cmp.Diff(ga, gb); diff != "" {
		t.Errorf("geometry differs (-a +b):\n%s", diff)
	}
	require.Equal(t, 50.0, in.Polygons[0].Exterior[0].X, "input geometry was modified")
}

func TestSameDrawSameResult(t *testing.T) {
	c := NewCoordinator(image.Pt(64, 64), false, FromConfig(DefaultConfig()))
	img := blank(64, 64)
	defer img.Close()
	dot(img, 20, 40)

	for seed := int64(0); seed < 10; seed++ {
		a, ga, err := c.Apply(rand.New(rand.NewSource(seed)), img, single(20, 40, 64, 64))
		require.NoError(t, err)
		b, gb, err := c.Apply(rand.New(rand.NewSource(seed)), img, single(20, 40, 64, 64))
		require.NoError(t, err)
		require.Equal(t, a.ToBytes(), b.ToBytes())
		require.True(t, cmp.Equal(ga, gb))
		a.Close()
		b.Close()
	}
}

func TestLockStep(t *testing.T) {
	aug := SomeOf{Min: 1, Max: 3, Children: []Augmenter{
		RandomAffine{
			Scale:     Range{0.8, 1.2},
			Translate: Range{-0.1, 0.1},
			Rotate:    Range{-45, 45},
			Shear:     Range{-0.1, 0.1},
		},
		RandomFlip{Horizontal: true, P: 0.5},
		RandomFlip{Horizontal: false, P: 0.5},
	}}
	rng := rand.New(rand.NewSource(42))
	size := image.Pt(64, 64)

	for i := 0; i < 50; i++ {
		img := blank(64, 64)
		dot(img, 26, 37)
		tr := aug.Draw(rng, size)

		out, err := tr.Image(img)
		require.NoError(t, err)
		got := centroid(t, out)
		want := tr.Geometry(single(26, 37, 64, 64)).Polygons[0].Exterior[0]

		require.InDelta(t, want.X, got.X, 1.0, "draw %d", i)
		require.InDelta(t, want.Y, got.Y, 1.0, "draw %d", i)
		out.Close()
		img.Close()
	}
}

func TestFlipGeometry(t *testing.T) {
	img := blank(10, 6)
	defer img.Close()
	dot(img, 2, 2)

	for _, h := range []bool{true, false} {
		f := Flip{Horizontal: h}
		out, err := f.Image(img)
		require.NoError(t, err)
		p := f.Geometry(single(2, 2, 10, 6)).Polygons[0].Exterior[0]
		c := centroid(t, out)
		require.InDelta(t, p.X, c.X, 1e-9)
		require.InDelta(t, p.Y, c.Y, 1e-9)
		out.Close()
	}
}

func TestDropout(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 50, 50, gocv.MatTypeCV8UC3)
	defer img.Close()
	d := Dropout{Fraction: 0.1, Seed: 7}

	a, err := d.Image(img)
	require.NoError(t, err)
	defer a.Close()
	b, err := d.Image(img)
	require.NoError(t, err)
	defer b.Close()
	require.Equal(t, a.ToBytes(), b.ToBytes())

	zeros := 0
	pix := a.ToBytes()
	for i := 0; i < len(pix); i += 3 {
		if pix[i] == 0 {
			require.Zero(t, pix[i+1])
			require.Zero(t, pix[i+2])
			zeros++
		}
	}
	require.InDelta(t, 250, zeros, 100)
	require.Equal(t, uint8(200), img.GetUCharAt(0, 0))

	g := single(3, 4, 50, 50)
	require.True(t, cmp.Equal(g, d.Geometry(g)))
}

func TestSomeOf(t *testing.T) {
	children := []Augmenter{
		Const{T: Flip{Horizontal: true}},
		Const{T: Flip{Horizontal: false}},
		Const{T: Identity{}},
		Const{T: Dropout{}},
	}
	s := SomeOf{Min: 1, Max: 3, Children: children}
	rng := rand.New(rand.NewSource(3))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seq := s.Draw(rng, image.Pt(8, 8)).(Sequence)
		require.GreaterOrEqual(t, len(seq), 1)
		require.LessOrEqual(t, len(seq), 3)
		seen[len(seq)] = true
		// listed order is preserved
		if len(seq) == 2 {
			if _, ok := seq[0].(Dropout); ok {
				t.Fatalf("dropout drawn before another child: %#v", seq)
			}
		}
	}
	require.Len(t, seen, 3)

	require.Nil(t, FromConfig(Config{}))
	def := FromConfig(DefaultConfig()).(SomeOf)
	require.Len(t, def.Children, 4)
	require.Equal(t, 3, def.Max)
}

func TestSomeOfNegativeCounts(t *testing.T) {
	children := []Augmenter{Const{T: Flip{Horizontal: true}}, Const{T: Identity{}}}
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 50; i++ {
		seq := SomeOf{Min: -1, Max: 2, Children: children}.Draw(rng, image.Pt(8, 8)).(Sequence)
		require.LessOrEqual(t, len(seq), 2)
		require.Empty(t, SomeOf{Min: -1, Max: -1, Children: children}.Draw(rng, image.Pt(8, 8)).(Sequence))
	}

	c := DefaultConfig()
	require.NoError(t, c.Validate())
	c.MaxOps = -1
	require.Error(t, c.Validate())
	c.Enabled = false
	require.NoError(t, c.Validate())
}

func TestSequenceGeometryDoesNotAlias(t *testing.T) {
	g := single(1, 2, 10, 10)
	out := Sequence{Identity{}, Warp{M: geom.Translate(1, 1)}}.Geometry(g)
	want := single(2, 3, 10, 10)
	if diff := cmp.Diff(want, out, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	require.Equal(t, 1.0, g.Polygons[0].Exterior[0].X)
}
