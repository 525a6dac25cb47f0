// Package augment applies geometric operations to an image and its keypoint
// geometry in lock-step.
//
// Randomness is never hidden inside an operation. An Augmenter draws all of
// its random parameters once and returns a Transform, which is a plain value:
// applying it to the pixels and to the geometry uses the very same draw.
package augment

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"github.com/model-collapse/heat-serv/geom"
	"gocv.io/x/gocv"
)

// Transform is a fully sampled geometric operation. Image returns a new Mat
// and leaves src untouched; the caller owns both.
type Transform interface {
	Image(src gocv.Mat) (gocv.Mat, error)
	Geometry(g geom.Set) geom.Set
}

// Identity leaves image and geometry unchanged.
type Identity struct{}

func (Identity) Image(src gocv.Mat) (gocv.Mat, error) { return src.Clone(), nil }
func (Identity) Geometry(g geom.Set) geom.Set         { return g.Clone() }

// Sequence applies its transforms in order.
type Sequence []Transform

func (s Sequence) Image(src gocv.Mat) (gocv.Mat, error) {
	cur := src.Clone()
	for _, t := range s {
		next, err := t.Image(cur)
		cur.Close()
		if err != nil {
			next.Close()
			return gocv.NewMat(), err
		}
		cur = next
	}
	return cur, nil
}

func (s Sequence) Geometry(g geom.Set) geom.Set {
	g = g.Clone()
	for _, t := range s {
		g = t.Geometry(g)
	}
	return g
}

// Resize stretches the image to exactly Width x Height.
type Resize struct {
	Width, Height int
}

func (r Resize) Image(src gocv.Mat) (gocv.Mat, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid resize target %dx%d", r.Width, r.Height)
	}
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(r.Width, r.Height), 0, 0, gocv.InterpolationLinear)
	return dst, nil
}

func (r Resize) Geometry(g geom.Set) geom.Set {
	sx := float64(r.Width) / float64(g.Width)
	sy := float64(r.Height) / float64(g.Height)
	return g.Map(image.Pt(r.Width, r.Height), func(p geom.Point) geom.Point {
		return geom.Pt(p.X*sx, p.Y*sy)
	})
}

// PadToFixed centers the image on a Width x Height canvas filled with Value.
type PadToFixed struct {
	Width, Height int
	Value         [3]float64
}

func (p PadToFixed) offset(w, h int) (int, int) {
	return (p.Width - w) / 2, (p.Height - h) / 2
}

func (p PadToFixed) Image(src gocv.Mat) (gocv.Mat, error) {
	w, h := src.Cols(), src.Rows()
	if w > p.Width || h > p.Height {
		return gocv.NewMat(), fmt.Errorf("cannot pad %dx%d image to smaller %dx%d", w, h, p.Width, p.Height)
	}
	left, top := p.offset(w, h)

	fill := gocv.NewScalar(p.Value[0], p.Value[1], p.Value[2], 0)
	dst := gocv.NewMatWithSizeFromScalar(fill, p.Height, p.Width, src.Type())
	roi := dst.Region(image.Rect(left, top, left+w, top+h))
	src.CopyTo(&roi)
	roi.Close()
	return dst, nil
}

func (p PadToFixed) Geometry(g geom.Set) geom.Set {
	left, top := p.offset(g.Width, g.Height)
	return g.Map(image.Pt(p.Width, p.Height), func(pt geom.Point) geom.Point {
		return geom.Pt(pt.X+float64(left), pt.Y+float64(top))
	})
}

// Dropout zeroes whole pixels with probability Fraction. The pixel choice is
// derived from Seed, so applying it twice gives the same mask.
type Dropout struct {
	Fraction float64
	Seed     int64
}

func (d Dropout) Image(src gocv.Mat) (gocv.Mat, error) {
	dst := src.Clone()
	if src.Type() != gocv.MatTypeCV8UC3 {
		return dst, nil
	}
	pix, err := dst.DataPtrUint8()
	if err != nil {
		dst.Close()
		return gocv.NewMat(), err
	}
	rng := rand.New(rand.NewSource(d.Seed))
	for i := 0; i+2 < len(pix); i += 3 {
		if rng.Float64() < d.Fraction {
			pix[i], pix[i+1], pix[i+2] = 0, 0, 0
		}
	}
	return dst, nil
}

func (d Dropout) Geometry(g geom.Set) geom.Set { return g.Clone() }

// Warp applies an affine matrix in pixel-index coordinates. Uncovered
// pixels become black.
type Warp struct {
	M geom.Affine
}

func (w Warp) Image(src gocv.Mat) (gocv.Mat, error) {
	m := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			m.SetDoubleAt(i, j, w.M.At(i, j))
		}
	}

	dst := gocv.NewMat()
	gocv.WarpAffineWithParams(src, &dst, m, image.Pt(src.Cols(), src.Rows()),
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})
	return dst, nil
}

func (w Warp) Geometry(g geom.Set) geom.Set {
	return g.Map(g.Size(), w.M.Apply)
}

// Flip mirrors the image left-right (Horizontal) or top-bottom.
type Flip struct {
	Horizontal bool
}

func (f Flip) Image(src gocv.Mat) (gocv.Mat, error) {
	dst := gocv.NewMat()
	code := 0
	if f.Horizontal {
		code = 1
	}
	gocv.Flip(src, &dst, code)
	return dst, nil
}

func (f Flip) Geometry(g geom.Set) geom.Set {
	w, h := float64(g.Width-1), float64(g.Height-1)
	return g.Map(g.Size(), func(p geom.Point) geom.Point {
		if f.Horizontal {
			return geom.Pt(w-p.X, p.Y)
		}
		return geom.Pt(p.X, h-p.Y)
	})
}
