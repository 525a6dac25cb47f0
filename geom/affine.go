package geom

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Affine is a 2D affine transform kept as a homogeneous 3x3 matrix.
type Affine struct {
	m *mat.Dense
}

func newAffine(a, b, tx, c, d, ty float64) Affine {
	return Affine{m: mat.NewDense(3, 3, []float64{
		a, b, tx,
		c, d, ty,
		0, 0, 1,
	})}
}

// Translate moves points by (tx, ty).
func Translate(tx, ty float64) Affine {
	return newAffine(1, 0, tx, 0, 1, ty)
}

// Scale scales points about the origin.
func Scale(sx, sy float64) Affine {
	return newAffine(sx, 0, 0, 0, sy, 0)
}

// Rotate rotates points about the origin by rad radians. With y pointing
// down, a positive angle turns clockwise on screen.
func Rotate(rad float64) Affine {
	c, s := math.Cos(rad), math.Sin(rad)
	return newAffine(c, -s, 0, s, c, 0)
}

// ShearX shears along x by the angle rad, x' = x + tan(rad)*y.
func ShearX(rad float64) Affine {
	return newAffine(1, math.Tan(rad), 0, 0, 1, 0)
}

// Then returns the transform that applies a first and b second.
func (a Affine) Then(b Affine) Affine {
	r := mat.NewDense(3, 3, nil)
	r.Mul(b.m, a.m)
	return Affine{m: r}
}

// At returns element (i, j) of the homogeneous matrix.
func (a Affine) At(i, j int) float64 {
	return a.m.At(i, j)
}

// Apply transforms a single point.
func (a Affine) Apply(p Point) Point {
	return Point{
		X: a.m.At(0, 0)*p.X + a.m.At(0, 1)*p.Y + a.m.At(0, 2),
		Y: a.m.At(1, 0)*p.X + a.m.At(1, 1)*p.Y + a.m.At(1, 2),
	}
}
