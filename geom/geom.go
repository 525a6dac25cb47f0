// Package geom holds the keypoint geometry that travels with an image
// through the augmentation pipeline.
package geom

import (
	"image"
)

// Point is a 2D location in pixel-index coordinates of its image.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Int truncates the point toward zero.
func (p Point) Int() image.Point {
	return image.Point{X: int(p.X), Y: int(p.Y)}
}

// Polygon is a labeled, ordered set of points. A keypoint is a polygon
// with a single vertex.
type Polygon struct {
	Label    int     `json:"label"`
	Exterior []Point `json:"exterior"`
}

// First returns the first exterior vertex, or false if the polygon is empty.
func (p Polygon) First() (Point, bool) {
	if len(p.Exterior) == 0 {
		return Point{}, false
	}
	return p.Exterior[0], true
}

// Set is the geometry attached to one image of size Width x Height.
type Set struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Polygons []Polygon `json:"polygons"`
}

// Size returns the image size the geometry refers to.
func (s Set) Size() image.Point {
	return image.Point{X: s.Width, Y: s.Height}
}

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	return s.Map(s.Size(), func(p Point) Point { return p })
}

// Map returns a new set sized for an image of the given size, with every
// vertex passed through fn.
func (s Set) Map(size image.Point, fn func(Point) Point) Set {
	r := Set{
		Width:    size.X,
		Height:   size.Y,
		Polygons: make([]Polygon, len(s.Polygons)),
	}
	for i, poly := range s.Polygons {
		ext := make([]Point, len(poly.Exterior))
		for j, p := range poly.Exterior {
			ext[j] = fn(p)
		}
		r.Polygons[i] = Polygon{Label: poly.Label, Exterior: ext}
	}
	return r
}
