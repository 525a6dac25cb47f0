// Package heatmap renders keypoints into per-class Gaussian response maps.
package heatmap

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/model-collapse/heat-serv/geom"
	"github.com/model-collapse/heat-serv/tensor"
)

var ErrInvalidClass = errors.New("invalid class id")

// DefaultSigma is the Gaussian spread in pixels.
const DefaultSigma = 10

// Duplicates decides what happens when one image has several points of
// the same class.
type Duplicates int

const (
	// DuplicateOverwrite lets each point replace the whole class plane, so
	// the last point wins.
	DuplicateOverwrite Duplicates = iota
	// DuplicateMax keeps the pixel-wise maximum over all points of a class.
	DuplicateMax
)

func ParseDuplicates(s string) (Duplicates, error) {
	switch s {
	case "", "overwrite":
		return DuplicateOverwrite, nil
	case "max":
		return DuplicateMax, nil
	}
	return 0, fmt.Errorf("unknown duplicate policy %q", s)
}

func (d Duplicates) String() string {
	if d == DuplicateMax {
		return "max"
	}
	return "overwrite"
}

// Synthesizer turns a geometry set into a [classes, H, W] stack.
type Synthesizer struct {
	Sigma float64
	// Radius bounds evaluation to a square window of Radius*Sigma pixels
	// around each point; zero evaluates the whole grid.
	Radius     float64
	Duplicates Duplicates
}

func New() *Synthesizer {
	return &Synthesizer{Sigma: DefaultSigma}
}

// Render builds the heatmap stack for an image of height x width. Each
// polygon contributes through its first vertex, truncated to integer
// pixels. Empty polygons are skipped.
func (s *Synthesizer) Render(classes, height, width int, g geom.Set) (*tensor.F32, error) {
	if classes < 0 || height <= 0 || width <= 0 {
		return nil, fmt.Errorf("invalid heatmap shape [%d,%d,%d]", classes, height, width)
	}
	sigma := s.Sigma
	if sigma <= 0 {
		sigma = DefaultSigma
	}
	inv := float32(1 / (2 * sigma * sigma))

	heats := tensor.NewF32(classes, height, width)
	for _, poly := range g.Polygons {
		first, ok := poly.First()
		if !ok {
			continue
		}
		if poly.Label < 0 || poly.Label >= classes {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidClass, poly.Label, classes)
		}
		plane := heats.Plane(poly.Label)
		if s.Duplicates == DuplicateOverwrite {
			for i := range plane {
				plane[i] = 0
			}
		}

		p := first.Int()
		x0, y0, x1, y1 := 0, 0, width, height
		if s.Radius > 0 {
			r := int(math.Ceil(s.Radius * sigma))
			x0, x1 = max(0, p.X-r), min(width, p.X+r+1)
			y0, y1 = max(0, p.Y-r), min(height, p.Y+r+1)
		}
		for y := y0; y < y1; y++ {
			dy := float32(y - p.Y)
			row := plane[y*width : (y+1)*width]
			for x := x0; x < x1; x++ {
				dx := float32(x - p.X)
				v := math32.Exp(-(dx*dx + dy*dy) * inv)
				if v > row[x] || s.Duplicates == DuplicateOverwrite {
					row[x] = v
				}
			}
		}
	}
	return heats, nil
}
