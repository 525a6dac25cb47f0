package augment

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/model-collapse/heat-serv/geom"
	"gocv.io/x/gocv"
)

// DefaultPadValue is the per-channel RGB normalization mean, so padding
// becomes zero after normalization.
var DefaultPadValue = [3]float64{123.675, 116.28, 103.53}

// Coordinator brings an image and its geometry to a fixed size and then,
// optionally, through one sampled augmentation.
type Coordinator struct {
	Size     image.Point
	Rect     bool // keep aspect ratio and pad
	PadValue [3]float64
	Augment  Augmenter // nil disables augmentation
}

func NewCoordinator(size image.Point, rect bool, aug Augmenter) *Coordinator {
	return &Coordinator{
		Size:     size,
		Rect:     rect,
		PadValue: DefaultPadValue,
		Augment:  aug,
	}
}

// Resizer returns the deterministic resize (and pad) step for a source of
// the given size.
func (c *Coordinator) Resizer(src image.Point) Transform {
	if !c.Rect {
		return Resize{Width: c.Size.X, Height: c.Size.Y}
	}
	scale := float64(c.Size.X) / float64(src.X)
	if s := float64(c.Size.Y) / float64(src.Y); s < scale {
		scale = s
	}
	w := clamp(int(float64(src.X)*scale), 1, c.Size.X)
	h := clamp(int(float64(src.Y)*scale), 1, c.Size.Y)
	return Sequence{
		Resize{Width: w, Height: h},
		PadToFixed{Width: c.Size.X, Height: c.Size.Y, Value: c.PadValue},
	}
}

// Draw samples the augmentation for this coordinator's output size. It
// returns Identity when augmentation is disabled or rng is nil.
func (c *Coordinator) Draw(rng *rand.Rand) Transform {
	if c.Augment == nil || rng == nil {
		return Identity{}
	}
	return c.Augment.Draw(rng, c.Size)
}

// Apply returns a new image of exactly c.Size and the matching geometry.
// img is not modified; the caller owns the returned Mat.
func (c *Coordinator) Apply(rng *rand.Rand, img gocv.Mat, g geom.Set) (gocv.Mat, geom.Set, error) {
	if img.Empty() {
		return gocv.NewMat(), geom.Set{}, fmt.Errorf("empty image")
	}
	if c.Size.X <= 0 || c.Size.Y <= 0 {
		return gocv.NewMat(), geom.Set{}, fmt.Errorf("invalid target size %v", c.Size)
	}
	src := image.Pt(img.Cols(), img.Rows())
	g.Width, g.Height = src.X, src.Y

	t := Sequence{c.Resizer(src), c.Draw(rng)}
	out, err := t.Image(img)
	if err != nil {
		return gocv.NewMat(), geom.Set{}, err
	}
	if out.Cols() != c.Size.X || out.Rows() != c.Size.Y {
		out.Close()
		return gocv.NewMat(), geom.Set{}, fmt.Errorf("transform produced %dx%d, want %dx%d", out.Cols(), out.Rows(), c.Size.X, c.Size.Y)
	}
	return out, t.Geometry(g), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
