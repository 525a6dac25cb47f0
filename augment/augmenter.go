package augment

import (
	"image"
	"math"
	"math/rand"
	"sort"

	"github.com/model-collapse/heat-serv/geom"
)

// An Augmenter draws one random configuration for an image of the given
// size. All randomness comes from rng.
type Augmenter interface {
	Draw(rng *rand.Rand, size image.Point) Transform
}

// Range is a closed interval sampled uniformly.
type Range [2]float64

func (r Range) sample(rng *rand.Rand) float64 {
	return r[0] + rng.Float64()*(r[1]-r[0])
}

// Const always yields the same transform. It is handy for tests and for
// replaying a known configuration.
type Const struct {
	T Transform
}

func (c Const) Draw(*rand.Rand, image.Point) Transform { return c.T }

// PixelDropout zeroes a fraction of pixels drawn from Fraction.
type PixelDropout struct {
	Fraction Range
}

func (d PixelDropout) Draw(rng *rand.Rand, _ image.Point) Transform {
	return Dropout{Fraction: d.Fraction.sample(rng), Seed: rng.Int63()}
}

// RandomAffine scales, shears, rotates and translates about the image center.
type RandomAffine struct {
	Scale     Range // per axis factor
	Translate Range // fraction of width/height
	Rotate    Range // degrees
	Shear     Range // radians
}

func (a RandomAffine) Draw(rng *rand.Rand, size image.Point) Transform {
	sx, sy := a.Scale.sample(rng), a.Scale.sample(rng)
	tx := a.Translate.sample(rng) * float64(size.X)
	ty := a.Translate.sample(rng) * float64(size.Y)
	rot := a.Rotate.sample(rng) * math.Pi / 180
	shear := a.Shear.sample(rng)

	cx, cy := float64(size.X-1)/2, float64(size.Y-1)/2
	m := geom.Translate(-cx, -cy).
		Then(geom.Scale(sx, sy)).
		Then(geom.ShearX(shear)).
		Then(geom.Rotate(rot)).
		Then(geom.Translate(cx+tx, cy+ty))
	return Warp{M: m}
}

// RandomFlip mirrors with probability P.
type RandomFlip struct {
	Horizontal bool
	P          float64
}

func (f RandomFlip) Draw(rng *rand.Rand, _ image.Point) Transform {
	if rng.Float64() < f.P {
		return Flip{Horizontal: f.Horizontal}
	}
	return Identity{}
}

// SomeOf picks between Min and Max of its children, keeping their listed
// order, and draws each of them.
type SomeOf struct {
	Min, Max int
	Children []Augmenter
}

func (s SomeOf) Draw(rng *rand.Rand, size image.Point) Transform {
	hi := min(max(s.Max, 0), len(s.Children))
	lo := min(max(s.Min, 0), hi)
	n := lo + rng.Intn(hi-lo+1)

	picked := rng.Perm(len(s.Children))[:n]
	sort.Ints(picked)
	seq := make(Sequence, 0, n)
	for _, i := range picked {
		seq = append(seq, s.Children[i].Draw(rng, size))
	}
	return seq
}
