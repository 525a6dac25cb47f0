package dataset

import (
	"fmt"
	"math/rand"

	"github.com/model-collapse/heat-serv/tensor"
)

var (
	// Mean and Std are the per-channel RGB pixel statistics.
	Mean = [3]float32{123.675, 116.28, 103.53}
	Std  = [3]float32{58.395, 57.12, 57.375}
)

// RawBatch is a collated batch: images [N,3,H,W] uint8 and heatmaps
// [N,classes,H,W].
type RawBatch struct {
	Indices  []int
	Images   *tensor.U8
	Heatmaps *tensor.F32
}

// Batch is a post-processed batch with normalized float images.
type Batch struct {
	Indices  []int
	Images   *tensor.F32
	Heatmaps *tensor.F32
}

// Collate stacks items, which must all share the same shapes.
func Collate(items []*Item) (*RawBatch, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	is, hs := items[0].Image.Shape, items[0].Heatmaps.Shape
	for _, it := range items[1:] {
		if !tensor.SameShape(is, it.Image.Shape) || !tensor.SameShape(hs, it.Heatmaps.Shape) {
			return nil, fmt.Errorf("%w: item %d has %v/%v, item %d has %v/%v", ErrShapeMismatch,
				items[0].Index, is, hs, it.Index, it.Image.Shape, it.Heatmaps.Shape)
		}
	}

	n := len(items)
	b := &RawBatch{
		Indices:  make([]int, n),
		Images:   tensor.NewU8(append([]int{n}, is...)...),
		Heatmaps: tensor.NewF32(append([]int{n}, hs...)...),
	}
	for i, it := range items {
		b.Indices[i] = it.Index
		copy(b.Images.Plane(i), it.Image.Data)
		copy(b.Heatmaps.Plane(i), it.Heatmaps.Data)
	}
	return b, nil
}

// PostFetchFunc is the batch hook run after collation.
type PostFetchFunc func(rng *rand.Rand, b *RawBatch) (*Batch, error)

// PostProcessor normalizes pixel statistics and optionally jitters the
// batch resolution.
type PostProcessor struct {
	MultiScale bool
	ScaleMin   float64
	ScaleMax   float64
	Stride     int
	// ResizeHeatmaps resizes heatmaps along with the images under
	// multi-scale jitter. When false heatmaps keep their original size.
	ResizeHeatmaps bool
}

func NewPostProcessor(multiScale bool) *PostProcessor {
	return &PostProcessor{
		MultiScale: multiScale,
		ScaleMin:   0.7,
		ScaleMax:   1.5,
		Stride:     32,
	}
}

// Process converts to float, normalizes, and applies multi-scale jitter.
// rng may be nil when MultiScale is off.
func (p *PostProcessor) Process(rng *rand.Rand, b *RawBatch) (*Batch, error) {
	if b == nil || b.Images == nil || b.Heatmaps == nil || len(b.Images.Shape) != 4 || b.Images.Shape[1] != 3 {
		return nil, fmt.Errorf("want [N,3,H,W] images, got %v", shapeOf(b))
	}
	imgs := b.Images.Float()
	Normalize(imgs)

	heats := b.Heatmaps
	if p.MultiScale {
		if rng == nil {
			return nil, fmt.Errorf("multi-scale needs a random source")
		}
		h, w := imgs.Shape[2], imgs.Shape[3]
		nh, nw := p.JitterSize(rng, h, w)

		var err error
		if imgs, err = imgs.Resize(nh, nw); err != nil {
			return nil, err
		}
		if p.ResizeHeatmaps {
			if heats, err = heats.Resize(nh, nw); err != nil {
				return nil, err
			}
		}
	}
	return &Batch{Indices: b.Indices, Images: imgs, Heatmaps: heats}, nil
}

// JitterSize draws one scale for the batch and snaps the result down to a
// multiple of Stride, never below one stride.
func (p *PostProcessor) JitterSize(rng *rand.Rand, h, w int) (int, int) {
	stride := p.Stride
	if stride <= 0 {
		stride = 32
	}
	scale := p.ScaleMin + rng.Float64()*(p.ScaleMax-p.ScaleMin)
	snap := func(v int) int {
		return max(stride, int(float64(v)*scale/float64(stride))*stride)
	}
	return snap(h), snap(w)
}

// Normalize applies (x - Mean) / Std per channel to [N,3,H,W] in place.
func Normalize(imgs *tensor.F32) {
	eachChannel(imgs, func(c int, plane []float32) {
		m, s := Mean[c], Std[c]
		for i, v := range plane {
			plane[i] = (v - m) / s
		}
	})
}

// Denormalize inverts Normalize in place.
func Denormalize(imgs *tensor.F32) {
	eachChannel(imgs, func(c int, plane []float32) {
		m, s := Mean[c], Std[c]
		for i, v := range plane {
			plane[i] = v*s + m
		}
	})
}

func eachChannel(imgs *tensor.F32, fn func(c int, plane []float32)) {
	if len(imgs.Data) == 0 {
		return
	}
	n, c := imgs.Shape[0], imgs.Shape[1]
	hw := len(imgs.Data) / (n * c)
	for i := 0; i < n; i++ {
		for ch := 0; ch < c; ch++ {
			off := (i*c + ch) * hw
			fn(ch, imgs.Data[off:off+hw])
		}
	}
}

func shapeOf(b *RawBatch) []int {
	if b == nil || b.Images == nil {
		return nil
	}
	return b.Images.Shape
}
