package dataset

import (
	"fmt"
	"image"
	"math/rand"

	"github.com/cyclopcam/logs"
	"github.com/model-collapse/heat-serv/augment"
	"github.com/model-collapse/heat-serv/geom"
	"github.com/model-collapse/heat-serv/heatmap"
	"github.com/model-collapse/heat-serv/tensor"
	"gocv.io/x/gocv"
)

// Options configures how samples are transformed and rendered.
type Options struct {
	Size    image.Point
	Rect    bool
	Augment augment.Augmenter // nil disables augmentation
	Heatmap *heatmap.Synthesizer
}

// Dataset resolves indices into transformed samples. It holds no mutable
// state and may be shared between goroutines.
type Dataset struct {
	log     logs.Log
	loader  SampleLoader
	classes []string
	coord   *augment.Coordinator
	synth   *heatmap.Synthesizer
}

func New(log logs.Log, loader SampleLoader, classes []string, opt Options) *Dataset {
	synth := opt.Heatmap
	if synth == nil {
		synth = heatmap.New()
	}
	log.Infof("Dataset: %d samples, %d classes, size %v, rect %v, augment %v", loader.Len(), len(classes), opt.Size, opt.Rect, opt.Augment != nil)
	return &Dataset{
		log:     log,
		loader:  loader,
		classes: append([]string(nil), classes...),
		coord:   augment.NewCoordinator(opt.Size, opt.Rect, opt.Augment),
		synth:   synth,
	}
}

func (d *Dataset) Len() int {
	return d.loader.Len()
}

func (d *Dataset) Classes() []string {
	return d.classes
}

func (d *Dataset) Size() image.Point {
	return d.coord.Size
}

// Sample is a transformed example, still as a Mat so it can be drawn on.
type Sample struct {
	Index    int
	Image    gocv.Mat // RGB, exactly the configured size
	Geometry geom.Set
	Heatmaps *tensor.F32
}

func (s *Sample) Close() {
	s.Image.Close()
}

// Sample fetches, transforms and renders one example. rng drives the
// augmentation draw; nil disables it.
func (d *Dataset) Sample(idx int, rng *rand.Rand) (*Sample, error) {
	raw, g, err := d.loader.Fetch(idx)
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	img, g, err := d.coord.Apply(rng, raw, g)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", idx, err)
	}

	heats, err := d.synth.Render(len(d.classes), img.Rows(), img.Cols(), g)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("sample %d: %w", idx, err)
	}
	return &Sample{Index: idx, Image: img, Geometry: g, Heatmaps: heats}, nil
}

// Item is the training pair: a [3,H,W] uint8 image and a [classes,H,W]
// float heatmap stack.
type Item struct {
	Index    int
	Image    *tensor.U8
	Heatmaps *tensor.F32
}

func (d *Dataset) Item(idx int, rng *rand.Rand) (*Item, error) {
	s, err := d.Sample(idx, rng)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	img, err := tensor.FromMat(s.Image)
	if err != nil {
		return nil, fmt.Errorf("sample %d: %w", idx, err)
	}
	return &Item{Index: idx, Image: img, Heatmaps: s.Heatmaps}, nil
}
