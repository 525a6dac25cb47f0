package main

import (
	"fmt"
	"math/rand"

	"github.com/model-collapse/heat-serv/dataset"
	"gocv.io/x/gocv"
)

// Scene renders previews of one dataset.
type Scene struct {
	ds *dataset.Dataset
}

func (s *Scene) randomID() int {
	return rand.Intn(s.ds.Len())
}

func (s *Scene) checkIndex(idx int) error {
	if idx < 0 || idx >= s.ds.Len() {
		return fmt.Errorf("%w: %d of %d", dataset.ErrIndexOutOfRange, idx, s.ds.Len())
	}
	return nil
}

// sample returns the transformed sample converted to BGR for drawing and
// encoding. The caller closes both.
func (s *Scene) sample(idx int, rng *rand.Rand) (*dataset.Sample, gocv.Mat, error) {
	if err := s.checkIndex(idx); err != nil {
		return nil, gocv.NewMat(), err
	}
	smp, err := s.ds.Sample(idx, rng)
	if err != nil {
		return nil, gocv.NewMat(), err
	}
	bgr := gocv.NewMat()
	gocv.CvtColor(smp.Image, &bgr, gocv.ColorBGRToRGB) // same code (4) as RGB2BGR in OpenCV
	return smp, bgr, nil
}

// Generate renders a sample, with its keypoints when box is set.
func (s *Scene) Generate(idx int, rng *rand.Rand, box bool) (r gocv.Mat, err error) {
	smp, r, err := s.sample(idx, rng)
	if err != nil {
		return
	}
	defer smp.Close()

	if box {
		drawKeypointsOnImage(&r, smp.Geometry, s.ds.Classes())
	}
	return
}

// Heatmap renders one class plane of a sample blended over its image.
func (s *Scene) Heatmap(idx, class int, rng *rand.Rand) (gocv.Mat, error) {
	if class < 0 || class >= len(s.ds.Classes()) {
		return gocv.NewMat(), fmt.Errorf("class %d not in [0,%d)", class, len(s.ds.Classes()))
	}
	smp, bgr, err := s.sample(idx, rng)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer smp.Close()
	defer bgr.Close()

	return blendHeatmap(bgr, smp.Heatmaps.Plane(class)), nil
}
