package main

import (
	"image"
	"image/color"

	"github.com/model-collapse/heat-serv/geom"
	"gocv.io/x/gocv"
)

func drawKeypointsOnImage(img *gocv.Mat, g geom.Set, names []string) {
	for _, poly := range g.Polygons {
		p, ok := poly.First()
		if !ok {
			continue
		}
		pt := p.Int()
		gocv.Circle(img, pt, 4, color.RGBA{255, 255, 0, 0}, 2)
		name := "?"
		if poly.Label >= 0 && poly.Label < len(names) {
			name = names[poly.Label]
		}
		gocv.PutText(img, name, pt.Add(image.Pt(6, -6)), gocv.FontHersheyComplex, 0.5, color.RGBA{255, 0, 0, 255}, 1)
	}
}

// blendHeatmap paints a [0,1] plane as a JET colormap over a BGR image.
func blendHeatmap(bgr gocv.Mat, plane []float32) gocv.Mat {
	h, w := bgr.Rows(), bgr.Cols()
	gray := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8U)
	defer gray.Close()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gray.SetUCharAt(y, x, uint8(plane[y*w+x]*255))
		}
	}

	heat := gocv.NewMat()
	defer heat.Close()
	gocv.ApplyColorMap(gray, &heat, gocv.ColormapJet)

	r := gocv.NewMat()
	gocv.AddWeighted(bgr, 0.5, heat, 0.5, 0, &r)
	return r
}
