package main

import (
	"image"
	"image/color"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/model-collapse/heat-serv/dataset"
	xdraw "golang.org/x/image/draw"
)

var classColors = []color.RGBA{
	{255, 64, 64, 255},
	{64, 255, 64, 255},
	{64, 128, 255, 255},
	{255, 255, 64, 255},
	{255, 64, 255, 255},
	{64, 255, 255, 255},
}

func classColor(c int) color.RGBA {
	if c < 0 {
		return color.RGBA{255, 255, 255, 255}
	}
	return classColors[c%len(classColors)]
}

// renderSample paints the strongest heatmap response of each pixel over the
// RGB image, tinted with its class color, and marks every keypoint.
func renderSample(s *dataset.Sample) *image.RGBA {
	w, h := s.Image.Cols(), s.Image.Rows()
	rgb := s.Image.ToBytes()
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	classes := s.Heatmaps.Shape[0]

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			best, bc := float32(0), -1
			for c := 0; c < classes; c++ {
				if v := s.Heatmaps.Plane(c)[i]; v > best {
					best, bc = v, c
				}
			}
			tint := classColor(bc)
			a := best * 0.6
			px := color.RGBA{
				R: uint8(float32(rgb[i*3])*(1-a) + float32(tint.R)*a),
				G: uint8(float32(rgb[i*3+1])*(1-a) + float32(tint.G)*a),
				B: uint8(float32(rgb[i*3+2])*(1-a) + float32(tint.B)*a),
				A: 255,
			}
			out.SetRGBA(x, y, px)
		}
	}

	gc := draw2dimg.NewGraphicContext(out)
	gc.SetLineWidth(1.5)
	for _, poly := range s.Geometry.Polygons {
		p, ok := poly.First()
		if !ok {
			continue
		}
		gc.SetStrokeColor(classColor(poly.Label))
		gc.MoveTo(p.X-6, p.Y)
		gc.LineTo(p.X+6, p.Y)
		gc.MoveTo(p.X, p.Y-6)
		gc.LineTo(p.X, p.Y+6)
		gc.Stroke()

		draw2dkit.Circle(gc, p.X, p.Y, 4)
		gc.Stroke()
	}
	return out
}

// thumbnail scales img so its longest side is size. Smaller images are
// returned unchanged.
func thumbnail(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	long := b.Dx()
	if b.Dy() > long {
		long = b.Dy()
	}
	if size <= 0 || long <= size {
		return img
	}
	w := max(1, b.Dx()*size/long)
	h := max(1, b.Dy()*size/long)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
