package tensor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// FromMat copies an 8-bit HxWxC Mat into a [C,H,W] tensor.
func FromMat(m gocv.Mat) (*U8, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty mat")
	}
	h, w, c := m.Rows(), m.Cols(), m.Channels()
	if m.Type() != gocv.MatTypeCV8UC3 && m.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("unsupported mat type %v", m.Type())
	}

	hwc := m.ToBytes()
	r := NewU8(c, h, w)
	for ch := 0; ch < c; ch++ {
		plane := r.Plane(ch)
		for i := range plane {
			plane[i] = hwc[i*c+ch]
		}
	}
	return r, nil
}

// ResizePlane bilinearly resizes one h x w float plane to nh x nw.
func ResizePlane(src []float32, h, w, nh, nw int) ([]float32, error) {
	if len(src) != h*w {
		return nil, fmt.Errorf("plane has %d values, want %d", len(src), h*w)
	}
	if nh <= 0 || nw <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", nw, nh)
	}

	in := gocv.NewMatWithSize(h, w, gocv.MatTypeCV32F)
	defer in.Close()
	ptr, err := in.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	copy(ptr, src)

	out := gocv.NewMat()
	defer out.Close()
	gocv.Resize(in, &out, image.Pt(nw, nh), 0, 0, gocv.InterpolationLinear)

	res, err := out.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	return append([]float32(nil), res...), nil
}

// Resize resizes every [H,W] plane of a tensor whose last two axes are
// spatial, returning a new tensor.
func (t *F32) Resize(nh, nw int) (*F32, error) {
	if len(t.Shape) < 2 {
		return nil, fmt.Errorf("tensor of shape %v has no spatial axes", t.Shape)
	}
	d := len(t.Shape)
	h, w := t.Shape[d-2], t.Shape[d-1]
	if h == 0 || w == 0 {
		return nil, fmt.Errorf("tensor of shape %v is empty", t.Shape)
	}
	shape := append([]int(nil), t.Shape...)
	shape[d-2], shape[d-1] = nh, nw
	r := NewF32(shape...)

	planes := len(t.Data) / (h * w)
	for i := 0; i < planes; i++ {
		p, err := ResizePlane(t.Data[i*h*w:(i+1)*h*w], h, w, nh, nw)
		if err != nil {
			return nil, err
		}
		copy(r.Data[i*nh*nw:], p)
	}
	return r, nil
}
