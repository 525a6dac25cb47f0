// Package dataset turns annotated images into (image, heatmap) training
// pairs and batches them.
package dataset

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/model-collapse/heat-serv/geom"
	"gocv.io/x/gocv"
)

// SampleLoader resolves one example into RGB pixels and keypoint geometry.
// The caller owns the returned Mat.
type SampleLoader interface {
	Len() int
	Fetch(idx int) (gocv.Mat, geom.Set, error)
}

type Annotation struct {
	Class  int
	Points []geom.Point
}

// Record is one example. Data, when set, holds encoded image bytes and
// takes precedence over Path.
type Record struct {
	Path        string
	Data        []byte
	Annotations []Annotation
}

func (r Record) name() string {
	if r.Path != "" {
		return r.Path
	}
	return fmt.Sprintf("<%d bytes>", len(r.Data))
}

// RecordLoader serves a fixed list of records, decoding pixels on Fetch.
type RecordLoader struct {
	Records []Record
}

func NewMemoryLoader(records []Record) *RecordLoader {
	return &RecordLoader{Records: records}
}

func (l *RecordLoader) Len() int {
	return len(l.Records)
}

func (l *RecordLoader) Fetch(idx int) (gocv.Mat, geom.Set, error) {
	if idx < 0 || idx >= len(l.Records) {
		return gocv.NewMat(), geom.Set{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, idx, len(l.Records))
	}
	rec := l.Records[idx]

	img, err := decode(rec)
	if err != nil {
		return gocv.NewMat(), geom.Set{}, err
	}
	defer img.Close()

	rgb := gocv.NewMat()
	gocv.CvtColor(img, &rgb, gocv.ColorBGRToRGB)

	g := geom.Set{
		Width:    rgb.Cols(),
		Height:   rgb.Rows(),
		Polygons: make([]geom.Polygon, 0, len(rec.Annotations)),
	}
	for _, ann := range rec.Annotations {
		g.Polygons = append(g.Polygons, geom.Polygon{
			Label:    ann.Class,
			Exterior: append([]geom.Point(nil), ann.Points...),
		})
	}
	return rgb, g, nil
}

func decode(rec Record) (gocv.Mat, error) {
	var img gocv.Mat
	if rec.Data != nil {
		var err error
		img, err = gocv.IMDecode(rec.Data, gocv.IMReadColor)
		if err != nil {
			img.Close()
			return gocv.NewMat(), fmt.Errorf("%w: %s: %v", ErrDecode, rec.name(), err)
		}
	} else {
		img = gocv.IMRead(rec.Path, gocv.IMReadColor)
	}
	if img.Empty() {
		img.Close()
		return gocv.NewMat(), fmt.Errorf("%w: missing or unreadable image %s", ErrDecode, rec.name())
	}
	return img, nil
}

// CocoLoader is a RecordLoader built from a COCO manifest.
type CocoLoader struct {
	RecordLoader
	Classes []string
	Root    string
}

// NewCocoLoader reads the manifest at path. Image file names resolve
// relative to the manifest's directory.
func NewCocoLoader(path string, mode KeypointMode) (*CocoLoader, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return NewCocoLoaderFromManifest(m, filepath.Dir(path), mode)
}

func NewCocoLoaderFromManifest(m *Manifest, root string, mode KeypointMode) (*CocoLoader, error) {
	ordinal := BuildImageIndex(m.Images)

	records := make([]Record, len(m.Images))
	for i, img := range m.Images {
		records[i].Path = filepath.Join(root, img.FileName)
	}
	for _, ann := range m.Annotations {
		i, ok := ordinal[ann.ImageID]
		if !ok {
			return nil, fmt.Errorf("%w: annotation %d has image_id %d", ErrUnknownImage, ann.ID, ann.ImageID)
		}
		records[i].Annotations = append(records[i].Annotations, Annotation{
			Class:  ann.CategoryID,
			Points: mode.Keypoint(ann.BBox),
		})
	}
	sort.SliceStable(records, func(a, b int) bool { return records[a].Path < records[b].Path })

	return &CocoLoader{
		RecordLoader: RecordLoader{Records: records},
		Classes:      m.ClassNames(),
		Root:         root,
	}, nil
}

// BuildImageIndex maps image ids to their position in imgs. When an id
// repeats, the first occurrence wins.
func BuildImageIndex(imgs []ImageInfo) (ret map[int64]int) {
	ret = make(map[int64]int, len(imgs))
	for i, img := range imgs {
		if _, ok := ret[img.ID]; !ok {
			ret[img.ID] = i
		}
	}

	return
}
