package dataset

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/model-collapse/heat-serv/geom"
)

type ImageInfo struct {
	ID       int64  `json:"id"`
	FileName string `json:"file_name"`
}

type AnnotationInfo struct {
	ID         int64     `json:"id"`
	ImageID    int64     `json:"image_id"`
	CategoryID int       `json:"category_id"`
	BBox       []float64 `json:"bbox"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Manifest is a COCO-style annotation file.
type Manifest struct {
	Images      []ImageInfo      `json:"images"`
	Annotations []AnnotationInfo `json:"annotations"`
	Categories  []Category       `json:"categories"`
}

func LoadManifest(path string) (ret *Manifest, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	if err = json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if ret == nil {
		return nil, fmt.Errorf("manifest %s is empty", path)
	}
	return
}

// ClassNames returns the category names in manifest order. Category ids in
// annotations index into this list.
func (m *Manifest) ClassNames() []string {
	ret := make([]string, 0, len(m.Categories))
	for _, c := range m.Categories {
		ret = append(ret, c.Name)
	}
	return ret
}

// KeypointMode selects which point of a bbox becomes the keypoint.
type KeypointMode int

const (
	// KeypointCorner uses the first two bbox values, the top-left corner.
	KeypointCorner KeypointMode = iota
	// KeypointCenter uses the center of the [x,y,w,h] box.
	KeypointCenter
)

func ParseKeypointMode(s string) (KeypointMode, error) {
	switch s {
	case "", "corner":
		return KeypointCorner, nil
	case "center":
		return KeypointCenter, nil
	}
	return 0, fmt.Errorf("unknown keypoint mode %q", s)
}

// Keypoint reduces a bbox to its keypoint. Boxes too short for the mode
// give no points, and such annotations later contribute nothing.
func (k KeypointMode) Keypoint(bbox []float64) []geom.Point {
	switch {
	case k == KeypointCenter && len(bbox) >= 4:
		return []geom.Point{geom.Pt(bbox[0]+bbox[2]/2, bbox[1]+bbox[3]/2)}
	case k == KeypointCorner && len(bbox) >= 2:
		return []geom.Point{geom.Pt(bbox[0], bbox[1])}
	}
	return nil
}
