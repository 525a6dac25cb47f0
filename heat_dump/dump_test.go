package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/model-collapse/heat-serv/augment"
	"github.com/model-collapse/heat-serv/dataset"
	"github.com/stretchr/testify/require"
)

func encodedGray(t *testing.T, w, h int) []byte {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDumpAll(t *testing.T) {
	log := logs.NewTestingLog(t)
	recs := []dataset.Record{
		{Data: encodedGray(t, 50, 40), Annotations: []dataset.Annotation{{Class: 0, Points: dataset.KeypointCorner.Keypoint([]float64{20, 10})}}},
		{Path: filepath.Join(t.TempDir(), "gone.png")},
		{Data: encodedGray(t, 30, 60), Annotations: []dataset.Annotation{{Class: 1, Points: dataset.KeypointCorner.Keypoint([]float64{5, 50})}}},
	}
	ds := dataset.New(log, dataset.NewMemoryLoader(recs), []string{"a", "b"}, dataset.Options{
		Size:    image.Pt(64, 64),
		Augment: augment.FromConfig(augment.DefaultConfig()),
	})

	dir := t.TempDir()
	failed := dumpAll(log, ds, 2, 1, true, dir, 32)
	require.Equal(t, 1, failed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	f, err := os.Open(filepath.Join(dir, "000002.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 32, 32), img.Bounds())
}

func TestRenderMarksKeypoint(t *testing.T) {
	log := logs.NewTestingLog(t)
	recs := []dataset.Record{
		{Data: encodedGray(t, 64, 64), Annotations: []dataset.Annotation{{Class: 0, Points: dataset.KeypointCorner.Keypoint([]float64{32, 32})}}},
	}
	ds := dataset.New(log, dataset.NewMemoryLoader(recs), []string{"a"}, dataset.Options{Size: image.Pt(64, 64)})
	s, err := ds.Sample(0, nil)
	require.NoError(t, err)
	defer s.Close()

	out := renderSample(s)
	// the peak is tinted toward the class color, the corner is untouched
	peak := out.RGBAAt(32, 32)
	corner := out.RGBAAt(0, 0)
	require.Greater(t, peak.R, peak.G)
	require.Equal(t, uint8(128), corner.R)
	require.InDelta(t, 128, int(corner.G), 1)

	require.Same(t, out, thumbnail(out, 0))
	require.Same(t, out, thumbnail(out, 128))
	require.Equal(t, image.Rect(0, 0, 16, 16), thumbnail(out, 16).Bounds())
}
