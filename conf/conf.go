// Package conf is the JSON configuration shared by the preview server and
// heat_dump.
package conf

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/model-collapse/heat-serv/augment"
	"github.com/model-collapse/heat-serv/dataset"
	"github.com/model-collapse/heat-serv/heatmap"
)

type HeatmapConfig struct {
	Sigma      float64 `json:"sigma"`
	Radius     float64 `json:"radius"`
	Duplicates string  `json:"duplicates"`
}

type Config struct {
	Manifest       string         `json:"manifest"`
	ImageSize      [2]int         `json:"image_size"`
	Rect           bool           `json:"rect"`
	MultiScale     bool           `json:"multi_scale"`
	ResizeHeatmaps bool           `json:"resize_heatmaps"`
	Augment        augment.Config `json:"augment"`
	Heatmap        HeatmapConfig  `json:"heatmap"`
	Keypoint       string         `json:"keypoint"`
	Listen         string         `json:"listen"`
	Workers        int            `json:"workers"`
	BatchSize      int            `json:"batch_size"`
	Seed           int64          `json:"seed"`
}

func Default() Config {
	return Config{
		ImageSize: [2]int{224, 224},
		Augment:   augment.DefaultConfig(),
		Heatmap:   HeatmapConfig{Sigma: heatmap.DefaultSigma},
		Listen:    "0.0.0.0:8093",
		Workers:   10,
		BatchSize: 16,
	}
}

// Load reads a config file over the defaults. A relative manifest path is
// resolved against the config file's directory.
func Load(path string) (c Config, err error) {
	c = Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	if err = json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Manifest != "" && !filepath.IsAbs(c.Manifest) {
		c.Manifest = filepath.Join(filepath.Dir(path), c.Manifest)
	}
	return c, c.Validate()
}

func (c *Config) Validate() error {
	if c.ImageSize[0] <= 0 || c.ImageSize[1] <= 0 {
		return fmt.Errorf("image_size must be positive, got %v", c.ImageSize)
	}
	if _, err := heatmap.ParseDuplicates(c.Heatmap.Duplicates); err != nil {
		return err
	}
	if err := c.Augment.Validate(); err != nil {
		return err
	}
	if _, err := dataset.ParseKeypointMode(c.Keypoint); err != nil {
		return err
	}
	return nil
}

func (c *Config) Size() image.Point {
	return image.Pt(c.ImageSize[0], c.ImageSize[1])
}

func (c *Config) Synthesizer() (*heatmap.Synthesizer, error) {
	dup, err := heatmap.ParseDuplicates(c.Heatmap.Duplicates)
	if err != nil {
		return nil, err
	}
	return &heatmap.Synthesizer{Sigma: c.Heatmap.Sigma, Radius: c.Heatmap.Radius, Duplicates: dup}, nil
}

// Dataset loads the manifest and builds the dataset it describes.
func (c *Config) Dataset(log logs.Log) (*dataset.Dataset, error) {
	mode, err := dataset.ParseKeypointMode(c.Keypoint)
	if err != nil {
		return nil, err
	}
	synth, err := c.Synthesizer()
	if err != nil {
		return nil, err
	}
	loader, err := dataset.NewCocoLoader(c.Manifest, mode)
	if err != nil {
		return nil, err
	}
	log.Infof("Loaded %d images from %s", loader.Len(), loader.Root)
	return dataset.New(log, loader, loader.Classes, dataset.Options{
		Size:    c.Size(),
		Rect:    c.Rect,
		Augment: augment.FromConfig(c.Augment),
		Heatmap: synth,
	}), nil
}

func (c *Config) PostProcessor() *dataset.PostProcessor {
	p := dataset.NewPostProcessor(c.MultiScale)
	p.ResizeHeatmaps = c.ResizeHeatmaps
	return p
}

// BatchLoader wires the dataset into a worker pool using this config.
func (c *Config) BatchLoader(log logs.Log, ds *dataset.Dataset) *dataset.BatchLoader {
	l := dataset.NewBatchLoader(log, ds, c.BatchSize, c.Workers)
	l.Shuffle = true
	l.Seed = c.Seed
	l.Post = c.PostProcessor().Process
	return l
}
