package augment

import "fmt"

// Config describes the stochastic augmentation stage. A nil op section
// leaves that op out of the pipeline.
type Config struct {
	Enabled bool `json:"enabled"`
	MinOps  int  `json:"min_ops"`
	MaxOps  int  `json:"max_ops"`

	Dropout *DropoutConfig `json:"dropout,omitempty"`
	Affine  *AffineConfig  `json:"affine,omitempty"`
	FlipLR  *FlipConfig    `json:"fliplr,omitempty"`
	FlipUD  *FlipConfig    `json:"flipud,omitempty"`
}

type DropoutConfig struct {
	Fraction Range `json:"fraction"`
}

type AffineConfig struct {
	Scale     Range `json:"scale"`
	Translate Range `json:"translate"`
	Rotate    Range `json:"rotate"`
	Shear     Range `json:"shear"`
}

type FlipConfig struct {
	P float64 `json:"p"`
}

// DefaultConfig is the training pipeline: up to three of pixel dropout,
// affine and the two flips.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		MinOps:  0,
		MaxOps:  3,
		Dropout: &DropoutConfig{Fraction: Range{0.015, 0.1}},
		Affine: &AffineConfig{
			Scale:     Range{0.8, 1.2},
			Translate: Range{-0.1, 0.1},
			Rotate:    Range{-45, 45},
			Shear:     Range{-0.1, 0.1},
		},
		FlipLR: &FlipConfig{P: 0.1},
		FlipUD: &FlipConfig{P: 0.1},
	}
}

// Validate rejects op counts SomeOf cannot draw from.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MinOps < 0 || c.MaxOps < c.MinOps {
		return fmt.Errorf("augment needs 0 <= min_ops <= max_ops, got %d and %d", c.MinOps, c.MaxOps)
	}
	return nil
}

// FromConfig builds the augmenter, or returns nil when augmentation is off.
func FromConfig(c Config) Augmenter {
	if !c.Enabled {
		return nil
	}
	var children []Augmenter
	if c.Dropout != nil {
		children = append(children, PixelDropout{Fraction: c.Dropout.Fraction})
	}
	if c.Affine != nil {
		children = append(children, RandomAffine{
			Scale:     c.Affine.Scale,
			Translate: c.Affine.Translate,
			Rotate:    c.Affine.Rotate,
			Shear:     c.Affine.Shear,
		})
	}
	if c.FlipLR != nil {
		children = append(children, RandomFlip{Horizontal: true, P: c.FlipLR.P})
	}
	if c.FlipUD != nil {
		children = append(children, RandomFlip{Horizontal: false, P: c.FlipUD.P})
	}
	return SomeOf{Min: c.MinOps, Max: c.MaxOps, Children: children}
}
