package model

import "fmt"

// AnchorGeometry is the candidate box geometry handed to the region-proposal
// stage: one anchor per (size, aspect ratio) pair at each spatial location.
type AnchorGeometry struct {
	Sizes        []int     `json:"sizes"`
	AspectRatios []float64 `json:"aspect_ratios"`
}

// DefaultAnchorGeometry returns the stock multi-scale, multi-aspect-ratio
// geometry used for glue tube detection.
func DefaultAnchorGeometry() AnchorGeometry {
	return AnchorGeometry{
		Sizes:        []int{32, 64, 128, 256, 512},
		AspectRatios: []float64{0.25, 0.5, 0.75, 1.0, 2.0, 3.0, 4.0},
	}
}

// Validate rejects empty or non-positive geometry.
func (a AnchorGeometry) Validate() error {
	if len(a.Sizes) == 0 || len(a.AspectRatios) == 0 {
		return fmt.Errorf("anchor geometry needs at least one size and one aspect ratio")
	}
	for _, s := range a.Sizes {
		if s <= 0 {
			return fmt.Errorf("anchor size %d must be positive", s)
		}
	}
	for _, r := range a.AspectRatios {
		if r <= 0 {
			return fmt.Errorf("anchor aspect ratio %v must be positive", r)
		}
	}
	return nil
}

// NumAnchors returns the anchors evaluated per spatial location.
func (a AnchorGeometry) NumAnchors() int {
	return len(a.Sizes) * len(a.AspectRatios)
}

// Config describes the detector to construct.
type Config struct {
	// NumKeypoints sizes the keypoint head (points per object).
	NumKeypoints int

	// NumClasses counts output classes including background.
	NumClasses int

	// Anchors is the region-proposal geometry.
	Anchors AnchorGeometry
}

// DefaultConfig is the stock detector configuration: background plus the
// glue tube class, the default anchor geometry, and the requested keypoint
// count.
func DefaultConfig(numKeypoints int) Config {
	return Config{
		NumKeypoints: numKeypoints,
		NumClasses:   2,
		Anchors:      DefaultAnchorGeometry(),
	}
}

// Validate checks the config.
func (c Config) Validate() error {
	if c.NumKeypoints <= 0 {
		return fmt.Errorf("num keypoints must be positive, got %d", c.NumKeypoints)
	}
	if c.NumClasses < 2 {
		return fmt.Errorf("num classes must include background and a foreground class, got %d", c.NumClasses)
	}
	return c.Anchors.Validate()
}
