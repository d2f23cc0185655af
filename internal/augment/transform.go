package augment

import (
	"fmt"
	"image"
	"math/rand"
)

// Input carries an image and its aligned annotation data into a transform.
type Input struct {
	Image image.Image

	// Boxes are [x1,y1,x2,y2] corner coordinates, one per object.
	Boxes [][]float64

	// BoxLabels has one label per box. Transforms carry labels through
	// unchanged so box/label correspondence survives the pipeline.
	BoxLabels []string

	// Keypoints are bare [x,y] pairs. Grouping into objects is the
	// caller's concern; transforms treat this as a flat coordinate list.
	Keypoints [][]float64
}

// Output is the transformed counterpart of an Input.
type Output struct {
	Image     image.Image
	Boxes     [][]float64
	BoxLabels []string
	Keypoints [][]float64
}

// Transform applies one augmentation step to an image and its coordinates.
type Transform interface {
	Apply(in *Input) (*Output, error)
}

// Compose chains transforms, feeding each one's output into the next.
type Compose struct {
	Transforms []Transform
}

// NewCompose builds a composed pipeline from the given transforms.
func NewCompose(transforms ...Transform) *Compose {
	return &Compose{Transforms: transforms}
}

// Apply runs every transform in order.
func (c *Compose) Apply(in *Input) (*Output, error) {
	out := &Output{
		Image:     in.Image,
		Boxes:     in.Boxes,
		BoxLabels: in.BoxLabels,
		Keypoints: in.Keypoints,
	}
	for i, t := range c.Transforms {
		next, err := t.Apply(&Input{
			Image:     out.Image,
			Boxes:     out.Boxes,
			BoxLabels: out.BoxLabels,
			Keypoints: out.Keypoints,
		})
		if err != nil {
			return nil, fmt.Errorf("transform %d: %w", i, err)
		}
		out = next
	}
	return out, nil
}

// TrainTransform returns the stock training pipeline: a random 90° rotation
// followed by brightness/contrast jitter within ±0.3.
func TrainTransform(rng *rand.Rand) *Compose {
	return NewCompose(
		&RandomRotate90{Rand: rng},
		&RandomBrightnessContrast{
			BrightnessLimit: 0.3,
			ContrastLimit:   0.3,
			Rand:            rng,
		},
	)
}

func cloneBoxes(boxes [][]float64) [][]float64 {
	out := make([][]float64, len(boxes))
	for i, b := range boxes {
		out[i] = append([]float64(nil), b...)
	}
	return out
}

func clonePoints(points [][]float64) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = append([]float64(nil), p...)
	}
	return out
}
