package augment

import (
	"fmt"
	"math/rand"

	"github.com/anthonynsimon/bild/adjust"
)

// RandomBrightnessContrast jitters brightness and contrast by random amounts
// drawn from ±BrightnessLimit and ±ContrastLimit. Coordinates pass through
// unchanged; this is a purely photometric transform.
type RandomBrightnessContrast struct {
	// BrightnessLimit bounds the relative brightness change (0.3 = ±30%).
	BrightnessLimit float64

	// ContrastLimit bounds the relative contrast change.
	ContrastLimit float64

	// Rand is the randomness source. Falls back to the global source when nil.
	Rand *rand.Rand
}

// Apply adjusts the image's brightness and contrast.
func (t *RandomBrightnessContrast) Apply(in *Input) (*Output, error) {
	if t.BrightnessLimit < 0 || t.ContrastLimit < 0 {
		return nil, fmt.Errorf("brightness/contrast limits must be non-negative, got %v/%v",
			t.BrightnessLimit, t.ContrastLimit)
	}

	uniform := func(limit float64) float64 {
		if limit == 0 {
			return 0
		}
		if t.Rand != nil {
			return (t.Rand.Float64()*2 - 1) * limit
		}
		return (rand.Float64()*2 - 1) * limit
	}

	img := adjust.Brightness(in.Image, uniform(t.BrightnessLimit))
	img = adjust.Contrast(img, uniform(t.ContrastLimit))

	return &Output{
		Image:     img,
		Boxes:     in.Boxes,
		BoxLabels: in.BoxLabels,
		Keypoints: in.Keypoints,
	}, nil
}
