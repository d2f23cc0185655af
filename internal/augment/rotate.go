package augment

import (
	"fmt"
	"math/rand"

	"github.com/disintegration/imaging"
)

// RandomRotate90 rotates the image by a random multiple of 90° counter-clockwise
// and remaps boxes and keypoints with the same mapping.
type RandomRotate90 struct {
	// Times fixes the number of quarter turns (0-3) when non-nil.
	// When nil, the number of turns is drawn uniformly from 0-3.
	Times *int

	// Rand is the randomness source. Falls back to the global source when nil.
	Rand *rand.Rand
}

// Apply rotates the image and its coordinates.
func (t *RandomRotate90) Apply(in *Input) (*Output, error) {
	turns := 0
	if t.Times != nil {
		turns = *t.Times
	} else if t.Rand != nil {
		turns = t.Rand.Intn(4)
	} else {
		turns = rand.Intn(4)
	}
	if turns < 0 || turns > 3 {
		return nil, fmt.Errorf("rotate90: turns must be in 0-3, got %d", turns)
	}

	img := in.Image
	bounds := img.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	boxes := cloneBoxes(in.Boxes)
	points := clonePoints(in.Keypoints)

	for i := 0; i < turns; i++ {
		img = imaging.Rotate90(img)
		for _, b := range boxes {
			x1, y1 := rotatePointCCW(b[0], b[1], w)
			x2, y2 := rotatePointCCW(b[2], b[3], w)
			b[0], b[1], b[2], b[3] = min2(x1, x2), min2(y1, y2), max2(x1, x2), max2(y1, y2)
		}
		for _, p := range points {
			p[0], p[1] = rotatePointCCW(p[0], p[1], w)
		}
		w, h = h, w
	}

	return &Output{
		Image:     img,
		Boxes:     boxes,
		BoxLabels: in.BoxLabels,
		Keypoints: points,
	}, nil
}

// rotatePointCCW maps (x, y) in a width-w frame through one 90° counter-clockwise
// turn: the point lands at (y, w-1-x), matching how pixel indices move.
func rotatePointCCW(x, y, w float64) (float64, float64) {
	return y, w - 1 - x
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
