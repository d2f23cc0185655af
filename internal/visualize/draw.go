// Package visualize renders annotated samples for inspection: bounding boxes,
// named keypoints, and side-by-side original/augmented comparison sheets.
package visualize

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultKeypointNames labels the glue tube's two points by index.
var DefaultKeypointNames = []string{"Head", "Tail"}

var boxColor = color.NRGBA{0, 255, 0, 255}

// Options controls rendering.
type Options struct {
	// KeypointNames maps keypoint index to label. Defaults to
	// DefaultKeypointNames; indices beyond the list are unlabeled.
	KeypointNames []string

	// Radius is the keypoint marker radius in pixels. Default 4.
	Radius int
}

func (o *Options) names() []string {
	if o != nil && o.KeypointNames != nil {
		return o.KeypointNames
	}
	return DefaultKeypointNames
}

func (o *Options) radius() int {
	if o != nil && o.Radius > 0 {
		return o.Radius
	}
	return 4
}

// Annotated draws boxes and keypoints over a copy of img. Boxes are
// [x1,y1,x2,y2] corners; keypoints are per-object [x, y, visibility] triples.
// Each keypoint index gets its own color, stable across objects.
func Annotated(img image.Image, boxes [][]float64, keypoints [][][]float64, opts *Options) *image.NRGBA {
	out := imaging.Clone(img)

	for _, b := range boxes {
		if len(b) != 4 {
			continue
		}
		drawRect(out, int(b[0]), int(b[1]), int(b[2]), int(b[3]), boxColor)
	}

	names := opts.names()
	radius := opts.radius()
	for _, obj := range keypoints {
		for k, kp := range obj {
			if len(kp) < 2 {
				continue
			}
			c := keypointColor(k)
			x, y := int(kp[0]), int(kp[1])
			drawDisc(out, x, y, radius, c)
			if k < len(names) {
				drawText(out, x+radius+2, y+4, names[k], c)
			}
		}
	}
	return out
}

// SideBySide renders the original and transformed versions of a sample next
// to each other on one sheet, original on the left.
func SideBySide(original, transformed *image.NRGBA) *image.NRGBA {
	const gutter = 8
	w := original.Bounds().Dx() + gutter + transformed.Bounds().Dx()
	h := original.Bounds().Dy()
	if th := transformed.Bounds().Dy(); th > h {
		h = th
	}

	sheet := imaging.New(w, h, color.NRGBA{24, 24, 24, 255})
	sheet = imaging.Paste(sheet, original, image.Pt(0, 0))
	sheet = imaging.Paste(sheet, transformed, image.Pt(original.Bounds().Dx()+gutter, 0))
	return sheet
}

// SavePNG writes an image to disk.
func SavePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// keypointColor assigns a stable, well-separated color per keypoint index.
func keypointColor(idx int) color.NRGBA {
	hue := float64((idx*137)%360)
	c := colorful.Hsv(hue, 0.9, 0.95)
	r, g, b := c.RGB255()
	return color.NRGBA{r, g, b, 255}
}

func drawRect(img *image.NRGBA, x1, y1, x2, y2 int, c color.NRGBA) {
	for x := x1; x <= x2; x++ {
		setIfInside(img, x, y1, c)
		setIfInside(img, x, y2, c)
	}
	for y := y1; y <= y2; y++ {
		setIfInside(img, x1, y, c)
		setIfInside(img, x2, y, c)
	}
}

func drawDisc(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				setIfInside(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func setIfInside(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}

// drawText draws a label using the basic 7x13 font.
func drawText(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
