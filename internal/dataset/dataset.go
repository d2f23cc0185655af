package dataset

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gorgonia.org/tensor"

	"github.com/ironsheep/keypoint-train/internal/augment"
)

// DefaultPointsPerObject is the fixed keypoint count per glue tube
// (head and tail).
const DefaultPointsPerObject = 2

// Sample is one model-ready training example.
type Sample struct {
	// Input is a (3, H, W) float32 tensor with channel values in [0, 1].
	Input *tensor.Dense

	// Target is the ground truth aligned with Input.
	Target *Target
}

// Dataset adapts an on-disk image/annotation tree into tensors, applying an
// optional augmentation transform per access.
type Dataset struct {
	root            string
	pairs           []Pair
	transform       augment.Transform
	pointsPerObject int
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithTransform sets the augmentation applied on every sample access.
func WithTransform(t augment.Transform) Option {
	return func(d *Dataset) { d.transform = t }
}

// WithPointsPerObject overrides the expected keypoint count per object.
func WithPointsPerObject(n int) Option {
	return func(d *Dataset) { d.pointsPerObject = n }
}

// Open validates the pairing of images and annotations under root and returns
// a dataset over them. Sample data itself is read lazily, fresh per access.
func Open(root string, opts ...Option) (*Dataset, error) {
	d := &Dataset{
		root:            root,
		pointsPerObject: DefaultPointsPerObject,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.pointsPerObject <= 0 {
		return nil, fmt.Errorf("dataset: points per object must be positive, got %d", d.pointsPerObject)
	}

	pairs, err := loadPairs(root)
	if err != nil {
		return nil, err
	}
	d.pairs = pairs
	return d, nil
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.pairs) }

// PointsPerObject returns the expected keypoint count per object.
func (d *Dataset) PointsPerObject() int { return d.pointsPerObject }

// Sample loads, transforms, and packs the sample at idx.
func (d *Dataset) Sample(idx int) (*Sample, error) {
	transformed, _, err := d.load(idx, false)
	return transformed, err
}

// SampleWithOriginal is Sample plus the untransformed version of the same
// example, for visual inspection of what augmentation did.
func (d *Dataset) SampleWithOriginal(idx int) (transformed, original *Sample, err error) {
	return d.load(idx, true)
}

func (d *Dataset) load(idx int, wantOriginal bool) (*Sample, *Sample, error) {
	if idx < 0 || idx >= len(d.pairs) {
		return nil, nil, &DatasetError{Index: idx, Msg: fmt.Sprintf("index out of range [0, %d)", len(d.pairs))}
	}
	pair := d.pairs[idx]

	imgPath := filepath.Join(d.root, "images", pair.Image)
	img, err := loadImage(imgPath)
	if err != nil {
		return nil, nil, &DatasetError{Index: idx, Path: imgPath, Msg: "cannot load image", Err: err}
	}

	annPath := filepath.Join(d.root, "annotations", pair.Annotation)
	ann, err := LoadAnnotation(annPath, d.pointsPerObject)
	if err != nil {
		if de, ok := err.(*DatasetError); ok {
			de.Index = idx
		}
		return nil, nil, err
	}

	outImg := image.Image(img)
	boxes := ann.BBoxes
	keypoints := ann.Keypoints

	if d.transform != nil {
		// The transform only understands bare coordinates, so visibility
		// is stripped here and reattached below.
		labels := make([]string, len(ann.BBoxes))
		for i := range labels {
			labels[i] = GlueTubeLabel
		}

		out, err := d.transform.Apply(&augment.Input{
			Image:     img,
			Boxes:     ann.BBoxes,
			BoxLabels: labels,
			Keypoints: FlattenKeypoints(ann.Keypoints),
		})
		if err != nil {
			return nil, nil, &DatasetError{Index: idx, Path: imgPath, Msg: "transform failed", Err: err}
		}

		grouped, err := UnflattenKeypoints(out.Keypoints, d.pointsPerObject)
		if err != nil {
			return nil, nil, &DatasetError{Index: idx, Path: imgPath, Msg: "cannot regroup transformed keypoints", Err: err}
		}
		if len(out.Boxes) != len(grouped) || len(out.Boxes) != len(ann.BBoxes) {
			return nil, nil, &DataInconsistencyError{
				Index:     idx,
				BoxCount:  len(out.Boxes),
				Objects:   len(grouped),
				WantBoxes: len(ann.BBoxes),
			}
		}

		keypoints, err = ReattachVisibility(grouped, ann.Keypoints)
		if err != nil {
			return nil, nil, &DatasetError{Index: idx, Path: imgPath, Msg: "cannot reattach visibility", Err: err}
		}
		outImg = out.Image
		boxes = out.Boxes
	}

	target, err := NewTarget(idx, boxes, keypoints, d.pointsPerObject)
	if err != nil {
		return nil, nil, &DatasetError{Index: idx, Path: annPath, Msg: "cannot pack target", Err: err}
	}
	transformed := &Sample{Input: ImageToTensor(outImg), Target: target}

	if !wantOriginal {
		return transformed, nil, nil
	}

	origTarget, err := NewTarget(idx, ann.BBoxes, ann.Keypoints, d.pointsPerObject)
	if err != nil {
		return nil, nil, &DatasetError{Index: idx, Path: annPath, Msg: "cannot pack original target", Err: err}
	}
	original := &Sample{Input: ImageToTensor(img), Target: origTarget}
	return transformed, original, nil
}

// loadImage decodes an image file into RGB pixel data.
func loadImage(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return imaging.Clone(img), nil
}

// ImageToTensor converts an image into a (3, H, W) float32 tensor with
// channel values scaled to [0, 1].
func ImageToTensor(img image.Image) *tensor.Dense {
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	w, h := b.Dx(), b.Dy()

	data := make([]float32, 3*h*w)
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := nrgba.PixOffset(b.Min.X+x, b.Min.Y+y)
			data[0*plane+y*w+x] = float32(nrgba.Pix[off+0]) / 255
			data[1*plane+y*w+x] = float32(nrgba.Pix[off+1]) / 255
			data[2*plane+y*w+x] = float32(nrgba.Pix[off+2]) / 255
		}
	}
	return tensor.New(tensor.WithShape(3, h, w), tensor.WithBacking(data))
}

// TensorToImage is the inverse of ImageToTensor, used when rendering samples
// back out for inspection.
func TensorToImage(t *tensor.Dense) (*image.NRGBA, error) {
	shape := t.Shape()
	if len(shape) != 3 || shape[0] != 3 {
		return nil, fmt.Errorf("expected a (3, H, W) tensor, got %v", shape)
	}
	h, w := shape[1], shape[2]
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("expected a float32 tensor, got %T", t.Data())
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	plane := h * w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := img.PixOffset(x, y)
			img.Pix[off+0] = clampByte(data[0*plane+y*w+x])
			img.Pix[off+1] = clampByte(data[1*plane+y*w+x])
			img.Pix[off+2] = clampByte(data[2*plane+y*w+x])
			img.Pix[off+3] = 255
		}
	}
	return img, nil
}

func clampByte(v float32) uint8 {
	scaled := v * 255
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return uint8(scaled + 0.5)
}
