package dataset

import (
	"fmt"

	"gorgonia.org/tensor"
)

// GlueTubeLabel is the single foreground class; every annotated object is one.
const GlueTubeLabel = "glue_tube"

// foregroundClass is the label id the detector uses for glue tubes
// (0 is background).
const foregroundClass = 1

// Target holds one image's ground truth in the layout the detection model
// expects.
type Target struct {
	// Boxes is an (n, 4) float32 tensor of [x1,y1,x2,y2] corner boxes.
	Boxes *tensor.Dense

	// Labels is an (n) int64 tensor, every entry the foreground class.
	Labels *tensor.Dense

	// ImageID is a (1) int64 tensor holding the sample index.
	ImageID *tensor.Dense

	// Area is an (n) float32 tensor of box areas, (x2-x1)*(y2-y1).
	Area *tensor.Dense

	// IsCrowd is an (n) int64 tensor, always zero.
	IsCrowd *tensor.Dense

	// Keypoints is an (n, k, 3) float32 tensor of [x, y, visibility].
	Keypoints *tensor.Dense
}

// NewTarget packs boxes and keypoints into tensors for one image.
// Counts must already agree; callers validate before packing.
func NewTarget(imageID int, boxes [][]float64, keypoints [][][]float64, pointsPerObject int) (*Target, error) {
	n := len(boxes)
	if len(keypoints) != n {
		return nil, fmt.Errorf("target: %d boxes but %d keypoint objects", n, len(keypoints))
	}

	boxData := make([]float32, 0, n*4)
	areaData := make([]float32, 0, n)
	labelData := make([]int64, n)
	crowdData := make([]int64, n)
	for i, b := range boxes {
		if len(b) != 4 {
			return nil, fmt.Errorf("target: box %d has %d elements, want 4", i, len(b))
		}
		boxData = append(boxData, float32(b[0]), float32(b[1]), float32(b[2]), float32(b[3]))
		areaData = append(areaData, float32((b[2]-b[0])*(b[3]-b[1])))
		labelData[i] = foregroundClass
	}

	kpData := make([]float32, 0, n*pointsPerObject*3)
	for i, obj := range keypoints {
		if len(obj) != pointsPerObject {
			return nil, fmt.Errorf("target: object %d has %d keypoints, want %d", i, len(obj), pointsPerObject)
		}
		for _, kp := range obj {
			kpData = append(kpData, float32(kp[0]), float32(kp[1]), float32(kp[2]))
		}
	}

	return &Target{
		Boxes:     tensor.New(tensor.WithShape(n, 4), tensor.WithBacking(boxData)),
		Labels:    tensor.New(tensor.WithShape(n), tensor.WithBacking(labelData)),
		ImageID:   tensor.New(tensor.WithShape(1), tensor.WithBacking([]int64{int64(imageID)})),
		Area:      tensor.New(tensor.WithShape(n), tensor.WithBacking(areaData)),
		IsCrowd:   tensor.New(tensor.WithShape(n), tensor.WithBacking(crowdData)),
		Keypoints: tensor.New(tensor.WithShape(n, pointsPerObject, 3), tensor.WithBacking(kpData)),
	}, nil
}

// NumObjects returns the number of objects in the target.
func (t *Target) NumObjects() int {
	return t.Boxes.Shape()[0]
}

// BoxSlices unpacks the box tensor back into [x1,y1,x2,y2] rows.
func (t *Target) BoxSlices() [][]float64 {
	data := t.Boxes.Data().([]float32)
	n := t.NumObjects()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := data[i*4 : i*4+4]
		out[i] = []float64{float64(row[0]), float64(row[1]), float64(row[2]), float64(row[3])}
	}
	return out
}

// KeypointSlices unpacks the keypoint tensor back into per-object
// [x, y, visibility] triples.
func (t *Target) KeypointSlices() [][][]float64 {
	data := t.Keypoints.Data().([]float32)
	n := t.NumObjects()
	k := t.Keypoints.Shape()[1]
	out := make([][][]float64, n)
	for i := 0; i < n; i++ {
		obj := make([][]float64, k)
		for j := 0; j < k; j++ {
			off := (i*k + j) * 3
			obj[j] = []float64{float64(data[off]), float64(data[off+1]), float64(data[off+2])}
		}
		out[i] = obj
	}
	return out
}
