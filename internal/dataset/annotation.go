package dataset

import (
	"encoding/json"
	"fmt"
	"os"
)

// Annotation is the on-disk ground truth for one image: axis-aligned bounding
// boxes and, for each box, a fixed-length list of [x, y, visibility] keypoints.
type Annotation struct {
	BBoxes    [][]float64   `json:"bboxes"`
	Keypoints [][][]float64 `json:"keypoints"`
}

// Visibility values carried through augmentation unchanged.
const (
	VisibilityNotLabeled = 0
	VisibilityHidden     = 1
	VisibilityVisible    = 2
)

// LoadAnnotation reads and validates an annotation file.
func LoadAnnotation(path string, pointsPerObject int) (*Annotation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &DatasetError{Index: -1, Path: path, Msg: "cannot read annotation", Err: err}
	}

	var a Annotation
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &DatasetError{Index: -1, Path: path, Msg: "malformed annotation JSON", Err: err}
	}

	if err := a.Validate(pointsPerObject); err != nil {
		return nil, &DatasetError{Index: -1, Path: path, Msg: "invalid annotation", Err: err}
	}
	return &a, nil
}

// Validate checks the shape contract: 4-element well-ordered boxes, one
// keypoint group per box, pointsPerObject keypoints per group, 3-element
// keypoints with a known visibility value.
func (a *Annotation) Validate(pointsPerObject int) error {
	if len(a.BBoxes) != len(a.Keypoints) {
		return fmt.Errorf("%d boxes but %d keypoint groups", len(a.BBoxes), len(a.Keypoints))
	}

	for i, b := range a.BBoxes {
		if len(b) != 4 {
			return fmt.Errorf("box %d has %d elements, want 4", i, len(b))
		}
		if b[2] < b[0] || b[3] < b[1] {
			return fmt.Errorf("box %d [%v,%v,%v,%v] has inverted corners", i, b[0], b[1], b[2], b[3])
		}
	}

	for i, obj := range a.Keypoints {
		if len(obj) != pointsPerObject {
			return fmt.Errorf("object %d has %d keypoints, want %d", i, len(obj), pointsPerObject)
		}
		for j, kp := range obj {
			if len(kp) != 3 {
				return fmt.Errorf("object %d keypoint %d has %d elements, want 3 (x, y, visibility)", i, j, len(kp))
			}
			switch v := kp[2]; v {
			case VisibilityNotLabeled, VisibilityHidden, VisibilityVisible:
			default:
				return fmt.Errorf("object %d keypoint %d has unknown visibility %v", i, j, v)
			}
		}
	}
	return nil
}

// NumObjects returns the number of annotated object instances.
func (a *Annotation) NumObjects() int { return len(a.BBoxes) }
