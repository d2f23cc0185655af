package dataset

import "fmt"

// DatasetError reports a sample that could not be read or decoded: a missing
// or corrupt image, malformed annotation JSON, or an annotation whose shape
// violates the format contract.
type DatasetError struct {
	Index int    // sample index within the dataset, -1 when not index-bound
	Path  string // offending file, empty when not file-bound
	Msg   string
	Err   error // underlying cause, may be nil
}

func (e *DatasetError) Error() string {
	s := "dataset"
	if e.Index >= 0 {
		s = fmt.Sprintf("%s: sample %d", s, e.Index)
	}
	if e.Path != "" {
		s = fmt.Sprintf("%s: %s", s, e.Path)
	}
	s = fmt.Sprintf("%s: %s", s, e.Msg)
	if e.Err != nil {
		s = fmt.Sprintf("%s: %v", s, e.Err)
	}
	return s
}

func (e *DatasetError) Unwrap() error { return e.Err }

// DataInconsistencyError reports that augmentation returned a different number
// of objects than it was given, leaving boxes and keypoints misaligned. The
// pipeline refuses to repack such a sample.
type DataInconsistencyError struct {
	Index     int // sample index
	BoxCount  int // boxes returned by the transform
	Objects   int // keypoint object groups
	WantBoxes int // boxes given to the transform
}

func (e *DataInconsistencyError) Error() string {
	return fmt.Sprintf(
		"dataset: sample %d: transform returned %d boxes for %d keypoint objects (had %d boxes before transform)",
		e.Index, e.BoxCount, e.Objects, e.WantBoxes)
}
