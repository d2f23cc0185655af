package dataset

import "fmt"

// FlattenKeypoints converts per-object [x,y,visibility] keypoint groups into
// one flat list of bare [x,y] pairs, dropping visibility. This is the format
// geometric transforms operate on. UnflattenKeypoints is its inverse over the
// coordinate part; objects × pointsPerObject is conserved between the two.
func FlattenKeypoints(keypoints [][][]float64) [][]float64 {
	var flat [][]float64
	for _, obj := range keypoints {
		for _, kp := range obj {
			flat = append(flat, []float64{kp[0], kp[1]})
		}
	}
	return flat
}

// UnflattenKeypoints regroups a flat [x,y] list into objects of pointsPerObject
// keypoints each, undoing FlattenKeypoints.
func UnflattenKeypoints(flat [][]float64, pointsPerObject int) ([][][]float64, error) {
	if pointsPerObject <= 0 {
		return nil, fmt.Errorf("pointsPerObject must be positive, got %d", pointsPerObject)
	}
	if len(flat)%pointsPerObject != 0 {
		return nil, fmt.Errorf("%d keypoints do not divide into objects of %d", len(flat), pointsPerObject)
	}

	objects := make([][][]float64, 0, len(flat)/pointsPerObject)
	for i := 0; i < len(flat); i += pointsPerObject {
		obj := make([][]float64, pointsPerObject)
		for j := 0; j < pointsPerObject; j++ {
			kp := flat[i+j]
			obj[j] = []float64{kp[0], kp[1]}
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// ReattachVisibility copies the visibility flag of each (object, point)
// position in original onto the transformed coordinates. Visibility is
// invariant under the supported transforms, so the original flags remain
// authoritative after augmentation.
func ReattachVisibility(transformed [][][]float64, original [][][]float64) ([][][]float64, error) {
	if len(transformed) != len(original) {
		return nil, fmt.Errorf("object count mismatch: %d transformed, %d original", len(transformed), len(original))
	}

	out := make([][][]float64, len(transformed))
	for o, obj := range transformed {
		if len(obj) != len(original[o]) {
			return nil, fmt.Errorf("object %d: %d transformed keypoints, %d original", o, len(obj), len(original[o]))
		}
		out[o] = make([][]float64, len(obj))
		for k, kp := range obj {
			out[o][k] = []float64{kp[0], kp[1], original[o][k][2]}
		}
	}
	return out, nil
}
