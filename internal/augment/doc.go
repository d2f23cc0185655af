// Package augment provides label-preserving image augmentation for keypoint
// detection training data.
//
// A Transform receives an image together with its bounding boxes (corner
// coordinates), per-box labels, and a flat list of bare [x,y] keypoints, and
// returns all four with coordinates consistent with the transformed image.
// Correspondence is preserved: box i of the output describes the same object
// as box i of the input, and likewise for keypoints. Transforms never change
// the number of labels relative to the number of boxes they return.
//
// Geometric transforms (rotation) remap coordinates; photometric transforms
// (brightness/contrast) leave them untouched. Visibility flags are not part
// of the transform contract: callers strip them before applying a transform
// and reattach them afterwards, since visibility is invariant under the
// transforms implemented here.
package augment
