// Package dataset turns (image, annotation) pairs on disk into the tensors a
// keypoint detection model consumes.
//
// A dataset root contains an images/ directory and an annotations/ directory.
// Each annotation is a JSON file with two top-level keys: "bboxes", a list of
// [x1,y1,x2,y2] corner boxes, and "keypoints", a list of per-object keypoint
// lists where each keypoint is [x,y,visibility]. Pairing between images and
// annotations is declared by an explicit manifest.json at the root; when no
// manifest is present, files are paired positionally by sorted filename, with
// a count check so a missing file fails fast instead of silently shifting the
// correspondence.
//
// Samples are read fresh on every access; there is no caching layer, since a
// configured transform must re-randomize per epoch.
//
// # Error Handling
//
// Failures surface as *DatasetError (missing or corrupt files, malformed
// annotations, box/keypoint shape mismatches) or *DataInconsistencyError
// (a transform changed the object count mid-flight). Both identify the sample
// index and offending file so a bad input can be located immediately; training
// cannot meaningfully continue on corrupted data, so callers are expected to
// abort.
package dataset
