package training

import (
	"math"

	"github.com/ironsheep/keypoint-train/internal/dataset"
	"github.com/ironsheep/keypoint-train/internal/engine"
)

// pckRadius is the fraction of the larger box side within which a predicted
// keypoint counts as correct.
const pckRadius = 0.1

// EvalResult aggregates detection quality over one evaluation pass.
type EvalResult struct {
	// MeanIoU averages, over all ground-truth boxes, the best overlap any
	// predicted box achieved.
	MeanIoU float64

	// PCK is the fraction of labeled ground-truth keypoints whose matched
	// prediction landed within pckRadius of the object's box size.
	PCK float64

	// Samples is the number of images evaluated.
	Samples int
}

// evaluate scores predictions against ground truth for every object in the
// batch. Each ground-truth box is matched to the predicted box with the
// highest IoU; that slot's keypoints are scored against the object's labeled
// keypoints.
func evaluate(pred *engine.Prediction, target *dataset.Target) (iouSum float64, iouCount int, pckHits, pckTotal int) {
	boxes := target.Boxes.Data().([]float32)
	kps := target.Keypoints.Data().([]float32)
	n := target.NumObjects()
	if n == 0 || len(pred.Boxes) == 0 {
		return 0, n, 0, 0
	}
	pointsPerObject := target.Keypoints.Shape()[1]

	for i := 0; i < n; i++ {
		gt := [4]float64{
			float64(boxes[i*4+0]), float64(boxes[i*4+1]),
			float64(boxes[i*4+2]), float64(boxes[i*4+3]),
		}

		best, bestIoU := 0, -1.0
		for j, pb := range pred.Boxes {
			if v := boxIoU(gt, [4]float64{pb[0], pb[1], pb[2], pb[3]}); v > bestIoU {
				best, bestIoU = j, v
			}
		}
		if bestIoU < 0 {
			bestIoU = 0
		}
		iouSum += bestIoU
		iouCount++

		radius := pckRadius * math.Max(gt[2]-gt[0], gt[3]-gt[1])
		for k := 0; k < pointsPerObject && k < len(pred.Keypoints[best]); k++ {
			base := (i*pointsPerObject + k) * 3
			if kps[base+2] == dataset.VisibilityNotLabeled {
				continue
			}
			pckTotal++
			dx := float64(kps[base+0]) - pred.Keypoints[best][k][0]
			dy := float64(kps[base+1]) - pred.Keypoints[best][k][1]
			if math.Hypot(dx, dy) <= radius {
				pckHits++
			}
		}
	}
	return iouSum, iouCount, pckHits, pckTotal
}

// boxIoU computes intersection over union for corner-coordinate boxes.
func boxIoU(a, b [4]float64) float64 {
	ix := math.Min(a[2], b[2]) - math.Max(a[0], b[0])
	iy := math.Min(a[3], b[3]) - math.Max(a[1], b[1])
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
