package training

import (
	"math"
	"testing"

	"github.com/ironsheep/keypoint-train/internal/dataset"
	"github.com/ironsheep/keypoint-train/internal/engine"
)

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b [4]float64
		want float64
	}{
		{"identical", [4]float64{0, 0, 10, 10}, [4]float64{0, 0, 10, 10}, 1},
		{"disjoint", [4]float64{0, 0, 10, 10}, [4]float64{20, 20, 30, 30}, 0},
		{"touching edges", [4]float64{0, 0, 10, 10}, [4]float64{10, 0, 20, 10}, 0},
		{"half overlap", [4]float64{0, 0, 10, 10}, [4]float64{5, 0, 15, 10}, 50.0 / 150.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := boxIoU(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("IoU: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_PerfectPrediction(t *testing.T) {
	target, err := dataset.NewTarget(0,
		[][]float64{{0, 0, 10, 10}, {5, 5, 15, 15}},
		[][][]float64{
			{{1, 1, 1}, {2, 2, 1}},
			{{6, 6, 0}, {7, 7, 1}},
		}, 2)
	if err != nil {
		t.Fatalf("NewTarget failed: %v", err)
	}

	pred := &engine.Prediction{
		Boxes: [][]float64{{0, 0, 10, 10}, {5, 5, 15, 15}},
		Keypoints: [][][]float64{
			{{1, 1, 1}, {2, 2, 1}},
			{{6, 6, 0}, {7, 7, 1}},
		},
		Scores: []float64{1, 1},
	}

	iouSum, iouCount, hits, total := evaluate(pred, target)
	if iouCount != 2 {
		t.Fatalf("iou count: got %d, want 2", iouCount)
	}
	if math.Abs(iouSum/float64(iouCount)-1) > 1e-9 {
		t.Errorf("mean IoU: got %v, want 1", iouSum/float64(iouCount))
	}

	// Keypoint (6,6) of object 2 is unlabeled (visibility 0) and excluded:
	// 3 labeled keypoints, all exactly on target.
	if total != 3 {
		t.Errorf("PCK total: got %d, want 3", total)
	}
	if hits != total {
		t.Errorf("PCK hits: got %d, want %d", hits, total)
	}
}

func TestEvaluate_FarPredictionScoresZero(t *testing.T) {
	target, err := dataset.NewTarget(0,
		[][]float64{{0, 0, 10, 10}},
		[][][]float64{{{1, 1, 1}, {2, 2, 1}}}, 2)
	if err != nil {
		t.Fatalf("NewTarget failed: %v", err)
	}

	pred := &engine.Prediction{
		Boxes:     [][]float64{{500, 500, 510, 510}},
		Keypoints: [][][]float64{{{505, 505, 1}, {506, 506, 1}}},
		Scores:    []float64{1},
	}

	iouSum, iouCount, hits, total := evaluate(pred, target)
	if iouSum != 0 || iouCount != 1 {
		t.Errorf("IoU: got sum %v count %d, want 0 and 1", iouSum, iouCount)
	}
	if hits != 0 || total != 2 {
		t.Errorf("PCK: got %d/%d, want 0/2", hits, total)
	}
}

func TestEvaluate_NoPredictions(t *testing.T) {
	target, err := dataset.NewTarget(0,
		[][]float64{{0, 0, 10, 10}},
		[][][]float64{{{1, 1, 1}, {2, 2, 1}}}, 2)
	if err != nil {
		t.Fatalf("NewTarget failed: %v", err)
	}

	iouSum, iouCount, hits, total := evaluate(&engine.Prediction{}, target)
	if iouSum != 0 || hits != 0 || total != 0 {
		t.Errorf("empty prediction scored: iou %v, pck %d/%d", iouSum, hits, total)
	}
	if iouCount != 1 {
		t.Errorf("iou count: got %d, want 1 (the unmatched ground truth)", iouCount)
	}
}
