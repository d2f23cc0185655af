package dataset

import (
	"reflect"
	"testing"
)

func TestNewTarget_TwoObjectScenario(t *testing.T) {
	boxes := [][]float64{{0, 0, 10, 10}, {5, 5, 15, 15}}
	keypoints := [][][]float64{
		{{1, 1, 1}, {2, 2, 1}},
		{{6, 6, 0}, {7, 7, 1}},
	}

	target, err := NewTarget(3, boxes, keypoints, 2)
	if err != nil {
		t.Fatalf("NewTarget failed: %v", err)
	}

	if got := target.Boxes.Data().([]float32); !reflect.DeepEqual(got, []float32{0, 0, 10, 10, 5, 5, 15, 15}) {
		t.Errorf("boxes: got %v", got)
	}
	if got := target.Labels.Data().([]int64); !reflect.DeepEqual(got, []int64{1, 1}) {
		t.Errorf("labels: got %v, want [1 1]", got)
	}
	if got := target.Area.Data().([]float32); !reflect.DeepEqual(got, []float32{100, 100}) {
		t.Errorf("area: got %v, want [100 100]", got)
	}
	if got := target.IsCrowd.Data().([]int64); !reflect.DeepEqual(got, []int64{0, 0}) {
		t.Errorf("iscrowd: got %v, want [0 0]", got)
	}
	if got := target.ImageID.Data().([]int64); !reflect.DeepEqual(got, []int64{3}) {
		t.Errorf("image id: got %v, want [3]", got)
	}

	wantKP := []float32{1, 1, 1, 2, 2, 1, 6, 6, 0, 7, 7, 1}
	if got := target.Keypoints.Data().([]float32); !reflect.DeepEqual(got, wantKP) {
		t.Errorf("keypoints: got %v, want %v", got, wantKP)
	}
	if got := target.Keypoints.Shape(); got[0] != 2 || got[1] != 2 || got[2] != 3 {
		t.Errorf("keypoint shape: got %v, want (2, 2, 3)", got)
	}

	if target.NumObjects() != 2 {
		t.Errorf("NumObjects: got %d, want 2", target.NumObjects())
	}
}

func TestNewTarget_AreaLaw(t *testing.T) {
	tests := []struct {
		name string
		box  []float64
		want float32
	}{
		{"unit square", []float64{0, 0, 1, 1}, 1},
		{"offset box", []float64{2.5, 3.5, 7.5, 13.5}, 50},
		{"degenerate line", []float64{4, 4, 4, 9}, 0},
		{"degenerate point", []float64{6, 6, 6, 6}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := NewTarget(0, [][]float64{tt.box},
				[][][]float64{{{0, 0, 1}, {1, 1, 1}}}, 2)
			if err != nil {
				t.Fatalf("NewTarget failed: %v", err)
			}
			got := target.Area.Data().([]float32)[0]
			if got != tt.want {
				t.Errorf("area: got %v, want %v", got, tt.want)
			}
			if got < 0 {
				t.Errorf("area must be non-negative, got %v", got)
			}
		})
	}
}

func TestNewTarget_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name      string
		boxes     [][]float64
		keypoints [][][]float64
	}{
		{
			"more boxes than objects",
			[][]float64{{0, 0, 1, 1}, {1, 1, 2, 2}},
			[][][]float64{{{0, 0, 1}, {1, 1, 1}}},
		},
		{
			"short box",
			[][]float64{{0, 0, 1}},
			[][][]float64{{{0, 0, 1}, {1, 1, 1}}},
		},
		{
			"wrong keypoint count",
			[][]float64{{0, 0, 1, 1}},
			[][][]float64{{{0, 0, 1}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTarget(0, tt.boxes, tt.keypoints, 2); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestTarget_SliceUnpacking(t *testing.T) {
	boxes := [][]float64{{0, 0, 10, 10}, {5, 5, 15, 15}}
	keypoints := [][][]float64{
		{{1, 1, 1}, {2, 2, 1}},
		{{6, 6, 0}, {7, 7, 1}},
	}

	tgt, err := NewTarget(0, boxes, keypoints, 2)
	if err != nil {
		t.Fatalf("NewTarget failed: %v", err)
	}

	if got := tgt.BoxSlices(); !reflect.DeepEqual(got, boxes) {
		t.Errorf("BoxSlices: got %v, want %v", got, boxes)
	}
	if got := tgt.KeypointSlices(); !reflect.DeepEqual(got, keypoints) {
		t.Errorf("KeypointSlices: got %v, want %v", got, keypoints)
	}
}
