package augment

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"testing"
)

// createSolidImage creates an in-memory test image filled with one color.
func createSolidImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRandomRotate90_ZeroTurns(t *testing.T) {
	turns := 0
	tr := &RandomRotate90{Times: &turns}

	in := &Input{
		Image:     createSolidImage(40, 20, color.RGBA{200, 0, 0, 255}),
		Boxes:     [][]float64{{0, 0, 10, 10}},
		BoxLabels: []string{"glue_tube"},
		Keypoints: [][]float64{{1, 1}, {2, 2}},
	}

	out, err := tr.Apply(in)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if out.Image.Bounds().Dx() != 40 || out.Image.Bounds().Dy() != 20 {
		t.Errorf("image dimensions changed: got %v", out.Image.Bounds())
	}
	for i, b := range out.Boxes {
		for j := range b {
			if !almostEqual(b[j], in.Boxes[i][j]) {
				t.Errorf("box %d changed: got %v, want %v", i, b, in.Boxes[i])
			}
		}
	}
	for i, p := range out.Keypoints {
		if !almostEqual(p[0], in.Keypoints[i][0]) || !almostEqual(p[1], in.Keypoints[i][1]) {
			t.Errorf("keypoint %d changed: got %v, want %v", i, p, in.Keypoints[i])
		}
	}
}

func TestRandomRotate90_OneTurn(t *testing.T) {
	turns := 1
	tr := &RandomRotate90{Times: &turns}

	// 40x20 image rotated counter-clockwise becomes 20x40.
	// A point (x, y) lands at (y, w-1-x).
	in := &Input{
		Image:     createSolidImage(40, 20, color.RGBA{0, 200, 0, 255}),
		Boxes:     [][]float64{{0, 0, 10, 10}},
		BoxLabels: []string{"glue_tube"},
		Keypoints: [][]float64{{5, 3}},
	}

	out, err := tr.Apply(in)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if out.Image.Bounds().Dx() != 20 || out.Image.Bounds().Dy() != 40 {
		t.Errorf("rotated dimensions: got %dx%d, want 20x40",
			out.Image.Bounds().Dx(), out.Image.Bounds().Dy())
	}

	kp := out.Keypoints[0]
	if !almostEqual(kp[0], 3) || !almostEqual(kp[1], 34) {
		t.Errorf("keypoint: got (%v, %v), want (3, 34)", kp[0], kp[1])
	}

	// Box corners (0,0) and (10,10) map to (0,39) and (10,29); the box is
	// re-normalized so min precedes max on both axes.
	b := out.Boxes[0]
	want := []float64{0, 29, 10, 39}
	for i := range want {
		if !almostEqual(b[i], want[i]) {
			t.Errorf("box: got %v, want %v", b, want)
			break
		}
	}
}

func TestRandomRotate90_FourTurnsIsIdentity(t *testing.T) {
	in := &Input{
		Image:     createSolidImage(30, 30, color.RGBA{0, 0, 200, 255}),
		Boxes:     [][]float64{{2, 4, 12, 14}},
		BoxLabels: []string{"glue_tube"},
		Keypoints: [][]float64{{7, 9}},
	}

	one := 1
	tr := &RandomRotate90{Times: &one}
	out := &Output{Image: in.Image, Boxes: in.Boxes, BoxLabels: in.BoxLabels, Keypoints: in.Keypoints}
	for i := 0; i < 4; i++ {
		var err error
		out, err = tr.Apply(&Input{Image: out.Image, Boxes: out.Boxes, BoxLabels: out.BoxLabels, Keypoints: out.Keypoints})
		if err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
	}

	for i := range in.Boxes[0] {
		if !almostEqual(out.Boxes[0][i], in.Boxes[0][i]) {
			t.Errorf("box after 4 turns: got %v, want %v", out.Boxes[0], in.Boxes[0])
			break
		}
	}
	if !almostEqual(out.Keypoints[0][0], 7) || !almostEqual(out.Keypoints[0][1], 9) {
		t.Errorf("keypoint after 4 turns: got %v, want (7, 9)", out.Keypoints[0])
	}
}

func TestRandomRotate90_DoesNotMutateInput(t *testing.T) {
	turns := 2
	tr := &RandomRotate90{Times: &turns}

	boxes := [][]float64{{1, 2, 3, 4}}
	points := [][]float64{{1, 2}}
	in := &Input{
		Image:     createSolidImage(10, 10, color.White),
		Boxes:     boxes,
		BoxLabels: []string{"glue_tube"},
		Keypoints: points,
	}
	if _, err := tr.Apply(in); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if boxes[0][0] != 1 || boxes[0][1] != 2 || points[0][0] != 1 {
		t.Error("input slices were mutated by Apply")
	}
}

func TestRandomBrightnessContrast_PreservesCoordinates(t *testing.T) {
	tr := &RandomBrightnessContrast{
		BrightnessLimit: 0.3,
		ContrastLimit:   0.3,
		Rand:            rand.New(rand.NewSource(7)),
	}

	in := &Input{
		Image:     createSolidImage(16, 16, color.RGBA{120, 120, 120, 255}),
		Boxes:     [][]float64{{0, 0, 8, 8}, {4, 4, 12, 12}},
		BoxLabels: []string{"glue_tube", "glue_tube"},
		Keypoints: [][]float64{{1, 1}, {2, 2}, {6, 6}, {7, 7}},
	}

	out, err := tr.Apply(in)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if len(out.Boxes) != 2 || len(out.Keypoints) != 4 {
		t.Fatalf("counts changed: %d boxes, %d keypoints", len(out.Boxes), len(out.Keypoints))
	}
	for i := range in.Boxes {
		for j := range in.Boxes[i] {
			if out.Boxes[i][j] != in.Boxes[i][j] {
				t.Errorf("box %d moved: got %v, want %v", i, out.Boxes[i], in.Boxes[i])
			}
		}
	}
	for i := range in.Keypoints {
		if out.Keypoints[i][0] != in.Keypoints[i][0] || out.Keypoints[i][1] != in.Keypoints[i][1] {
			t.Errorf("keypoint %d moved: got %v, want %v", i, out.Keypoints[i], in.Keypoints[i])
		}
	}
	if out.Image.Bounds() != in.Image.Bounds() {
		t.Errorf("image bounds changed: got %v, want %v", out.Image.Bounds(), in.Image.Bounds())
	}
}

func TestRandomBrightnessContrast_NegativeLimit(t *testing.T) {
	tr := &RandomBrightnessContrast{BrightnessLimit: -0.1}
	_, err := tr.Apply(&Input{Image: createSolidImage(4, 4, color.White)})
	if err == nil {
		t.Error("expected error for negative limit")
	}
}

func TestCompose_ChainsTransforms(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pipeline := TrainTransform(rng)

	in := &Input{
		Image:     createSolidImage(32, 32, color.RGBA{90, 140, 60, 255}),
		Boxes:     [][]float64{{0, 0, 10, 10}, {5, 5, 15, 15}},
		BoxLabels: []string{"glue_tube", "glue_tube"},
		Keypoints: [][]float64{{1, 1}, {2, 2}, {6, 6}, {7, 7}},
	}

	out, err := pipeline.Apply(in)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(out.Boxes) != len(in.Boxes) {
		t.Errorf("box count: got %d, want %d", len(out.Boxes), len(in.Boxes))
	}
	if len(out.Keypoints) != len(in.Keypoints) {
		t.Errorf("keypoint count: got %d, want %d", len(out.Keypoints), len(in.Keypoints))
	}
	if len(out.BoxLabels) != len(in.BoxLabels) {
		t.Errorf("label count: got %d, want %d", len(out.BoxLabels), len(in.BoxLabels))
	}
}

func TestCompose_SeededReproducibility(t *testing.T) {
	run := func(seed int64) *Output {
		rng := rand.New(rand.NewSource(seed))
		in := &Input{
			Image:     createSolidImage(24, 24, color.RGBA{10, 20, 30, 255}),
			Boxes:     [][]float64{{2, 2, 10, 10}},
			BoxLabels: []string{"glue_tube"},
			Keypoints: [][]float64{{3, 3}, {8, 8}},
		}
		out, err := TrainTransform(rng).Apply(in)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		return out
	}

	a := run(99)
	b := run(99)
	for i := range a.Keypoints {
		if a.Keypoints[i][0] != b.Keypoints[i][0] || a.Keypoints[i][1] != b.Keypoints[i][1] {
			t.Errorf("same seed produced different keypoints: %v vs %v", a.Keypoints[i], b.Keypoints[i])
		}
	}
}
