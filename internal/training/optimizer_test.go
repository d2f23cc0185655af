package training

import (
	"math"
	"testing"

	"gorgonia.org/tensor"
)

func denseOf(vals ...float32) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(vals)), tensor.WithBacking(vals))
}

func TestSGD_PlainStep(t *testing.T) {
	opt := NewSGD(0.1, 0, 0)
	vars := map[string]*tensor.Dense{"w": denseOf(1, 2, 3)}
	grads := map[string]*tensor.Dense{"w": denseOf(1, 1, 1)}

	if err := opt.Step(vars, grads, []string{"w"}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	want := []float32{0.9, 1.9, 2.9}
	got := vars["w"].Data().([]float32)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("param %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSGD_MomentumAccumulates(t *testing.T) {
	opt := NewSGD(1, 0.5, 0)
	vars := map[string]*tensor.Dense{"w": denseOf(0)}
	grads := map[string]*tensor.Dense{"w": denseOf(1)}

	// Step 1: v = 1, w = -1. Step 2: v = 0.5+1 = 1.5, w = -2.5.
	for i := 0; i < 2; i++ {
		if err := opt.Step(vars, grads, []string{"w"}); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
	}

	got := vars["w"].Data().([]float32)[0]
	if math.Abs(float64(got)+2.5) > 1e-6 {
		t.Errorf("param after two momentum steps: got %v, want -2.5", got)
	}
}

func TestSGD_WeightDecayPullsTowardZero(t *testing.T) {
	opt := NewSGD(0.1, 0, 0.5)
	vars := map[string]*tensor.Dense{"w": denseOf(2)}
	grads := map[string]*tensor.Dense{"w": denseOf(0)}

	if err := opt.Step(vars, grads, []string{"w"}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}

	// v = 0 + 0 + 0.5*2 = 1; w = 2 - 0.1 = 1.9.
	got := vars["w"].Data().([]float32)[0]
	if math.Abs(float64(got)-1.9) > 1e-6 {
		t.Errorf("param: got %v, want 1.9", got)
	}
}

func TestSGD_SkipsVariablesWithoutGradient(t *testing.T) {
	opt := NewSGD(0.1, 0, 0)
	vars := map[string]*tensor.Dense{"w": denseOf(5)}

	if err := opt.Step(vars, map[string]*tensor.Dense{}, []string{"w"}); err != nil {
		t.Fatalf("Step failed: %v", err)
	}
	if got := vars["w"].Data().([]float32)[0]; got != 5 {
		t.Errorf("param changed without a gradient: got %v", got)
	}
}

func TestSGD_LengthMismatch(t *testing.T) {
	opt := NewSGD(0.1, 0, 0)
	vars := map[string]*tensor.Dense{"w": denseOf(1, 2)}
	grads := map[string]*tensor.Dense{"w": denseOf(1, 2, 3)}

	if err := opt.Step(vars, grads, []string{"w"}); err == nil {
		t.Error("expected error for length mismatch")
	}
}

func TestStepLR(t *testing.T) {
	sched := &StepLR{Base: 0.001, StepSize: 5, Gamma: 0.3}

	tests := []struct {
		epoch int
		want  float64
	}{
		{0, 0.001},
		{4, 0.001},
		{5, 0.0003},
		{9, 0.0003},
		{10, 0.00009},
	}
	for _, tt := range tests {
		got := sched.At(tt.epoch)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("At(%d): got %v, want %v", tt.epoch, got, tt.want)
		}
	}
}

func TestStepLR_ZeroStepSizeNeverDecays(t *testing.T) {
	sched := &StepLR{Base: 0.01, StepSize: 0, Gamma: 0.1}
	if got := sched.At(100); got != 0.01 {
		t.Errorf("At(100): got %v, want 0.01", got)
	}
}
