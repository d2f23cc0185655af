package engine

import (
	"gorgonia.org/tensor"

	"github.com/ironsheep/keypoint-train/internal/dataset"
)

// VariableSpec describes one learnable variable an engine expects: its name,
// shape, and whether the optimizer may update it.
type VariableSpec struct {
	Name      string
	Shape     []int
	Trainable bool
}

// Prediction holds per-image detector output: candidate boxes in corner
// coordinates, per-box keypoints as [x, y, visibility], and a confidence
// score per box.
type Prediction struct {
	Boxes     [][]float64
	Keypoints [][][]float64
	Scores    []float64
}

// Engine computes loss, gradients, and predictions over externally owned
// variables. Implementations must not mutate the variable tensors.
type Engine interface {
	// VariableSpecs declares the full variable set, in a stable order.
	VariableSpecs() []VariableSpec

	// Step runs forward and backward over one batch, returning the scalar
	// loss and a gradient tensor per trainable variable.
	Step(batch *dataset.Batch, vars map[string]*tensor.Dense) (float32, map[string]*tensor.Dense, error)

	// Predict runs the forward pass for one (3, H, W) input.
	Predict(input *tensor.Dense, vars map[string]*tensor.Dense) (*Prediction, error)
}
