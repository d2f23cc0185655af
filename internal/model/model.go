// Package model constructs the keypoint detector: it owns the learnable
// variables behind an engine, initializes them (Glorot uniform, with the
// backbone optionally loaded from a pretrained blob), and reads and writes
// the serialized weights artifact.
package model

import (
	"fmt"
	"math"
	"math/rand"

	"gorgonia.org/tensor"

	"github.com/ironsheep/keypoint-train/internal/dataset"
	"github.com/ironsheep/keypoint-train/internal/engine"
)

// BackbonePrefix marks variables that belong to the pretrained backbone.
const BackbonePrefix = "backbone."

// Model pairs an engine with its variable set. Variables are mutated in place
// by the optimizer across epochs and serialized once at the end of training.
type Model struct {
	cfg   Config
	eng   engine.Engine
	specs []engine.VariableSpec
	vars  map[string]*tensor.Dense
}

type options struct {
	seed          int64
	seedSet       bool
	weightsPath   string
	backbonePath  string
}

// Option configures model construction.
type Option func(*options)

// WithSeed makes variable initialization deterministic.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed; o.seedSet = true }
}

// WithWeights loads a full weights artifact verbatim after initialization.
func WithWeights(path string) Option {
	return func(o *options) { o.weightsPath = path }
}

// WithBackboneWeights loads only the backbone-prefixed variables from a
// pretrained blob; head variables keep their fresh initialization.
func WithBackboneWeights(path string) Option {
	return func(o *options) { o.backbonePath = path }
}

// New builds a model for cfg over the given engine. Variables are initialized
// Glorot-uniform, then overlaid with backbone or full weights when configured.
func New(cfg Config, eng engine.Engine, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("model config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	specs := eng.VariableSpecs()
	if len(specs) == 0 {
		return nil, fmt.Errorf("model: engine declares no variables")
	}

	var rng *rand.Rand
	if o.seedSet {
		rng = rand.New(rand.NewSource(o.seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	m := &Model{
		cfg:   cfg,
		eng:   eng,
		specs: specs,
		vars:  make(map[string]*tensor.Dense, len(specs)),
	}
	for _, spec := range specs {
		m.vars[spec.Name] = glorotUniform(rng, spec.Shape)
	}

	if o.backbonePath != "" {
		if err := m.loadPrefixed(o.backbonePath, BackbonePrefix); err != nil {
			return nil, err
		}
	}
	if o.weightsPath != "" {
		if err := m.LoadWeights(o.weightsPath); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewKeypointDetector is the stock factory: default detector config and the
// built-in engine sized for numKeypoints, loading weightsPath when non-empty.
func NewKeypointDetector(numKeypoints int, weightsPath string, opts ...Option) (*Model, error) {
	eng, err := engine.NewRegressor(engine.DefaultRegressorConfig(numKeypoints))
	if err != nil {
		return nil, err
	}
	if weightsPath != "" {
		opts = append(opts, WithWeights(weightsPath))
	}
	return New(DefaultConfig(numKeypoints), eng, opts...)
}

// Config returns the detector configuration.
func (m *Model) Config() Config { return m.cfg }

// Vars exposes the live variable tensors, keyed by name. The optimizer
// updates these in place.
func (m *Model) Vars() map[string]*tensor.Dense { return m.vars }

// VariableSpecs returns the engine's declared variables in stable order.
func (m *Model) VariableSpecs() []engine.VariableSpec { return m.specs }

// TrainableNames lists the variables the optimizer may update.
func (m *Model) TrainableNames() []string {
	var names []string
	for _, spec := range m.specs {
		if spec.Trainable {
			names = append(names, spec.Name)
		}
	}
	return names
}

// Step runs one training step over a batch, returning loss and gradients.
func (m *Model) Step(batch *dataset.Batch) (float32, map[string]*tensor.Dense, error) {
	return m.eng.Step(batch, m.vars)
}

// Predict runs the forward pass for one input image tensor.
func (m *Model) Predict(input *tensor.Dense) (*engine.Prediction, error) {
	return m.eng.Predict(input, m.vars)
}

// glorotUniform draws from U(-limit, limit) with limit = sqrt(6/(fanIn+fanOut)).
func glorotUniform(rng *rand.Rand, shape []int) *tensor.Dense {
	fanIn, fanOut := fans(shape)
	limit := math.Sqrt(6 / float64(fanIn+fanOut))

	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = float32((rng.Float64()*2 - 1) * limit)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

func fans(shape []int) (fanIn, fanOut int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], shape[0]
	default:
		rest := 1
		for _, d := range shape[2:] {
			rest *= d
		}
		return shape[0] * rest, shape[1] * rest
	}
}
