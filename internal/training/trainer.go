// Package training runs the epoch loop over a keypoint detection model:
// a training pass with SGD and periodic loss reporting, a step-decay
// learning-rate schedule, and an evaluation pass per epoch.
package training

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ironsheep/keypoint-train/internal/dataset"
	"github.com/ironsheep/keypoint-train/internal/model"
)

// Config holds the training hyperparameters.
type Config struct {
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	Momentum     float64 `json:"momentum"`
	WeightDecay  float64 `json:"weight_decay"`

	// StepSize and Gamma drive the step-decay schedule: the learning rate
	// is multiplied by Gamma every StepSize epochs.
	StepSize int     `json:"step_size"`
	Gamma    float64 `json:"gamma"`

	// PrintFreq is the batch interval between loss log lines.
	PrintFreq int `json:"print_freq"`
}

// DefaultConfig mirrors the stock glue tube run: 5 epochs of SGD at 1e-3 with
// momentum 0.9, weight decay 5e-4, and a 0.3x decay every 5 epochs.
func DefaultConfig() Config {
	return Config{
		Epochs:       5,
		LearningRate: 0.001,
		Momentum:     0.9,
		WeightDecay:  0.0005,
		StepSize:     5,
		Gamma:        0.3,
		PrintFreq:    1000,
	}
}

// Validate checks the hyperparameters.
func (c Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("training: epochs must be positive, got %d", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("training: learning rate must be positive, got %v", c.LearningRate)
	}
	if c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("training: gamma must be in (0, 1], got %v", c.Gamma)
	}
	return nil
}

// Trainer drives the train/evaluate loop for a model.
type Trainer struct {
	cfg   Config
	m     *model.Model
	opt   *SGD
	sched *StepLR
	runID string

	// EpochResults collects one evaluation result per completed epoch.
	EpochResults []EvalResult
}

// New builds a trainer for the model.
func New(m *model.Model, cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Trainer{
		cfg:   cfg,
		m:     m,
		opt:   NewSGD(cfg.LearningRate, cfg.Momentum, cfg.WeightDecay),
		sched: &StepLR{Base: cfg.LearningRate, StepSize: cfg.StepSize, Gamma: cfg.Gamma},
		runID: uuid.New().String(),
	}, nil
}

// RunID identifies this training run in log output.
func (t *Trainer) RunID() string { return t.runID }

// Run executes the whole schedule: for every epoch, one training pass over
// train, a learning-rate step, and one evaluation pass over test. Any sample
// or engine failure aborts the run; training cannot continue on bad input.
func (t *Trainer) Run(train, test *dataset.Loader) error {
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		t.opt.LR = t.sched.At(epoch)

		if err := t.trainOneEpoch(epoch, train); err != nil {
			return err
		}

		result, err := t.Evaluate(test)
		if err != nil {
			return err
		}
		t.EpochResults = append(t.EpochResults, *result)
		log.Printf("[%s] epoch %d: eval over %d samples: mean IoU %.4f, PCK %.4f",
			t.runID, epoch, result.Samples, result.MeanIoU, result.PCK)
	}
	return nil
}

func (t *Trainer) trainOneEpoch(epoch int, train *dataset.Loader) error {
	train.Reset()
	names := t.m.TrainableNames()

	var runningLoss float64
	batches := 0
	for {
		batch, err := train.Next()
		if err != nil {
			return fmt.Errorf("training: epoch %d: %w", epoch, err)
		}
		if batch == nil {
			break
		}

		loss, grads, err := t.m.Step(batch)
		if err != nil {
			return fmt.Errorf("training: epoch %d batch %d: %w", epoch, batches, err)
		}
		if err := t.opt.Step(t.m.Vars(), grads, names); err != nil {
			return fmt.Errorf("training: epoch %d batch %d: %w", epoch, batches, err)
		}

		runningLoss += float64(loss)
		batches++
		if t.cfg.PrintFreq > 0 && batches%t.cfg.PrintFreq == 0 {
			log.Printf("[%s] epoch %d batch %d/%d: lr %.6f loss %.6f",
				t.runID, epoch, batches, train.NumBatches(), t.opt.LR, runningLoss/float64(batches))
		}
	}
	if batches == 0 {
		return fmt.Errorf("training: epoch %d: loader produced no batches", epoch)
	}

	log.Printf("[%s] epoch %d: trained %d batches, lr %.6f, mean loss %.6f",
		t.runID, epoch, batches, t.opt.LR, runningLoss/float64(batches))
	return nil
}

// Evaluate runs one pass over the held-out loader and aggregates detection
// quality metrics.
func (t *Trainer) Evaluate(test *dataset.Loader) (*EvalResult, error) {
	test.Reset()

	var iouSum float64
	var iouCount, pckHits, pckTotal, samples int
	for {
		batch, err := test.Next()
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		if batch == nil {
			break
		}

		for i := range batch.Inputs {
			pred, err := t.m.Predict(batch.Inputs[i])
			if err != nil {
				return nil, fmt.Errorf("evaluate: sample %d: %w", samples, err)
			}
			s, c, hits, total := evaluate(pred, batch.Targets[i])
			iouSum += s
			iouCount += c
			pckHits += hits
			pckTotal += total
			samples++
		}
	}

	result := &EvalResult{Samples: samples}
	if iouCount > 0 {
		result.MeanIoU = iouSum / float64(iouCount)
	}
	if pckTotal > 0 {
		result.PCK = float64(pckHits) / float64(pckTotal)
	}
	return result, nil
}
