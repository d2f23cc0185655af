// Package config loads the run configuration for the keypoint trainer.
//
// A run is described by a JSON file; any field left out of the file keeps
// its default value, so a minimal config only needs the dataset paths.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ironsheep/keypoint-train/internal/dataset"
	"github.com/ironsheep/keypoint-train/internal/training"
)

// Config describes a full training run: where the data lives, how the model
// is shaped, and the training hyperparameters.
type Config struct {
	// TrainDir and TestDir point at the dataset roots. Each root holds an
	// images/ and an annotations/ subdirectory, optionally paired by a
	// manifest.json file.
	TrainDir string `json:"train_dir"`
	TestDir  string `json:"test_dir"`

	// BackboneWeights optionally seeds the model's backbone variables from
	// a pretrained checkpoint before training.
	BackboneWeights string `json:"backbone_weights"`

	// InWeights optionally resumes from a full checkpoint, loaded after any
	// backbone weights.
	InWeights string `json:"in_weights"`

	// OutWeights is where the final checkpoint is written.
	OutWeights string `json:"out_weights"`

	BatchSize     int `json:"batch_size"`
	TestBatchSize int `json:"test_batch_size"`
	NumKeypoints  int `json:"num_keypoints"`

	// Seed drives model initialization, shuffling, and augmentation.
	Seed int64 `json:"seed"`

	Training training.Config `json:"training"`
}

// Default returns the stock glue tube run configuration.
func Default() Config {
	return Config{
		TrainDir:      "data/train",
		TestDir:       "data/test",
		OutWeights:    "keypointsrcnn_weights.bin",
		BatchSize:     3,
		TestBatchSize: 1,
		NumKeypoints:  dataset.DefaultPointsPerObject,
		Seed:          1,
		Training:      training.DefaultConfig(),
	}
}

// Load reads a JSON config file and merges it over the defaults. A missing
// file is an error; pass an empty path to run on defaults alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the run configuration.
func (c Config) Validate() error {
	if c.TrainDir == "" {
		return fmt.Errorf("config: train_dir must be set")
	}
	if c.TestDir == "" {
		return fmt.Errorf("config: test_dir must be set")
	}
	if c.OutWeights == "" {
		return fmt.Errorf("config: out_weights must be set")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.TestBatchSize <= 0 {
		return fmt.Errorf("config: test_batch_size must be positive, got %d", c.TestBatchSize)
	}
	if c.NumKeypoints <= 0 {
		return fmt.Errorf("config: num_keypoints must be positive, got %d", c.NumKeypoints)
	}
	return c.Training.Validate()
}
