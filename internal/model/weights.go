package model

import (
	"encoding/gob"
	"fmt"
	"os"
	"strings"
)

// CheckpointVersion identifies the weights blob layout.
const CheckpointVersion = "keypoints.v1"

// Variable is one serialized tensor in a checkpoint.
type Variable struct {
	Name      string
	Shape     []int
	Trainable bool
	Data      []float32
}

// Checkpoint is the single weights artifact written at the end of training:
// every learned parameter, by name, with its shape and raw values.
type Checkpoint struct {
	Version   string
	Variables []Variable
}

// WeightLoadError reports a saved weights blob that does not match the model:
// an unknown or missing variable, or a shape disagreement.
type WeightLoadError struct {
	Path string
	Name string // offending variable, empty for file-level failures
	Msg  string
	Err  error
}

func (e *WeightLoadError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("weights %s: variable %s: %s", e.Path, e.Name, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("weights %s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("weights %s: %s", e.Path, e.Msg)
}

func (e *WeightLoadError) Unwrap() error { return e.Err }

// Save serializes the model's full variable set to a single artifact file.
func (m *Model) Save(path string) error {
	ckpt := Checkpoint{Version: CheckpointVersion}
	for _, spec := range m.specs {
		v := m.vars[spec.Name]
		data := v.Data().([]float32)
		ckpt.Variables = append(ckpt.Variables, Variable{
			Name:      spec.Name,
			Shape:     append([]int(nil), v.Shape()...),
			Trainable: spec.Trainable,
			Data:      append([]float32(nil), data...),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("weights %s: cannot create: %w", path, err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(&ckpt); err != nil {
		return fmt.Errorf("weights %s: encode failed: %w", path, err)
	}
	return nil
}

// LoadWeights applies a full checkpoint verbatim. Every model variable must
// appear in the blob with the exact shape, and the blob must not carry
// variables the model does not know.
func (m *Model) LoadWeights(path string) error {
	ckpt, err := readCheckpoint(path)
	if err != nil {
		return err
	}

	byName := make(map[string]Variable, len(ckpt.Variables))
	for _, v := range ckpt.Variables {
		byName[v.Name] = v
	}

	for _, spec := range m.specs {
		saved, ok := byName[spec.Name]
		if !ok {
			return &WeightLoadError{Path: path, Name: spec.Name, Msg: "missing from checkpoint"}
		}
		if err := m.applyVariable(path, saved); err != nil {
			return err
		}
		delete(byName, spec.Name)
	}
	for name := range byName {
		return &WeightLoadError{Path: path, Name: name, Msg: "not a model variable"}
	}
	return nil
}

// loadPrefixed applies only the blob variables whose name carries the given
// prefix, leaving everything else initialized as-is.
func (m *Model) loadPrefixed(path, prefix string) error {
	ckpt, err := readCheckpoint(path)
	if err != nil {
		return err
	}

	applied := 0
	for _, saved := range ckpt.Variables {
		if !strings.HasPrefix(saved.Name, prefix) {
			continue
		}
		if _, ok := m.vars[saved.Name]; !ok {
			return &WeightLoadError{Path: path, Name: saved.Name, Msg: "not a model variable"}
		}
		if err := m.applyVariable(path, saved); err != nil {
			return err
		}
		applied++
	}
	if applied == 0 {
		return &WeightLoadError{Path: path, Msg: fmt.Sprintf("no %q variables in checkpoint", prefix)}
	}
	return nil
}

func (m *Model) applyVariable(path string, saved Variable) error {
	dst := m.vars[saved.Name]
	want := dst.Shape()
	if len(saved.Shape) != len(want) {
		return &WeightLoadError{Path: path, Name: saved.Name,
			Msg: fmt.Sprintf("saved rank %d, model wants %v", len(saved.Shape), want)}
	}
	n := 1
	for i, d := range saved.Shape {
		if d != want[i] {
			return &WeightLoadError{Path: path, Name: saved.Name,
				Msg: fmt.Sprintf("saved shape %v, model wants %v", saved.Shape, want)}
		}
		n *= d
	}
	if len(saved.Data) != n {
		return &WeightLoadError{Path: path, Name: saved.Name,
			Msg: fmt.Sprintf("saved data has %d values, shape %v needs %d", len(saved.Data), saved.Shape, n)}
	}
	copy(dst.Data().([]float32), saved.Data)
	return nil
}

func readCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &WeightLoadError{Path: path, Msg: "cannot open", Err: err}
	}
	defer f.Close()

	var ckpt Checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return nil, &WeightLoadError{Path: path, Msg: "cannot decode", Err: err}
	}
	if ckpt.Version != CheckpointVersion {
		return nil, &WeightLoadError{Path: path, Msg: fmt.Sprintf("unsupported version %q", ckpt.Version)}
	}
	return &ckpt, nil
}
