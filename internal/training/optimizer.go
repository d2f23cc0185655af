package training

import (
	"fmt"

	"gorgonia.org/tensor"
)

// SGD updates variables with momentum and decoupled-style weight decay:
//
//	v = momentum*v + grad + weightDecay*param
//	param -= lr * v
type SGD struct {
	LR          float64
	Momentum    float64
	WeightDecay float64

	velocity map[string][]float32
}

// NewSGD builds the optimizer with the given hyperparameters.
func NewSGD(lr, momentum, weightDecay float64) *SGD {
	return &SGD{
		LR:          lr,
		Momentum:    momentum,
		WeightDecay: weightDecay,
		velocity:    make(map[string][]float32),
	}
}

// Step applies one update to every named variable that has a gradient.
// Variables without a gradient entry are left untouched.
func (s *SGD) Step(vars map[string]*tensor.Dense, grads map[string]*tensor.Dense, names []string) error {
	for _, name := range names {
		grad, ok := grads[name]
		if !ok {
			continue
		}
		param, ok := vars[name]
		if !ok {
			return fmt.Errorf("sgd: gradient for unknown variable %s", name)
		}

		p, ok := param.Data().([]float32)
		if !ok {
			return fmt.Errorf("sgd: variable %s is not float32", name)
		}
		g, ok := grad.Data().([]float32)
		if !ok {
			return fmt.Errorf("sgd: gradient %s is not float32", name)
		}
		if len(p) != len(g) {
			return fmt.Errorf("sgd: variable %s has %d values but gradient has %d", name, len(p), len(g))
		}

		vel, ok := s.velocity[name]
		if !ok {
			vel = make([]float32, len(p))
			s.velocity[name] = vel
		}

		lr := float32(s.LR)
		mom := float32(s.Momentum)
		wd := float32(s.WeightDecay)
		for i := range p {
			vel[i] = mom*vel[i] + g[i] + wd*p[i]
			p[i] -= lr * vel[i]
		}
	}
	return nil
}
