package training

import "math"

// StepLR decays a base learning rate by a fixed factor every StepSize epochs:
// lr(epoch) = base * gamma^(epoch / stepSize), integer division.
type StepLR struct {
	Base     float64
	StepSize int
	Gamma    float64
}

// At returns the learning rate in effect for the given zero-based epoch.
func (s *StepLR) At(epoch int) float64 {
	if s.StepSize <= 0 {
		return s.Base
	}
	return s.Base * math.Pow(s.Gamma, float64(epoch/s.StepSize))
}
