// Package sampler provides Markov chain Monte Carlo samplers over a target
// density and a Chain driver that runs warmup (with tuning) and sampling.
package sampler

import (
	"github.com/pkg/errors"
)

// ErrConfig marks an invalid sampler configuration
var ErrConfig = errors.New("invalid sampler configuration")

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

// A Sampler advances a Markov chain over a target density one state at a time
type Sampler interface {
	Dim() int
	Initialize() error
	Step() ([]float64, error) // per-component acceptance of the step
	CurrentPoint() []float64
}

// A Tuner adapts its parameters from the recorded chain history. Tune is
// called during warmup after every skipLen steps; updateCount counts the
// calls from 0.
type Tuner interface {
	Tune(skipLen int, updateCount int) error
}

// Proposal draws a full proposal vector given the current location and the
// per-component scale
type Proposal interface {
	Propose(location []float64, scale []float64) ([]float64, error)
}

// ProposalFunc adapts a plain function to a Proposal
type ProposalFunc func(location []float64, scale []float64) []float64

// Propose implements Proposal
func (f ProposalFunc) Propose(location []float64, scale []float64) ([]float64, error) {
	return f(location, scale), nil
}

// symmetric is implemented by proposals that can report q(x|y) == q(y|x)
type symmetric interface {
	IsSymmetric() bool
}
