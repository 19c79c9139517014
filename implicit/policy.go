// Package implicit provides implicit priors: Gaussian-type distributions
// regularized through a proximal operator or a projection. Their density has
// no closed form; samplers use the resolved proximal Policy instead.
//
// The Policy has one of two shapes. A single proximal serves penalties of the
// form g(x) and plain proximal-gradient solvers. A split list of (proximal,
// operator) pairs serves penalties sum_i g_i(L_i x) and splitting solvers;
// the list order is the order of the additive penalty terms.
package implicit

import (
	"github.com/pkg/errors"

	"github.com/CraigKelly/imprior/operator"
	"github.com/CraigKelly/imprior/solver"
)

// ErrConfig marks an invalid regularization or prior configuration
var ErrConfig = errors.New("invalid implicit prior configuration")

// ErrUnsupported marks an operation implicit priors do not support
var ErrUnsupported = errors.New("operation not supported by implicit prior")

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfig, format, args...)
}

// Proximal solves argmin_z 0.5||x-z||^2 + gamma*g(z)
type Proximal = solver.Proximal

// Projector is a Euclidean projection onto a constraint set
type Projector func(x []float64) []float64

// Pair is one term of a split policy: the proximal of g_i and its operator L_i
type Pair struct {
	Prox Proximal
	Op   operator.Operator
}

// Policy is the resolved proximal form of a regularization
type Policy struct {
	single Proximal
	split  []Pair
}

// SinglePolicy wraps a single proximal
func SinglePolicy(p Proximal) Policy {
	return Policy{single: p}
}

// SplitPolicy wraps an ordered list of pairs
func SplitPolicy(pairs []Pair) Policy {
	cp := make([]Pair, len(pairs))
	copy(cp, pairs)
	return Policy{split: cp}
}

// IsSplit is true for the list form. The zero Policy is neither form.
func (p Policy) IsSplit() bool { return p.split != nil }

// Valid is false for the zero Policy
func (p Policy) Valid() bool { return p.single != nil || p.split != nil }

// Single returns the proximal of a single-form policy
func (p Policy) Single() (Proximal, bool) {
	return p.single, p.single != nil
}

// Split returns a copy of the pairs of a split-form policy
func (p Policy) Split() ([]Pair, bool) {
	if p.split == nil {
		return nil, false
	}
	cp := make([]Pair, len(p.split))
	copy(cp, p.split)
	return cp, true
}

// Len is 1 for a single policy and the pair count otherwise
func (p Policy) Len() int {
	if p.single != nil {
		return 1
	}
	return len(p.split)
}

// liftProjector turns a projection into a proximal that ignores gamma
func liftProjector(proj Projector) Proximal {
	return func(z []float64, gamma float64) []float64 {
		return proj(z)
	}
}
