// Package distribution holds the densities the samplers and implicit priors
// work with: a target density interface, user defined densities, the Gaussian
// family, likelihoods and the random-walk proposal.
package distribution

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Density is anything with a log density over a fixed dimension. A point
// outside the support has log density -Inf. An error means the density could
// not be evaluated at all.
type Density interface {
	Dim() int
	LogD(x []float64) (float64, error)
}

// Values binds variable names to values when conditioning. Scalars are
// one-element slices.
type Values map[string][]float64

// sortedKeys returns the keys of v in a fixed order so conditioning is
// deterministic.
func (v Values) sortedKeys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Conditioned is the result of conditioning: a distribution, a likelihood or
// an evaluated density. ConditioningVariables lists the variables still free.
type Conditioned interface {
	ConditioningVariables() []string
}

// Conditional is a named distribution that can be conditioned on variables,
// including its own name.
type Conditional interface {
	Density
	Conditioned
	Name() string
	Condition(v Values) (Conditioned, error)
}

// EvaluatedDensity is a distribution conditioned on every variable,
// including its own: a single log density value.
type EvaluatedDensity struct {
	Value float64
}

// ConditioningVariables implements Conditioned (there are none)
func (e *EvaluatedDensity) ConditioningVariables() []string { return nil }

// Likelihood is a distribution with its own variable fixed to observed data,
// viewed as a function of the remaining conditioning variables.
type Likelihood struct {
	Dist Conditional
	Data []float64
}

// ConditioningVariables implements Conditioned
func (l *Likelihood) ConditioningVariables() []string {
	return l.Dist.ConditioningVariables()
}

// LogD evaluates the log likelihood at the given variable values
func (l *Likelihood) LogD(v Values) (float64, error) {
	var d Density = l.Dist
	if len(v) > 0 {
		c, err := l.Dist.Condition(v)
		if err != nil {
			return math.NaN(), errors.Wrap(err, "Could not condition likelihood")
		}
		var ok bool
		d, ok = c.(Density)
		if !ok {
			return math.NaN(), errors.Errorf("Conditioning %s did not produce a density", l.Dist.Name())
		}
	}

	if rem := l.remaining(d); len(rem) > 0 {
		return math.NaN(), errors.Errorf("Likelihood still depends on %v", rem)
	}
	return d.LogD(l.Data)
}

func (l *Likelihood) remaining(d Density) []string {
	if c, ok := d.(Conditioned); ok {
		return c.ConditioningVariables()
	}
	return nil
}

// ToConditioned fixes the own variable of d to data: with no conditioning
// variables left this is an EvaluatedDensity, otherwise a Likelihood.
func ToConditioned(d Conditional, data []float64) (Conditioned, error) {
	if len(data) != d.Dim() {
		return nil, errors.Errorf("Data length %d does not match dimension %d of %s", len(data), d.Dim(), d.Name())
	}

	if len(d.ConditioningVariables()) > 0 {
		cp := make([]float64, len(data))
		copy(cp, data)
		return &Likelihood{Dist: d, Data: cp}, nil
	}

	val, err := d.LogD(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not evaluate %s", d.Name())
	}
	return &EvaluatedDensity{Value: val}, nil
}

// UserDefined is a density given directly by its log density function
type UserDefined struct {
	Dimension  int
	LogPDFFunc func(x []float64) float64
}

// NewUserDefined checks and returns a user defined density
func NewUserDefined(dim int, logpdf func(x []float64) float64) (*UserDefined, error) {
	if dim < 1 {
		return nil, errors.Errorf("Invalid dimension %d", dim)
	}
	if logpdf == nil {
		return nil, errors.New("A log density function is required")
	}
	return &UserDefined{Dimension: dim, LogPDFFunc: logpdf}, nil
}

// Dim implements Density
func (u *UserDefined) Dim() int { return u.Dimension }

// LogD implements Density
func (u *UserDefined) LogD(x []float64) (float64, error) {
	if len(x) != u.Dimension {
		return math.NaN(), errors.Errorf("Point length %d != dimension %d", len(x), u.Dimension)
	}
	return u.LogPDFFunc(x), nil
}
