package solver

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/CraigKelly/imprior/operator"
)

// FISTAOptions controls the accelerated proximal gradient iteration
type FISTAOptions struct {
	StepSize float64 // Gradient step; must be <= 1/||A||^2 for convergence
	MaxIter  int     // Iteration cap
	AbsTol   float64 // Stop when ||x_k - x_{k-1}|| < AbsTol
}

// DefaultFISTAOptions returns the options used when none are given
func DefaultFISTAOptions() FISTAOptions {
	return FISTAOptions{StepSize: 1.0, MaxIter: 100, AbsTol: 1e-12}
}

// FISTAResult holds the solution and the iteration count
type FISTAResult struct {
	X          []float64
	Iterations int
	Converged  bool
}

// FISTA minimizes 0.5||Ax - b||^2 + g(x) where prox is the proximal operator
// of g. Only a single proximal is accepted: split policies need an ADMM-type
// solver.
func FISTA(a operator.Operator, b []float64, x0 []float64, prox Proximal, opts FISTAOptions) (*FISTAResult, error) {
	if a == nil || prox == nil {
		return nil, errors.New("FISTA requires an operator and a proximal")
	}
	r, c := a.Dims()
	if len(b) != r {
		return nil, errors.Errorf("Data length %d does not match operator rows %d", len(b), r)
	}
	if len(x0) != c {
		return nil, errors.Errorf("Initial point length %d does not match operator cols %d", len(x0), c)
	}
	if opts.StepSize <= 0 || opts.MaxIter < 1 {
		return nil, errors.Errorf("Invalid FISTA options %+v", opts)
	}

	x := make([]float64, c)
	copy(x, x0)
	y := make([]float64, c)
	copy(y, x0)
	t := 1.0

	res := &FISTAResult{}
	for k := 0; k < opts.MaxIter; k++ {
		// gradient of the data fit at y
		resid := a.Apply(y)
		floats.Sub(resid, b)
		grad := a.ApplyT(resid)

		step := make([]float64, c)
		copy(step, y)
		floats.AddScaled(step, -opts.StepSize, grad)
		xNew := prox(step, opts.StepSize)
		if len(xNew) != c {
			return nil, errors.Errorf("Proximal returned length %d, expected %d", len(xNew), c)
		}

		tNew := (1 + math.Sqrt(1+4*t*t)) / 2
		diff := floats.Distance(xNew, x, 2)

		for i := range y {
			y[i] = xNew[i] + (t-1)/tNew*(xNew[i]-x[i])
		}
		x, t = xNew, tNew
		res.Iterations = k + 1

		if diff < opts.AbsTol {
			res.Converged = true
			break
		}
	}

	res.X = x
	return res, nil
}
