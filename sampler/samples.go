package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Samples holds chain states, one row per step
type Samples struct {
	dim  int
	data []float64 // row-major
}

// NewSamples creates an empty sample set of the given dimension
func NewSamples(dim int) (*Samples, error) {
	if dim < 1 {
		return nil, errors.Errorf("Invalid sample dimension %d", dim)
	}
	return &Samples{dim: dim}, nil
}

// Add appends a copy of x
func (s *Samples) Add(x []float64) error {
	if len(x) != s.dim {
		return errors.Errorf("Sample length %d != dimension %d", len(x), s.dim)
	}
	s.data = append(s.data, x...)
	return nil
}

// Len is the number of samples
func (s *Samples) Len() int { return len(s.data) / s.dim }

// Dim is the sample dimension
func (s *Samples) Dim() int { return s.dim }

// Row returns a copy of sample i
func (s *Samples) Row(i int) []float64 {
	return append([]float64(nil), s.data[i*s.dim:(i+1)*s.dim]...)
}

// Matrix returns the samples as a Len x Dim matrix sharing storage
func (s *Samples) Matrix() *mat.Dense {
	if s.Len() < 1 {
		return nil
	}
	return mat.NewDense(s.Len(), s.dim, s.data)
}

// Burn returns the samples without the first n
func (s *Samples) Burn(n int) (*Samples, error) {
	if n < 0 || n > s.Len() {
		return nil, errors.Errorf("Cannot burn %d of %d samples", n, s.Len())
	}
	return &Samples{
		dim:  s.dim,
		data: append([]float64(nil), s.data[n*s.dim:]...),
	}, nil
}

func (s *Samples) column(j int) []float64 {
	col := make([]float64, s.Len())
	mat.Col(col, j, s.Matrix())
	return col
}

// Mean is the componentwise sample mean (NaN when empty)
func (s *Samples) Mean() []float64 {
	m := make([]float64, s.dim)
	if s.Len() < 1 {
		floats.AddConst(math.NaN(), m)
		return m
	}
	for j := range m {
		m[j] = stat.Mean(s.column(j), nil)
	}
	return m
}

// Std is the componentwise unbiased sample standard deviation (NaN with
// fewer than 2 samples)
func (s *Samples) Std() []float64 {
	sd := make([]float64, s.dim)
	if s.Len() < 2 {
		floats.AddConst(math.NaN(), sd)
		return sd
	}
	for j := range sd {
		sd[j] = stat.StdDev(s.column(j), nil)
	}
	return sd
}
