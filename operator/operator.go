// Package operator provides the linear operators paired with proximal
// operators in split regularization policies.
package operator

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Operator is a linear map from R^c to R^r
type Operator interface {
	Dims() (r, c int)
	Apply(x []float64) []float64  // len(x) == c, result has len r
	ApplyT(y []float64) []float64 // len(y) == r, result has len c
}

// Identity is the n x n identity
type Identity struct {
	N int
}

// NewIdentity returns the identity on R^n
func NewIdentity(n int) (*Identity, error) {
	if n < 1 {
		return nil, errors.Errorf("Invalid identity size %d", n)
	}
	return &Identity{N: n}, nil
}

// Dims implements Operator
func (id *Identity) Dims() (int, int) { return id.N, id.N }

// Apply implements Operator (returns a copy)
func (id *Identity) Apply(x []float64) []float64 {
	cp := make([]float64, len(x))
	copy(cp, x)
	return cp
}

// ApplyT implements Operator
func (id *Identity) ApplyT(y []float64) []float64 { return id.Apply(y) }

// Matrix adapts a gonum matrix to an Operator
type Matrix struct {
	M mat.Matrix
}

// Dims implements Operator
func (m Matrix) Dims() (int, int) { return m.M.Dims() }

// Apply implements Operator
func (m Matrix) Apply(x []float64) []float64 {
	r, _ := m.M.Dims()
	dst := mat.NewVecDense(r, nil)
	dst.MulVec(m.M, mat.NewVecDense(len(x), x))
	return dst.RawVector().Data
}

// ApplyT implements Operator
func (m Matrix) ApplyT(y []float64) []float64 {
	_, c := m.M.Dims()
	dst := mat.NewVecDense(c, nil)
	dst.MulVec(m.M.T(), mat.NewVecDense(len(y), y))
	return dst.RawVector().Data
}

// composed applies b then a
type composed struct {
	a, b Operator
}

// Compose returns the operator x -> a(b(x))
func Compose(a, b Operator) (Operator, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, errors.Errorf("Cannot compose %dx%d with %dx%d", ar, ac, br, bc)
	}
	return composed{a: a, b: b}, nil
}

func (o composed) Dims() (int, int) {
	r, _ := o.a.Dims()
	_, c := o.b.Dims()
	return r, c
}

func (o composed) Apply(x []float64) []float64  { return o.a.Apply(o.b.Apply(x)) }
func (o composed) ApplyT(y []float64) []float64 { return o.b.ApplyT(o.a.ApplyT(y)) }

// Dense materializes an operator as a gonum dense matrix by applying it to the
// unit vectors.
func Dense(op Operator) *mat.Dense {
	r, c := op.Dims()
	d := mat.NewDense(r, c, nil)
	e := make([]float64, c)
	for j := 0; j < c; j++ {
		e[j] = 1
		d.SetCol(j, op.Apply(e))
		e[j] = 0
	}
	return d
}

// Gram returns the symmetric matrix op^T op
func Gram(op Operator) *mat.SymDense {
	d := Dense(op)
	_, c := d.Dims()
	g := mat.NewSymDense(c, nil)
	g.SymOuterK(1, d.T())
	return g
}
