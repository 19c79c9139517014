package operator

import (
	"strings"

	"github.com/pkg/errors"
)

// Boundary condition names for finite differences
const (
	BCZero     = "zero"
	BCPeriodic = "periodic"
	BCNeumann  = "neumann"
)

// diff1D is the forward difference on n nodes under a boundary condition.
//
//	zero:     (n+1) x n, y_i = x_i - x_{i-1} with x_{-1} = x_n = 0
//	periodic: n x n,     y_i = x_{i+1} - x_i with x_n = x_0
//	neumann:  (n-1) x n, y_i = x_{i+1} - x_i
type diff1D struct {
	n  int
	bc string
}

func newDiff1D(n int, bc string) (diff1D, error) {
	bc = strings.ToLower(bc)
	switch bc {
	case BCZero, BCPeriodic:
		if n < 1 {
			return diff1D{}, errors.Errorf("Invalid node count %d", n)
		}
	case BCNeumann:
		if n < 2 {
			return diff1D{}, errors.Errorf("Neumann difference needs at least 2 nodes, got %d", n)
		}
	default:
		return diff1D{}, errors.Errorf("Unknown boundary condition %s", bc)
	}
	return diff1D{n: n, bc: bc}, nil
}

func (d diff1D) rows() int {
	switch d.bc {
	case BCZero:
		return d.n + 1
	case BCNeumann:
		return d.n - 1
	}
	return d.n
}

// apply writes D x into dst, reading x with a stride so the same code works
// along rows and columns of an image.
func (d diff1D) apply(dst []float64, dstStride int, x []float64, xStride int) {
	n := d.n
	at := func(i int) float64 { return x[i*xStride] }
	switch d.bc {
	case BCZero:
		for i := 0; i <= n; i++ {
			var v float64
			if i < n {
				v = at(i)
			}
			if i > 0 {
				v -= at(i - 1)
			}
			dst[i*dstStride] = v
		}
	case BCPeriodic:
		for i := 0; i < n; i++ {
			dst[i*dstStride] = at((i+1)%n) - at(i)
		}
	case BCNeumann:
		for i := 0; i < n-1; i++ {
			dst[i*dstStride] = at(i+1) - at(i)
		}
	}
}

// applyT writes D^T y into dst
func (d diff1D) applyT(dst []float64, dstStride int, y []float64, yStride int) {
	n := d.n
	at := func(i int) float64 { return y[i*yStride] }
	switch d.bc {
	case BCZero:
		for j := 0; j < n; j++ {
			dst[j*dstStride] = at(j) - at(j+1)
		}
	case BCPeriodic:
		for j := 0; j < n; j++ {
			dst[j*dstStride] = at((j-1+n)%n) - at(j)
		}
	case BCNeumann:
		for j := 0; j < n; j++ {
			var v float64
			if j >= 1 {
				v = at(j - 1)
			}
			if j <= n-2 {
				v -= at(j)
			}
			dst[j*dstStride] = v
		}
	}
}

// FirstOrderFiniteDifference is the forward difference operator on a 1D
// signal or, for a Rows x Cols image stored row-major, the stacked horizontal
// and vertical forward differences.
type FirstOrderFiniteDifference struct {
	rows, cols int
	dRow       diff1D // difference along a row (over columns)
	dCol       diff1D // difference along a column (over rows), 2D only
	twoD       bool
}

// NewFirstOrderFiniteDifference1D creates the difference operator on n nodes
func NewFirstOrderFiniteDifference1D(n int, bc string) (*FirstOrderFiniteDifference, error) {
	d, err := newDiff1D(n, bc)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create 1D finite difference")
	}
	return &FirstOrderFiniteDifference{rows: 1, cols: n, dRow: d}, nil
}

// NewFirstOrderFiniteDifference2D creates the difference operator on a
// rows x cols image
func NewFirstOrderFiniteDifference2D(rows, cols int, bc string) (*FirstOrderFiniteDifference, error) {
	dr, err := newDiff1D(cols, bc)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create 2D finite difference (rows)")
	}
	dc, err := newDiff1D(rows, bc)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create 2D finite difference (cols)")
	}
	return &FirstOrderFiniteDifference{rows: rows, cols: cols, dRow: dr, dCol: dc, twoD: true}, nil
}

// Dims implements Operator
func (f *FirstOrderFiniteDifference) Dims() (int, int) {
	if !f.twoD {
		return f.dRow.rows(), f.cols
	}
	return f.rows*f.dRow.rows() + f.dCol.rows()*f.cols, f.rows * f.cols
}

// Apply implements Operator
func (f *FirstOrderFiniteDifference) Apply(x []float64) []float64 {
	r, _ := f.Dims()
	dst := make([]float64, r)
	if !f.twoD {
		f.dRow.apply(dst, 1, x, 1)
		return dst
	}

	hr := f.dRow.rows()
	for i := 0; i < f.rows; i++ {
		f.dRow.apply(dst[i*hr:], 1, x[i*f.cols:], 1)
	}
	vert := dst[f.rows*hr:]
	for j := 0; j < f.cols; j++ {
		f.dCol.apply(vert[j:], f.cols, x[j:], f.cols)
	}
	return dst
}

// ApplyT implements Operator
func (f *FirstOrderFiniteDifference) ApplyT(y []float64) []float64 {
	dst := make([]float64, f.rows*f.cols)
	if !f.twoD {
		f.dRow.applyT(dst, 1, y, 1)
		return dst
	}

	hr := f.dRow.rows()
	for i := 0; i < f.rows; i++ {
		f.dRow.applyT(dst[i*f.cols:], 1, y[i*hr:], 1)
	}
	vert := y[f.rows*hr:]
	tmp := make([]float64, f.rows*f.cols)
	for j := 0; j < f.cols; j++ {
		f.dCol.applyT(tmp[j:], f.cols, vert[j:], f.cols)
	}
	for i := range dst {
		dst[i] += tmp[i]
	}
	return dst
}
