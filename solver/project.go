// Package solver holds the Euclidean projections and proximal operators used
// by implicit priors, plus a proximal-gradient solver that consumes them.
package solver

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Proximal is a Euclidean proximal operator: it solves
// argmin_z 0.5||x-z||^2 + gamma*g(z) for some penalty g.
type Proximal func(x []float64, gamma float64) []float64

// ProjectNonnegative clamps every component to be >= 0
func ProjectNonnegative(x []float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = math.Max(v, 0)
	}
	return z
}

// bound returns component i of a bound vector; nil uses def and a single
// value broadcasts.
func bound(b []float64, i int, def float64) float64 {
	switch len(b) {
	case 0:
		return def
	case 1:
		return b[0]
	}
	return b[i]
}

// ProjectBox clamps x into [lower, upper]. A nil lower bound is 0 and a nil
// upper bound is 1; a single value applies to every component.
func ProjectBox(x []float64, lower []float64, upper []float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		lo, hi := bound(lower, i, 0), bound(upper, i, 1)
		z[i] = math.Min(math.Max(v, lo), hi)
	}
	return z
}

// ProjectSimplex projects x onto {z >= 0, sum(z) = radius}
func ProjectSimplex(x []float64, radius float64) []float64 {
	n := len(x)
	if n == 0 {
		return []float64{}
	}

	u := make([]float64, n)
	copy(u, x)
	sort.Sort(sort.Reverse(sort.Float64Slice(u)))

	theta := u[0] - radius
	var cum float64
	for j := 0; j < n; j++ {
		cum += u[j]
		t := (cum - radius) / float64(j+1)
		if u[j]-t > 0 {
			theta = t
		}
	}

	z := make([]float64, n)
	for i, v := range x {
		z[i] = math.Max(v-theta, 0)
	}
	return z
}

// ProjectL1Ball projects x onto {z : ||z||_1 <= radius}
func ProjectL1Ball(x []float64, radius float64) []float64 {
	if floats.Norm(x, 1) <= radius {
		z := make([]float64, len(x))
		copy(z, x)
		return z
	}

	abs := make([]float64, len(x))
	for i, v := range x {
		abs[i] = math.Abs(v)
	}
	w := ProjectSimplex(abs, radius)
	for i, v := range x {
		if v < 0 {
			w[i] = -w[i]
		}
	}
	return w
}

// ProjectL2Ball projects x onto {z : ||z||_2 <= radius}
func ProjectL2Ball(x []float64, radius float64) []float64 {
	z := make([]float64, len(x))
	copy(z, x)

	nrm := floats.Norm(x, 2)
	if nrm <= radius {
		return z
	}
	floats.Scale(radius/nrm, z)
	return z
}

// ProjectHalfspace projects x onto {z : <a, z> <= b}
func ProjectHalfspace(x []float64, a []float64, b float64) []float64 {
	z := make([]float64, len(x))
	copy(z, x)

	ax := floats.Dot(a, x)
	if ax <= b {
		return z
	}
	floats.AddScaled(z, -(ax-b)/floats.Dot(a, a), a)
	return z
}

// ProximalL1 is the soft threshold: the proximal operator of gamma*||x||_1
func ProximalL1(x []float64, gamma float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		mag := math.Max(math.Abs(v)-gamma, 0)
		if v < 0 && mag > 0 {
			mag = -mag
		}
		z[i] = mag
	}
	return z
}
