package implicit

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/imprior/distribution"
	"github.com/CraigKelly/imprior/geometry"
)

// NewRegularizedUniform is an implicit prior that is flat apart from its
// regularization. It is backed by a zero-precision Gaussian whose variables
// are not exposed: only the strength can be conditioned on or mutated.
func NewRegularizedUniform(name string, geom geometry.Geometry, cfg Config) (*RegularizedGaussian, error) {
	if err := geometry.Check(geom); err != nil {
		return nil, configErrorf("%v", err)
	}
	n := geom.ParDim()
	gaussian, err := distribution.NewGaussian(distribution.GaussianConfig{
		Name:     name,
		Mean:     make([]float64, n),
		SqrtPrec: mat.NewDense(n, n, nil),
		Geometry: geom,
	})
	if err != nil {
		return nil, errors.Wrap(err, "Could not create underlying Gaussian")
	}
	return wrapGaussian(gaussian, cfg, true)
}
