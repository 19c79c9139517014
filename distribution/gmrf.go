package distribution

import (
	"github.com/pkg/errors"

	"github.com/CraigKelly/imprior/geometry"
	"github.com/CraigKelly/imprior/operator"
)

// GMRFConfig describes a Gaussian Markov random field with precision
// Prec * D^T D where D is a finite difference of the given order.
type GMRFConfig struct {
	Name     string
	Mean     []float64
	Prec     float64 // scalar precision weight
	BC       string  // operator.BCZero (default), BCPeriodic or BCNeumann
	Order    int     // 1 (default) or 2
	Dim      int     // used when Geometry is nil and Mean does not set the dimension
	Geometry geometry.Geometry
}

// differenceFor builds the order-k difference operator for the geometry
func differenceFor(geom geometry.Geometry, bc string, order int) (operator.Operator, error) {
	switch g := geom.(type) {
	case geometry.Continuous1D:
		d1, err := operator.NewFirstOrderFiniteDifference1D(g.N, bc)
		if err != nil {
			return nil, err
		}
		if order == 1 {
			return d1, nil
		}
		r, _ := d1.Dims()
		d2, err := operator.NewFirstOrderFiniteDifference1D(r, bc)
		if err != nil {
			return nil, err
		}
		return operator.Compose(d2, d1)
	case geometry.Continuous2D, geometry.Image2D:
		if order != 1 {
			return nil, errors.Errorf("Order %d GMRF not supported on %v", order, geom)
		}
		rows, cols := g.(interface{ FunShape() (int, int) }).FunShape()
		return operator.NewFirstOrderFiniteDifference2D(rows, cols, bc)
	}
	return nil, errors.Errorf("Geometry %v not supported for GMRF", geom)
}

// NewGMRF creates the Gaussian with the GMRF precision structure
func NewGMRF(cfg GMRFConfig) (*Gaussian, error) {
	if cfg.Prec <= 0 {
		return nil, errors.Errorf("GMRF precision must be positive, got %v", cfg.Prec)
	}
	if cfg.BC == "" {
		cfg.BC = operator.BCZero
	}
	if cfg.Order == 0 {
		cfg.Order = 1
	}
	if cfg.Order != 1 && cfg.Order != 2 {
		return nil, errors.Errorf("GMRF order must be 1 or 2, got %d", cfg.Order)
	}

	geom := cfg.Geometry
	if geom == nil {
		dim := cfg.Dim
		if len(cfg.Mean) > 1 {
			dim = len(cfg.Mean)
		}
		geom = geometry.Default(dim)
	}
	if err := geometry.Check(geom); err != nil {
		return nil, err
	}

	d, err := differenceFor(geom, cfg.BC, cfg.Order)
	if err != nil {
		return nil, errors.Wrap(err, "Could not build GMRF difference operator")
	}
	prec := operator.Gram(d)
	prec.ScaleSym(cfg.Prec, prec)

	return NewGaussian(GaussianConfig{
		Name:     cfg.Name,
		Mean:     cfg.Mean,
		Prec:     prec,
		Geometry: geom,
	})
}
