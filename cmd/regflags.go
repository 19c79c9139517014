package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/CraigKelly/imprior/distribution"
	"github.com/CraigKelly/imprior/geometry"
	"github.com/CraigKelly/imprior/implicit"
)

// regFlags are the regularization options shared by prox and fista
type regFlags struct {
	constraint     string
	regularization string
	lower          string
	upper          string
	radius         float64
	strength       float64
	forceList      bool
	rows           int
	cols           int
}

func (rf *regFlags) register(fs *pflag.FlagSet) {
	def := implicit.DefaultConfig()
	fs.StringVar(&rf.constraint, "constraint", "", "Constraint preset (nonnegativity, box, simplex, l1, l2)")
	fs.StringVar(&rf.regularization, "regularization", "", "Regularization preset (l1, TV)")
	fs.StringVar(&rf.lower, "lower", "", "Box lower bound: one value or one per component (default 0)")
	fs.StringVar(&rf.upper, "upper", "", "Box upper bound: one value or one per component (default 1)")
	fs.Float64Var(&rf.radius, "radius", def.Radius, "Radius of the simplex, l1 and l2 constraints")
	fs.Float64Var(&rf.strength, "strength", implicit.DefaultStrength, "Weight of the l1 or TV regularization")
	fs.BoolVar(&rf.forceList, "force-list", false, "Always use the split (proximal, operator) form")
	fs.IntVar(&rf.rows, "rows", 0, "Treat the vector as a rows x cols image (0 for a 1D signal)")
	fs.IntVar(&rf.cols, "cols", 0, "Image columns when --rows is set")
}

func (rf *regFlags) config() (implicit.Config, error) {
	cfg := implicit.DefaultConfig()
	cfg.Constraint = rf.constraint
	cfg.Regularization = rf.regularization
	cfg.Radius = rf.radius
	cfg = cfg.WithStrength(rf.strength)
	cfg.ForceList = rf.forceList

	var err error
	if cfg.LowerBound, err = parseVector(rf.lower); err != nil {
		return cfg, errors.Wrap(err, "Invalid lower bound")
	}
	if cfg.UpperBound, err = parseVector(rf.upper); err != nil {
		return cfg, errors.Wrap(err, "Invalid upper bound")
	}
	return cfg, nil
}

func (rf *regFlags) geometry(n int) (geometry.Geometry, error) {
	if rf.rows == 0 {
		return geometry.Continuous1D{N: n}, nil
	}
	if rf.rows*rf.cols != n {
		return nil, errors.Errorf("Image %dx%d does not match %d values", rf.rows, rf.cols, n)
	}
	return geometry.Image2D{Rows: rf.rows, Cols: rf.cols}, nil
}

// prior builds a standard-normal RegularizedGaussian of dimension n
func (rf *regFlags) prior(n int) (*implicit.RegularizedGaussian, error) {
	if n < 1 {
		return nil, errors.New("At least one value is required")
	}
	geom, err := rf.geometry(n)
	if err != nil {
		return nil, err
	}
	cfg, err := rf.config()
	if err != nil {
		return nil, err
	}
	return implicit.NewRegularizedGaussian(distribution.GaussianConfig{
		Name:     "x",
		Mean:     []float64{0},
		Cov:      distribution.ScalarMatrix(1, 1),
		Geometry: geom,
	}, cfg)
}
