package implicit

import (
	"github.com/pkg/errors"

	"github.com/CraigKelly/imprior/distribution"
)

// NewRegularizedGMRF is a RegularizedGaussian over a GMRF
func NewRegularizedGMRF(g distribution.GMRFConfig, cfg Config) (*RegularizedGaussian, error) {
	gaussian, err := distribution.NewGMRF(g)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create underlying GMRF")
	}
	return wrapGaussian(gaussian, cfg, false)
}

// NewConstrainedGMRF is a GMRF with a projector or a constraint preset
func NewConstrainedGMRF(g distribution.GMRFConfig, cfg Config) (*RegularizedGaussian, error) {
	if err := checkConstrainedOnly(cfg); err != nil {
		return nil, err
	}
	return NewRegularizedGMRF(g, cfg)
}

// NewNonnegativeGMRF is a GMRF constrained to the nonnegative orthant
func NewNonnegativeGMRF(g distribution.GMRFConfig) (*RegularizedGaussian, error) {
	cfg := DefaultConfig()
	cfg.Constraint = ConstraintNonnegativity
	return NewRegularizedGMRF(g, cfg)
}
