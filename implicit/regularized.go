package implicit

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/imprior/distribution"
	"github.com/CraigKelly/imprior/geometry"
	"github.com/CraigKelly/imprior/operator"
	"github.com/CraigKelly/imprior/rand"
)

// StrengthVariable is the mutable variable name of the regularization weight
const StrengthVariable = "strength"

// RegularizedGaussian is a Gaussian-type density combined with a proximal
// regularization policy. Parameter getters and setters act on the owned
// Gaussian; the regularized density itself cannot be evaluated or sampled
// directly.
type RegularizedGaussian struct {
	gaussian *distribution.Gaussian
	res      *Resolution

	// hideUnderlying keeps the Gaussian's variables out of conditioning
	hideUnderlying bool
}

// NewRegularizedGaussian creates the Gaussian from g and resolves cfg
// against its geometry
func NewRegularizedGaussian(g distribution.GaussianConfig, cfg Config) (*RegularizedGaussian, error) {
	gaussian, err := distribution.NewGaussian(g)
	if err != nil {
		return nil, errors.Wrap(err, "Could not create underlying Gaussian")
	}
	return wrapGaussian(gaussian, cfg, false)
}

// NewConstrainedGaussian is a RegularizedGaussian limited to a projector or
// a constraint preset
func NewConstrainedGaussian(g distribution.GaussianConfig, cfg Config) (*RegularizedGaussian, error) {
	if err := checkConstrainedOnly(cfg); err != nil {
		return nil, err
	}
	return NewRegularizedGaussian(g, cfg)
}

// NewNonnegativeGaussian is a Gaussian constrained to the nonnegative orthant
func NewNonnegativeGaussian(g distribution.GaussianConfig) (*RegularizedGaussian, error) {
	cfg := DefaultConfig()
	cfg.Constraint = ConstraintNonnegativity
	return NewRegularizedGaussian(g, cfg)
}

func checkConstrainedOnly(cfg Config) error {
	if cfg.Proximal != nil || cfg.SplitProximal != nil || cfg.Regularization != "" {
		return configErrorf("A constrained prior takes only a projector or a constraint")
	}
	return nil
}

func wrapGaussian(gaussian *distribution.Gaussian, cfg Config, hide bool) (*RegularizedGaussian, error) {
	res, err := Resolve(cfg, gaussian.Geometry())
	if err != nil {
		return nil, err
	}

	if sv := res.StrengthVariable(); sv != "" {
		if sv == gaussian.Name() {
			return nil, configErrorf("Strength variable %s clashes with the distribution name", sv)
		}
		for _, v := range gaussian.ConditioningVariables() {
			if v == sv {
				return nil, configErrorf("Strength variable %s is already a conditioning variable", sv)
			}
		}
	}

	return &RegularizedGaussian{
		gaussian:       gaussian,
		res:            res,
		hideUnderlying: hide,
	}, nil
}

// Gaussian returns the owned Gaussian
func (r *RegularizedGaussian) Gaussian() *distribution.Gaussian { return r.gaussian }

// Name of the distribution's own variable
func (r *RegularizedGaussian) Name() string { return r.gaussian.Name() }

// SetName sets the variable name
func (r *RegularizedGaussian) SetName(name string) { r.gaussian.SetName(name) }

// Dim implements distribution.Density
func (r *RegularizedGaussian) Dim() int { return r.gaussian.Dim() }

// Geometry of the underlying Gaussian
func (r *RegularizedGaussian) Geometry() geometry.Geometry { return r.gaussian.Geometry() }

// SetGeometry sets the geometry of the underlying Gaussian
func (r *RegularizedGaussian) SetGeometry(geom geometry.Geometry) error {
	return r.gaussian.SetGeometry(geom)
}

// Mean of the underlying Gaussian
func (r *RegularizedGaussian) Mean() []float64 { return r.gaussian.Mean() }

// SetMean sets the mean of the underlying Gaussian
func (r *RegularizedGaussian) SetMean(m []float64) error { return r.gaussian.SetMean(m) }

// Cov of the underlying Gaussian
func (r *RegularizedGaussian) Cov() (mat.Matrix, error) { return r.gaussian.Cov() }

// SetCov sets the covariance of the underlying Gaussian
func (r *RegularizedGaussian) SetCov(m mat.Matrix) error { return r.gaussian.SetCov(m) }

// Prec of the underlying Gaussian
func (r *RegularizedGaussian) Prec() (mat.Matrix, error) { return r.gaussian.Prec() }

// SetPrec sets the precision of the underlying Gaussian
func (r *RegularizedGaussian) SetPrec(m mat.Matrix) error { return r.gaussian.SetPrec(m) }

// SqrtCov of the underlying Gaussian
func (r *RegularizedGaussian) SqrtCov() (mat.Matrix, error) { return r.gaussian.SqrtCov() }

// SetSqrtCov sets the covariance square root of the underlying Gaussian
func (r *RegularizedGaussian) SetSqrtCov(m mat.Matrix) error { return r.gaussian.SetSqrtCov(m) }

// SqrtPrec of the underlying Gaussian
func (r *RegularizedGaussian) SqrtPrec() (mat.Matrix, error) { return r.gaussian.SqrtPrec() }

// SetSqrtPrec sets the precision square root of the underlying Gaussian
func (r *RegularizedGaussian) SetSqrtPrec(m mat.Matrix) error { return r.gaussian.SetSqrtPrec(m) }

// Proximal returns the resolved policy
func (r *RegularizedGaussian) Proximal() Policy { return r.res.Policy() }

// Preset returns the preset in use, nil for a custom policy
func (r *RegularizedGaussian) Preset() *Preset { return r.res.Preset() }

// Transformation returns the TV difference operator, nil without TV
func (r *RegularizedGaussian) Transformation() operator.Operator { return r.res.Transformation() }

// Strength returns the l1/TV regularization weight
func (r *RegularizedGaussian) Strength() (float64, error) { return r.res.Strength() }

// SetStrength replaces the l1/TV regularization weight
func (r *RegularizedGaussian) SetStrength(v float64) error { return r.res.SetStrength(v) }

// SetForceList toggles the split form for single-term presets
func (r *RegularizedGaussian) SetForceList(force bool) error { return r.res.SetForceList(force) }

// LogPDF is NaN: the regularized density has no closed form
func (r *RegularizedGaussian) LogPDF(x []float64) float64 { return math.NaN() }

// LogD implements distribution.Density and is always NaN
func (r *RegularizedGaussian) LogD(x []float64) (float64, error) { return math.NaN(), nil }

// Sample always fails; sample implicit priors through their proximal policy
func (r *RegularizedGaussian) Sample(gen *rand.Generator) ([]float64, error) {
	return nil, errors.Wrap(ErrUnsupported, "Direct sampling of an implicit prior is not supported, use a proximal based sampler")
}

// MutableVariables lists the variables that may be set on the prior
func (r *RegularizedGaussian) MutableVariables() []string {
	var vars []string
	if !r.hideUnderlying {
		vars = append(vars, r.gaussian.MutableVariables()...)
	}
	if r.res.preset.hasStrength() {
		vars = append(vars, StrengthVariable)
	}
	return vars
}

// ConditioningVariables lists the unbound conditioning variables, sorted
func (r *RegularizedGaussian) ConditioningVariables() []string {
	var vars []string
	if !r.hideUnderlying {
		vars = append(vars, r.gaussian.ConditioningVariables()...)
	}
	if sv := r.res.StrengthVariable(); sv != "" {
		vars = append(vars, sv)
	}
	sort.Strings(vars)
	return vars
}

// Condition binds the given variables on a copy of the prior. A value for
// the prior's own name converts it into a likelihood.
func (r *RegularizedGaussian) Condition(v distribution.Values) (distribution.Conditioned, error) {
	if r.hideUnderlying || r.res.preset.hasStrength() {
		return r.conditionSelf(v)
	}
	return r.conditionUnderlying(v)
}

// split separates the own-name value from the rest
func (r *RegularizedGaussian) split(v distribution.Values) ([]float64, bool, distribution.Values) {
	name := r.Name()
	rest := make(distribution.Values, len(v))
	var own []float64
	hasOwn := false
	for k, val := range v {
		if k == name && name != "" {
			own, hasOwn = val, true
			continue
		}
		rest[k] = val
	}
	return own, hasOwn, rest
}

// rewrap conditions the Gaussian on rest and wraps it with a copy of the
// resolution
func (r *RegularizedGaussian) rewrap(rest distribution.Values) (*RegularizedGaussian, error) {
	c, err := r.gaussian.Condition(rest)
	if err != nil {
		return nil, err
	}
	g, ok := c.(*distribution.Gaussian)
	if !ok {
		return nil, errors.Errorf("Conditioning %s did not produce a Gaussian", r.Name())
	}
	return &RegularizedGaussian{
		gaussian:       g,
		res:            r.res.clone(),
		hideUnderlying: r.hideUnderlying,
	}, nil
}

func (r *RegularizedGaussian) finish(nd *RegularizedGaussian, own []float64, hasOwn bool) (distribution.Conditioned, error) {
	if hasOwn {
		return distribution.ToConditioned(nd, own)
	}
	return nd, nil
}

// conditionUnderlying routes every non-own variable to the Gaussian
func (r *RegularizedGaussian) conditionUnderlying(v distribution.Values) (distribution.Conditioned, error) {
	own, hasOwn, rest := r.split(v)
	nd, err := r.rewrap(rest)
	if err != nil {
		return nil, err
	}
	return r.finish(nd, own, hasOwn)
}

// conditionSelf binds the strength variable on the prior itself and routes
// the rest to the Gaussian unless it is hidden
func (r *RegularizedGaussian) conditionSelf(v distribution.Values) (distribution.Conditioned, error) {
	own, hasOwn, rest := r.split(v)

	sv := r.res.StrengthVariable()
	strength, hasStrength := rest[sv]
	if sv != "" && hasStrength {
		delete(rest, sv)
	}
	if r.hideUnderlying && len(rest) > 0 {
		keys := make([]string, 0, len(rest))
		for k := range rest {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, errors.Errorf("%v are not conditioning variables of %s", keys, r.Name())
	}

	nd, err := r.rewrap(rest)
	if err != nil {
		return nil, err
	}

	if sv != "" && hasStrength {
		if len(strength) != 1 {
			return nil, configErrorf("Strength %s must be a scalar, got %d values", sv, len(strength))
		}
		nd.res.strengthVar = ""
		if err := nd.res.SetStrength(strength[0]); err != nil {
			return nil, err
		}
	}

	return r.finish(nd, own, hasOwn)
}
