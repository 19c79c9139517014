package implicit

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/CraigKelly/imprior/distribution"
	"github.com/CraigKelly/imprior/geometry"
	"github.com/CraigKelly/imprior/operator"
	"github.com/CraigKelly/imprior/rand"
	"github.com/CraigKelly/imprior/solver"
)

const eps = 1e-12

func gaussCfg(n int) distribution.GaussianConfig {
	return distribution.GaussianConfig{
		Name: "x",
		Mean: make([]float64, n),
		Cov:  distribution.ScalarMatrix(n, 1),
	}
}

func presetCfg(constraint, regularization string) Config {
	cfg := DefaultConfig()
	cfg.Constraint = constraint
	cfg.Regularization = regularization
	return cfg
}

func TestResolveModes(t *testing.T) {
	assert := assert.New(t)
	geom := geometry.Continuous1D{N: 3}
	prox := func(x []float64, gamma float64) []float64 { return x }
	proj := func(x []float64) []float64 { return x }

	_, err := Resolve(DefaultConfig(), geom)
	assert.True(errors.Is(err, ErrConfig))

	cfg := DefaultConfig()
	cfg.Proximal = prox
	cfg.Projector = proj
	_, err = Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig))

	cfg = DefaultConfig()
	cfg.Proximal = prox
	cfg.SplitProximal = []Pair{{Prox: prox, Op: &operator.Identity{N: 3}}}
	_, err = Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig))

	cfg = presetCfg(ConstraintNonnegativity, "")
	cfg.Projector = proj
	_, err = Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig))

	cfg = DefaultConfig()
	cfg.Proximal = prox
	r, err := Resolve(cfg, geom)
	require.NoError(t, err)
	assert.Nil(r.Preset())
	assert.False(r.Policy().IsSplit())
	_, err = r.Strength()
	assert.Error(err)
	assert.Error(r.SetForceList(true))

	cfg = DefaultConfig()
	cfg.Projector = func(x []float64) []float64 { return solver.ProjectNonnegative(x) }
	r, err = Resolve(cfg, geom)
	require.NoError(t, err)
	p, ok := r.Policy().Single()
	require.True(t, ok)
	assert.Equal([]float64{0, 2, 0}, p([]float64{-1, 2, -3}, 100))
}

func TestResolveSplitList(t *testing.T) {
	assert := assert.New(t)
	geom := geometry.Continuous1D{N: 3}
	prox := func(x []float64, gamma float64) []float64 { return x }

	cfg := DefaultConfig()
	cfg.SplitProximal = []Pair{{Prox: prox, Op: &operator.Identity{N: 4}}}
	_, err := Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig)) // operator columns

	cfg.SplitProximal = []Pair{{Prox: nil, Op: &operator.Identity{N: 3}}}
	_, err = Resolve(cfg, geom)
	assert.Error(err)

	cfg.SplitProximal = []Pair{}
	_, err = Resolve(cfg, geom)
	assert.Error(err)

	d, err := operator.NewFirstOrderFiniteDifference1D(3, operator.BCZero)
	require.NoError(t, err)
	pairs := []Pair{{Prox: prox, Op: &operator.Identity{N: 3}}, {Prox: prox, Op: d}}
	cfg.SplitProximal = pairs
	r, err := Resolve(cfg, geom)
	require.NoError(t, err)
	got, ok := r.Policy().Split()
	require.True(t, ok)
	assert.Len(got, 2)
	assert.Equal(d, got[1].Op)

	// The policy does not alias the caller's slice
	pairs[0].Op = d
	got, _ = r.Policy().Split()
	assert.IsType(&operator.Identity{}, got[0].Op)
}

func TestResolvePresetAssembly(t *testing.T) {
	assert := assert.New(t)
	geom := geometry.Continuous1D{N: 3}

	// Single constraint: one proximal
	r, err := Resolve(presetCfg("Nonnegativity", ""), geom)
	require.NoError(t, err)
	assert.Equal(&Preset{Constraint: ConstraintNonnegativity}, r.Preset())
	assert.False(r.Policy().IsSplit())
	assert.Equal(1, r.Policy().Len())

	// Forcing the list gives one pair with the identity
	require.NoError(t, r.SetForceList(true))
	pairs, ok := r.Policy().Split()
	require.True(t, ok)
	assert.Len(pairs, 1)
	rows, cols := pairs[0].Op.Dims()
	assert.Equal(3, rows)
	assert.Equal(3, cols)
	require.NoError(t, r.SetForceList(false))
	assert.False(r.Policy().IsSplit())

	// l1 alone is single too
	r, err = Resolve(presetCfg("", RegularizationL1), geom)
	require.NoError(t, err)
	assert.False(r.Policy().IsSplit())

	// Constraint and regularization: constraint first
	cfg := presetCfg(ConstraintNonnegativity, RegularizationL1)
	cfg = cfg.WithStrength(0.5)
	r, err = Resolve(cfg, geom)
	require.NoError(t, err)
	pairs, ok = r.Policy().Split()
	require.True(t, ok)
	require.Len(t, pairs, 2)
	assert.Equal([]float64{0, 2, 0}, pairs[0].Prox([]float64{-1, 2, -3}, 1))
	assert.Equal([]float64{-0.5, 1.5, -2.5}, pairs[1].Prox([]float64{-1, 2, -3}, 1))
	assert.IsType(&operator.Identity{}, pairs[1].Op)

	// TV alone is split because it carries an operator
	r, err = Resolve(presetCfg("", "tv"), geom)
	require.NoError(t, err)
	assert.Equal(RegularizationTV, r.Preset().Regularization)
	pairs, ok = r.Policy().Split()
	require.True(t, ok)
	require.Len(t, pairs, 1)
	rows, cols = pairs[0].Op.Dims()
	assert.Equal(4, rows)
	assert.Equal(3, cols)
	assert.Equal(r.Transformation(), pairs[0].Op)
}

func TestResolveConstraints(t *testing.T) {
	assert := assert.New(t)
	geom := geometry.Continuous1D{N: 3}

	apply := func(cfg Config, x []float64) []float64 {
		r, err := Resolve(cfg, geom)
		require.NoError(t, err)
		p, ok := r.Policy().Single()
		require.True(t, ok)
		return p(x, 1)
	}

	assert.Equal([]float64{0, 0.5, 1}, apply(presetCfg(ConstraintBox, ""), []float64{-1, 0.5, 2}))

	cfg := presetCfg(ConstraintBox, "")
	cfg.LowerBound = []float64{-1}
	cfg.UpperBound = []float64{0, 1, 3}
	assert.Equal([]float64{-1, 0.5, 2}, apply(cfg, []float64{-2, 0.5, 2}))

	cfg.LowerBound = []float64{0, 0}
	_, err := Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig))

	x := apply(presetCfg(ConstraintSimplex, ""), []float64{3, 1, -1})
	assert.InDelta(1.0, x[0]+x[1]+x[2], 1e-9)
	assert.InDelta(1.0, x[0], 1e-9)

	x = apply(presetCfg(ConstraintL2, ""), []float64{3, 4, 0})
	assert.InDeltaSlice([]float64{0.6, 0.8, 0}, x, 1e-9)

	cfg = presetCfg(ConstraintL1, "")
	cfg.Radius = 2
	x = apply(cfg, []float64{3, -3, 0})
	assert.InDeltaSlice([]float64{1, -1, 0}, x, 1e-9)

	cfg = presetCfg(ConstraintSimplex, "")
	cfg.Radius = 0
	_, err = Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig))

	_, err = Resolve(presetCfg("positive", ""), geom)
	assert.True(errors.Is(err, ErrConfig))
	_, err = Resolve(presetCfg("", "l2"), geom)
	assert.True(errors.Is(err, ErrConfig))
}

func TestResolveTVGeometry(t *testing.T) {
	assert := assert.New(t)

	r, err := Resolve(presetCfg("", RegularizationTV), geometry.Image2D{Rows: 2, Cols: 3})
	require.NoError(t, err)
	rows, cols := r.Transformation().Dims()
	assert.Equal(6, cols)
	assert.Equal(2*4+3*3, rows)

	_, err = Resolve(presetCfg("", RegularizationTV), geometry.Continuous2D{Rows: 2, Cols: 2})
	assert.NoError(err)

	_, err = Resolve(presetCfg("", RegularizationTV), geometry.Discrete{N: 4})
	assert.True(errors.Is(err, ErrConfig))
}

func TestStrength(t *testing.T) {
	assert := assert.New(t)
	geom := geometry.Continuous1D{N: 2}

	r, err := Resolve(presetCfg(ConstraintNonnegativity, ""), geom)
	require.NoError(t, err)
	assert.True(errors.Is(r.SetStrength(2), ErrConfig))

	cfg := presetCfg("", RegularizationL1)
	cfg = cfg.WithStrength(-1)
	_, err = Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig))

	r, err = Resolve(presetCfg("", RegularizationL1), geom)
	require.NoError(t, err)
	s, err := r.Strength()
	assert.NoError(err)
	assert.Equal(1.0, s)

	p, _ := r.Policy().Single()
	assert.Equal([]float64{2, -2}, p([]float64{3, -3}, 1))

	require.NoError(t, r.SetStrength(2))
	p, _ = r.Policy().Single()
	assert.Equal([]float64{1, -1}, p([]float64{3, -3}, 1))
	assert.Equal([]float64{2, -2}, p([]float64{3, -3}, 0.5))
	assert.Error(r.SetStrength(math.NaN()))

	// Earlier policies keep their strength
	cp := r.clone()
	require.NoError(t, cp.SetStrength(3))
	p, _ = r.Policy().Single()
	assert.Equal([]float64{1, -1}, p([]float64{3, -3}, 1))

	cfg = presetCfg(ConstraintNonnegativity, "")
	cfg.StrengthVariable = "lambda"
	_, err = Resolve(cfg, geom)
	assert.True(errors.Is(err, ErrConfig))
}

func TestStrengthZeroConfig(t *testing.T) {
	assert := assert.New(t)
	geom := geometry.Continuous1D{N: 2}

	// An unset strength is the default, not zero
	r, err := Resolve(Config{Regularization: RegularizationL1}, geom)
	require.NoError(t, err)
	s, err := r.Strength()
	assert.NoError(err)
	assert.Equal(DefaultStrength, s)
	p, ok := r.Policy().Single()
	require.True(t, ok)
	assert.Equal([]float64{2, -2}, p([]float64{3, -3}, 1))

	// An explicit zero is kept
	r, err = Resolve(Config{Regularization: RegularizationL1}.WithStrength(0), geom)
	require.NoError(t, err)
	s, _ = r.Strength()
	assert.Equal(0.0, s)
	p, _ = r.Policy().Single()
	assert.Equal([]float64{3, -3}, p([]float64{3, -3}, 1))

	// WithStrength copies
	base := DefaultConfig()
	_ = base.WithStrength(5)
	assert.Nil(base.Strength)
}

func TestZeroPolicy(t *testing.T) {
	assert := assert.New(t)

	var p Policy
	assert.False(p.Valid())
	assert.False(p.IsSplit())
	_, ok := p.Single()
	assert.False(ok)
	_, ok = p.Split()
	assert.False(ok)
	assert.Equal(0, p.Len())

	empty := SplitPolicy(nil)
	assert.True(empty.Valid())
	assert.True(empty.IsSplit())

	single := SinglePolicy(func(x []float64, gamma float64) []float64 { return x })
	assert.True(single.Valid())
	assert.False(single.IsSplit())
}

func TestRegularizedGaussianForwarding(t *testing.T) {
	assert := assert.New(t)

	r, err := NewRegularizedGaussian(gaussCfg(2), presetCfg(ConstraintNonnegativity, ""))
	require.NoError(t, err)

	assert.Equal("x", r.Name())
	assert.Equal(2, r.Dim())
	assert.Equal(r.Gaussian().Geometry(), r.Geometry())

	require.NoError(t, r.SetMean([]float64{1, 2}))
	assert.Equal([]float64{1, 2}, r.Gaussian().Mean())
	assert.Equal(r.Gaussian().Mean(), r.Mean())

	require.NoError(t, r.SetCov(distribution.ScalarMatrix(2, 4)))
	c, err := r.Cov()
	require.NoError(t, err)
	assert.InDelta(4.0, c.At(1, 1), eps)
	p, err := r.Prec()
	require.NoError(t, err)
	assert.InDelta(0.25, p.At(0, 0), eps)

	require.NoError(t, r.SetPrec(distribution.ScalarMatrix(2, 4)))
	c, err = r.Gaussian().Cov()
	require.NoError(t, err)
	assert.InDelta(0.25, c.At(0, 0), eps)

	require.NoError(t, r.SetSqrtCov(distribution.ScalarMatrix(2, 3)))
	s, err := r.SqrtCov()
	require.NoError(t, err)
	assert.InDelta(3.0, s.At(0, 0), eps)

	require.NoError(t, r.SetSqrtPrec(distribution.ScalarMatrix(2, 2)))
	s, err = r.SqrtPrec()
	require.NoError(t, err)
	assert.InDelta(2.0, s.At(1, 1), eps)
	c, err = r.Cov()
	require.NoError(t, err)
	assert.InDelta(0.25, c.At(1, 1), eps)

	require.NoError(t, r.SetGeometry(geometry.Image2D{Rows: 1, Cols: 2}))
	assert.Equal(geometry.Image2D{Rows: 1, Cols: 2}, r.Gaussian().Geometry())
	assert.Error(r.SetGeometry(geometry.Continuous1D{N: 5}))

	r.SetName("y")
	assert.Equal("y", r.Gaussian().Name())

	assert.True(math.IsNaN(r.LogPDF([]float64{1, 1})))
	v, err := r.LogD([]float64{1, 1})
	assert.NoError(err)
	assert.True(math.IsNaN(v))

	gen, err := rand.NewGenerator(1)
	require.NoError(t, err)
	_, err = r.Sample(gen)
	assert.True(errors.Is(err, ErrUnsupported))

	assert.Equal([]string{"mean", "cov", "prec", "sqrtcov", "sqrtprec"}, r.MutableVariables())
}

func TestRegularizedGaussianConstructors(t *testing.T) {
	assert := assert.New(t)

	_, err := NewRegularizedGaussian(distribution.GaussianConfig{Mean: []float64{0}}, presetCfg(ConstraintNonnegativity, ""))
	assert.Error(err) // no covariance

	_, err = NewConstrainedGaussian(gaussCfg(2), presetCfg("", RegularizationL1))
	assert.True(errors.Is(err, ErrConfig))

	// A scalar mean takes its dimension from the covariance
	box, err := NewRegularizedGaussian(distribution.GaussianConfig{Mean: []float64{0}, Cov: distribution.ScalarMatrix(3, 1)}, presetCfg(ConstraintBox, ""))
	require.NoError(t, err)
	assert.Equal(3, box.Dim())
	boxProx, ok := box.Proximal().Single()
	require.True(t, ok)
	assert.Equal([]float64{0, 0.5, 1}, boxProx([]float64{-1, 0.5, 2}, 1))

	cfg := DefaultConfig()
	cfg.Projector = func(x []float64) []float64 { return solver.ProjectL2Ball(x, 1) }
	c, err := NewConstrainedGaussian(gaussCfg(2), cfg)
	require.NoError(t, err)
	assert.Nil(c.Preset())

	n, err := NewNonnegativeGaussian(gaussCfg(2))
	require.NoError(t, err)
	assert.Equal(ConstraintNonnegativity, n.Preset().Constraint)
	_, err = n.Strength()
	assert.Error(err)

	l1 := presetCfg(ConstraintNonnegativity, RegularizationL1)
	g, err := NewRegularizedGaussian(gaussCfg(3), l1)
	require.NoError(t, err)
	assert.Equal(2, g.Proximal().Len())
	assert.Contains(g.MutableVariables(), StrengthVariable)
	require.NoError(t, g.SetStrength(4))
	s, err := g.Strength()
	assert.NoError(err)
	assert.Equal(4.0, s)

	require.NoError(t, g.SetForceList(true))
	assert.True(g.Proximal().IsSplit())
}

func TestRegularizedGaussianConditionUnderlying(t *testing.T) {
	assert := assert.New(t)

	gcfg := gaussCfg(2)
	gcfg.Cov = nil
	gcfg.Conditions = map[string]distribution.Binder{
		"d": func(g *distribution.Gaussian, v []float64) error {
			return g.SetPrec(distribution.ScalarMatrix(g.Dim(), v[0]))
		},
	}
	r, err := NewRegularizedGaussian(gcfg, presetCfg(ConstraintNonnegativity, ""))
	require.NoError(t, err)
	assert.Equal([]string{"d"}, r.ConditioningVariables())

	c, err := r.Condition(distribution.Values{"d": {4}})
	require.NoError(t, err)
	bound, ok := c.(*RegularizedGaussian)
	require.True(t, ok)
	assert.Empty(bound.ConditioningVariables())
	assert.Equal(r.Preset(), bound.Preset())
	assert.False(bound.Proximal().IsSplit())
	cov, err := bound.Cov()
	require.NoError(t, err)
	assert.InDelta(0.25, cov.At(0, 0), eps)

	// Original untouched
	assert.Equal([]string{"d"}, r.ConditioningVariables())
	_, err = r.Cov()
	assert.Error(err)

	// Own name with d left free => likelihood
	c, err = r.Condition(distribution.Values{"x": {1, 1}})
	require.NoError(t, err)
	like, ok := c.(*distribution.Likelihood)
	require.True(t, ok)
	assert.Equal([]string{"d"}, like.ConditioningVariables())

	// Everything bound => evaluated, NaN since the prior has no density
	c, err = r.Condition(distribution.Values{"x": {1, 1}, "d": {1}})
	require.NoError(t, err)
	ev, ok := c.(*distribution.EvaluatedDensity)
	require.True(t, ok)
	assert.True(math.IsNaN(ev.Value))

	_, err = r.Condition(distribution.Values{"strength": {1}})
	assert.Error(err)
}

func TestRegularizedGaussianConditionSelf(t *testing.T) {
	assert := assert.New(t)

	cfg := presetCfg("", RegularizationL1)
	cfg.StrengthVariable = "lambda"
	r, err := NewRegularizedGaussian(gaussCfg(2), cfg)
	require.NoError(t, err)
	assert.Equal([]string{"lambda"}, r.ConditioningVariables())

	c, err := r.Condition(distribution.Values{"lambda": {0.5}})
	require.NoError(t, err)
	bound, ok := c.(*RegularizedGaussian)
	require.True(t, ok)
	assert.Empty(bound.ConditioningVariables())
	s, err := bound.Strength()
	require.NoError(t, err)
	assert.Equal(0.5, s)
	p, ok := bound.Proximal().Single()
	require.True(t, ok)
	assert.Equal([]float64{1.5, 0}, p([]float64{2, 0.25}, 1))

	// The original keeps its strength and its free variable
	s, _ = r.Strength()
	assert.Equal(1.0, s)
	assert.Equal([]string{"lambda"}, r.ConditioningVariables())

	_, err = r.Condition(distribution.Values{"lambda": {1, 2}})
	assert.True(errors.Is(err, ErrConfig))
	_, err = r.Condition(distribution.Values{"lambda": {-1}})
	assert.True(errors.Is(err, ErrConfig))

	c, err = r.Condition(distribution.Values{"x": {0, 0}})
	require.NoError(t, err)
	_, ok = c.(*distribution.Likelihood)
	assert.True(ok)

	cfg.StrengthVariable = "x"
	_, err = NewRegularizedGaussian(gaussCfg(2), cfg)
	assert.True(errors.Is(err, ErrConfig))
}

func TestRegularizedGMRF(t *testing.T) {
	assert := assert.New(t)

	gcfg := distribution.GMRFConfig{Name: "x", Mean: []float64{0, 0, 0}, Prec: 2}
	r, err := NewRegularizedGMRF(gcfg, presetCfg("", RegularizationTV))
	require.NoError(t, err)
	p, err := r.Prec()
	require.NoError(t, err)
	assert.InDelta(4.0, p.At(1, 1), eps)
	assert.True(r.Proximal().IsSplit())

	_, err = NewConstrainedGMRF(gcfg, presetCfg("", RegularizationTV))
	assert.Error(err)

	c, err := NewConstrainedGMRF(gcfg, presetCfg(ConstraintBox, ""))
	require.NoError(t, err)
	assert.Equal(ConstraintBox, c.Preset().Constraint)

	n, err := NewNonnegativeGMRF(gcfg)
	require.NoError(t, err)
	prox, ok := n.Proximal().Single()
	require.True(t, ok)
	assert.Equal([]float64{0, 1, 0}, prox([]float64{-1, 1, -2}, 1))

	_, err = NewNonnegativeGMRF(distribution.GMRFConfig{Prec: -1, Dim: 3})
	assert.Error(err)
}

func TestRegularizedUniform(t *testing.T) {
	assert := assert.New(t)

	_, err := NewRegularizedUniform("x", nil, presetCfg(ConstraintBox, ""))
	assert.True(errors.Is(err, ErrConfig))

	u, err := NewRegularizedUniform("x", geometry.Continuous1D{N: 3}, presetCfg(ConstraintBox, ""))
	require.NoError(t, err)
	assert.Empty(u.MutableVariables())
	assert.Empty(u.ConditioningVariables())
	sp, err := u.SqrtPrec()
	require.NoError(t, err)
	assert.True(mat.Equal(mat.NewDense(3, 3, nil), sp))

	_, err = u.Condition(distribution.Values{"mean": {1}})
	assert.Error(err)

	c, err := u.Condition(distribution.Values{"x": {0.5, 0.5, 0.5}})
	require.NoError(t, err)
	ev, ok := c.(*distribution.EvaluatedDensity)
	require.True(t, ok)
	assert.True(math.IsNaN(ev.Value))

	cfg := presetCfg("", RegularizationTV)
	cfg.StrengthVariable = "lambda"
	tv, err := NewRegularizedUniform("x", geometry.Image2D{Rows: 2, Cols: 2}, cfg)
	require.NoError(t, err)
	assert.Equal([]string{StrengthVariable}, tv.MutableVariables())
	assert.Equal([]string{"lambda"}, tv.ConditioningVariables())

	c, err = tv.Condition(distribution.Values{"lambda": {3}})
	require.NoError(t, err)
	bound, ok := c.(*RegularizedGaussian)
	require.True(t, ok)
	s, err := bound.Strength()
	require.NoError(t, err)
	assert.Equal(3.0, s)
	assert.Empty(bound.ConditioningVariables())
}

func TestPolicyWithFISTA(t *testing.T) {
	assert := assert.New(t)

	r, err := NewNonnegativeGaussian(gaussCfg(4))
	require.NoError(t, err)
	prox, ok := r.Proximal().Single()
	require.True(t, ok)

	b := []float64{1, -2, 3, -4}
	res, err := solver.FISTA(&operator.Identity{N: 4}, b, make([]float64, 4), prox, solver.DefaultFISTAOptions())
	require.NoError(t, err)
	assert.InDeltaSlice([]float64{1, 0, 3, 0}, res.X, 1e-9)
}
