package distribution

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/CraigKelly/imprior/geometry"
	"github.com/CraigKelly/imprior/rand"
)

// Binder applies the value of a conditioning variable to a Gaussian. For
// example a precision hyperparameter d can be bound with
//
//	func(g *Gaussian, v []float64) error { return g.SetPrec(ScalarMatrix(g.Dim(), v[0])) }
type Binder func(g *Gaussian, v []float64) error

// GaussianConfig enumerates every Gaussian option. Exactly one covariance
// form may be given; it may be omitted only when a Condition will set it.
// A 1x1 covariance form or a single mean value broadcasts to the dimension.
type GaussianConfig struct {
	Name       string
	Mean       []float64
	Cov        mat.Matrix // covariance C
	Prec       mat.Matrix // precision P = C^-1
	SqrtCov    mat.Matrix // S with C = S S^T
	SqrtPrec   mat.Matrix // R with P = R^T R
	Geometry   geometry.Geometry
	Conditions map[string]Binder
}

type covForm int

const (
	formNone covForm = iota
	formCov
	formPrec
	formSqrtCov
	formSqrtPrec
)

// Gaussian is a multivariate normal distribution. Only the covariance form
// that was given is stored; the other forms are derived on request.
type Gaussian struct {
	name       string
	geom       geometry.Geometry
	mean       []float64
	form       covForm
	param      mat.Matrix
	conditions map[string]Binder
}

// ScalarMatrix returns v times the n x n identity
func ScalarMatrix(n int, v float64) *mat.DiagDense {
	d := make([]float64, n)
	for i := range d {
		d[i] = v
	}
	return mat.NewDiagDense(n, d)
}

// NewGaussian validates the config and creates the distribution
func NewGaussian(cfg GaussianConfig) (*Gaussian, error) {
	forms := []struct {
		form covForm
		m    mat.Matrix
	}{
		{formCov, cfg.Cov},
		{formPrec, cfg.Prec},
		{formSqrtCov, cfg.SqrtCov},
		{formSqrtPrec, cfg.SqrtPrec},
	}

	g := &Gaussian{
		name:       cfg.Name,
		conditions: make(map[string]Binder),
	}
	for _, f := range forms {
		if f.m == nil {
			continue
		}
		if g.form != formNone {
			return nil, errors.New("Only one of cov, prec, sqrtcov and sqrtprec may be given")
		}
		g.form, g.param = f.form, f.m
	}
	for name, b := range cfg.Conditions {
		if b == nil {
			return nil, errors.Errorf("Condition %s has no binder", name)
		}
		g.conditions[name] = b
	}
	if g.form == formNone && len(g.conditions) < 1 {
		return nil, errors.New("A covariance form is required")
	}

	// Dimension: geometry, then a non-scalar mean, then a non-scalar
	// covariance form. Scalars broadcast, so all-scalar input is 1D.
	dim := 1
	switch {
	case cfg.Geometry != nil:
		if err := geometry.Check(cfg.Geometry); err != nil {
			return nil, err
		}
		dim = cfg.Geometry.ParDim()
	case len(cfg.Mean) > 1:
		dim = len(cfg.Mean)
	case g.param != nil:
		if r, _ := g.param.Dims(); r > 1 {
			dim = r
		}
	}

	g.geom = cfg.Geometry
	if g.geom == nil {
		g.geom = geometry.Default(dim)
	}

	mean := cfg.Mean
	if mean == nil {
		mean = []float64{0}
	}
	if err := g.SetMean(mean); err != nil {
		return nil, err
	}
	if g.param != nil {
		p, err := g.broadcast(g.param)
		if err != nil {
			return nil, err
		}
		g.param = p
	}

	return g, nil
}

// broadcast checks the shape of a covariance form, expanding 1x1 forms
func (g *Gaussian) broadcast(m mat.Matrix) (mat.Matrix, error) {
	n := g.Dim()
	r, c := m.Dims()
	if r == 1 && c == 1 && n > 1 {
		return ScalarMatrix(n, m.At(0, 0)), nil
	}
	if r != n || c != n {
		return nil, errors.Errorf("Covariance form is %dx%d, expected %dx%d", r, c, n, n)
	}
	return m, nil
}

// clone copies the Gaussian. Matrices are shared since setters replace them
// rather than writing into them.
func (g *Gaussian) clone() *Gaussian {
	cp := &Gaussian{
		name:       g.name,
		geom:       g.geom,
		mean:       make([]float64, len(g.mean)),
		form:       g.form,
		param:      g.param,
		conditions: make(map[string]Binder, len(g.conditions)),
	}
	copy(cp.mean, g.mean)
	for k, b := range g.conditions {
		cp.conditions[k] = b
	}
	return cp
}

// Name of the distribution's own variable
func (g *Gaussian) Name() string { return g.name }

// SetName sets the variable name
func (g *Gaussian) SetName(name string) { g.name = name }

// Dim implements Density
func (g *Gaussian) Dim() int { return g.geom.ParDim() }

// Geometry returns the parameter geometry
func (g *Gaussian) Geometry() geometry.Geometry { return g.geom }

// SetGeometry replaces the geometry; the dimension may not change
func (g *Gaussian) SetGeometry(geom geometry.Geometry) error {
	if err := geometry.Check(geom); err != nil {
		return err
	}
	if geom.ParDim() != g.Dim() {
		return errors.Errorf("Geometry %v does not match dimension %d", geom, g.Dim())
	}
	g.geom = geom
	return nil
}

// Mean returns the mean vector (not a copy)
func (g *Gaussian) Mean() []float64 { return g.mean }

// SetMean sets the mean; a single value broadcasts
func (g *Gaussian) SetMean(m []float64) error {
	n := g.Dim()
	switch len(m) {
	case n:
		g.mean = make([]float64, n)
		copy(g.mean, m)
	case 1:
		g.mean = make([]float64, n)
		for i := range g.mean {
			g.mean[i] = m[0]
		}
	default:
		return errors.Errorf("Mean length %d does not match dimension %d", len(m), n)
	}
	return nil
}

func (g *Gaussian) setForm(form covForm, m mat.Matrix) error {
	if m == nil {
		return errors.New("Covariance form may not be nil")
	}
	p, err := g.broadcast(m)
	if err != nil {
		return err
	}
	g.form, g.param = form, p
	return nil
}

// SetCov replaces the covariance form with a covariance matrix
func (g *Gaussian) SetCov(m mat.Matrix) error { return g.setForm(formCov, m) }

// SetPrec replaces the covariance form with a precision matrix
func (g *Gaussian) SetPrec(m mat.Matrix) error { return g.setForm(formPrec, m) }

// SetSqrtCov replaces the covariance form with S where C = S S^T
func (g *Gaussian) SetSqrtCov(m mat.Matrix) error { return g.setForm(formSqrtCov, m) }

// SetSqrtPrec replaces the covariance form with R where P = R^T R
func (g *Gaussian) SetSqrtPrec(m mat.Matrix) error { return g.setForm(formSqrtPrec, m) }

func (g *Gaussian) unset() error {
	return errors.Errorf("Covariance of %s is not set (conditioning variables %v)", g.name, g.ConditioningVariables())
}

// toSym copies a square matrix into a SymDense, checking symmetry
func toSym(m mat.Matrix) (*mat.SymDense, error) {
	if s, ok := m.(mat.Symmetric); ok {
		cp := mat.NewSymDense(s.SymmetricDim(), nil)
		cp.CopySym(s)
		return cp, nil
	}

	r, c := m.Dims()
	if r != c {
		return nil, errors.Errorf("Matrix is %dx%d, not square", r, c)
	}
	const tol = 1e-10
	if !mat.EqualApprox(m, m.T(), tol) {
		return nil, errors.New("Matrix is not symmetric")
	}
	s := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			s.SetSym(i, j, m.At(i, j))
		}
	}
	return s, nil
}

// outer returns a a^T
func outer(a mat.Matrix) *mat.SymDense {
	r, _ := a.Dims()
	s := mat.NewSymDense(r, nil)
	s.SymOuterK(1, a)
	return s
}

// invSym inverts a symmetric positive definite matrix
func invSym(s mat.Symmetric) (*mat.SymDense, error) {
	var ch mat.Cholesky
	if ok := ch.Factorize(s); !ok {
		return nil, errors.New("Matrix is not positive definite")
	}
	inv := mat.NewSymDense(s.SymmetricDim(), nil)
	if err := ch.InverseTo(inv); err != nil {
		return nil, errors.Wrap(err, "Could not invert matrix")
	}
	return inv, nil
}

// Cov returns the covariance matrix
func (g *Gaussian) Cov() (mat.Matrix, error) {
	switch g.form {
	case formCov:
		return g.param, nil
	case formSqrtCov:
		return outer(g.param), nil
	case formPrec, formSqrtPrec:
		p, err := g.Prec()
		if err != nil {
			return nil, err
		}
		s, err := toSym(p)
		if err != nil {
			return nil, err
		}
		return invSym(s)
	}
	return nil, g.unset()
}

// Prec returns the precision matrix
func (g *Gaussian) Prec() (mat.Matrix, error) {
	switch g.form {
	case formPrec:
		return g.param, nil
	case formSqrtPrec:
		return outer(g.param.T()), nil
	case formCov, formSqrtCov:
		c, err := g.Cov()
		if err != nil {
			return nil, err
		}
		s, err := toSym(c)
		if err != nil {
			return nil, err
		}
		return invSym(s)
	}
	return nil, g.unset()
}

// SqrtCov returns S with C = S S^T (the lower Cholesky factor unless S was given)
func (g *Gaussian) SqrtCov() (mat.Matrix, error) {
	if g.form == formSqrtCov {
		return g.param, nil
	}
	c, err := g.Cov()
	if err != nil {
		return nil, err
	}
	ch, err := cholesky(c)
	if err != nil {
		return nil, err
	}
	var l mat.TriDense
	ch.LTo(&l)
	return &l, nil
}

// SqrtPrec returns R with P = R^T R (the upper Cholesky factor unless R was given)
func (g *Gaussian) SqrtPrec() (mat.Matrix, error) {
	if g.form == formSqrtPrec {
		return g.param, nil
	}
	p, err := g.Prec()
	if err != nil {
		return nil, err
	}
	ch, err := cholesky(p)
	if err != nil {
		return nil, err
	}
	var u mat.TriDense
	ch.UTo(&u)
	return &u, nil
}

func cholesky(m mat.Matrix) (*mat.Cholesky, error) {
	s, err := toSym(m)
	if err != nil {
		return nil, err
	}
	var ch mat.Cholesky
	if ok := ch.Factorize(s); !ok {
		return nil, errors.New("Matrix is not positive definite")
	}
	return &ch, nil
}

// LogPDF returns the normalized log density at x
func (g *Gaussian) LogPDF(x []float64) (float64, error) {
	n := g.Dim()
	if len(x) != n {
		return math.NaN(), errors.Errorf("Point length %d != dimension %d", len(x), n)
	}

	d := make([]float64, n)
	for i := range d {
		d[i] = x[i] - g.mean[i]
	}
	dv := mat.NewVecDense(n, d)

	var quad, logDetCov float64
	switch g.form {
	case formPrec, formSqrtPrec:
		p, err := g.Prec()
		if err != nil {
			return math.NaN(), err
		}
		ch, err := cholesky(p)
		if err != nil {
			return math.NaN(), err
		}
		quad = mat.Inner(dv, p, dv)
		logDetCov = -ch.LogDet()
	default:
		c, err := g.Cov()
		if err != nil {
			return math.NaN(), err
		}
		ch, err := cholesky(c)
		if err != nil {
			return math.NaN(), err
		}
		var sol mat.VecDense
		if err := ch.SolveVecTo(&sol, dv); err != nil {
			return math.NaN(), errors.Wrap(err, "Could not solve with covariance")
		}
		quad = mat.Dot(dv, &sol)
		logDetCov = ch.LogDet()
	}

	return -0.5 * (float64(n)*math.Log(2*math.Pi) + logDetCov + quad), nil
}

// LogD implements Density
func (g *Gaussian) LogD(x []float64) (float64, error) { return g.LogPDF(x) }

// Sample draws one point using the given generator
func (g *Gaussian) Sample(gen *rand.Generator) ([]float64, error) {
	c, err := g.Cov()
	if err != nil {
		return nil, errors.Wrap(err, "Cannot sample without a covariance")
	}
	s, err := toSym(c)
	if err != nil {
		return nil, err
	}
	norm, ok := distmv.NewNormal(g.mean, s, gen)
	if !ok {
		return nil, errors.New("Covariance is not positive definite")
	}
	return norm.Rand(nil), nil
}

// MutableVariables lists the parameters that may be replaced after creation
func (g *Gaussian) MutableVariables() []string {
	return []string{"mean", "cov", "prec", "sqrtcov", "sqrtprec"}
}

// ConditioningVariables lists the unbound conditioning variables, sorted
func (g *Gaussian) ConditioningVariables() []string {
	names := make([]string, 0, len(g.conditions))
	for k := range g.conditions {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Condition binds the given variables on a copy of the distribution. A value
// for the distribution's own name turns the result into a likelihood (or an
// evaluated density when nothing is left to condition on).
func (g *Gaussian) Condition(v Values) (Conditioned, error) {
	cp := g.clone()

	var own []float64
	hasOwn := false
	for _, k := range v.sortedKeys() {
		if k == g.name && g.name != "" {
			own, hasOwn = v[k], true
			continue
		}
		b, ok := cp.conditions[k]
		if !ok {
			return nil, errors.Errorf("%s is not a conditioning variable of %s", k, g.name)
		}
		delete(cp.conditions, k)
		if err := b(cp, v[k]); err != nil {
			return nil, errors.Wrapf(err, "Could not condition %s on %s", g.name, k)
		}
	}

	if hasOwn {
		return ToConditioned(cp, own)
	}
	return cp, nil
}
