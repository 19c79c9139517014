package implicit

import (
	"math"
	"strings"

	"github.com/CraigKelly/imprior/geometry"
	"github.com/CraigKelly/imprior/operator"
	"github.com/CraigKelly/imprior/solver"
)

// Resolution is the regularization state of an implicit prior: the preset
// (nil for a custom proximal or projector), the per-term proximals and
// operators, and the assembled Policy. The Policy is rebuilt from scratch
// whenever strength or the list forcing changes.
type Resolution struct {
	preset *Preset
	policy Policy

	constraintProx Proximal
	regProx        Proximal
	regOp          operator.Operator
	transformation operator.Operator

	strength    float64
	strengthVar string
	forceList   bool
	parDim      int
}

// Resolve validates cfg against the geometry and builds the policy
func Resolve(cfg Config, geom geometry.Geometry) (*Resolution, error) {
	if err := geometry.Check(geom); err != nil {
		return nil, configErrorf("%v", err)
	}

	hasPreset := cfg.Constraint != "" || cfg.Regularization != ""
	modes := 0
	for _, set := range []bool{cfg.Proximal != nil, cfg.SplitProximal != nil, cfg.Projector != nil, hasPreset} {
		if set {
			modes++
		}
	}

	switch {
	case modes == 0:
		return nil, configErrorf("At least some constraint or regularization has to be specified")
	case cfg.Proximal != nil && cfg.SplitProximal != nil:
		return nil, configErrorf("Only one of a proximal or a split proximal list can be used")
	case (cfg.Proximal != nil || cfg.SplitProximal != nil) && cfg.Projector != nil:
		return nil, configErrorf("Only one of proximal or projector can be used")
	case modes > 1:
		return nil, configErrorf("User-defined proximals and projectors cannot be combined with preset constraints and regularization")
	}

	r := &Resolution{
		parDim:    geom.ParDim(),
		forceList: cfg.ForceList,
	}

	if cfg.StrengthVariable != "" && !hasPreset {
		return nil, configErrorf("A strength variable needs an l1 or TV regularization preset")
	}

	switch {
	case cfg.Proximal != nil:
		r.policy = SinglePolicy(cfg.Proximal)
		return r, nil

	case cfg.SplitProximal != nil:
		if err := r.checkPairs(cfg.SplitProximal); err != nil {
			return nil, err
		}
		r.policy = SplitPolicy(cfg.SplitProximal)
		return r, nil

	case cfg.Projector != nil:
		r.policy = SinglePolicy(liftProjector(cfg.Projector))
		return r, nil
	}

	r.preset = &Preset{}
	if err := r.parseConstraint(cfg); err != nil {
		return nil, err
	}
	if err := r.parseRegularization(cfg, geom); err != nil {
		return nil, err
	}
	if cfg.StrengthVariable != "" && !r.preset.hasStrength() {
		return nil, configErrorf("A strength variable needs an l1 or TV regularization preset")
	}
	r.strengthVar = cfg.StrengthVariable

	r.assemble()
	return r, nil
}

func (r *Resolution) checkPairs(pairs []Pair) error {
	if len(pairs) < 1 {
		return configErrorf("A split proximal list needs at least one entry")
	}
	for i, p := range pairs {
		if p.Prox == nil {
			return configErrorf("Split proximal entry %d has no proximal", i)
		}
		if p.Op == nil {
			return configErrorf("Split proximal entry %d has no operator", i)
		}
		if _, c := p.Op.Dims(); c != r.parDim {
			return configErrorf("Split proximal entry %d operator has %d columns, expected %d", i, c, r.parDim)
		}
	}
	return nil
}

func (r *Resolution) checkBound(name string, b []float64) error {
	if len(b) > 1 && len(b) != r.parDim {
		return configErrorf("Box %s bound has length %d, expected 1 or %d", name, len(b), r.parDim)
	}
	return nil
}

func (r *Resolution) parseConstraint(cfg Config) error {
	if cfg.Constraint == "" {
		return nil
	}

	radius := cfg.Radius
	needRadius := func() error {
		if !(radius > 0) {
			return configErrorf("Constraint %s needs a positive radius, got %v", cfg.Constraint, radius)
		}
		return nil
	}

	switch strings.ToLower(cfg.Constraint) {
	case ConstraintNonnegativity:
		r.constraintProx = func(z []float64, gamma float64) []float64 {
			return solver.ProjectNonnegative(z)
		}
		r.preset.Constraint = ConstraintNonnegativity

	case ConstraintBox:
		if err := r.checkBound("lower", cfg.LowerBound); err != nil {
			return err
		}
		if err := r.checkBound("upper", cfg.UpperBound); err != nil {
			return err
		}
		lower := append([]float64(nil), cfg.LowerBound...)
		upper := append([]float64(nil), cfg.UpperBound...)
		r.constraintProx = func(z []float64, gamma float64) []float64 {
			return solver.ProjectBox(z, lower, upper)
		}
		r.preset.Constraint = ConstraintBox

	case ConstraintSimplex:
		if err := needRadius(); err != nil {
			return err
		}
		r.constraintProx = func(z []float64, gamma float64) []float64 {
			return solver.ProjectSimplex(z, radius)
		}
		r.preset.Constraint = ConstraintSimplex

	case ConstraintL1:
		if err := needRadius(); err != nil {
			return err
		}
		r.constraintProx = func(z []float64, gamma float64) []float64 {
			return solver.ProjectL1Ball(z, radius)
		}
		r.preset.Constraint = ConstraintL1

	case ConstraintL2:
		if err := needRadius(); err != nil {
			return err
		}
		r.constraintProx = func(z []float64, gamma float64) []float64 {
			return solver.ProjectL2Ball(z, radius)
		}
		r.preset.Constraint = ConstraintL2

	default:
		return configErrorf("Constraint %s not supported (options %v)", cfg.Constraint, ConstraintOptions())
	}

	return nil
}

func checkStrength(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return configErrorf("Strength must be a finite value >= 0, got %v", v)
	}
	return nil
}

// l1Prox is the soft threshold at gamma*strength
func l1Prox(strength float64) Proximal {
	return func(z []float64, gamma float64) []float64 {
		return solver.ProximalL1(z, gamma*strength)
	}
}

func (r *Resolution) parseRegularization(cfg Config, geom geometry.Geometry) error {
	if cfg.Regularization == "" {
		return nil
	}
	strength := cfg.strength()
	if err := checkStrength(strength); err != nil {
		return err
	}

	switch strings.ToLower(cfg.Regularization) {
	case strings.ToLower(RegularizationL1):
		r.preset.Regularization = RegularizationL1

	case strings.ToLower(RegularizationTV):
		var err error
		switch g := geom.(type) {
		case geometry.Continuous1D:
			r.transformation, err = operator.NewFirstOrderFiniteDifference1D(g.ParDim(), operator.BCZero)
		case geometry.Continuous2D:
			r.transformation, err = operator.NewFirstOrderFiniteDifference2D(g.Rows, g.Cols, operator.BCZero)
		case geometry.Image2D:
			r.transformation, err = operator.NewFirstOrderFiniteDifference2D(g.Rows, g.Cols, operator.BCZero)
		default:
			return configErrorf("Geometry %v not supported for total variation", geom)
		}
		if err != nil {
			return configErrorf("Could not build total variation operator: %v", err)
		}
		r.regOp = r.transformation
		r.preset.Regularization = RegularizationTV

	default:
		return configErrorf("Regularization %s not supported (options %v)", cfg.Regularization, RegularizationOptions())
	}

	r.strength = strength
	r.regProx = l1Prox(r.strength)
	return nil
}

// assemble builds the policy from the per-term proximals: a single proximal
// when exactly one term is set, it has no operator and no list is forced;
// otherwise the split list, constraint first.
func (r *Resolution) assemble() {
	proxCount := 0
	for _, set := range []bool{r.constraintProx != nil, r.regProx != nil} {
		if set {
			proxCount++
		}
	}

	// constraint presets never carry an operator
	if !r.forceList && proxCount == 1 && r.regOp == nil {
		if r.constraintProx != nil {
			r.policy = SinglePolicy(r.constraintProx)
		} else {
			r.policy = SinglePolicy(r.regProx)
		}
		return
	}

	pairs := make([]Pair, 0, 2)
	if r.constraintProx != nil {
		pairs = append(pairs, Pair{Prox: r.constraintProx, Op: r.opOrIdentity(nil)})
	}
	if r.regProx != nil {
		pairs = append(pairs, Pair{Prox: r.regProx, Op: r.opOrIdentity(r.regOp)})
	}
	r.policy = Policy{split: pairs}
}

func (r *Resolution) opOrIdentity(op operator.Operator) operator.Operator {
	if op != nil {
		return op
	}
	return &operator.Identity{N: r.parDim}
}

// clone copies the state; closures and operators are immutable so sharing
// them is safe
func (r *Resolution) clone() *Resolution {
	cp := *r
	if r.preset != nil {
		p := *r.preset
		cp.preset = &p
	}
	return &cp
}

// Policy returns the resolved proximal policy
func (r *Resolution) Policy() Policy { return r.policy }

// Preset returns a copy of the preset, or nil for a custom policy
func (r *Resolution) Preset() *Preset {
	if r.preset == nil {
		return nil
	}
	p := *r.preset
	return &p
}

// Transformation returns the TV difference operator, or nil
func (r *Resolution) Transformation() operator.Operator { return r.transformation }

// ForceList reports whether the split form is forced
func (r *Resolution) ForceList() bool { return r.forceList }

// Strength returns the regularization weight (l1 and TV presets only)
func (r *Resolution) Strength() (float64, error) {
	if !r.preset.hasStrength() {
		return 0, configErrorf("Strength is only used when the regularization is set to l1 or TV")
	}
	return r.strength, nil
}

// SetStrength replaces the regularization weight and rebuilds the policy
func (r *Resolution) SetStrength(v float64) error {
	if !r.preset.hasStrength() {
		return configErrorf("Strength is only used when the regularization is set to l1 or TV")
	}
	if err := checkStrength(v); err != nil {
		return err
	}
	r.strength = v
	r.regProx = l1Prox(v)
	r.assemble()
	return nil
}

// SetForceList changes the list forcing and rebuilds the policy (preset
// policies only)
func (r *Resolution) SetForceList(force bool) error {
	if r.preset == nil {
		return configErrorf("List forcing only applies to preset constraints and regularization")
	}
	r.forceList = force
	r.assemble()
	return nil
}

// StrengthVariable is the unbound conditioning variable that sets strength,
// or "" when there is none
func (r *Resolution) StrengthVariable() string { return r.strengthVar }
