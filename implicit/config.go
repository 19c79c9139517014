package implicit

// Constraint preset names
const (
	ConstraintNonnegativity = "nonnegativity"
	ConstraintBox           = "box"
	ConstraintSimplex       = "simplex"
	ConstraintL1            = "l1"
	ConstraintL2            = "l2"
)

// Regularization preset names
const (
	RegularizationL1 = "l1"
	RegularizationTV = "TV"
)

// ConstraintOptions lists the supported constraint presets
func ConstraintOptions() []string {
	return []string{ConstraintNonnegativity, ConstraintBox, ConstraintSimplex, ConstraintL1, ConstraintL2}
}

// RegularizationOptions lists the supported regularization presets
func RegularizationOptions() []string {
	return []string{RegularizationL1, RegularizationTV}
}

// DefaultStrength is the l1/TV weight used when Config.Strength is nil
const DefaultStrength = 1.0

// Config enumerates every regularization option. Exactly one mode must be
// chosen: Proximal, SplitProximal, Projector, or the presets (Constraint
// and/or Regularization). Start from DefaultConfig so Radius carries its
// default.
type Config struct {
	Proximal      Proximal // custom proximal f(x, gamma)
	SplitProximal []Pair   // custom list of (proximal, operator) pairs
	Projector     Projector

	Constraint     string // one of ConstraintOptions, case-insensitive
	Regularization string // one of RegularizationOptions, case-insensitive

	LowerBound []float64 // box; nil is 0, a single value broadcasts
	UpperBound []float64 // box; nil is 1, a single value broadcasts
	Radius     float64   // simplex, l1 and l2 balls
	Strength   *float64  // weight of the l1 or TV regularization; nil is DefaultStrength

	// StrengthVariable names a conditioning variable whose value becomes the
	// strength when the prior is conditioned (l1 and TV presets only).
	StrengthVariable string

	// ForceList always produces the split form, even for a single preset
	ForceList bool
}

// DefaultConfig returns a Config with every default filled in and no mode
// chosen.
func DefaultConfig() Config {
	return Config{
		Radius: 1,
	}
}

// WithStrength returns a copy of c with the l1/TV weight set to v
func (c Config) WithStrength(v float64) Config {
	c.Strength = &v
	return c
}

// strength is the configured weight or DefaultStrength
func (c Config) strength() float64 {
	if c.Strength == nil {
		return DefaultStrength
	}
	return *c.Strength
}

// Preset records the named constraint and regularization in use. An empty
// field means none.
type Preset struct {
	Constraint     string
	Regularization string
}

// hasStrength is true when the regularization uses a strength weight
func (p *Preset) hasStrength() bool {
	return p != nil && (p.Regularization == RegularizationL1 || p.Regularization == RegularizationTV)
}
