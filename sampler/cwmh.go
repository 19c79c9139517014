package sampler

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/CraigKelly/imprior/distribution"
	"github.com/CraigKelly/imprior/rand"
)

// CWMHConfig enumerates the CWMH options
type CWMHConfig struct {
	// Proposal defaults to a Normal random walk drawing from Gen. A proposal
	// that reports IsSymmetric must be symmetric.
	Proposal Proposal

	// Scale is the random walk scale: nil is 1, a single value applies to
	// every component, otherwise one value per component.
	Scale []float64

	// InitialPoint defaults to all ones
	InitialPoint []float64

	Gen *rand.Generator
}

// CWMH is the component-wise Metropolis-Hastings sampler. Each step draws a
// full proposal and then accepts or rejects it one component at a time,
// always against the latest accepted state. The scale is tuned towards an
// acceptance rate of 0.21/D + 0.23 per component.
type CWMH struct {
	target   distribution.Density
	proposal Proposal
	gen      *rand.Generator
	dim      int

	initialScale []float64
	initialPoint []float64

	initialized bool
	scale       []float64
	scaleTemp   []float64 // unclamped tuning state
	current     []float64
	currentLogd float64
	acc         [][]float64
}

// NewCWMH validates the configuration and creates the sampler. Call
// Initialize (or Step, which initializes on first use) before sampling.
func NewCWMH(target distribution.Density, cfg CWMHConfig) (*CWMH, error) {
	if target == nil {
		return nil, configErrorf("A target density is required")
	}
	dim := target.Dim()
	if dim < 1 {
		return nil, configErrorf("Target dimension must be positive, got %d", dim)
	}
	if cfg.Gen == nil {
		return nil, configErrorf("A random generator is required")
	}

	c := &CWMH{
		target: target,
		gen:    cfg.Gen,
		dim:    dim,
	}

	c.proposal = cfg.Proposal
	if c.proposal == nil {
		norm, err := distribution.NewNormal(cfg.Gen)
		if err != nil {
			return nil, errors.Wrap(err, "Could not create default proposal")
		}
		c.proposal = norm
	}
	if s, ok := c.proposal.(symmetric); ok && !s.IsSymmetric() {
		return nil, configErrorf("Proposal must be symmetric")
	}

	scale := cfg.Scale
	if scale == nil {
		scale = []float64{1}
	}
	if err := c.checkScale(scale, false); err != nil {
		return nil, err
	}
	c.initialScale = append([]float64(nil), scale...)
	c.scale = append([]float64(nil), scale...)

	if cfg.InitialPoint == nil {
		c.initialPoint = make([]float64, dim)
		for i := range c.initialPoint {
			c.initialPoint[i] = 1
		}
	} else {
		if len(cfg.InitialPoint) != dim {
			return nil, configErrorf("Initial point length %d != dimension %d", len(cfg.InitialPoint), dim)
		}
		c.initialPoint = append([]float64(nil), cfg.InitialPoint...)
	}

	return c, nil
}

func (c *CWMH) checkScale(s []float64, fullOnly bool) error {
	if len(s) != c.dim && (fullOnly || len(s) != 1) {
		return configErrorf("Scale length %d does not match dimension %d", len(s), c.dim)
	}
	for i, v := range s {
		if !(v > 0) || math.IsInf(v, 0) {
			return configErrorf("Scale entry %d must be positive and finite, got %v", i, v)
		}
	}
	return nil
}

func (c *CWMH) broadcast(s []float64) []float64 {
	if len(s) == c.dim {
		return append([]float64(nil), s...)
	}
	full := make([]float64, c.dim)
	for i := range full {
		full[i] = s[0]
	}
	return full
}

// Dim is the dimension of the target
func (c *CWMH) Dim() int { return c.dim }

// Initialize (re)starts the chain at the initial point. The scale becomes a
// full vector, the acceptance history is a single all-ones entry and the
// tuning state starts from the scale.
func (c *CWMH) Initialize() error {
	logd, err := c.target.LogD(c.initialPoint)
	if err != nil {
		return errors.Wrap(err, "Could not evaluate target at the initial point")
	}

	c.scale = c.broadcast(c.scale)
	c.scaleTemp = append([]float64(nil), c.scale...)

	ones := make([]float64, c.dim)
	for i := range ones {
		ones[i] = 1
	}
	c.acc = [][]float64{ones}

	c.current = append([]float64(nil), c.initialPoint...)
	c.currentLogd = logd
	c.initialized = true
	return nil
}

// Step performs one component-wise sweep and returns the 0/1 acceptance of
// each component. A NaN log density is always rejected.
func (c *CWMH) Step() ([]float64, error) {
	if !c.initialized {
		if err := c.Initialize(); err != nil {
			return nil, err
		}
	}

	proposed, err := c.proposal.Propose(c.current, c.scale)
	if err != nil {
		return nil, errors.Wrap(err, "Proposal failed")
	}
	if len(proposed) != c.dim {
		return nil, errors.Errorf("Proposal has length %d, expected %d", len(proposed), c.dim)
	}

	accepted := append([]float64(nil), c.current...)
	work := append([]float64(nil), c.current...)
	logdAccepted := c.currentLogd
	acc := make([]float64, c.dim)

	for j := 0; j < c.dim; j++ {
		work[j] = proposed[j]

		logdWork, err := c.target.LogD(work)
		if err != nil {
			return nil, errors.Wrapf(err, "Target evaluation failed on component %d", j)
		}

		alpha := math.Min(0, logdWork-logdAccepted)
		if c.gen.LogUniform() <= alpha {
			accepted[j] = proposed[j]
			logdAccepted = logdWork
			acc[j] = 1
		}

		copy(work, accepted)
	}

	c.current = accepted
	c.currentLogd = logdAccepted
	c.acc = append(c.acc, acc)

	return append([]float64(nil), acc...), nil
}

// Tune updates the scale from the acceptance history entries
// [updateCount*skipLen, (updateCount+1)*skipLen). The tuning state advances
// unclamped while the exposed scale is capped at 1.
func (c *CWMH) Tune(skipLen int, updateCount int) error {
	if !c.initialized {
		return errors.New("Tune called before Initialize")
	}
	if skipLen < 1 || updateCount < 0 {
		return configErrorf("Invalid tuning window skip=%d update=%d", skipLen, updateCount)
	}

	lo, hi := updateCount*skipLen, (updateCount+1)*skipLen
	if hi > len(c.acc) {
		hi = len(c.acc)
	}
	if lo >= hi {
		return errors.Errorf("No acceptance history in [%d, %d) (have %d)", lo, (updateCount+1)*skipLen, len(c.acc))
	}

	hat := make([]float64, c.dim)
	for _, a := range c.acc[lo:hi] {
		floats.Add(hat, a)
	}
	floats.Scale(1/float64(hi-lo), hat)

	star := 0.21/float64(c.dim) + 0.23
	zeta := 1 / math.Sqrt(float64(updateCount+1))

	for i := range hat {
		temp := math.Exp(math.Log(c.scaleTemp[i]) + zeta*(hat[i]-star))
		c.scale[i] = math.Min(temp, 1)
		c.scaleTemp[i] = temp
	}
	return nil
}

// Scale returns a copy of the current scale
func (c *CWMH) Scale() []float64 { return append([]float64(nil), c.scale...) }

// SetScale replaces the scale. Once initialized a single value is broadcast
// to every component. The tuning state is not touched.
func (c *CWMH) SetScale(s []float64) error {
	if err := c.checkScale(s, false); err != nil {
		return err
	}
	if c.initialized {
		c.scale = c.broadcast(s)
	} else {
		c.scale = append([]float64(nil), s...)
	}
	return nil
}

// CurrentPoint returns a copy of the chain state
func (c *CWMH) CurrentPoint() []float64 { return append([]float64(nil), c.current...) }

// CurrentTargetLogd is the target log density at the chain state
func (c *CWMH) CurrentTargetLogd() float64 { return c.currentLogd }

// AcceptanceHistory returns the recorded acceptance vectors, starting with
// the all-ones entry from Initialize. The slice is shared.
func (c *CWMH) AcceptanceHistory() [][]float64 { return c.acc }

// ScaleTemp returns a copy of the unclamped tuning state
func (c *CWMH) ScaleTemp() []float64 { return append([]float64(nil), c.scaleTemp...) }
