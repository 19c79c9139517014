package distribution

import (
	"github.com/pkg/errors"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Normal is the random-walk proposal with independent components: component i
// is drawn from N(location_i, scale_i^2).
type Normal struct {
	Src exprand.Source
}

// NewNormal creates the proposal drawing from src
func NewNormal(src exprand.Source) (*Normal, error) {
	if src == nil {
		return nil, errors.New("A random source is required")
	}
	return &Normal{Src: src}, nil
}

// Propose draws a full proposal vector conditioned on location and scale
func (n *Normal) Propose(location []float64, scale []float64) ([]float64, error) {
	if len(location) != len(scale) {
		return nil, errors.Errorf("Location length %d != scale length %d", len(location), len(scale))
	}

	x := make([]float64, len(location))
	for i := range x {
		dist := distuv.Normal{Mu: location[i], Sigma: scale[i], Src: n.Src}
		x[i] = dist.Rand()
	}
	return x, nil
}

// IsSymmetric reports that q(x|y) == q(y|x)
func (n *Normal) IsSymmetric() bool { return true }
