package sampler

import (
	"math"

	"github.com/pkg/errors"
)

// ErrorSuite holds the error measures we use to judge an estimate against a
// reference vector (for instance a sample mean against the known mean).
// Errors beginning with Mean are averaged over the components; Max is the
// worst component.
type ErrorSuite struct {
	MeanAbsError float64
	MaxAbsError  float64
	RMSError     float64
	MaxRelError  float64 // relative to |ref|, components with ref == 0 skipped
}

// NewErrorSuite returns an ErrorSuite with all error measures calculated
func NewErrorSuite(est []float64, ref []float64) (*ErrorSuite, error) {
	if len(est) != len(ref) {
		return nil, errors.Errorf("Length mismatch %d != %d", len(est), len(ref))
	}
	if len(est) < 1 {
		return nil, errors.New("Nothing to score")
	}

	es := ErrorSuite{}
	var sq float64
	for i, e := range est {
		d := math.Abs(e - ref[i])
		es.MeanAbsError += d
		es.MaxAbsError = math.Max(d, es.MaxAbsError)
		sq += d * d

		const eps = 1e-12
		if math.Abs(ref[i]) > eps {
			es.MaxRelError = math.Max(d/math.Abs(ref[i]), es.MaxRelError)
		}
	}

	n := float64(len(est))
	es.MeanAbsError /= n
	es.RMSError = math.Sqrt(sq / n)

	return &es, nil
}
