package sampler

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/imprior/buffer"
)

// DefaultAcceptanceWindow is the number of recent steps kept for
// RecentAcceptance when ChainOptions.Window is not set
const DefaultAcceptanceWindow = 100

// ChainOptions controls a Chain
type ChainOptions struct {
	Window   int                                // recent acceptance window
	Callback func(sample []float64, index int) // called after every step
	Tune     func(updateCount int)              // called after every tuning update
}

// Chain drives a Sampler: warmup with tuning, then plain sampling. Every
// step (warmup included) is recorded in Samples.
type Chain struct {
	Sampler          Sampler
	Samples          *Samples
	Recent           *buffer.CircularFloat // mean acceptance of recent steps
	TotalSampleCount int64
	WarmupCount      int64

	acceptSum float64
	opts      ChainOptions
}

// NewChain returns a chain with an initialized sampler
func NewChain(s Sampler, opts ChainOptions) (*Chain, error) {
	if s == nil {
		return nil, configErrorf("A sampler is required")
	}
	if opts.Window < 1 {
		opts.Window = DefaultAcceptanceWindow
	}
	if err := s.Initialize(); err != nil {
		return nil, errors.Wrap(err, "Could not initialize sampler")
	}

	samples, err := NewSamples(s.Dim())
	if err != nil {
		return nil, err
	}

	return &Chain{
		Sampler: s,
		Samples: samples,
		Recent:  buffer.NewCircularFloat(opts.Window),
		opts:    opts,
	}, nil
}

// Warmup runs n steps, tuning after every tuneFreq steps. The sampler must
// be a Tuner when tuneFreq > 0; tuneFreq 0 runs without tuning.
func (c *Chain) Warmup(n int, tuneFreq int) error {
	if n < 0 || tuneFreq < 0 {
		return configErrorf("Invalid warmup n=%d tuneFreq=%d", n, tuneFreq)
	}

	var tuner Tuner
	if tuneFreq > 0 {
		var ok bool
		if tuner, ok = c.Sampler.(Tuner); !ok {
			return configErrorf("Sampler %T does not support tuning", c.Sampler)
		}
	}

	for idx := 0; idx < n; idx++ {
		if err := c.oneSample(); err != nil {
			return errors.Wrapf(err, "Failure during warmup step %d", idx)
		}
		c.WarmupCount++

		if tuner != nil && (idx+1)%tuneFreq == 0 {
			update := idx / tuneFreq
			if err := tuner.Tune(tuneFreq, update); err != nil {
				return errors.Wrapf(err, "Failure tuning after warmup step %d", idx)
			}
			if c.opts.Tune != nil {
				c.opts.Tune(update)
			}
		}
	}

	return nil
}

// Sample runs n steps without tuning
func (c *Chain) Sample(n int) error {
	if n < 0 {
		return configErrorf("Invalid sample count %d", n)
	}
	for idx := 0; idx < n; idx++ {
		if err := c.oneSample(); err != nil {
			return errors.Wrapf(err, "Failure during sample step %d", idx)
		}
	}
	return nil
}

// oneSample takes a single step and records it
func (c *Chain) oneSample() error {
	acc, err := c.Sampler.Step()
	if err != nil {
		return errors.Wrap(err, "Error taking sample")
	}

	point := c.Sampler.CurrentPoint()
	if err := c.Samples.Add(point); err != nil {
		return err
	}

	rate := stat.Mean(acc, nil)
	c.Recent.Add(rate)
	c.acceptSum += rate

	if c.opts.Callback != nil {
		c.opts.Callback(point, int(c.TotalSampleCount))
	}
	c.TotalSampleCount++

	return nil
}

// RecentAcceptance is the mean acceptance rate over the recent window
func (c *Chain) RecentAcceptance() float64 { return c.Recent.Mean() }

// AcceptanceRate is the mean acceptance rate over every step so far
func (c *Chain) AcceptanceRate() float64 {
	if c.TotalSampleCount < 1 {
		return 0
	}
	return c.acceptSum / float64(c.TotalSampleCount)
}

// AcceptanceTrend returns the mean acceptance of the older and newer halves
// of the recent window. ok is false until the window is full.
func (c *Chain) AcceptanceTrend() (older float64, newer float64, ok bool) {
	return c.Recent.HalfMeans()
}
