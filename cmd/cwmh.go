package cmd

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/CraigKelly/imprior/distribution"
	"github.com/CraigKelly/imprior/sampler"
)

type cwmhParams struct {
	dim      int
	std      float64
	scale    float64
	warmup   int
	samples  int
	tuneFreq int
	window   int
}

func newCWMHCmd(sp *startupParams) *cobra.Command {
	p := &cwmhParams{}

	c := &cobra.Command{
		Use:   "cwmh",
		Short: "Sample an isotropic Gaussian with component-wise Metropolis-Hastings",
		Long: `cwmh runs warmup (with scale tuning) and then sampling on an N(0, std^2 I)
target, and reports acceptance, the tuned scale and the error of the sample
moments against the known ones.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCWMH(sp, p)
		},
	}

	fs := c.Flags()
	fs.IntVarP(&p.dim, "dim", "d", 3, "Target dimension")
	fs.Float64Var(&p.std, "std", 1, "Target standard deviation")
	fs.Float64Var(&p.scale, "scale", 1, "Initial random walk scale")
	fs.IntVarP(&p.warmup, "warmup", "w", 1000, "Warmup steps (tuned)")
	fs.IntVarP(&p.samples, "samples", "n", 1000, "Sampling steps after warmup")
	fs.IntVar(&p.tuneFreq, "tune-freq", 10, "Tune after this many warmup steps (0 disables tuning)")
	fs.IntVar(&p.window, "window", sampler.DefaultAcceptanceWindow, "Recent acceptance window")

	return c
}

func runCWMH(sp *startupParams, p *cwmhParams) error {
	if p.dim < 1 || !(p.std > 0) {
		return errors.Errorf("Invalid target dim=%d std=%v", p.dim, p.std)
	}

	target, err := distribution.NewGaussian(distribution.GaussianConfig{
		Name: "x",
		Mean: make([]float64, p.dim),
		Cov:  distribution.ScalarMatrix(p.dim, p.std*p.std),
	})
	if err != nil {
		return errors.Wrap(err, "Could not create target")
	}

	cwmh, err := sampler.NewCWMH(target, sampler.CWMHConfig{
		Scale: []float64{p.scale},
		Gen:   sp.gen,
	})
	if err != nil {
		return err
	}

	startTime := time.Now()
	mon := sp.mon
	if mon != nil {
		mon.Warmup.Set(int64(p.warmup))
		mon.Samples.Set(int64(p.samples))
		mon.TuneFreq.Set(int64(p.tuneFreq))
	}

	var chain *sampler.Chain
	chain, err = sampler.NewChain(cwmh, sampler.ChainOptions{
		Window: p.window,
		Callback: func(sample []float64, index int) {
			if mon == nil {
				return
			}
			mon.TotalSamples.Set(int64(index + 1))
			mon.RunTime.Set(time.Since(startTime).Seconds())
			mon.Acceptance.Set(chain.AcceptanceRate())
			mon.RecentAcceptance.Set(chain.RecentAcceptance())
		},
		Tune: func(update int) {
			scale := cwmh.Scale()
			meanScale := stat.Mean(scale, nil)
			sp.verbosef("Tune %4d | recent acceptance %.3f | mean scale %.4f\n", update, chain.RecentAcceptance(), meanScale)
			if older, newer, ok := chain.AcceptanceTrend(); ok {
				sp.trace.Printf("Tune %4d | acceptance trend %.3f -> %.3f\n", update, older, newer)
			}
			if mon != nil {
				mon.TuneUpdates.Add(1)
				mon.MeanScale.Set(meanScale)
			}
		},
	})
	if err != nil {
		return err
	}

	sp.out.Printf("CWMH on N(0, %g^2 I) dim=%d warmup=%d samples=%d\n", p.std, p.dim, p.warmup, p.samples)
	if err := chain.Warmup(p.warmup, p.tuneFreq); err != nil {
		return err
	}
	warmAccept := chain.AcceptanceRate() * float64(chain.TotalSampleCount)
	if err := chain.Sample(p.samples); err != nil {
		return err
	}

	rate := math.NaN()
	if p.samples > 0 {
		rate = (chain.AcceptanceRate()*float64(chain.TotalSampleCount) - warmAccept) / float64(p.samples)
	}
	sp.out.Printf("acceptance: %.4f (target %.4f, recent %.4f)\n", rate, 0.21/float64(p.dim)+0.23, chain.RecentAcceptance())
	sp.out.Printf("scale: %s\n", formatVector(cwmh.Scale()))

	if p.samples < 2 {
		return nil
	}
	samples, err := chain.Samples.Burn(p.warmup)
	if err != nil {
		return err
	}
	mean, std := samples.Mean(), samples.Std()
	sp.out.Printf("mean: %s\n", formatVector(mean))
	sp.out.Printf("std:  %s\n", formatVector(std))

	meanErr, err := sampler.NewErrorSuite(mean, make([]float64, p.dim))
	if err != nil {
		return err
	}
	ref := make([]float64, p.dim)
	floats.AddConst(p.std, ref)
	stdErr, err := sampler.NewErrorSuite(std, ref)
	if err != nil {
		return err
	}
	sp.out.Printf("mean error | MeanAE:%8.4f MaxAE:%8.4f RMSE:%8.4f\n", meanErr.MeanAbsError, meanErr.MaxAbsError, meanErr.RMSError)
	sp.out.Printf("std error  | MeanAE:%8.4f MaxAE:%8.4f MaxRel:%8.4f\n", stdErr.MeanAbsError, stdErr.MaxAbsError, stdErr.MaxRelError)
	sp.trace.Printf("run %s: %d total steps in %v\n", sp.runID, chain.TotalSampleCount, time.Since(startTime))

	return nil
}
