package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CraigKelly/imprior/operator"
	"github.com/CraigKelly/imprior/solver"
)

func newFISTACmd(sp *startupParams) *cobra.Command {
	rf := &regFlags{}
	var data string
	opts := solver.DefaultFISTAOptions()

	c := &cobra.Command{
		Use:   "fista",
		Short: "Denoise data with FISTA under a regularized prior",
		Long: `fista solves min 0.5||x - b||^2 + g(x) where g comes from the resolved
regularization. Only presets resolving to a single proximal are supported.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFISTA(sp, rf, data, opts)
		},
	}

	rf.register(c.Flags())
	c.Flags().StringVarP(&data, "data", "d", "", "Data vector b (space or comma separated)")
	c.Flags().Float64Var(&opts.StepSize, "step", opts.StepSize, "Gradient step size")
	c.Flags().IntVar(&opts.MaxIter, "iters", opts.MaxIter, "Maximum iterations")
	c.Flags().Float64Var(&opts.AbsTol, "tol", opts.AbsTol, "Stop when successive iterates are closer than this")

	return c
}

func runFISTA(sp *startupParams, rf *regFlags, data string, opts solver.FISTAOptions) error {
	b, err := parseVector(data)
	if err != nil {
		return errors.Wrap(err, "Invalid data")
	}
	prior, err := rf.prior(len(b))
	if err != nil {
		return err
	}

	prox, ok := prior.Proximal().Single()
	if !ok {
		return errors.Errorf("Regularization resolved to %d split terms; FISTA needs a single proximal", prior.Proximal().Len())
	}

	id, err := operator.NewIdentity(len(b))
	if err != nil {
		return err
	}
	res, err := solver.FISTA(id, b, make([]float64, len(b)), prox, opts)
	if err != nil {
		return errors.Wrap(err, "FISTA failed")
	}

	sp.verbosef("FISTA options %+v\n", opts)
	sp.out.Printf("x: %s\n", formatVector(res.X))
	sp.out.Printf("iterations: %d converged: %v\n", res.Iterations, res.Converged)
	return nil
}
