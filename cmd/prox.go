package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newProxCmd(sp *startupParams) *cobra.Command {
	rf := &regFlags{}
	var point string
	var gamma float64

	c := &cobra.Command{
		Use:   "prox",
		Short: "Resolve a regularization and apply its proximal to a point",
		Long: `prox resolves the given constraint and regularization presets the way a
regularized Gaussian prior does, then applies the result to --point. A single
proximal is printed as one vector; a split policy prints prox_i(L_i x) for
every (proximal, operator) entry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProx(sp, rf, point, gamma)
		},
	}

	rf.register(c.Flags())
	c.Flags().StringVarP(&point, "point", "p", "", "Point to apply the proximal to (space or comma separated)")
	c.Flags().Float64Var(&gamma, "gamma", 1, "Proximal scale")

	return c
}

func runProx(sp *startupParams, rf *regFlags, point string, gamma float64) error {
	x, err := parseVector(point)
	if err != nil {
		return errors.Wrap(err, "Invalid point")
	}
	prior, err := rf.prior(len(x))
	if err != nil {
		return err
	}

	sp.verbosef("Preset %+v on %v\n", prior.Preset(), prior.Geometry())

	policy := prior.Proximal()
	if prox, ok := policy.Single(); ok {
		sp.out.Printf("single: %s\n", formatVector(prox(x, gamma)))
		return nil
	}

	pairs, _ := policy.Split()
	for i, p := range pairs {
		r, c := p.Op.Dims()
		sp.out.Printf("split[%d] (%dx%d): %s\n", i, r, c, formatVector(p.Prox(p.Op.Apply(x), gamma)))
	}
	return nil
}
