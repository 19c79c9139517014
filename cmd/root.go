package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CraigKelly/imprior/rand"
)

// startupParams is the state shared by every command: persistent flag values
// plus what setup derives from them.
type startupParams struct {
	cfgFile     string
	verbose     bool
	randomSeed  int64
	seedKey     string
	traceFile   string
	monitor     bool
	monitorAddr string

	runID     uuid.UUID
	gen       *rand.Generator
	out       *log.Logger
	trace     *log.Logger
	traceDest *os.File
	mon       *monitor
}

// newRootCmd builds the command tree around a fresh startupParams
func newRootCmd() (*cobra.Command, *startupParams) {
	sp := &startupParams{}

	rootCmd := &cobra.Command{
		Use:   "imprior",
		Short: "MCMC sampling and implicit (proximal) priors",
		Long: `imprior provides sampling and regularization tools for inverse problems.
Among other features:

  - A component-wise Metropolis-Hastings sampler with adaptive scale tuning
  - Regularized Gaussian priors resolved to proximal operators
  - A FISTA proximal-gradient solver consuming those priors
`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return sp.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			sp.teardown()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&sp.cfgFile, "config", "c", "", "config file (default is $HOME/.imprior.yaml)")
	pf.BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	pf.Int64VarP(&sp.randomSeed, "seed", "r", 1, "Random seed to use")
	pf.StringVar(&sp.seedKey, "seed-key", "", "Seed from a list of 64 bit words instead of --seed")
	pf.StringVarP(&sp.traceFile, "trace", "t", "", "Trace file to write (default is none)")
	pf.BoolVar(&sp.monitor, "monitor", false, "Serve progress variables over HTTP (see /debug/vars)")
	pf.StringVar(&sp.monitorAddr, "monitor-addr", ":8000", "Listen address for --monitor")

	rootCmd.AddCommand(
		newCWMHCmd(sp),
		newProxCmd(sp),
		newFISTACmd(sp),
	)

	return rootCmd, sp
}

// setup reads the config file and creates loggers, the generator and the
// optional monitor
func (sp *startupParams) setup(cmd *cobra.Command) error {
	if err := applyConfig(cmd, sp.cfgFile); err != nil {
		return err
	}

	sp.out = log.New(cmd.OutOrStdout(), "", 0)

	if sp.traceFile == "" {
		sp.trace = log.New(io.Discard, "", 0)
	} else {
		f, err := os.Create(sp.traceFile)
		if err != nil {
			return errors.Wrapf(err, "Could not create trace file %s", sp.traceFile)
		}
		sp.traceDest = f
		sp.trace = log.New(f, "", log.LstdFlags)
	}

	sp.runID = uuid.New()
	gen, err := sp.generator()
	if err != nil {
		return errors.Wrap(err, "Could not create random generator")
	}
	sp.gen = gen
	sp.trace.Printf("run %s: %s seed=%d seed-key=%q verbose=%v\n", sp.runID, cmd.CommandPath(), sp.randomSeed, sp.seedKey, sp.verbose)

	if sp.monitor {
		sp.mon = &monitor{Addr: sp.monitorAddr}
		if err := sp.mon.Start(); err != nil {
			return err
		}
		sp.mon.RunID.Set(sp.runID.String())
	}

	return nil
}

// generator seeds from --seed-key when given, else from --seed
func (sp *startupParams) generator() (*rand.Generator, error) {
	if sp.seedKey == "" {
		return rand.NewGenerator(sp.randomSeed)
	}
	key, err := parseKey(sp.seedKey)
	if err != nil {
		return nil, err
	}
	return rand.NewGeneratorSlice(key)
}

func (sp *startupParams) teardown() {
	if sp.mon != nil {
		sp.mon.Stop()
	}
	if sp.traceDest != nil {
		sp.trace.Printf("run %s: done\n", sp.runID)
		sp.traceDest.Close()
	}
}

// verbosef writes to the trace always and to the output when verbose
func (sp *startupParams) verbosef(format string, args ...interface{}) {
	sp.trace.Printf(format, args...)
	if sp.verbose {
		sp.out.Printf(format, args...)
	}
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	rootCmd, _ := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
