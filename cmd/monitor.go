package cmd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
)

type monitor struct {
	Addr string

	info    *expvar.Map
	stopped chan struct{}
	server  *http.Server

	RunID            *expvar.String
	Warmup           *expvar.Int
	Samples          *expvar.Int
	TuneFreq         *expvar.Int
	TotalSamples     *expvar.Int
	TuneUpdates      *expvar.Int
	RunTime          *expvar.Float
	Acceptance       *expvar.Float
	RecentAcceptance *expvar.Float
	MeanScale        *expvar.Float
}

// Start begins the monitor
func (m *monitor) Start() error {
	if m.info != nil {
		return errors.Errorf("BUG: You may only start the process monitor once")
	}
	if m.Addr == "" {
		m.Addr = ":8000"
	}

	m.info = expvar.NewMap("imprior-progress")
	m.stopped = make(chan struct{})
	m.server = &http.Server{
		Addr: m.Addr,
	}

	// Help the user and redirect to the only thing currently available:
	// the handler from the expvar package
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/debug/vars", http.StatusTemporaryRedirect)
	})

	m.RunID = expvar.NewString("Run-ID")
	m.Warmup = expvar.NewInt("Warmup")
	m.Samples = expvar.NewInt("Samples")
	m.TuneFreq = expvar.NewInt("Tune-Frequency")
	m.TotalSamples = expvar.NewInt("Total-Samples")
	m.TuneUpdates = expvar.NewInt("Tune-Updates")
	m.RunTime = expvar.NewFloat("Run-Time")
	m.Acceptance = expvar.NewFloat("Acceptance")
	m.RecentAcceptance = expvar.NewFloat("Recent-Acceptance")
	m.MeanScale = expvar.NewFloat("Mean-Scale")

	// Actual server that will close the stopped channel on exit
	started := make(chan struct{})
	go func() {
		defer close(m.stopped)
		fmt.Fprintf(os.Stderr, "HTTP now available at %v (see debug/vars/)\n", m.server.Addr)
		close(started)
		m.server.ListenAndServe()
	}()

	<-started
	return nil
}

func (m *monitor) Stop() {
	if m.info == nil {
		return
	}

	m.server.Close()

	select {
	case <-m.stopped:
		fmt.Fprintf(os.Stderr, "HTTP Info Stopped\n")
	case <-time.After(2 * time.Second):
		fmt.Fprintf(os.Stderr, "HTTP would NOT stop: just continuing on\n")
	}
}
