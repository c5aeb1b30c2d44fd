package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/maxgio92/xstack/internal/output"
	"github.com/maxgio92/xstack/internal/settings"
	"github.com/maxgio92/xstack/pkg/aggregate"
	"github.com/maxgio92/xstack/pkg/cmd/options"
	"github.com/maxgio92/xstack/pkg/ingest"
)

const statusRefreshRate = 200 * time.Millisecond

// ReadPid returns the PID stored in the PID file of the daemon.
func ReadPid() (int, error) {
	pidData, err := os.ReadFile(settings.PidFile)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return 0, errors.Wrap(err, "invalid PID file")
	}

	return pid, nil
}

func IsDaemonRunning() bool {
	pid, err := ReadPid()
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Check if process exists
	return process.Signal(syscall.Signal(0)) == nil
}

// IngestOptions configures Ingest.
type IngestOptions struct {
	Inputs     []string
	Status     bool
	Registerer prometheus.Registerer
}

// Ingest reads the inputs into an Aggregator and finalizes it.
func Ingest(o *options.CommonOptions, in *options.InputOptions, opts IngestOptions) (*aggregate.Aggregator, error) {
	format, err := in.ParseFormat()
	if err != nil {
		return nil, err
	}

	agg := aggregate.New()
	ingestor := ingest.NewIngestor(
		ingest.WithAggregator(agg),
		ingest.WithNormalizer(in.Normalizer()),
		ingest.WithLogger(o.Logger),
		ingest.WithRegisterer(opts.Registerer),
	)

	start := time.Now()
	if opts.Status {
		stop := startStatus(o.Ctx, ingestor)
		defer stop()
	}

	if err := ingestor.ReadFiles(o.Ctx, opts.Inputs, format); err != nil {
		return nil, err
	}
	if agg.Total() == 0 {
		o.Logger.Warn().Err(aggregate.ErrEmptyInput).Msg("percentages are reported as 0")
	}
	if err := agg.FinalizeGraph(); err != nil {
		return nil, errors.Wrap(err, "failed to finalize the call graph")
	}

	stats := agg.Stats()
	o.Logger.Info().
		Uint64("samples", stats.Samples).
		Int("traces", stats.Traces).
		Int("paths", stats.Paths).
		Dur("elapsed", time.Since(start)).
		Msg("ingestion completed")

	return agg, nil
}

func startStatus(ctx context.Context, ingestor *ingest.Ingestor) func() {
	ctx, cancel := context.WithCancel(ctx)
	status := output.NewIngestStatus(ingestor.Samples)
	done := make(chan struct{})

	go func() {
		defer close(done)
		output.StatusBar(ctx, statusRefreshRate, status.Print)
	}()

	return func() {
		cancel()
		<-done
		status.Print()
		fmt.Fprintln(os.Stderr)
	}
}
