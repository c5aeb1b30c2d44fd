// Package ingest reads captured stack samples and feeds them, normalized and
// canonicalized, to an Aggregator.
package ingest

import (
	"context"
	"io"
	"slices"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/xstack/pkg/aggregate"
	"github.com/maxgio92/xstack/pkg/canon"
	"github.com/maxgio92/xstack/pkg/frame"
)

// Ingestor is not safe for concurrent use, except for Samples which may be
// polled while ingestion is running.
type Ingestor struct {
	agg        *aggregate.Aggregator
	normalizer *frame.Normalizer
	logger     log.Logger
	reg        prometheus.Registerer
	metrics    *metrics

	samples atomic.Uint64
}

type Option func(i *Ingestor)

func NewIngestor(opts ...Option) *Ingestor {
	i := &Ingestor{
		normalizer: frame.NewNormalizer(),
		logger:     log.Nop(),
	}
	for _, f := range opts {
		f(i)
	}
	i.logger = i.logger.With().Str("component", "ingest").Logger()
	i.metrics = newMetrics(i.reg)

	return i
}

func WithAggregator(agg *aggregate.Aggregator) Option {
	return func(i *Ingestor) {
		i.agg = agg
	}
}

func WithNormalizer(n *frame.Normalizer) Option {
	return func(i *Ingestor) {
		i.normalizer = n
	}
}

func WithLogger(logger log.Logger) Option {
	return func(i *Ingestor) {
		i.logger = logger
	}
}

// WithRegisterer enables ingestion metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(i *Ingestor) {
		i.reg = reg
	}
}

// Samples returns the number of samples ingested so far, weights excluded.
func (i *Ingestor) Samples() uint64 {
	return i.samples.Load()
}

// IngestRawSample normalizes the captured records of one sample, which are
// ordered leaf first, and records the canonical root-first trace.
// A sample without records is ignored.
func (i *Ingestor) IngestRawSample(records []string) error {
	if i.agg == nil {
		return ErrAggregatorNil
	}
	if len(records) == 0 {
		return nil
	}

	trace := make([]frame.Frame, 0, len(records))
	for _, r := range records {
		f, err := i.normalizer.Normalize(r)
		if err != nil {
			return err
		}
		trace = append(trace, f)
	}
	slices.Reverse(trace)

	return i.record(canon.Canonicalize(trace), 1, FormatRaw)
}

// IngestAggregatedLine records an already canonical root-first path
// count times.
func (i *Ingestor) IngestAggregatedLine(count uint64, path aggregate.Path) error {
	if i.agg == nil {
		return ErrAggregatorNil
	}
	if count == 0 {
		return ErrMalformedCount
	}
	if len(path) == 0 {
		return ErrMissingPath
	}

	return i.record(path, count, FormatFolded)
}

func (i *Ingestor) record(trace aggregate.Path, weight uint64, format Format) error {
	if err := i.agg.Record(trace, weight); err != nil {
		return errors.Wrapf(err, "failed to record trace %s", trace)
	}
	i.samples.Add(1)
	i.metrics.observe(format, weight)

	return nil
}

// Read ingests the whole stream in the given format. FormatAuto sniffs it.
// Gzip compressed input is decompressed in any format.
func (i *Ingestor) Read(ctx context.Context, r io.Reader, format Format) error {
	r, sniffed, err := Detect(r)
	if err != nil {
		return err
	}
	if format == FormatAuto {
		format = sniffed
	}
	i.logger.Debug().Str("format", format.String()).Msg("reading samples")

	switch format {
	case FormatRaw:
		return i.ReadRaw(ctx, r)
	case FormatFolded:
		return i.ReadAggregated(ctx, r)
	case FormatPprof:
		return i.ReadPprof(ctx, r)
	default:
		return errors.Wrapf(ErrUnknownFormat, "%d", format)
	}
}
