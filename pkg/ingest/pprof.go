package ingest

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/google/pprof/profile"
	"github.com/pkg/errors"

	"github.com/maxgio92/xstack/pkg/canon"
	"github.com/maxgio92/xstack/pkg/frame"
)

// ReadPprof ingests a pprof profile. Each sample is weighted by its value
// of the first sample type counted in "count" units, or of the default
// sample type when none is, or else of the first one. Samples with a
// non-positive weight are skipped.
func (i *Ingestor) ReadPprof(ctx context.Context, r io.Reader) error {
	if i.agg == nil {
		return ErrAggregatorNil
	}

	p, err := profile.Parse(r)
	if err != nil {
		return errors.Wrap(err, "failed to parse pprof profile")
	}
	if len(p.SampleType) == 0 {
		return nil
	}
	idx := weightIndex(p)

	for n, s := range p.Sample {
		if err := ctx.Err(); err != nil {
			return err
		}
		if idx >= len(s.Value) || s.Value[idx] <= 0 {
			continue
		}

		trace := i.pprofFrames(s)
		if len(trace) == 0 {
			continue
		}
		slices.Reverse(trace)

		if err := i.record(canon.Canonicalize(trace), uint64(s.Value[idx]), FormatPprof); err != nil {
			return errors.Wrapf(err, "sample %d", n)
		}
	}

	return nil
}

func weightIndex(p *profile.Profile) int {
	for n, st := range p.SampleType {
		if st.Unit == "count" {
			return n
		}
	}
	if p.DefaultSampleType != "" {
		for n, st := range p.SampleType {
			if st.Type == p.DefaultSampleType {
				return n
			}
		}
	}

	return 0
}

// pprofFrames returns the frames of s leaf first. Inlined functions of a
// location come before their caller.
func (i *Ingestor) pprofFrames(s *profile.Sample) []frame.Frame {
	var frames []frame.Frame
	for _, loc := range s.Location {
		if len(loc.Line) == 0 {
			frames = append(frames, fmt.Sprintf("0x%x", loc.Address))
			continue
		}
		for _, line := range loc.Line {
			if line.Function == nil {
				frames = append(frames, fmt.Sprintf("0x%x", loc.Address))
				continue
			}
			frames = append(frames, i.normalizer.Symbol(line.Function.Name))
		}
	}

	return frames
}
