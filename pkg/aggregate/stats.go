package aggregate

import (
	"github.com/pkg/errors"
)

type Stats struct {
	Samples uint64 `json:"samples"`
	Traces  int    `json:"traces"`
	Paths   int    `json:"paths"`
	Frames  int    `json:"frames"`
}

func (a *Aggregator) Stats() Stats {
	return Stats{
		Samples: a.total,
		Traces:  len(a.traces),
		Paths:   len(a.overall),
		Frames:  len(a.self),
	}
}

// Check verifies the relations that must hold between the tables.
func (a *Aggregator) Check() error {
	var traces, selfs uint64
	for _, c := range a.traces {
		traces += c.Count
	}
	for _, c := range a.self {
		selfs += c
	}
	if traces != a.total {
		return errors.Errorf("trace counts sum to %d, total is %d", traces, a.total)
	}
	if selfs != a.total {
		return errors.Errorf("self counts sum to %d, total is %d", selfs, a.total)
	}

	for _, c := range a.overall {
		if len(c.Path) != 1 {
			continue
		}
		if c.Count > a.total {
			return errors.Errorf("frame %s: overall count %d exceeds total %d", c.Path, c.Count, a.total)
		}
		if self := a.self[c.Path.First()]; c.Count < self {
			return errors.Errorf("frame %s: overall count %d below self count %d", c.Path, c.Count, self)
		}
	}

	if !a.finalized {
		return nil
	}
	for _, c := range a.overall {
		if len(c.Path) < 2 {
			continue
		}
		if out := a.outgoing[c.Path.Head().Key()][c.Path.Last()]; out != c.Count {
			return errors.Errorf("path %s: outgoing edge %d, overall %d", c.Path, out, c.Count)
		}
		if in := a.incoming[c.Path.Tail().Key()][c.Path.First()]; in != c.Count {
			return errors.Errorf("path %s: incoming edge %d, overall %d", c.Path, in, c.Count)
		}
	}

	return nil
}
