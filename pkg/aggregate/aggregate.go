// Package aggregate holds the frequency tables built from canonical stack
// traces and the call graph derived from them.
//
// An Aggregator has two phases. During ingestion Record is called by a
// single goroutine. FinalizeGraph ends ingestion; from then on the tables
// are immutable and every read method is safe for concurrent use.
package aggregate

import (
	"cmp"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/maxgio92/xstack/pkg/frame"
)

// Count is a Path together with its number of samples.
type Count struct {
	Path  Path
	Count uint64
}

// Edge is one weighted neighbor of a Path in the call graph.
type Edge struct {
	Frame frame.Frame
	Count uint64
}

type Aggregator struct {
	total uint64

	self     map[frame.Frame]uint64
	overall  map[Key]*Count
	traces   map[Key]*Count
	incoming map[Key]map[frame.Frame]uint64
	outgoing map[Key]map[frame.Frame]uint64

	finalized bool
}

func New() *Aggregator {
	return &Aggregator{
		self:    make(map[frame.Frame]uint64),
		overall: make(map[Key]*Count),
		traces:  make(map[Key]*Count),
	}
}

// Record accounts one canonical trace with the given weight.
// Either all tables are updated or, on error, none is.
func (a *Aggregator) Record(trace Path, weight uint64) error {
	if a.finalized {
		return ErrFinalized
	}
	if len(trace) == 0 {
		return ErrEmptyTrace
	}
	if weight == 0 {
		return ErrZeroWeight
	}

	a.total += weight
	add(a.traces, trace, weight)

	for _, sub := range Subpaths(trace) {
		add(a.overall, sub, weight)
	}

	a.self[trace.Last()] += weight

	return nil
}

func add(table map[Key]*Count, p Path, weight uint64) {
	k := p.Key()
	c, ok := table[k]
	if !ok {
		c = &Count{Path: slices.Clone(p)}
		table[k] = c
	}
	c.Count += weight
}

// Subpaths returns every distinct non-empty contiguous run of trace,
// the full trace included. A run occurring more than once is returned once.
func Subpaths(trace Path) []Path {
	n := len(trace) * (len(trace) + 1) / 2
	seen := make(map[Key]struct{}, n)
	subs := make([]Path, 0, n)

	for i := range trace {
		var b strings.Builder
		for j := i; j < len(trace); j++ {
			if j > i {
				b.WriteString(keySep)
			}
			b.WriteString(trace[j])

			k := Key(b.String())
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			subs = append(subs, trace[i:j+1])
		}
	}

	return subs
}

// FinalizeGraph derives the incoming and outgoing edges of every Path from
// the overall table and freezes the Aggregator.
func (a *Aggregator) FinalizeGraph() error {
	if a.finalized {
		return ErrFinalized
	}

	a.incoming = make(map[Key]map[frame.Frame]uint64)
	a.outgoing = make(map[Key]map[frame.Frame]uint64)

	for _, c := range a.overall {
		if len(c.Path) < 2 {
			continue
		}
		addEdge(a.outgoing, c.Path.Head().Key(), c.Path.Last(), c.Count)
		addEdge(a.incoming, c.Path.Tail().Key(), c.Path.First(), c.Count)
	}
	a.finalized = true

	return nil
}

func addEdge(graph map[Key]map[frame.Frame]uint64, k Key, f frame.Frame, count uint64) {
	edges, ok := graph[k]
	if !ok {
		edges = make(map[frame.Frame]uint64)
		graph[k] = edges
	}
	edges[f] += count
}

func (a *Aggregator) Finalized() bool {
	return a.finalized
}

// Total is the number of samples recorded, weights included.
func (a *Aggregator) Total() uint64 {
	return a.total
}

func (a *Aggregator) Self(f frame.Frame) uint64 {
	return a.self[f]
}

// Overall returns the number of samples whose trace contains p, and whether
// p was ever observed.
func (a *Aggregator) Overall(p Path) (uint64, bool) {
	c, ok := a.overall[p.Key()]
	if !ok {
		return 0, false
	}

	return c.Count, true
}

func (a *Aggregator) Trace(p Path) uint64 {
	if c, ok := a.traces[p.Key()]; ok {
		return c.Count
	}

	return 0
}

// Incoming lists the frames observed right before p, by descending count.
func (a *Aggregator) Incoming(p Path) ([]Edge, error) {
	if !a.finalized {
		return nil, ErrNotFinalized
	}

	return sortedEdges(a.incoming[p.Key()]), nil
}

// Outgoing lists the frames observed right after p, by descending count.
func (a *Aggregator) Outgoing(p Path) ([]Edge, error) {
	if !a.finalized {
		return nil, ErrNotFinalized
	}

	return sortedEdges(a.outgoing[p.Key()]), nil
}

func sortedEdges(m map[frame.Frame]uint64) []Edge {
	edges := make([]Edge, 0, len(m))
	for f, c := range m {
		edges = append(edges, Edge{Frame: f, Count: c})
	}
	slices.SortFunc(edges, func(x, y Edge) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		return strings.Compare(x.Frame, y.Frame)
	})

	return edges
}

// SelfCounts yields the leaf frames and their self counts in no particular order.
func (a *Aggregator) SelfCounts() iter.Seq2[frame.Frame, uint64] {
	return func(yield func(frame.Frame, uint64) bool) {
		for f, c := range a.self {
			if !yield(f, c) {
				return
			}
		}
	}
}

// Frames returns the distinct leaf frames, sorted by name.
func (a *Aggregator) Frames() []frame.Frame {
	return slices.Sorted(maps.Keys(a.self))
}

// OverallCounts yields every observed Path in no particular order.
func (a *Aggregator) OverallCounts() iter.Seq[Count] {
	return seq(a.overall)
}

// TraceCounts yields every distinct canonical trace in no particular order.
func (a *Aggregator) TraceCounts() iter.Seq[Count] {
	return seq(a.traces)
}

func seq(table map[Key]*Count) iter.Seq[Count] {
	return func(yield func(Count) bool) {
		for _, c := range table {
			if !yield(*c) {
				return
			}
		}
	}
}

// Sorted collects counts by descending count, ties broken by path.
func Sorted(counts iter.Seq[Count]) []Count {
	out := slices.Collect(counts)
	slices.SortFunc(out, CompareCounts)

	return out
}

func CompareCounts(x, y Count) int {
	if c := cmp.Compare(y.Count, x.Count); c != 0 {
		return c
	}

	return slices.Compare(x.Path, y.Path)
}
