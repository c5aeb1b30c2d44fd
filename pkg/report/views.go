// Package report builds the ranked, read-only views over a finalized
// Aggregator and renders them as text, tables or JSON.
package report

import (
	"cmp"
	"slices"
	"strings"

	"github.com/maxgio92/xstack/pkg/aggregate"
)

// Entry is one ranked line of a view. Link is the path, in its ';'-joined
// form, that the entry leads to.
type Entry struct {
	Percent float64 `json:"percent"`
	Count   uint64  `json:"count"`
	Name    string  `json:"name"`
	Link    string  `json:"link"`
}

type Overview struct {
	Samples uint64 `json:"samples"`
	Stacks  int    `json:"stacks"`
	Frames  int    `json:"frames"`
}

// PathDetail is the drill-down view of one path: a breadcrumb with the
// overall count of every prefix, and the call graph neighbors of the path.
type PathDetail struct {
	Path       string  `json:"path"`
	Count      uint64  `json:"count"`
	Percent    float64 `json:"percent"`
	Breadcrumb []Entry `json:"breadcrumb"`
	Incoming   []Entry `json:"incoming"`
	Outgoing   []Entry `json:"outgoing"`
}

// Percent is 100*count/total, or 0 when total is 0.
func Percent(count, total uint64) float64 {
	if total == 0 {
		return 0
	}

	return 100.0 * float64(count) / float64(total)
}

func NewOverview(agg *aggregate.Aggregator) Overview {
	stats := agg.Stats()

	return Overview{
		Samples: stats.Samples,
		Stacks:  stats.Traces,
		Frames:  stats.Frames,
	}
}

// Overall ranks single frames by the number of samples they appear in.
func Overall(agg *aggregate.Aggregator) []Entry {
	total := agg.Total()
	var entries []Entry
	for _, c := range aggregate.Sorted(agg.OverallCounts()) {
		if len(c.Path) != 1 {
			continue
		}
		entries = append(entries, pathEntry(c, total))
	}

	return entries
}

// Self ranks frames by the number of samples they are the leaf of.
func Self(agg *aggregate.Aggregator) []Entry {
	total := agg.Total()
	var entries []Entry
	for f, c := range agg.SelfCounts() {
		entries = append(entries, Entry{
			Percent: Percent(c, total),
			Count:   c,
			Name:    f,
			Link:    f,
		})
	}
	slices.SortFunc(entries, compareEntries)

	return entries
}

// Sequences ranks the distinct full canonical traces.
func Sequences(agg *aggregate.Aggregator) []Entry {
	total := agg.Total()
	var entries []Entry
	for _, c := range aggregate.Sorted(agg.TraceCounts()) {
		entries = append(entries, pathEntry(c, total))
	}

	return entries
}

// Detail builds the drill-down view of path. Edge percentages are relative
// to the path's own count.
func Detail(agg *aggregate.Aggregator, path aggregate.Path) (*PathDetail, error) {
	count, ok := agg.Overall(path)
	if len(path) == 0 || !ok {
		return nil, &NotFoundError{Path: path.String()}
	}

	total := agg.Total()
	d := &PathDetail{
		Path:    path.String(),
		Count:   count,
		Percent: Percent(count, total),
	}

	for i := range path {
		prefix := path[:i+1]
		c, _ := agg.Overall(prefix)
		d.Breadcrumb = append(d.Breadcrumb, Entry{
			Percent: Percent(c, total),
			Count:   c,
			Name:    path[i],
			Link:    prefix.String(),
		})
	}

	incoming, err := agg.Incoming(path)
	if err != nil {
		return nil, err
	}
	for _, e := range incoming {
		d.Incoming = append(d.Incoming, edgeEntry(e, count, path.Prepend(e.Frame)))
	}

	outgoing, err := agg.Outgoing(path)
	if err != nil {
		return nil, err
	}
	for _, e := range outgoing {
		d.Outgoing = append(d.Outgoing, edgeEntry(e, count, path.Append(e.Frame)))
	}

	return d, nil
}

func pathEntry(c aggregate.Count, total uint64) Entry {
	s := c.Path.String()

	return Entry{
		Percent: Percent(c.Count, total),
		Count:   c.Count,
		Name:    s,
		Link:    s,
	}
}

func edgeEntry(e aggregate.Edge, base uint64, link aggregate.Path) Entry {
	return Entry{
		Percent: Percent(e.Count, base),
		Count:   e.Count,
		Name:    e.Frame,
		Link:    link.String(),
	}
}

func compareEntries(x, y Entry) int {
	if c := cmp.Compare(y.Count, x.Count); c != 0 {
		return c
	}

	return strings.Compare(x.Name, y.Name)
}
