package report

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/pkg/errors"

	"github.com/maxgio92/xstack/pkg/aggregate"
)

const ellipsis = "   ..."

type textWriter struct {
	w   *bufio.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) line(percent float64, count uint64, name string) {
	t.printf("%8.2f%% % 8d %s\n", percent, count, name)
}

func (t *textWriter) section(title, rule string) {
	t.printf("%s\n%s\n", title, rule)
}

func (t *textWriter) ranking(entries []Entry, policy Truncation) {
	for i, e := range entries {
		if policy.Stop(i+1, e.Percent) {
			t.printf("%s\n", ellipsis)
			return
		}
		t.line(e.Percent, e.Count, e.Name)
	}
}

// WriteText writes the batch summary: frames by overall time, frames by
// self time, then the call graph around every path, most frequent first.
func WriteText(w io.Writer, agg *aggregate.Aggregator, policy Truncation) error {
	if !agg.Finalized() {
		return aggregate.ErrNotFinalized
	}

	t := &textWriter{w: bufio.NewWriter(w)}

	t.section("Overall", "=======")
	t.ranking(Overall(agg), policy)

	t.printf("\n")
	t.section("Self", "====")
	t.ranking(Self(agg), policy)

	t.printf("\n")
	t.section("Graph", "====")
	if err := writeGraph(t, agg, policy); err != nil {
		return err
	}

	if t.err != nil {
		return errors.Wrap(t.err, "failed to write text report")
	}

	return errors.Wrap(t.w.Flush(), "failed to write text report")
}

func writeGraph(t *textWriter, agg *aggregate.Aggregator, policy Truncation) error {
	total := agg.Total()
	for i, c := range aggregate.Sorted(agg.OverallCounts()) {
		percent := Percent(c.Count, total)
		if policy.Stop(i+1, percent) {
			t.printf("%s\n", ellipsis)
			return nil
		}

		t.printf("\n")
		incoming, err := agg.Incoming(c.Path)
		if err != nil {
			return err
		}
		// Callers are listed least frequent first, so that the heaviest
		// caller sits right above the separator.
		slices.SortStableFunc(incoming, func(x, y aggregate.Edge) int {
			return cmp.Compare(x.Count, y.Count)
		})
		for _, e := range incoming {
			t.line(Percent(e.Count, c.Count), e.Count, e.Frame)
		}

		t.printf("----\n")
		t.line(percent, c.Count, c.Path.String())
		t.printf("----\n")

		outgoing, err := agg.Outgoing(c.Path)
		if err != nil {
			return err
		}
		for _, e := range outgoing {
			t.line(Percent(e.Count, c.Count), e.Count, e.Frame)
		}
	}

	return nil
}
