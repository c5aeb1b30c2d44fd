package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/maxgio92/xstack/pkg/aggregate"
)

// WriteTable renders the overview and the three rankings as ASCII tables.
func WriteTable(w io.Writer, agg *aggregate.Aggregator, policy Truncation) error {
	o := NewOverview(agg)
	if _, err := fmt.Fprintf(w, "Samples: %d\nStacks: %d\nFrames: %d\n", o.Samples, o.Stacks, o.Frames); err != nil {
		return err
	}

	sections := []struct {
		title   string
		header  string
		entries []Entry
	}{
		{"Frames by overall time", "Frame", Overall(agg)},
		{"Frames by self time", "Frame", Self(agg)},
		{"Full sequences", "Sequence", Sequences(agg)},
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "\n%s\n", s.title); err != nil {
			return err
		}
		entries, cut := policy.Truncate(s.entries)
		writeTable(w, s.header, entries, cut)
	}

	return nil
}

func writeTable(w io.Writer, header string, entries []Entry, cut bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"%", "Count", header})
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, e := range entries {
		table.Append([]string{
			strconv.FormatFloat(e.Percent, 'f', 2, 64) + "%",
			strconv.FormatUint(e.Count, 10),
			e.Name,
		})
	}
	if cut {
		table.Append([]string{"", "", "..."})
	}
	table.Render()
}
