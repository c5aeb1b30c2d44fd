package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxgio92/xstack/pkg/aggregate"
)

// ReadAggregated ingests "<count> <frame1;frame2;...>" lines whose paths are
// root first and already canonical. Blank lines are skipped.
func (i *Ingestor) ReadAggregated(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var n int
	for scanner.Scan() {
		n++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		count, path, err := ParseAggregatedLine(line)
		if err != nil {
			return &ParseError{Line: n, Text: line, Err: err}
		}
		if err := i.IngestAggregatedLine(count, path); err != nil {
			return &ParseError{Line: n, Text: line, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to scan input")
	}

	return nil
}

// ParseAggregatedLine splits one line of the pre-aggregated encoding. The
// count ends at the first blank; the rest of the line is the path, so frames
// may contain spaces. Empty frames are rejected.
func ParseAggregatedLine(line string) (uint64, aggregate.Path, error) {
	line = strings.TrimSpace(line)
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return 0, nil, ErrMalformedLine
	}

	count, err := strconv.ParseUint(line[:i], 10, 64)
	if err != nil || count == 0 {
		return 0, nil, ErrMalformedCount
	}

	path := aggregate.ParsePath(strings.TrimLeft(line[i:], " \t"))
	if slices.Contains(path, "") {
		return 0, nil, ErrMalformedLine
	}

	return count, path, nil
}

// WriteFolded writes every distinct trace of agg in the pre-aggregated
// encoding, most frequent first.
func WriteFolded(w io.Writer, agg *aggregate.Aggregator) error {
	bw := bufio.NewWriter(w)
	for _, c := range aggregate.Sorted(agg.TraceCounts()) {
		if _, err := fmt.Fprintf(bw, "%d %s\n", c.Count, c.Path); err != nil {
			return errors.Wrap(err, "failed to write folded trace")
		}
	}

	return bw.Flush()
}
