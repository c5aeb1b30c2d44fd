package ingest

import (
	"bufio"
	"context"
	"io"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxgio92/xstack/pkg/frame"
)

const maxLineSize = 1024 * 1024

// ReadRaw ingests a "perf script" style dump: a header line per sample,
// then one indented "address name module" record per stack level, leaf
// first, and a blank line ending the sample.
func (i *Ingestor) ReadRaw(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		records []string
		lines   []int
		n       int
	)
	flush := func() error {
		defer func() {
			records = records[:0]
			lines = lines[:0]
		}()
		if err := i.IngestRawSample(records); err != nil {
			var line int
			var text string
			if len(lines) > 0 {
				line, text = lines[0], records[0]
			}
			if idx := malformedIndex(err, records); idx >= 0 {
				line, text = lines[idx], records[idx]
			}
			return &ParseError{Line: line, Text: text, Err: err}
		}
		return nil
	}

	for scanner.Scan() {
		n++
		line := scanner.Text()

		switch {
		case strings.TrimSpace(line) == "":
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := flush(); err != nil {
				return err
			}
		case line[0] == ' ' || line[0] == '\t':
			records = append(records, line)
			lines = append(lines, n)
		default:
			// Sample header, e.g. "app 1234 5678.123: 10101 cycles:".
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "failed to scan input")
	}

	return flush()
}

func malformedIndex(err error, records []string) int {
	var malformed *frame.MalformedRecordError
	if !errors.As(err, &malformed) {
		return -1
	}

	return slices.Index(records, malformed.Record)
}
