package ingest

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

type Format int

const (
	FormatAuto Format = iota
	// FormatRaw is the per-sample "perf script" text dump.
	FormatRaw
	// FormatFolded is the pre-aggregated "<count> <frame;...>" encoding.
	FormatFolded
	// FormatPprof is a pprof protocol buffer profile.
	FormatPprof
)

const sniffLen = 512

var formatNames = map[Format]string{
	FormatAuto:   "auto",
	FormatRaw:    "raw",
	FormatFolded: "folded",
	FormatPprof:  "pprof",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}

	return "unknown"
}

func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}

	return FormatAuto, errors.Wrapf(ErrUnknownFormat, "%q", s)
}

// Formats lists the accepted format names.
func Formats() []string {
	return []string{"auto", "raw", "folded", "pprof"}
}

// Detect sniffs the beginning of r, transparently decompressing gzip, and
// returns a reader positioned at the start of the (decompressed) input.
func Detect(r io.Reader) (io.Reader, Format, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, FormatAuto, errors.Wrap(err, "failed to read input")
	}

	if isGzip(head) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, FormatAuto, errors.Wrap(err, "failed to open gzip stream")
		}
		return Detect(zr)
	}

	return br, sniff(head), nil
}

func isGzip(head []byte) bool {
	return len(head) >= 2 && head[0] == 0x1f && head[1] == 0x8b
}

func sniff(head []byte) Format {
	if isBinary(head) {
		return FormatPprof
	}

	for _, line := range bytes.Split(head, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return FormatRaw
		}
		fields := bytes.Fields(line)
		if len(fields) >= 2 && isDigits(fields[0]) {
			return FormatFolded
		}
		return FormatRaw
	}

	return FormatRaw
}

func isBinary(head []byte) bool {
	for _, b := range head {
		if b < 0x20 && b != '\n' && b != '\r' && b != '\t' {
			return true
		}
		if b == 0x7f {
			return true
		}
	}

	return false
}

func isDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}

	return len(b) > 0
}
